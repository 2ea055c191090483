package vehicle

import (
	"testing"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-trackdrive/pkg/bridge"
	"github.com/opd-ai/go-trackdrive/pkg/event"
	"github.com/opd-ai/go-trackdrive/pkg/input"
	"github.com/opd-ai/go-trackdrive/pkg/physics"
	"github.com/opd-ai/go-trackdrive/pkg/track"
)

const fixedHeight = 1.0

var carExtent = mgl64.Vec3{1, 0.5, 2}

func testBounds(t *testing.T, limit, reset float64) track.Bounds {
	t.Helper()
	b, err := track.NewBounds(limit, reset)
	require.NoError(t, err)
	return b
}

func TestControlVelocity_AllCombinations(t *testing.T) {
	for mask := 0; mask < 16; mask++ {
		c := input.ControlState{
			Forward:  mask&1 != 0,
			Backward: mask&2 != 0,
			Left:     mask&4 != 0,
			Right:    mask&8 != 0,
		}
		want := mgl64.Vec3{b2f(c.Right) - b2f(c.Left), 0, b2f(c.Backward) - b2f(c.Forward)}
		assert.Equal(t, want, ControlVelocity(c), "state %+v", c)
	}

	assert.Equal(t, mgl64.Vec3{1, 0, -1}, ControlVelocity(input.ControlState{Forward: true, Right: true}))
}

func TestPlayer_SpeedScalesDirection(t *testing.T) {
	c := &input.ControlState{Forward: true, Left: true}

	assert.Equal(t, mgl64.Vec3{-1, 0, -1}, Player{Controls: c}.Velocity())
	assert.Equal(t, mgl64.Vec3{-60, 0, -60}, Player{Controls: c, Speed: 60}.Velocity())
	assert.Equal(t, mgl64.Vec3{}, Player{}.Velocity())
}

func TestController_PlayerSetsVelocityFromControls(t *testing.T) {
	mem := bridge.NewMemory()
	body := mem.Put(1, mgl64.Vec3{0, 1, 0}, true)
	ctl := NewController(mem, testBounds(t, -500, 10), fixedHeight, nil, nil)

	controls := &input.ControlState{Backward: true, Right: true}
	v := New(1, 1, carExtent, Player{Controls: controls})

	assert.Equal(t, Driven, ctl.Update(v))
	assert.Equal(t, mgl64.Vec3{1, 0, 1}, body.Velocity)
	assert.Zero(t, body.PositionWrites, "no position command outside wraparound")

	*controls = input.ControlState{}
	ctl.Update(v)
	assert.Equal(t, mgl64.Vec3{}, body.Velocity, "velocity is overwritten every frame")
}

func TestController_AutonomousIgnoresControls(t *testing.T) {
	mem := bridge.NewMemory()
	body := mem.Put(1, mgl64.Vec3{2, 1, -5}, true)
	ctl := NewController(mem, testBounds(t, -500, 10), fixedHeight, nil, nil)

	v := New(1, 1, carExtent, Autonomous{Speed: 8})
	assert.Nil(t, v.Controls())
	assert.False(t, v.IsPlayer())

	ctl.Update(v)
	assert.Equal(t, mgl64.Vec3{0, 0, -8}, body.Velocity)
}

func TestController_Wraparound(t *testing.T) {
	const limit, reset = -500.0, 10.0

	tests := []struct {
		name      string
		start     mgl64.Vec3
		want      Result
		wantPos   mgl64.Vec3
		wantWraps int
	}{
		{
			name:      "just_below_limit",
			start:     mgl64.Vec3{3.5, 1.7, limit - 0.001},
			want:      Wrapped,
			wantPos:   mgl64.Vec3{3.5, fixedHeight, reset},
			wantWraps: 1,
		},
		{
			name:    "exactly_at_limit",
			start:   mgl64.Vec3{3.5, 1.7, limit},
			want:    Driven,
			wantPos: mgl64.Vec3{3.5, 1.7, limit},
		},
		{
			name:    "inside_track",
			start:   mgl64.Vec3{-2, 1, -250},
			want:    Driven,
			wantPos: mgl64.Vec3{-2, 1, -250},
		},
	}

	drivers := []Driver{
		Player{Controls: &input.ControlState{Forward: true}},
		Autonomous{Speed: 5},
	}

	for _, d := range drivers {
		for _, tt := range tests {
			t.Run(d.Kind().String()+"/"+tt.name, func(t *testing.T) {
				mem := bridge.NewMemory()
				body := mem.Put(1, tt.start, true)
				ctl := NewController(mem, testBounds(t, limit, reset), fixedHeight, nil, nil)
				v := New(1, 1, carExtent, d)

				assert.Equal(t, tt.want, ctl.Update(v))
				assert.Equal(t, tt.wantPos, body.Position)
				assert.Equal(t, tt.wantWraps, v.Wraps)
			})
		}
	}
}

func TestController_WrapPublishesEvent(t *testing.T) {
	mem := bridge.NewMemory()
	mem.Put(1, mgl64.Vec3{1, 1, -101}, true)
	bus := event.NewEventBus()

	var got *event.VehicleEvent
	bus.Subscribe(event.VehicleWrapped, func(e event.Event) {
		got = e.(*event.VehicleEvent)
	})

	ctl := NewController(mem, testBounds(t, -100, 0), fixedHeight, bus, nil)
	v := New(1, 1, carExtent, Autonomous{Speed: 1})
	ctl.Update(v)

	require.NotNil(t, got)
	assert.Equal(t, v.ID(), got.VehicleID)
	assert.False(t, got.Player)
	assert.Equal(t, [3]float64{1, fixedHeight, 0}, got.Position)
}

func TestController_NotReadyIsGracefulNoOp(t *testing.T) {
	mem := bridge.NewMemory()
	body := mem.Put(1, mgl64.Vec3{0, 1, -900}, false)
	ctl := NewController(mem, testBounds(t, -500, 10), fixedHeight, nil, nil)
	v := New(1, 1, carExtent, Autonomous{Speed: 3})

	assert.Equal(t, Driven, ctl.Update(v))
	assert.Zero(t, body.PositionWrites, "wraparound must not run without a position")
	assert.Equal(t, mgl64.Vec3{0, 1, -900}, body.Position)
	assert.Zero(t, v.Wraps)
}

func TestController_MissingBodyIsSkipped(t *testing.T) {
	mem := bridge.NewMemory()
	ctl := NewController(mem, testBounds(t, -500, 10), fixedHeight, nil, nil)

	tests := []struct {
		name string
		v    *Vehicle
	}{
		{"nil_vehicle", nil},
		{"zero_handle", New(0, 1, carExtent, Autonomous{Speed: 1})},
		{"unknown_handle", New(99, 1, carExtent, Autonomous{Speed: 1})},
		{"no_driver", New(1, 1, carExtent, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Equal(t, Skipped, ctl.Update(tt.v))
			})
		})
	}
}

func TestAutonomous_DeterministicWithPhysics(t *testing.T) {
	const (
		k      = 7.5
		frames = 240
		dt     = 1.0 / 60
		z0     = -10.0
	)

	pw := physics.NewWorld(physics.Config{FixedStep: dt, MaxSubSteps: 4})
	pb := bridge.NewPhysics(pw)
	h, err := pb.Spawn(physics.BodyDesc{Mass: 1, Position: mgl64.Vec3{0, 1, z0}, Extent: carExtent})
	require.NoError(t, err)

	ctl := NewController(pb, testBounds(t, -500, 10), fixedHeight, nil, nil)
	v := New(h, 1, carExtent, Autonomous{Speed: k})

	for i := 0; i < frames; i++ {
		ctl.Update(v)
		pw.Step(dt)
	}

	pos, ok := pb.ReadPosition(h)
	require.True(t, ok)
	assert.InDelta(t, z0-k*frames*dt, pos.Z(), 1e-9)
	assert.Zero(t, v.Wraps)
}

func TestControlSystem_AddRemoveAndPriority(t *testing.T) {
	mem := bridge.NewMemory()
	a := mem.Put(1, mgl64.Vec3{}, true)
	b := mem.Put(2, mgl64.Vec3{4, 0, 0}, true)

	sys := NewControlSystem(NewController(mem, testBounds(t, -500, 10), fixedHeight, nil, nil))
	va := New(1, 1, carExtent, Autonomous{Speed: 2})
	vb := New(2, 1, carExtent, Autonomous{Speed: 3})
	sys.Add(va)
	sys.Add(vb)

	var world ecs.World
	world.AddSystem(sys)
	world.Update(1.0 / 60)

	assert.Equal(t, mgl64.Vec3{0, 0, -2}, a.Velocity)
	assert.Equal(t, mgl64.Vec3{0, 0, -3}, b.Velocity)

	world.RemoveEntity(vb.BasicEntity)
	assert.Len(t, sys.Vehicles(), 1)

	b.Velocity = mgl64.Vec3{}
	world.Update(1.0 / 60)
	assert.Equal(t, mgl64.Vec3{}, b.Velocity, "removed vehicle must not be driven")
	assert.Equal(t, ControlPriority, sys.Priority())
	assert.Greater(t, ControlPriority, physics.StepPriority)
}
