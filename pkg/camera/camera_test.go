package camera

import (
	"math"
	"testing"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-trackdrive/pkg/bridge"
)

type recordingSink struct {
	poses []State
}

func (r *recordingSink) SetCamera(s State) { r.poses = append(r.poses, s) }

func TestFollow_SnapsToOffsetAndLookAhead(t *testing.T) {
	mem := bridge.NewMemory()
	mem.Put(1, mgl64.Vec3{5, 1, -20}, true)

	cam := NewFollow(mem)
	cam.SetTarget(1)

	if !cam.Update(1.0 / 60) {
		t.Fatal("Update() reported not-ready for a ready target")
	}
	state, ok := cam.State()
	if !ok {
		t.Fatal("State() reported no pose after a successful update")
	}
	if state.Position != (mgl64.Vec3{8, 11, -12}) {
		t.Errorf("Position = %v, want (8, 11, -12)", state.Position)
	}
	if state.LookAt != (mgl64.Vec3{5, 1, -23}) {
		t.Errorf("LookAt = %v, want (5, 1, -23)", state.LookAt)
	}
}

func TestFollow_HoldsPoseWhenNotReady(t *testing.T) {
	mem := bridge.NewMemory()
	body := mem.Put(1, mgl64.Vec3{0, 1, 0}, true)
	sink := &recordingSink{}

	cam := NewFollow(mem)
	cam.SetTarget(1)
	cam.SetSink(sink)
	cam.Update(1.0 / 60)
	before, _ := cam.State()

	body.Ready = false
	body.Position = mgl64.Vec3{100, 100, 100}
	if cam.Update(1.0 / 60) {
		t.Error("Update() should report false while the target is not ready")
	}

	after, _ := cam.State()
	if after != before {
		t.Errorf("pose changed while not ready: %v -> %v", before, after)
	}
	if len(sink.poses) != 1 {
		t.Errorf("sink received %d poses, want 1", len(sink.poses))
	}
}

func TestFollow_NoTargetYet(t *testing.T) {
	cam := NewFollow(bridge.NewMemory())

	if cam.Update(1.0 / 60) {
		t.Error("Update() without a target must be a no-op")
	}
	if _, ok := cam.State(); ok {
		t.Error("State() must report no pose before the first successful update")
	}
}

func TestFollow_TracksEveryFrame(t *testing.T) {
	mem := bridge.NewMemory()
	body := mem.Put(1, mgl64.Vec3{0, 1, 0}, true)
	cam := NewFollow(mem)
	cam.SetTarget(1)

	for i := 0; i < 5; i++ {
		body.Position = mgl64.Vec3{float64(i), 1, -float64(i) * 2}
		cam.Update(1.0 / 60)
		state, _ := cam.State()
		if state.Position != body.Position.Add(DefaultOffset) {
			t.Fatalf("frame %d: camera lagged, got %v", i, state.Position)
		}
	}
}

func TestExponential_ConvergesWithoutOvershoot(t *testing.T) {
	policy := Exponential(5)
	prev := State{Position: mgl64.Vec3{0, 0, 0}}
	desired := State{Position: mgl64.Vec3{10, 0, 0}}

	last := 0.0
	for i := 0; i < 120; i++ {
		prev = policy(prev, desired, 1.0/60)
		x := prev.Position.X()
		if x < last || x > 10 {
			t.Fatalf("step %d: x = %v not monotonic towards 10", i, x)
		}
		last = x
	}
	if math.Abs(last-10) > 0.01 {
		t.Errorf("after 2s x = %v, want ~10", last)
	}
}

func TestExponential_DegenerateRateSnaps(t *testing.T) {
	desired := State{Position: mgl64.Vec3{1, 2, 3}}
	if got := Exponential(0)(State{}, desired, 0.1); got != desired {
		t.Errorf("zero rate should snap, got %v", got)
	}
}

func TestFollow_FirstPoseSnapsEvenWhenSmoothing(t *testing.T) {
	mem := bridge.NewMemory()
	mem.Put(1, mgl64.Vec3{5, 1, -20}, true)
	cam := NewFollow(mem)
	cam.Policy = Exponential(1)
	cam.SetTarget(1)

	cam.Update(1.0 / 60)
	state, _ := cam.State()
	if state.Position != (mgl64.Vec3{8, 11, -12}) {
		t.Errorf("first pose should snap, got %v", state.Position)
	}
}

func TestState_View(t *testing.T) {
	s := State{Position: mgl64.Vec3{8, 11, -12}, LookAt: mgl64.Vec3{5, 1, -23}}
	view := s.View()

	eye := view.Mul4x1(s.Position.Vec4(1))
	if !eye.Vec3().ApproxEqualThreshold(mgl64.Vec3{}, 1e-9) {
		t.Errorf("eye should map to the origin in view space, got %v", eye)
	}
	target := view.Mul4x1(s.LookAt.Vec4(1))
	if target.Z() >= 0 {
		t.Errorf("look-at point should be in front of the camera (negative z), got %v", target)
	}
}

func TestSystem_RunsAfterPhysicsPriority(t *testing.T) {
	mem := bridge.NewMemory()
	mem.Put(1, mgl64.Vec3{0, 0, 0}, true)
	cam := NewFollow(mem)
	cam.SetTarget(1)

	var world ecs.World
	sys := &System{Follow: cam}
	world.AddSystem(sys)
	world.Update(1.0 / 60)

	if _, ok := cam.State(); !ok {
		t.Error("camera system did not update the camera")
	}
	if sys.Priority() != FollowPriority {
		t.Errorf("Priority() = %d", sys.Priority())
	}
}
