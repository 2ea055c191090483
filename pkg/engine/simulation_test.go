package engine

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-trackdrive/pkg/camera"
	"github.com/opd-ai/go-trackdrive/pkg/config"
	"github.com/opd-ai/go-trackdrive/pkg/event"
	"github.com/opd-ai/go-trackdrive/pkg/physics"
)

const frameDT = 1.0 / 60

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Vehicles.AutonomousCount = 0
	return cfg
}

func newSim(t *testing.T, cfg *config.Config) *Simulation {
	t.Helper()
	sim, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { sim.Close() })
	return sim
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Track.ResetPosition = cfg.Track.ForwardLimit - 1

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	sim, err := New(nil, nil)
	require.NoError(t, err)
	defer sim.Close()

	assert.Equal(t, -500.0, sim.Track.Bounds.ForwardLimit())
	assert.NotNil(t, sim.Monitor(), "breaker is enabled by default")
}

// Forward held for ten seconds at 60 units/s: z falls every frame except the
// frame the player is wrapped back to the reset position.
func TestScenario_ForwardHeldWrapsAround(t *testing.T) {
	cfg := testConfig()
	cfg.Vehicles.PlayerSpeed = 60
	sim := newSim(t, cfg)

	player, err := sim.SpawnPlayer()
	require.NoError(t, err)

	wraps := 0
	sim.Bus.Subscribe(event.VehicleWrapped, func(e event.Event) {
		if ve, ok := e.(*event.VehicleEvent); ok && ve.Player {
			wraps++
		}
	})

	sim.PressKey("KeyW")

	prevZ := cfg.Vehicles.PlayerSpawn[2]
	for frame := 1; frame <= 600; frame++ {
		before := wraps
		require.NoError(t, sim.Step(frameDT))

		pos, ok := sim.Bridge().ReadPosition(player.Handle)
		require.True(t, ok, "frame %d: player position not ready", frame)

		if wraps == before {
			require.Less(t, pos.Z(), prevZ, "frame %d: z did not decrease", frame)
		} else {
			require.Greater(t, pos.Z(), prevZ, "frame %d: wrap should move the player back", frame)
			require.InDelta(t, cfg.Vehicles.FixedHeight, pos.Y(), 1e-9)
		}
		require.GreaterOrEqual(t, pos.Z(), cfg.Track.ForwardLimit-cfg.Vehicles.PlayerSpeed*frameDT-1e-6,
			"frame %d: player escaped past the forward limit", frame)

		state, ok := sim.Camera().State()
		require.True(t, ok)
		assert.Equal(t, pos.Add(camera.DefaultOffset), state.Position, "frame %d", frame)
		assert.Equal(t, pos.Add(camera.DefaultLookAhead), state.LookAt, "frame %d", frame)

		prevZ = pos.Z()
	}

	assert.GreaterOrEqual(t, wraps, 1)
	assert.Equal(t, wraps, player.Wraps)
	assert.Equal(t, uint64(600), sim.Frames())
}

func TestSimulation_KeyReleaseStopsPlayer(t *testing.T) {
	sim := newSim(t, testConfig())
	player, err := sim.SpawnPlayer()
	require.NoError(t, err)

	sim.PressKey("ArrowUp")
	sim.PressKey("KeyD")
	require.NoError(t, sim.Step(frameDT))
	assert.True(t, player.Controls().Forward)
	assert.True(t, player.Controls().Right)

	sim.ReleaseKey("ArrowUp")
	sim.ReleaseKey("KeyD")
	sim.PressKey("KeyQ")
	require.NoError(t, sim.Step(frameDT))
	before, _ := sim.Bridge().ReadPosition(player.Handle)
	require.NoError(t, sim.Step(frameDT))
	after, _ := sim.Bridge().ReadPosition(player.Handle)

	assert.Equal(t, before, after, "no keys held means zero velocity")
}

func TestSimulation_SinglePlayer(t *testing.T) {
	sim := newSim(t, testConfig())

	first, err := sim.SpawnPlayer()
	require.NoError(t, err)
	_, err = sim.SpawnPlayer()
	assert.ErrorIs(t, err, ErrPlayerExists)

	assert.Equal(t, 1, sim.Bus.HandlerCount(event.KeyDown))
	assert.Equal(t, 1, sim.Bus.HandlerCount(event.KeyUp))
	assert.Equal(t, first, sim.Player())
	assert.Equal(t, first.Handle, sim.Camera().Target())
}

func TestSimulation_DespawnReleasesListeners(t *testing.T) {
	sim := newSim(t, testConfig())

	for i := 0; i < 3; i++ {
		player, err := sim.SpawnPlayer()
		require.NoError(t, err)
		require.Equal(t, 1, sim.Bus.HandlerCount(event.KeyDown))

		require.NoError(t, sim.Despawn(player))
		assert.Zero(t, sim.Bus.HandlerCount(event.KeyDown), "round %d", i)
		assert.Zero(t, sim.Bus.HandlerCount(event.KeyUp), "round %d", i)
		assert.Nil(t, sim.Player())
		assert.False(t, sim.Camera().Target().Valid())
	}

	assert.ErrorIs(t, sim.Despawn(nil), ErrUnknownVehicle)
}

func TestSimulation_SpawnFailureReleasesListeners(t *testing.T) {
	cfg := testConfig()
	sim := newSim(t, cfg)

	// Occupy the player spawn point.
	_, err := sim.SpawnAutonomous(mgl64.Vec3(cfg.Vehicles.PlayerSpawn), 5)
	require.NoError(t, err)

	_, err = sim.SpawnPlayer()
	require.Error(t, err)
	assert.True(t, errors.Is(err, physics.ErrOverlap))
	assert.Zero(t, sim.Bus.HandlerCount(event.KeyDown))
	assert.Nil(t, sim.Player())
}

func TestSimulation_SpawnTraffic(t *testing.T) {
	cfg := testConfig()
	cfg.Vehicles.AutonomousCount = 4
	sim := newSim(t, cfg)

	_, err := sim.SpawnPlayer()
	require.NoError(t, err)
	traffic, err := sim.SpawnTraffic()
	require.NoError(t, err)
	require.Len(t, traffic, 4)

	for _, v := range traffic {
		assert.False(t, v.IsPlayer())
		assert.Nil(t, v.Controls())
	}
	assert.Len(t, sim.Vehicles(), 5)

	// Player keys never reach autonomous vehicles.
	sim.PressKey("KeyA")
	require.NoError(t, sim.Step(frameDT))
	require.NoError(t, sim.Step(frameDT))

	for _, view := range sim.Snapshot() {
		require.True(t, view.Ready)
	}
	for _, v := range traffic {
		pos, ok := sim.Bridge().ReadPosition(v.Handle)
		require.True(t, ok)
		assert.Contains(t, sim.Track.LaneCenters(), pos.X(), "traffic keeps its lane")
	}
}

func TestSimulation_AutonomousDeterministic(t *testing.T) {
	const k = 12.0
	sim := newSim(t, testConfig())

	v, err := sim.SpawnAutonomous(mgl64.Vec3{4, 1, -50}, k)
	require.NoError(t, err)

	for i := 0; i < 120; i++ {
		require.NoError(t, sim.Step(frameDT))
	}

	pos, ok := sim.Bridge().ReadPosition(v.Handle)
	require.True(t, ok)
	assert.InDelta(t, -50-k*120*frameDT, pos.Z(), 1e-6)
	assert.Equal(t, 4.0, pos.X())
}

func TestSimulation_SnapshotBeforeFirstStep(t *testing.T) {
	sim := newSim(t, testConfig())
	_, err := sim.SpawnPlayer()
	require.NoError(t, err)

	assert.Empty(t, sim.Snapshot(), "snapshot is only built by Step")

	require.NoError(t, sim.Step(frameDT))
	views := sim.Snapshot()
	require.Len(t, views, 1)
	assert.True(t, views[0].Player)
	assert.True(t, views[0].Ready)
}

func TestSimulation_Close(t *testing.T) {
	sim, err := New(testConfig(), nil)
	require.NoError(t, err)

	_, err = sim.SpawnPlayer()
	require.NoError(t, err)
	_, err = sim.SpawnAutonomous(mgl64.Vec3{4, 1, -40}, 3)
	require.NoError(t, err)

	closed := 0
	sim.Bus.Subscribe(event.SimulationClosed, func(event.Event) { closed++ })
	despawned := 0
	sim.Bus.Subscribe(event.VehicleDespawned, func(event.Event) { despawned++ })

	require.NoError(t, sim.Close())
	require.NoError(t, sim.Close())

	assert.Equal(t, 1, closed)
	assert.Equal(t, 2, despawned)
	assert.Zero(t, sim.Bus.HandlerCount(event.KeyDown))
	assert.Empty(t, sim.Vehicles())
	assert.ErrorIs(t, sim.Step(frameDT), ErrClosed)

	_, err = sim.SpawnPlayer()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = sim.SpawnAutonomous(mgl64.Vec3{}, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSimulation_SmoothingPolicyFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Camera.Smoothing = 3
	cfg.Vehicles.PlayerSpeed = 30
	sim := newSim(t, cfg)

	player, err := sim.SpawnPlayer()
	require.NoError(t, err)
	sim.PressKey("KeyW")

	for i := 0; i < 10; i++ {
		require.NoError(t, sim.Step(frameDT))
	}

	pos, _ := sim.Bridge().ReadPosition(player.Handle)
	state, ok := sim.Camera().State()
	require.True(t, ok)
	assert.Greater(t, state.Position.Z(), pos.Add(camera.DefaultOffset).Z(), "smoothed camera trails the target")
}
