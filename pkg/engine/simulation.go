// pkg/engine/simulation.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-trackdrive/pkg/bridge"
	"github.com/opd-ai/go-trackdrive/pkg/camera"
	"github.com/opd-ai/go-trackdrive/pkg/config"
	"github.com/opd-ai/go-trackdrive/pkg/event"
	"github.com/opd-ai/go-trackdrive/pkg/input"
	"github.com/opd-ai/go-trackdrive/pkg/logging"
	"github.com/opd-ai/go-trackdrive/pkg/physics"
	"github.com/opd-ai/go-trackdrive/pkg/track"
	"github.com/opd-ai/go-trackdrive/pkg/vehicle"
)

var (
	// ErrPlayerExists is returned when a second player vehicle is requested.
	ErrPlayerExists = errors.New("player vehicle already spawned")
	// ErrClosed is returned by operations on a closed simulation.
	ErrClosed = errors.New("simulation closed")
	// ErrUnknownVehicle is returned when despawning a vehicle the simulation does not own.
	ErrUnknownVehicle = errors.New("unknown vehicle")
)

// Simulation owns one driving session: the physics world, the vehicles and
// the systems that run them each frame. Step, the spawn methods and Close must
// be called from the frame goroutine; Frames and Snapshot may be read from
// any goroutine.
type Simulation struct {
	Config *config.Config
	Track  *track.Track
	Bus    *event.Bus

	world    ecs.World
	physics  *physics.World
	bodies   *bridge.Physics
	bridge   bridge.Bridge
	monitor  *bridge.Monitored
	controls *vehicle.ControlSystem
	camera   *camera.Follow

	player   *vehicle.Vehicle
	vehicles map[uint64]*vehicle.Vehicle
	detach   map[uint64]func()

	frames atomic.Uint64
	closed bool

	// snapshot is rebuilt at the end of every frame for readers on other goroutines.
	snapMu   sync.RWMutex
	snapshot []VehicleView

	ctx    context.Context
	logger *logging.Logger
}

// VehicleView is a read-only copy of one vehicle's state after a frame
type VehicleView struct {
	ID       uint64
	Player   bool
	Position mgl64.Vec3
	Ready    bool
	Wraps    int
}

// New builds a simulation from cfg. A nil logger discards logs.
func New(cfg *config.Config, logger *logging.Logger) (*Simulation, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = logging.Discard()
	}

	tr, err := cfg.BuildTrack()
	if err != nil {
		return nil, err
	}

	s := &Simulation{
		Config:   cfg,
		Track:    tr,
		Bus:      event.NewEventBus(),
		vehicles: make(map[uint64]*vehicle.Vehicle),
		detach:   make(map[uint64]func()),
		ctx:      logging.WithSessionID(context.Background(), logging.GenerateSessionID()),
		logger:   logger,
	}

	s.physics = physics.NewWorld(physics.Config{
		FixedStep:   cfg.Physics.FixedStep,
		MaxSubSteps: cfg.Physics.MaxSubSteps,
	})
	s.bodies = bridge.NewPhysics(s.physics)
	s.bridge = s.bodies
	if cfg.Bridge.BreakerEnabled {
		s.monitor = bridge.NewMonitored(s.bodies, bridge.BreakerSettings{
			MaxConsecutiveNotReady: cfg.Bridge.MaxConsecutiveNotReady,
			OpenTimeout:            cfg.Bridge.OpenTimeout(),
			HalfOpenProbes:         cfg.Bridge.HalfOpenProbes,
		}, logger)
		s.bridge = s.monitor
	}

	controller := vehicle.NewController(s.bridge, tr.Bounds, cfg.Vehicles.FixedHeight, s.Bus, logger)
	s.controls = vehicle.NewControlSystem(controller)

	s.camera = camera.NewFollow(s.bridge)
	s.camera.Offset = mgl64.Vec3(cfg.Camera.Offset)
	s.camera.LookAhead = mgl64.Vec3(cfg.Camera.LookAhead)
	if cfg.Camera.Smoothing > 0 {
		s.camera.Policy = camera.Exponential(cfg.Camera.Smoothing)
	}

	// Priorities fix the frame order: control, physics step, camera.
	s.world.AddSystem(s.controls)
	s.world.AddSystem(&physics.StepSystem{World: s.physics})
	s.world.AddSystem(&camera.System{Follow: s.camera})

	s.logger.Info(s.ctx, "simulation created",
		"forward_limit", tr.Bounds.ForwardLimit(),
		"reset_position", tr.Bounds.ResetPosition(),
		"fixed_step", cfg.Physics.FixedStep,
		"breaker", cfg.Bridge.BreakerEnabled,
	)
	return s, nil
}

// Context returns the simulation's logging context, carrying its session ID
func (s *Simulation) Context() context.Context {
	return s.ctx
}

// Camera returns the follow camera
func (s *Simulation) Camera() *camera.Follow {
	return s.camera
}

// Bridge returns the bridge the controller and camera use
func (s *Simulation) Bridge() bridge.Bridge {
	return s.bridge
}

// Monitor returns the readiness monitor, or nil when it is disabled
func (s *Simulation) Monitor() *bridge.Monitored {
	return s.monitor
}

// Physics returns the physics world
func (s *Simulation) Physics() *physics.World {
	return s.physics
}

// Player returns the player vehicle, or nil before SpawnPlayer
func (s *Simulation) Player() *vehicle.Vehicle {
	return s.player
}

// Vehicles returns every live vehicle ordered by ID
func (s *Simulation) Vehicles() []*vehicle.Vehicle {
	out := make([]*vehicle.Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Frames returns the number of completed frames
func (s *Simulation) Frames() uint64 {
	return s.frames.Load()
}

// Snapshot returns the vehicle states as of the last completed frame
func (s *Simulation) Snapshot() []VehicleView {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	out := make([]VehicleView, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// SpawnPlayer creates the player vehicle at the configured spawn point,
// attaches a key tracker to the bus and makes the camera follow it.
func (s *Simulation) SpawnPlayer() (*vehicle.Vehicle, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if s.player != nil {
		return nil, ErrPlayerExists
	}

	controls := &input.ControlState{}
	detach := input.NewTracker(controls).Attach(s.Bus)

	v, err := s.spawn(mgl64.Vec3(s.Config.Vehicles.PlayerSpawn), vehicle.Player{
		Controls: controls,
		Speed:    s.Config.Vehicles.PlayerSpeed,
	})
	if err != nil {
		detach()
		return nil, err
	}

	s.detach[v.ID()] = detach
	s.player = v
	s.camera.SetTarget(v.Handle)
	return v, nil
}

// SpawnAutonomous creates a vehicle that drives down the track at speed
func (s *Simulation) SpawnAutonomous(pos mgl64.Vec3, speed float64) (*vehicle.Vehicle, error) {
	if s.closed {
		return nil, ErrClosed
	}
	return s.spawn(pos, vehicle.Autonomous{Speed: speed})
}

// SpawnTraffic places the configured number of autonomous vehicles one per
// lane, a segment apart, ahead of the player spawn.
func (s *Simulation) SpawnTraffic() ([]*vehicle.Vehicle, error) {
	lanes := s.Track.LaneCenters()
	cfg := s.Config.Vehicles
	out := make([]*vehicle.Vehicle, 0, cfg.AutonomousCount)

	for i := 0; i < cfg.AutonomousCount; i++ {
		pos := mgl64.Vec3{
			lanes[i%len(lanes)],
			cfg.FixedHeight,
			cfg.PlayerSpawn[2] - float64(i+1)*s.Track.SegmentLength,
		}
		if s.Track.Bounds.Passed(pos.Z()) {
			pos[2] = s.Track.Bounds.ResetPosition() - float64(i)*s.Track.SegmentLength/2
		}
		v, err := s.SpawnAutonomous(pos, cfg.AutonomousSpeed)
		if err != nil {
			return out, fmt.Errorf("spawning traffic vehicle %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Simulation) spawn(pos mgl64.Vec3, d vehicle.Driver) (*vehicle.Vehicle, error) {
	extent := mgl64.Vec3(s.Config.Vehicles.Extent)
	h, err := s.bodies.Spawn(physics.BodyDesc{
		Mass:     s.Config.Vehicles.Mass,
		Position: pos,
		Extent:   extent,
	})
	if err != nil {
		return nil, logging.WrapError(err, "spawn %s vehicle", d.Kind())
	}

	v := vehicle.New(h, s.Config.Vehicles.Mass, extent, d)
	s.vehicles[v.ID()] = v
	s.controls.Add(v)

	s.logger.Info(s.ctx, "vehicle spawned",
		"vehicle", v.ID(),
		"kind", d.Kind().String(),
		"spawn_pos", pos[:],
	)
	s.Bus.Publish(event.NewVehicleEvent(event.VehicleSpawned, s, v.ID(), v.IsPlayer(), pos))
	return v, nil
}

// Despawn removes a vehicle, its body and, for the player, its key listeners
func (s *Simulation) Despawn(v *vehicle.Vehicle) error {
	if v == nil {
		return ErrUnknownVehicle
	}
	if _, ok := s.vehicles[v.ID()]; !ok {
		return ErrUnknownVehicle
	}

	if detach, ok := s.detach[v.ID()]; ok {
		detach()
		delete(s.detach, v.ID())
	}
	s.world.RemoveEntity(v.BasicEntity)
	delete(s.vehicles, v.ID())

	var pos [3]float64
	if p, ok := s.bridge.ReadPosition(v.Handle); ok {
		pos = p
	}
	if err := s.bodies.Despawn(v.Handle); err != nil {
		s.logger.Warn(s.ctx, "vehicle body already gone", "vehicle", v.ID(), "error", err.Error())
	}

	if s.player == v {
		s.player = nil
		s.camera.SetTarget(0)
	}

	s.logger.Info(s.ctx, "vehicle despawned", "vehicle", v.ID(), "wraps", v.Wraps)
	s.Bus.Publish(event.NewVehicleEvent(event.VehicleDespawned, s, v.ID(), v.IsPlayer(), pos))
	return nil
}

// PressKey forwards a host key press to the bus
func (s *Simulation) PressKey(code string) {
	s.Bus.Publish(event.NewKeyEvent(event.KeyDown, s, code))
}

// ReleaseKey forwards a host key release to the bus
func (s *Simulation) ReleaseKey(code string) {
	s.Bus.Publish(event.NewKeyEvent(event.KeyUp, s, code))
}

// Step runs one frame of dt seconds: vehicle control, physics, camera.
func (s *Simulation) Step(dt float64) error {
	if s.closed {
		return ErrClosed
	}
	s.world.Update(float32(dt))
	s.frames.Add(1)
	s.refreshSnapshot()
	return nil
}

func (s *Simulation) refreshSnapshot() {
	views := make([]VehicleView, 0, len(s.vehicles))
	for _, v := range s.Vehicles() {
		pos, ok := s.bodies.ReadPosition(v.Handle)
		views = append(views, VehicleView{
			ID:       v.ID(),
			Player:   v.IsPlayer(),
			Position: pos,
			Ready:    ok,
			Wraps:    v.Wraps,
		})
	}

	s.snapMu.Lock()
	s.snapshot = views
	s.snapMu.Unlock()
}

// Close despawns every vehicle, which releases all key listeners, and
// publishes SimulationClosed. Calling Close again is a no-op.
func (s *Simulation) Close() error {
	if s.closed {
		return nil
	}

	var errs []error
	for _, v := range s.Vehicles() {
		if err := s.Despawn(v); err != nil {
			errs = append(errs, err)
		}
	}
	s.closed = true

	s.logger.Info(s.ctx, "simulation closed", "frames", s.Frames())
	s.Bus.Publish(&event.BaseEvent{EventType: event.SimulationClosed, Source: s})
	return errors.Join(errs...)
}
