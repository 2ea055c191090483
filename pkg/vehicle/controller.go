package vehicle

import (
	"context"
	"errors"
	"sort"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-trackdrive/pkg/bridge"
	"github.com/opd-ai/go-trackdrive/pkg/event"
	"github.com/opd-ai/go-trackdrive/pkg/logging"
	"github.com/opd-ai/go-trackdrive/pkg/track"
)

// ControlPriority runs vehicle control before the physics step.
const ControlPriority = 30

// Result reports what Update did
type Result int

const (
	// Skipped means the body is missing; nothing was commanded.
	Skipped Result = iota
	// Driven means velocity was set and no wrap was needed or possible.
	Driven
	// Wrapped means velocity was set and the body was teleported back.
	Wrapped
)

// Controller applies drivers to bodies through a bridge
type Controller struct {
	Bridge      bridge.Bridge
	Bounds      track.Bounds
	FixedHeight float64

	// Bus receives VehicleWrapped events when set.
	Bus    *event.Bus
	Logger *logging.Logger
}

// NewController creates a controller. bus may be nil.
func NewController(b bridge.Bridge, bounds track.Bounds, fixedHeight float64, bus *event.Bus, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Controller{
		Bridge:      b,
		Bounds:      bounds,
		FixedHeight: fixedHeight,
		Bus:         bus,
		Logger:      logger,
	}
}

// Update runs one frame for v: command the driver's velocity, read the body
// back and wrap it if it passed the forward limit. A missing body makes the
// whole update a no-op; a body without a position yet skips the wrap check.
func (c *Controller) Update(v *Vehicle) Result {
	if v == nil || v.Driver == nil || !v.Handle.Valid() {
		return Skipped
	}

	ctx := context.Background()
	vel := v.Driver.Velocity()
	if err := c.Bridge.SetVelocity(v.Handle, vel); err != nil {
		if !errors.Is(err, bridge.ErrUnknownBody) {
			c.Logger.Error(ctx, "set velocity failed", err, "vehicle", v.ID())
		}
		return Skipped
	}

	pos, ok := c.Bridge.ReadPosition(v.Handle)
	if !ok || !c.Bounds.Passed(pos.Z()) {
		return Driven
	}

	reset := mgl64.Vec3{pos.X(), c.FixedHeight, c.Bounds.ResetPosition()}
	if err := c.Bridge.SetPosition(v.Handle, reset); err != nil {
		c.Logger.Error(ctx, "wraparound teleport failed", err, "vehicle", v.ID())
		return Driven
	}
	v.Wraps++

	c.Logger.Debug(ctx, "vehicle wrapped",
		"vehicle", v.ID(),
		"kind", v.Driver.Kind().String(),
		"from_pos", pos[:],
		"to_pos", reset[:],
	)
	if c.Bus != nil {
		c.Bus.Publish(event.NewVehicleEvent(event.VehicleWrapped, c, v.ID(), v.IsPlayer(), reset))
	}
	return Wrapped
}

// ControlSystem runs the controller for every added vehicle inside an ecs.World
type ControlSystem struct {
	Controller *Controller

	vehicles map[uint64]*Vehicle
}

// NewControlSystem creates an empty system
func NewControlSystem(c *Controller) *ControlSystem {
	return &ControlSystem{
		Controller: c,
		vehicles:   make(map[uint64]*Vehicle),
	}
}

// Priority implements ecs.Prioritizer
func (s *ControlSystem) Priority() int { return ControlPriority }

// Add registers a vehicle
func (s *ControlSystem) Add(v *Vehicle) {
	s.vehicles[v.ID()] = v
}

// Remove implements ecs.System
func (s *ControlSystem) Remove(basic ecs.BasicEntity) {
	delete(s.vehicles, basic.ID())
}

// Vehicles returns registered vehicles ordered by entity ID
func (s *ControlSystem) Vehicles() []*Vehicle {
	out := make([]*Vehicle, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Update implements ecs.System
func (s *ControlSystem) Update(dt float32) {
	for _, v := range s.Vehicles() {
		s.Controller.Update(v)
	}
}
