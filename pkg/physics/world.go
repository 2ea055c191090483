// Package physics is the reference rigid-body backend behind the bridge.
// It integrates linear velocity only; collision response is out of scope and
// boxes are used solely for spawn placement checks.
package physics

import (
	"sort"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl64"
)

// StepPriority orders the physics step after vehicle control and before the camera.
const StepPriority = 20

// stepEpsilon absorbs float32 frame times that land a hair under the fixed step.
const stepEpsilon = 1e-9

// Config controls world stepping
type Config struct {
	// FixedStep in seconds. Zero steps once per frame with the frame time.
	FixedStep float64
	// MaxSubSteps bounds catch-up work per frame when FixedStep is set.
	MaxSubSteps int
}

// World owns all rigid bodies
type World struct {
	cfg         Config
	bodies      map[BodyID]*Body
	nextID      BodyID
	accumulator float64
	steps       uint64
}

// NewWorld creates an empty world
func NewWorld(cfg Config) *World {
	if cfg.MaxSubSteps <= 0 {
		cfg.MaxSubSteps = 1
	}
	return &World{
		cfg:    cfg,
		bodies: make(map[BodyID]*Body),
		nextID: 1,
	}
}

// AddBody creates a body. The body reports not-ready until the next step.
func (w *World) AddBody(desc BodyDesc) (BodyID, error) {
	if err := desc.Validate(); err != nil {
		return 0, err
	}
	if hits := w.Overlapping(BoxAt(desc.Position, desc.Extent), 0); len(hits) > 0 {
		return 0, ErrOverlap
	}

	id := w.nextID
	w.nextID++
	w.bodies[id] = &Body{
		ID:       id,
		Mass:     desc.Mass,
		Position: desc.Position,
		Extent:   desc.Extent,
	}
	return id, nil
}

// RemoveBody deletes a body, reporting whether it existed
func (w *World) RemoveBody(id BodyID) bool {
	if _, ok := w.bodies[id]; !ok {
		return false
	}
	delete(w.bodies, id)
	return true
}

// Body looks up a body by ID
func (w *World) Body(id BodyID) (*Body, bool) {
	b, ok := w.bodies[id]
	return b, ok
}

// Bodies returns all bodies ordered by ID
func (w *World) Bodies() []*Body {
	out := make([]*Body, 0, len(w.bodies))
	for _, b := range w.bodies {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Overlapping returns IDs of bodies whose boxes overlap box, skipping ignore
func (w *World) Overlapping(box Box, ignore BodyID) []BodyID {
	var hits []BodyID
	for id, b := range w.bodies {
		if id == ignore {
			continue
		}
		if b.Box().Overlaps(box) {
			hits = append(hits, id)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i] < hits[j] })
	return hits
}

// Step advances the world by dt seconds and returns the number of substeps run
func (w *World) Step(dt float64) int {
	if dt <= 0 {
		return 0
	}
	if w.cfg.FixedStep <= 0 {
		w.integrate(dt)
		return 1
	}

	w.accumulator += dt
	n := 0
	for w.accumulator+stepEpsilon >= w.cfg.FixedStep && n < w.cfg.MaxSubSteps {
		w.integrate(w.cfg.FixedStep)
		w.accumulator -= w.cfg.FixedStep
		n++
	}
	if n == w.cfg.MaxSubSteps && w.accumulator >= w.cfg.FixedStep {
		// Too far behind; drop the backlog instead of spiralling.
		w.accumulator = 0
	}
	if w.accumulator < 0 {
		w.accumulator = 0
	}
	return n
}

// Steps returns the total number of integration steps taken
func (w *World) Steps() uint64 {
	return w.steps
}

func (w *World) integrate(dt float64) {
	for _, b := range w.bodies {
		Integrate(b, dt)
	}
	w.steps++
}

// StepSystem runs World.Step inside an ecs.World
type StepSystem struct {
	World *World
}

// Priority implements ecs.Prioritizer
func (s *StepSystem) Priority() int { return StepPriority }

// Update implements ecs.System
func (s *StepSystem) Update(dt float32) {
	s.World.Step(float64(dt))
}

// Remove implements ecs.System. Bodies are owned by the World, not by entities.
func (s *StepSystem) Remove(ecs.BasicEntity) {}

// Position is a convenience for tests and renderers
func (w *World) Position(id BodyID) (mgl64.Vec3, bool) {
	b, ok := w.bodies[id]
	if !ok || !b.ready {
		return mgl64.Vec3{}, false
	}
	return b.Position, true
}
