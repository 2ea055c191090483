// Package camera implements the chase camera that tracks the player vehicle.
package camera

import (
	"math"

	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-trackdrive/pkg/bridge"
)

// FollowPriority runs the camera after the physics step.
const FollowPriority = 10

var (
	// DefaultOffset places the camera above, behind and to the right of the target.
	DefaultOffset = mgl64.Vec3{3, 10, 8}
	// DefaultLookAhead aims slightly down the track from the target.
	DefaultLookAhead = mgl64.Vec3{0, 0, -3}
	// Up is the world up axis.
	Up = mgl64.Vec3{0, 1, 0}
)

// State is the camera pose handed to the renderer
type State struct {
	Position mgl64.Vec3
	LookAt   mgl64.Vec3
}

// View returns the view matrix for s
func (s State) View() mgl64.Mat4 {
	return mgl64.LookAtV(s.Position, s.LookAt, Up)
}

// Policy turns the previous pose and the desired pose into the new pose
type Policy func(prev, desired State, dt float64) State

// Snap jumps straight to the desired pose
func Snap(_, desired State, _ float64) State {
	return desired
}

// Exponential returns a policy that closes the gap to the desired pose at
// rate per second, independent of frame time.
func Exponential(rate float64) Policy {
	return func(prev, desired State, dt float64) State {
		if rate <= 0 || dt <= 0 {
			return desired
		}
		alpha := 1 - math.Exp(-rate*dt)
		return State{
			Position: prev.Position.Add(desired.Position.Sub(prev.Position).Mul(alpha)),
			LookAt:   prev.LookAt.Add(desired.LookAt.Sub(prev.LookAt).Mul(alpha)),
		}
	}
}

// Sink receives the camera pose once per rendered frame
type Sink interface {
	SetCamera(State)
}

// Follow keeps a camera locked onto one body
type Follow struct {
	Offset    mgl64.Vec3
	LookAhead mgl64.Vec3
	Policy    Policy

	bridge  bridge.Bridge
	target  bridge.Handle
	state   State
	hasPose bool
	sink    Sink
}

// NewFollow creates a snapping camera with the default offset and look-ahead
func NewFollow(b bridge.Bridge) *Follow {
	return &Follow{
		Offset:    DefaultOffset,
		LookAhead: DefaultLookAhead,
		Policy:    Snap,
		bridge:    b,
	}
}

// SetTarget replaces the tracked body. There is only ever one target.
func (f *Follow) SetTarget(h bridge.Handle) {
	f.target = h
}

// Target returns the tracked body
func (f *Follow) Target() bridge.Handle {
	return f.target
}

// SetSink registers the renderer-side consumer of the pose
func (f *Follow) SetSink(s Sink) {
	f.sink = s
}

// Desired returns the pose for a target at pos
func (f *Follow) Desired(pos mgl64.Vec3) State {
	return State{
		Position: pos.Add(f.Offset),
		LookAt:   pos.Add(f.LookAhead),
	}
}

// Update re-aims the camera. It reports false, leaving the pose untouched,
// when the target has no position this frame.
func (f *Follow) Update(dt float64) bool {
	pos, ok := f.bridge.ReadPosition(f.target)
	if !ok {
		return false
	}

	desired := f.Desired(pos)
	if !f.hasPose || f.Policy == nil {
		// First pose always snaps so smoothing never starts from the origin.
		f.state = desired
	} else {
		f.state = f.Policy(f.state, desired, dt)
	}
	f.hasPose = true

	if f.sink != nil {
		f.sink.SetCamera(f.state)
	}
	return true
}

// State returns the current pose and whether one has been computed yet
func (f *Follow) State() (State, bool) {
	return f.state, f.hasPose
}

// System runs Follow.Update inside an ecs.World
type System struct {
	Follow *Follow
}

// Priority implements ecs.Prioritizer
func (s *System) Priority() int { return FollowPriority }

// Update implements ecs.System
func (s *System) Update(dt float32) {
	s.Follow.Update(float64(dt))
}

// Remove implements ecs.System
func (s *System) Remove(ecs.BasicEntity) {}
