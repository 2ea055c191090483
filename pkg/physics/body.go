package physics

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyID identifies a rigid body inside a World. Zero is never assigned.
type BodyID uint64

var (
	// ErrInvalidBody is returned when a body description is rejected.
	ErrInvalidBody = errors.New("invalid body description")
	// ErrOverlap is returned when a new body would start inside another.
	ErrOverlap = errors.New("body overlaps an existing body")
)

// BodyDesc describes a body to create
type BodyDesc struct {
	Mass     float64
	Position mgl64.Vec3
	Extent   mgl64.Vec3
}

// Validate checks mass and extent
func (d BodyDesc) Validate() error {
	if d.Mass < 0 {
		return fmt.Errorf("%w: negative mass %v", ErrInvalidBody, d.Mass)
	}
	for i, e := range d.Extent {
		if e <= 0 {
			return fmt.Errorf("%w: extent axis %d must be positive, got %v", ErrInvalidBody, i, e)
		}
	}
	return nil
}

// Body tracks rigid body state
type Body struct {
	ID       BodyID
	Mass     float64
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Extent   mgl64.Vec3

	// ready flips once the world has stepped with this body in it.
	ready bool
}

// Static reports whether the body is immovable. Mass zero bodies keep their
// velocity but are never integrated; only position overrides move them.
func (b *Body) Static() bool {
	return b.Mass == 0
}

// Ready reports whether the body has been through at least one step
func (b *Body) Ready() bool {
	return b.ready
}

// Box returns the body's collision box at its current position
func (b *Body) Box() Box {
	return BoxAt(b.Position, b.Extent)
}

// Integrate advances the body by dt with explicit Euler
func Integrate(b *Body, dt float64) {
	if !b.Static() {
		b.Position = b.Position.Add(b.Velocity.Mul(dt))
	}
	b.ready = true
}
