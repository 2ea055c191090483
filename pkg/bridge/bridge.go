// Package bridge is the narrow interface between the simulation core and the
// physics backend. The vehicle controller and the follow camera only ever talk
// to a Bridge, never to the backend directly.
package bridge

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-trackdrive/pkg/physics"
)

// ErrUnknownBody is returned for handles the backend does not know about.
var ErrUnknownBody = errors.New("unknown body handle")

// Handle identifies one rigid body. The zero Handle never refers to a body.
type Handle uint64

// Valid reports whether h could refer to a body
func (h Handle) Valid() bool { return h != 0 }

// Bridge is the capability set the core needs from a physics engine.
type Bridge interface {
	// ReadPosition returns the most recent position. It never blocks; ok is
	// false while the body has no position yet or does not exist.
	ReadPosition(h Handle) (pos mgl64.Vec3, ok bool)
	// SetVelocity overwrites the body's linear velocity for the next step.
	SetVelocity(h Handle, v mgl64.Vec3) error
	// SetPosition teleports the body.
	SetPosition(h Handle, p mgl64.Vec3) error
}

// Physics adapts a *physics.World to Bridge.
type Physics struct {
	World *physics.World
}

// NewPhysics wraps w
func NewPhysics(w *physics.World) *Physics {
	return &Physics{World: w}
}

// Spawn creates a body and returns its handle
func (p *Physics) Spawn(desc physics.BodyDesc) (Handle, error) {
	id, err := p.World.AddBody(desc)
	if err != nil {
		return 0, err
	}
	return Handle(id), nil
}

// Despawn removes a body
func (p *Physics) Despawn(h Handle) error {
	if !p.World.RemoveBody(physics.BodyID(h)) {
		return ErrUnknownBody
	}
	return nil
}

// ReadPosition implements Bridge
func (p *Physics) ReadPosition(h Handle) (mgl64.Vec3, bool) {
	return p.World.Position(physics.BodyID(h))
}

// SetVelocity implements Bridge
func (p *Physics) SetVelocity(h Handle, v mgl64.Vec3) error {
	b, ok := p.World.Body(physics.BodyID(h))
	if !ok {
		return ErrUnknownBody
	}
	b.Velocity = v
	return nil
}

// SetPosition implements Bridge
func (p *Physics) SetPosition(h Handle, pos mgl64.Vec3) error {
	b, ok := p.World.Body(physics.BodyID(h))
	if !ok {
		return ErrUnknownBody
	}
	b.Position = pos
	return nil
}
