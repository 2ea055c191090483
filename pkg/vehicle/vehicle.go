// Package vehicle holds the per-frame vehicle controller. Every vehicle is one
// Vehicle value carrying a Driver; the Driver decides the commanded velocity
// and the controller applies it and enforces the track wraparound.
package vehicle

import (
	"github.com/EngoEngine/ecs"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-trackdrive/pkg/bridge"
	"github.com/opd-ai/go-trackdrive/pkg/input"
)

// Kind tags the driver variant
type Kind int

const (
	KindPlayer Kind = iota
	KindAutonomous
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindAutonomous:
		return "autonomous"
	default:
		return "unknown"
	}
}

// Driver produces the velocity command for one frame
type Driver interface {
	Kind() Kind
	Velocity() mgl64.Vec3
}

// ControlVelocity maps a control state to (right-left, 0, backward-forward).
// Diagonals are not normalized.
func ControlVelocity(c input.ControlState) mgl64.Vec3 {
	return mgl64.Vec3{
		b2f(c.Right) - b2f(c.Left),
		0,
		b2f(c.Backward) - b2f(c.Forward),
	}
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Player drives from a ControlState owned by this vehicle
type Player struct {
	Controls *input.ControlState
	// Speed scales the unit control vector. Zero means 1.
	Speed float64
}

// Kind implements Driver
func (Player) Kind() Kind { return KindPlayer }

// Velocity implements Driver
func (p Player) Velocity() mgl64.Vec3 {
	if p.Controls == nil {
		return mgl64.Vec3{}
	}
	v := ControlVelocity(*p.Controls)
	if p.Speed != 0 {
		v = v.Mul(p.Speed)
	}
	return v
}

// Autonomous drives straight down the track at a constant speed
type Autonomous struct {
	Speed float64
}

// Kind implements Driver
func (Autonomous) Kind() Kind { return KindAutonomous }

// Velocity implements Driver
func (a Autonomous) Velocity() mgl64.Vec3 {
	return mgl64.Vec3{0, 0, -a.Speed}
}

// Vehicle is a handle to a physics body plus its driver
type Vehicle struct {
	ecs.BasicEntity

	Handle bridge.Handle
	Mass   float64
	Extent mgl64.Vec3
	Driver Driver

	// Wraps counts wraparound teleports.
	Wraps int
}

// New creates a vehicle around an existing body handle
func New(h bridge.Handle, mass float64, extent mgl64.Vec3, d Driver) *Vehicle {
	return &Vehicle{
		BasicEntity: ecs.NewBasic(),
		Handle:      h,
		Mass:        mass,
		Extent:      extent,
		Driver:      d,
	}
}

// IsPlayer reports whether the vehicle is player driven
func (v *Vehicle) IsPlayer() bool {
	return v.Driver != nil && v.Driver.Kind() == KindPlayer
}

// Controls returns the player's ControlState, or nil for other drivers
func (v *Vehicle) Controls() *input.ControlState {
	if p, ok := v.Driver.(Player); ok {
		return p.Controls
	}
	return nil
}
