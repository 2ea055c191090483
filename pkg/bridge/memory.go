package bridge

import (
	"github.com/go-gl/mathgl/mgl64"
)

// MemoryBody is the state Memory keeps per handle
type MemoryBody struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Ready    bool

	VelocityWrites int
	PositionWrites int
}

// Memory is a Bridge with no integration of its own. Positions change only
// through SetPosition or Put. Used to drive the controller and camera without
// a physics world.
type Memory struct {
	Bodies map[Handle]*MemoryBody
}

// NewMemory creates an empty Memory bridge
func NewMemory() *Memory {
	return &Memory{Bodies: make(map[Handle]*MemoryBody)}
}

// Put registers or replaces a body
func (m *Memory) Put(h Handle, pos mgl64.Vec3, ready bool) *MemoryBody {
	b := &MemoryBody{Position: pos, Ready: ready}
	m.Bodies[h] = b
	return b
}

// ReadPosition implements Bridge
func (m *Memory) ReadPosition(h Handle) (mgl64.Vec3, bool) {
	b, ok := m.Bodies[h]
	if !ok || !b.Ready {
		return mgl64.Vec3{}, false
	}
	return b.Position, true
}

// SetVelocity implements Bridge
func (m *Memory) SetVelocity(h Handle, v mgl64.Vec3) error {
	b, ok := m.Bodies[h]
	if !ok {
		return ErrUnknownBody
	}
	b.Velocity = v
	b.VelocityWrites++
	return nil
}

// SetPosition implements Bridge
func (m *Memory) SetPosition(h Handle, p mgl64.Vec3) error {
	b, ok := m.Bodies[h]
	if !ok {
		return ErrUnknownBody
	}
	b.Position = p
	b.PositionWrites++
	return nil
}
