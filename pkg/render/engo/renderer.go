// pkg/render/engo/renderer.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-trackdrive/pkg/engine"
	"github.com/opd-ai/go-trackdrive/pkg/track"
)

// SpritePriority syncs sprites after the simulation step
const SpritePriority = 40

// Z indices keep the road under the vehicles
const (
	roadZ    = 0
	limitZ   = 1
	vehicleZ = 2
)

// Registry is the part of common.RenderSystem the sprite code needs
type Registry interface {
	Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent)
	Remove(basic ecs.BasicEntity)
}

// Sprite is one drawable rectangle
type Sprite struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

func (s *Sprite) register(r Registry) {
	r.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
}

// TrackSprites builds the road segments and the forward limit line. They
// never move, so they are created once.
func TrackSprites(t *track.Track, p Palette) []*Sprite {
	segs := t.Segments()
	out := make([]*Sprite, 0, len(segs)+1)
	width := float32(t.Width * PixelsPerUnit)

	for _, seg := range segs {
		s := &Sprite{BasicEntity: ecs.NewBasic()}
		s.Drawable = box()
		s.Color = p.SegmentColor(seg.Stripe)
		s.SetZIndex(roadZ)
		s.Position = WorldToScreen(-t.Width/2, seg.ZFar)
		s.Width = width
		s.Height = float32((seg.ZNear - seg.ZFar) * PixelsPerUnit)
		out = append(out, s)
	}

	limit := &Sprite{BasicEntity: ecs.NewBasic()}
	limit.Drawable = box()
	limit.Color = p.Limit
	limit.SetZIndex(limitZ)
	limit.Position = WorldToScreen(-t.Width/2, t.Bounds.ForwardLimit())
	limit.Width = width
	limit.Height = 2
	return append(out, limit)
}

// SpriteSystem mirrors the simulation's vehicles as rectangles, creating and
// removing sprites as vehicles come and go.
type SpriteSystem struct {
	snapshot func() []engine.VehicleView
	extent   [3]float64
	registry Registry
	palette  Palette

	sprites map[uint64]*Sprite
}

// NewSpriteSystem reads vehicle state from snapshot, usually Simulation.Snapshot.
// extent is the vehicle collision box size.
func NewSpriteSystem(snapshot func() []engine.VehicleView, extent [3]float64, registry Registry, p Palette) *SpriteSystem {
	return &SpriteSystem{
		snapshot: snapshot,
		extent:   extent,
		registry: registry,
		palette:  p,
		sprites:  make(map[uint64]*Sprite),
	}
}

// Priority implements ecs.Prioritizer
func (ss *SpriteSystem) Priority() int { return SpritePriority }

// Remove satisfies the ecs.System interface
func (ss *SpriteSystem) Remove(basic ecs.BasicEntity) {
	for id, s := range ss.sprites {
		if s.ID() == basic.ID() {
			delete(ss.sprites, id)
			return
		}
	}
}

// Update moves each sprite to its vehicle's position
func (ss *SpriteSystem) Update(dt float32) {
	seen := make(map[uint64]bool, len(ss.sprites))
	for _, v := range ss.snapshot() {
		if !v.Ready {
			continue
		}
		seen[v.ID] = true
		s := ss.getOrCreate(v)
		s.Position = WorldToScreen(v.Position.X()-ss.extent[0]/2, v.Position.Z()-ss.extent[2]/2)
	}

	for id, s := range ss.sprites {
		if !seen[id] {
			ss.registry.Remove(s.BasicEntity)
			delete(ss.sprites, id)
		}
	}
}

func (ss *SpriteSystem) getOrCreate(v engine.VehicleView) *Sprite {
	if s, ok := ss.sprites[v.ID]; ok {
		return s
	}
	s := &Sprite{BasicEntity: ecs.NewBasic()}
	s.Drawable = box()
	s.Color = ss.palette.VehicleColor(v.Player)
	s.SetZIndex(vehicleZ)
	s.Width = float32(ss.extent[0] * PixelsPerUnit)
	s.Height = float32(ss.extent[2] * PixelsPerUnit)
	s.register(ss.registry)
	ss.sprites[v.ID] = s
	return s
}

// Count returns the number of live vehicle sprites
func (ss *SpriteSystem) Count() int {
	return len(ss.sprites)
}

// SpriteFor returns the sprite tracking vehicle id
func (ss *SpriteSystem) SpriteFor(id uint64) (*Sprite, bool) {
	s, ok := ss.sprites[id]
	return s, ok
}
