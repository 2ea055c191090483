package engo

import (
	"testing"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo/common"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-trackdrive/pkg/engine"
	"github.com/opd-ai/go-trackdrive/pkg/track"
)

type fakeRegistry struct {
	live map[uint64]*common.SpaceComponent
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{live: make(map[uint64]*common.SpaceComponent)}
}

func (f *fakeRegistry) Add(basic *ecs.BasicEntity, _ *common.RenderComponent, space *common.SpaceComponent) {
	f.live[basic.ID()] = space
}

func (f *fakeRegistry) Remove(basic ecs.BasicEntity) {
	delete(f.live, basic.ID())
}

var testExtent = [3]float64{2, 1, 4}

func TestSpriteSystem_FollowsSnapshot(t *testing.T) {
	views := []engine.VehicleView{
		{ID: 1, Player: true, Position: mgl64.Vec3{0, 1, -10}, Ready: true},
		{ID: 2, Position: mgl64.Vec3{4, 1, -30}, Ready: true},
	}
	reg := newFakeRegistry()
	sys := NewSpriteSystem(func() []engine.VehicleView { return views }, testExtent, reg, DefaultPalette)

	sys.Update(1.0 / 60)
	require.Equal(t, 2, sys.Count())
	assert.Len(t, reg.live, 2)

	player, ok := sys.SpriteFor(1)
	require.True(t, ok)
	assert.Equal(t, DefaultPalette.Player, player.Color)
	assert.Equal(t, WorldToScreen(-1, -12), player.Position)
	assert.Equal(t, float32(2*PixelsPerUnit), player.Width)
	assert.Equal(t, float32(4*PixelsPerUnit), player.Height)

	views[0].Position = mgl64.Vec3{1, 1, -20}
	sys.Update(1.0 / 60)
	assert.Equal(t, WorldToScreen(0, -22), player.Position, "sprite is reused and moved")
	assert.Len(t, reg.live, 2)
}

func TestSpriteSystem_DropsDespawnedAndUnready(t *testing.T) {
	views := []engine.VehicleView{
		{ID: 1, Player: true, Ready: true},
		{ID: 2, Ready: true},
	}
	reg := newFakeRegistry()
	sys := NewSpriteSystem(func() []engine.VehicleView { return views }, testExtent, reg, DefaultPalette)
	sys.Update(1.0 / 60)

	views = views[:1]
	sys.Update(1.0 / 60)
	assert.Equal(t, 1, sys.Count())
	assert.Len(t, reg.live, 1)

	views[0].Ready = false
	sys.Update(1.0 / 60)
	assert.Zero(t, sys.Count())
	assert.Empty(t, reg.live)
}

func TestTrackSprites(t *testing.T) {
	bounds, err := track.NewBounds(-100, 10)
	require.NoError(t, err)
	tr, err := track.New(bounds, 12, 3, 20)
	require.NoError(t, err)

	sprites := TrackSprites(tr, DefaultPalette)
	segs := tr.Segments()
	require.Len(t, sprites, len(segs)+1)

	first := sprites[0]
	assert.Equal(t, DefaultPalette.RoadStripe, first.Color)
	assert.Equal(t, WorldToScreen(-6, -10), first.Position)
	assert.Equal(t, float32(12*PixelsPerUnit), first.Width)
	assert.Equal(t, float32(20*PixelsPerUnit), first.Height)
	assert.Equal(t, DefaultPalette.Road, sprites[1].Color)

	limit := sprites[len(sprites)-1]
	assert.Equal(t, DefaultPalette.Limit, limit.Color)
	assert.Equal(t, WorldToScreen(-6, -100), limit.Position)
}
