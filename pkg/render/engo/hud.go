// pkg/render/engo/hud.go
package engo

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/opd-ai/go-trackdrive/pkg/engine"
)

// HUDPriority draws the HUD text after the sprites are synced
const HUDPriority = 35

// fontURL is the virtual asset name the bundled font is registered under
const fontURL = "goregular.ttf"

// LoadFont registers the bundled Go font with engo and prepares it for
// text rendering. It must run inside Scene.Preload.
func LoadFont(p Palette, size float64) (*common.Font, error) {
	if err := engo.Files.LoadReaderData(fontURL, bytes.NewReader(goregular.TTF)); err != nil {
		return nil, fmt.Errorf("load hud font: %w", err)
	}
	font := &common.Font{URL: fontURL, FG: p.HUD, Size: size}
	if err := font.CreatePreloaded(); err != nil {
		return nil, fmt.Errorf("prepare hud font: %w", err)
	}
	return font, nil
}

// HUDSystem shows the player's progress and the physics health in the
// top-left corner
type HUDSystem struct {
	sim      *engine.Simulation
	registry Registry
	font     *common.Font

	text *Sprite
	last string
}

// NewHUDSystem creates a HUD for sim. Text is only drawn once a font is set.
func NewHUDSystem(sim *engine.Simulation, registry Registry) *HUDSystem {
	return &HUDSystem{sim: sim, registry: registry}
}

// SetFont sets the font used for HUD text rendering
func (hud *HUDSystem) SetFont(font *common.Font) {
	hud.font = font
}

// Priority implements ecs.Prioritizer
func (hud *HUDSystem) Priority() int { return HUDPriority }

// Remove satisfies the ecs.System interface
func (hud *HUDSystem) Remove(basic ecs.BasicEntity) {
	if hud.text != nil && hud.text.ID() == basic.ID() {
		hud.text = nil
	}
}

// Lines returns the HUD text for the current frame
func (hud *HUDSystem) Lines() []string {
	lines := []string{fmt.Sprintf("frame %d", hud.sim.Frames())}

	for _, v := range hud.sim.Snapshot() {
		if !v.Player {
			continue
		}
		if v.Ready {
			lines = append(lines, fmt.Sprintf("z %.1f  lane x %.1f", v.Position.Z(), v.Position.X()))
		} else {
			lines = append(lines, "z --")
		}
		lines = append(lines, fmt.Sprintf("laps %d", v.Wraps))
	}

	if m := hud.sim.Monitor(); m != nil {
		lines = append(lines, "physics "+m.State().String())
	}
	return lines
}

// Update implements ecs.System
func (hud *HUDSystem) Update(dt float32) {
	if hud.font == nil {
		return
	}

	text := strings.Join(hud.Lines(), "\n")
	if text == hud.last && hud.text != nil {
		return
	}
	hud.last = text

	if hud.text == nil {
		hud.text = &Sprite{BasicEntity: ecs.NewBasic()}
		hud.text.SetShader(common.TextHUDShader)
		hud.text.SetZIndex(vehicleZ + 1)
		hud.text.Position = engo.Point{X: 10, Y: 10}
		hud.text.Drawable = common.Text{Font: hud.font, Text: text, LineSpacing: 0.25}
		hud.text.register(hud.registry)
		return
	}
	hud.text.Drawable = common.Text{Font: hud.font, Text: text, LineSpacing: 0.25}
}
