// pkg/render/engo/assets.go
package engo

import (
	"image/color"

	"github.com/EngoEngine/engo/common"
)

// Palette holds the colours of the top-down view
type Palette struct {
	Background color.Color
	Road       color.Color
	RoadStripe color.Color
	Limit      color.Color
	Player     color.Color
	Autonomous color.Color
	HUD        color.Color
}

// DefaultPalette is used by NewScene
var DefaultPalette = Palette{
	Background: color.RGBA{34, 85, 34, 255},
	Road:       color.RGBA{60, 60, 60, 255},
	RoadStripe: color.RGBA{75, 75, 75, 255},
	Limit:      color.RGBA{200, 40, 40, 255},
	Player:     color.RGBA{240, 200, 0, 255},
	Autonomous: color.RGBA{40, 120, 220, 255},
	HUD:        color.White,
}

// VehicleColor picks the body colour for a vehicle
func (p Palette) VehicleColor(player bool) color.Color {
	if player {
		return p.Player
	}
	return p.Autonomous
}

// SegmentColor alternates road shading so motion reads on screen
func (p Palette) SegmentColor(stripe bool) color.Color {
	if stripe {
		return p.RoadStripe
	}
	return p.Road
}

// box is a borderless filled rectangle. Rectangles are drawn by engo's
// shape shader, so no textures are uploaded.
func box() common.Drawable {
	return common.Rectangle{BorderWidth: 0, BorderColor: color.Transparent}
}
