package render

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-trackdrive/pkg/camera"
	"github.com/opd-ai/go-trackdrive/pkg/engine"
	"github.com/opd-ai/go-trackdrive/pkg/track"
)

// Glyphs used by TerminalRenderer
const (
	GlyphEmpty      = ' '
	GlyphEdge       = '|'
	GlyphStripe     = ':'
	GlyphLimit      = '='
	GlyphPlayer     = 'P'
	GlyphAutonomous = 'A'
)

// TerminalRenderer draws a top-down ASCII view of the x/z plane. Screen
// columns follow +x and rows follow +z, so forward travel moves up the screen.
type TerminalRenderer struct {
	out       io.Writer
	width     int
	height    int
	buffer    [][]rune
	scale     float64
	center    mgl64.Vec2
	status    string
	clearTerm bool
}

// NewTerminalRenderer creates a renderer of width x height cells, each cell
// covering scale world units. A non-positive scale means 1.
func NewTerminalRenderer(out io.Writer, width, height int, scale float64) *TerminalRenderer {
	if scale <= 0 {
		scale = 1
	}
	buffer := make([][]rune, height)
	for i := range buffer {
		buffer[i] = make([]rune, width)
	}
	r := &TerminalRenderer{
		out:    out,
		width:  width,
		height: height,
		buffer: buffer,
		scale:  scale,
	}
	r.Clear()
	return r
}

// SetClearScreen makes Present emit an ANSI clear before each frame
func (r *TerminalRenderer) SetClearScreen(on bool) {
	r.clearTerm = on
}

// SetCamera implements camera.Sink by centring the view on the look-at point
func (r *TerminalRenderer) SetCamera(s camera.State) {
	r.center = mgl64.Vec2{s.LookAt.X(), s.LookAt.Z()}
	r.status = fmt.Sprintf("cam (%.1f, %.1f, %.1f)", s.Position.X(), s.Position.Y(), s.Position.Z())
}

// worldToScreen maps (x, z) to a cell; ok is false off screen
func (r *TerminalRenderer) worldToScreen(x, z float64) (col, row int, ok bool) {
	col = int(math.Floor((x-r.center.X())/r.scale + float64(r.width)/2))
	row = int(math.Floor((z-r.center.Y())/r.scale + float64(r.height)/2))
	ok = col >= 0 && col < r.width && row >= 0 && row < r.height
	return col, row, ok
}

func (r *TerminalRenderer) plot(x, z float64, glyph rune) {
	if col, row, ok := r.worldToScreen(x, z); ok {
		r.buffer[row][col] = glyph
	}
}

// Clear implements Renderer
func (r *TerminalRenderer) Clear() {
	for y := range r.buffer {
		for x := range r.buffer[y] {
			r.buffer[y][x] = GlyphEmpty
		}
	}
}

// RenderTrack draws road edges on every row and lane stripes on alternate
// segments. The forward limit is drawn as a solid line.
func (r *TerminalRenderer) RenderTrack(t *track.Track) {
	if t == nil {
		return
	}
	half := t.Width / 2
	lanes := t.LaneCenters()
	laneWidth := t.Width / float64(t.Lanes)

	for _, seg := range t.Segments() {
		for z := seg.ZNear; z > seg.ZFar; z -= r.scale {
			r.plot(-half, z, GlyphEdge)
			r.plot(half, z, GlyphEdge)
			if !seg.Stripe {
				continue
			}
			for _, c := range lanes[1:] {
				r.plot(c-laneWidth/2, z, GlyphStripe)
			}
		}
	}

	limit := t.Bounds.ForwardLimit()
	for x := -half; x <= half; x += r.scale {
		r.plot(x, limit, GlyphLimit)
	}
}

// RenderVehicle implements Renderer
func (r *TerminalRenderer) RenderVehicle(v engine.VehicleView) {
	glyph := GlyphAutonomous
	if v.Player {
		glyph = GlyphPlayer
		r.status += fmt.Sprintf("  player z %.1f  wraps %d", v.Position.Z(), v.Wraps)
	}
	r.plot(v.Position.X(), v.Position.Z(), glyph)
}

// Present writes the buffer, framed, to the output
func (r *TerminalRenderer) Present() {
	w := bufio.NewWriter(r.out)
	if r.clearTerm {
		w.WriteString("\033[H\033[2J")
	}

	border := "+" + strings.Repeat("-", r.width) + "+\n"
	w.WriteString(border)
	for y := range r.buffer {
		w.WriteByte('|')
		w.WriteString(string(r.buffer[y]))
		w.WriteString("|\n")
	}
	w.WriteString(border)
	if r.status != "" {
		w.WriteString(r.status + "\n")
		r.status = ""
	}
	w.Flush()
}
