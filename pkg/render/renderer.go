// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/opd-ai/go-trackdrive/pkg/camera"
	"github.com/opd-ai/go-trackdrive/pkg/engine"
	"github.com/opd-ai/go-trackdrive/pkg/logging"
	"github.com/opd-ai/go-trackdrive/pkg/track"
)

// Renderer draws one frame. Calls arrive in the order Clear, SetCamera,
// RenderTrack, RenderVehicle for each vehicle, Present.
type Renderer interface {
	camera.Sink
	Clear()
	RenderTrack(t *track.Track)
	RenderVehicle(v engine.VehicleView)
	Present()
}

// DrawFrame renders the simulation's last completed frame to r
func DrawFrame(r Renderer, sim *engine.Simulation) {
	r.Clear()
	if state, ok := sim.Camera().State(); ok {
		r.SetCamera(state)
	}
	r.RenderTrack(sim.Track)
	for _, v := range sim.Snapshot() {
		if v.Ready {
			r.RenderVehicle(v)
		}
	}
	r.Present()
}

// NullRenderer logs every call at debug level and draws nothing.
type NullRenderer struct {
	logger *logging.Logger
	ctx    context.Context
}

// NewNullRenderer creates a NullRenderer. A nil logger uses logging.NewLogger.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &NullRenderer{logger: logger, ctx: context.Background()}
}

// Clear implements Renderer.
func (d *NullRenderer) Clear() {
	d.logger.Debug(d.ctx, "clear")
}

// SetCamera implements Renderer.
func (d *NullRenderer) SetCamera(s camera.State) {
	d.logger.Debug(d.ctx, "camera",
		"eye_pos", s.Position[:],
		"look_pos", s.LookAt[:],
	)
}

// RenderTrack implements Renderer.
func (d *NullRenderer) RenderTrack(t *track.Track) {
	if t == nil {
		d.logger.Debug(d.ctx, "render track called with nil track")
		return
	}
	d.logger.Debug(d.ctx, "render track",
		"segments", len(t.Segments()),
		"width", t.Width,
	)
}

// RenderVehicle implements Renderer.
func (d *NullRenderer) RenderVehicle(v engine.VehicleView) {
	d.logger.Debug(d.ctx, "render vehicle",
		"vehicle", v.ID,
		"player", v.Player,
		"vehicle_pos", v.Position[:],
		"wraps", v.Wraps,
	)
}

// Present implements Renderer.
func (d *NullRenderer) Present() {
	d.logger.Debug(d.ctx, "present")
}
