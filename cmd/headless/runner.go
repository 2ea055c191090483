// cmd/headless/runner.go
package main

import (
	"context"
	"time"

	"github.com/opd-ai/go-trackdrive/pkg/engine"
	"github.com/opd-ai/go-trackdrive/pkg/logging"
	"github.com/opd-ai/go-trackdrive/pkg/render"
)

// Runner drives a simulation frame by frame, feeding scripted keys and
// drawing to an optional renderer.
type Runner struct {
	Sim      *engine.Simulation
	Script   Script
	Renderer render.Renderer
	// RenderEvery draws one frame in RenderEvery. Zero means every frame.
	RenderEvery uint64
	// MaxFrames stops the run after that many frames. Zero runs until ctx is done.
	MaxFrames uint64
	// Interval paces frames on the wall clock. Zero runs as fast as possible.
	Interval time.Duration

	Logger *logging.Logger
}

// Frame runs one scripted frame with a fixed dt
func (r *Runner) Frame(dt float64) error {
	frame := r.Sim.Frames()
	for _, step := range r.Script.At(frame) {
		if step.Down {
			r.Sim.PressKey(step.Code)
		} else {
			r.Sim.ReleaseKey(step.Code)
		}
	}

	if err := r.Sim.Step(dt); err != nil {
		return err
	}

	every := r.RenderEvery
	if every == 0 {
		every = 1
	}
	if r.Renderer != nil && frame%every == 0 {
		render.DrawFrame(r.Renderer, r.Sim)
	}
	return nil
}

// Run steps frames until MaxFrames is reached or ctx is cancelled
func (r *Runner) Run(ctx context.Context, dt float64) error {
	logger := r.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	var tick <-chan time.Time
	if r.Interval > 0 {
		ticker := time.NewTicker(r.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for r.MaxFrames == 0 || r.Sim.Frames() < r.MaxFrames {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		if err := r.Frame(dt); err != nil {
			return logging.WrapError(err, "frame %d", r.Sim.Frames())
		}
	}

	logger.Info(r.Sim.Context(), "frame limit reached", "frames", r.Sim.Frames())
	return nil
}
