// pkg/render/engo/scene.go
package engo

import (
	"context"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-trackdrive/pkg/engine"
	"github.com/opd-ai/go-trackdrive/pkg/logging"
)

// SimulationPriority steps the simulation after input and before sprite sync
const SimulationPriority = 50

// hudFontSize is the HUD text size in points
const hudFontSize = 18

// SimulationSystem advances a Simulation once per engo frame
type SimulationSystem struct {
	sim    *engine.Simulation
	logger *logging.Logger
}

// NewSimulationSystem wraps sim for an engo world
func NewSimulationSystem(sim *engine.Simulation, logger *logging.Logger) *SimulationSystem {
	if logger == nil {
		logger = logging.Discard()
	}
	return &SimulationSystem{sim: sim, logger: logger}
}

// Priority implements ecs.Prioritizer
func (s *SimulationSystem) Priority() int { return SimulationPriority }

// Remove satisfies the ecs.System interface
func (s *SimulationSystem) Remove(ecs.BasicEntity) {}

// Update implements ecs.System
func (s *SimulationSystem) Update(dt float32) {
	if err := s.sim.Step(float64(dt)); err != nil {
		s.logger.Error(s.sim.Context(), "simulation step failed", err, "frame", s.sim.Frames())
	}
}

// Scene is the engo scene for one driving session
type Scene struct {
	sim     *engine.Simulation
	palette Palette
	logger  *logging.Logger

	font    *common.Font
	sprites *SpriteSystem
	hud     *HUDSystem
}

// NewScene creates a scene around an already spawned simulation
func NewScene(sim *engine.Simulation, logger *logging.Logger) *Scene {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scene{sim: sim, palette: DefaultPalette, logger: logger}
}

// Type returns the scene type (required by Engo)
func (scene *Scene) Type() string {
	return "TrackScene"
}

// Preload loads the HUD font (required by Engo)
func (scene *Scene) Preload() {
	font, err := LoadFont(scene.palette, hudFontSize)
	if err != nil {
		scene.logger.Warn(context.Background(), "hud text disabled", "error", err.Error())
		return
	}
	scene.font = font
}

// Setup builds the engo world (required by Engo)
func (scene *Scene) Setup(u engo.Updater) {
	world, _ := u.(*ecs.World)
	common.SetBackground(scene.palette.Background)
	RegisterBindings()

	render := &common.RenderSystem{}
	world.AddSystem(render)

	for _, s := range TrackSprites(scene.sim.Track, scene.palette) {
		s.register(render)
	}

	world.AddSystem(NewInputSystem(scene.sim))
	world.AddSystem(NewSimulationSystem(scene.sim, scene.logger))

	scene.sprites = NewSpriteSystem(scene.sim.Snapshot, scene.sim.Config.Vehicles.Extent, render, scene.palette)
	world.AddSystem(scene.sprites)

	scene.hud = NewHUDSystem(scene.sim, render)
	scene.hud.SetFont(scene.font)
	world.AddSystem(scene.hud)

	scene.sim.Camera().SetSink(NewCameraSink())
	scene.logger.Info(scene.sim.Context(), "scene ready",
		"vehicles", len(scene.sim.Vehicles()),
		"segments", len(scene.sim.Track.Segments()),
	)
}

// Exit closes the simulation when the window is closed
func (scene *Scene) Exit() {
	if err := scene.sim.Close(); err != nil {
		scene.logger.Error(scene.sim.Context(), "simulation close failed", err)
	}
	engo.Exit()
}
