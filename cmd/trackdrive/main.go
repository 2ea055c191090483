// cmd/trackdrive/main.go
package main

import (
	"context"
	"flag"
	"os"

	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-trackdrive/pkg/config"
	"github.com/opd-ai/go-trackdrive/pkg/engine"
	"github.com/opd-ai/go-trackdrive/pkg/logging"
	engorender "github.com/opd-ai/go-trackdrive/pkg/render/engo"
)

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithSessionID(context.Background(), logging.GenerateSessionID())

	configPath := flag.String("config", "", "Path to configuration file (defaults when empty)")
	fullscreen := flag.Bool("fullscreen", false, "Run in fullscreen mode (overrides config)")
	width := flag.Int("width", 0, "Window width (overrides config)")
	height := flag.Int("height", 0, "Window height (overrides config)")
	traffic := flag.Bool("traffic", true, "Spawn autonomous vehicles")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
		os.Exit(1)
	}
	if *fullscreen {
		cfg.Window.Fullscreen = true
	}
	if *width > 0 {
		cfg.Window.Width = *width
	}
	if *height > 0 {
		cfg.Window.Height = *height
	}

	sim, err := engine.New(cfg, logger)
	if err != nil {
		logger.Error(ctx, "Failed to create simulation", err)
		os.Exit(1)
	}
	if _, err := sim.SpawnPlayer(); err != nil {
		logger.Error(ctx, "Failed to spawn player", err)
		os.Exit(1)
	}
	if *traffic {
		if _, err := sim.SpawnTraffic(); err != nil {
			logger.Error(ctx, "Failed to spawn traffic", err)
			os.Exit(1)
		}
	}

	opts := engo.RunOptions{
		Title:      cfg.Window.Title,
		Width:      cfg.Window.Width,
		Height:     cfg.Window.Height,
		Fullscreen: cfg.Window.Fullscreen,
		VSync:      true,
		FPSLimit:   cfg.Runtime.FrameRate,
	}

	logger.Info(ctx, "Starting window",
		"width", opts.Width,
		"height", opts.Height,
		"vehicles", len(sim.Vehicles()),
	)
	engo.Run(opts, engorender.NewScene(sim, logger))
}
