// cmd/headless/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/go-trackdrive/pkg/config"
	"github.com/opd-ai/go-trackdrive/pkg/engine"
	"github.com/opd-ai/go-trackdrive/pkg/health"
	"github.com/opd-ai/go-trackdrive/pkg/logging"
	"github.com/opd-ai/go-trackdrive/pkg/render"
	"github.com/opd-ai/go-trackdrive/pkg/resource"
)

// maxFrameStall is how long the frame counter may stand still before the
// liveness check fails
const maxFrameStall = 2 * time.Second

func main() {
	logger := logging.NewLogger()
	ctx := logging.WithSessionID(context.Background(), logging.GenerateSessionID())

	configPath := flag.String("config", "", "Path to configuration file (defaults when empty)")
	createDefault := flag.Bool("default", false, "Write the default configuration to -config and exit")
	script := flag.String("script", "0:+KeyW", "Scripted keys, e.g. 0:+KeyW,600:-KeyW")
	frames := flag.Uint64("frames", 0, "Stop after this many frames (0 runs until interrupted)")
	fast := flag.Bool("fast", false, "Run frames as fast as possible instead of at the configured frame rate")
	draw := flag.Bool("render", true, "Draw the track to stdout")
	every := flag.Uint64("render-every", 6, "Draw one frame in N")
	scale := flag.Float64("scale", 2, "World units per terminal cell")
	noHealth := flag.Bool("no-health", false, "Do not start the health server")
	flag.Parse()

	if *createDefault {
		if *configPath == "" {
			logger.Error(ctx, "Missing -config for -default", nil)
			os.Exit(2)
		}
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err, "config_path", *configPath)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file", "config_path", *configPath)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
		os.Exit(1)
	}

	steps, err := ParseScript(*script)
	if err != nil {
		logger.Error(ctx, "Invalid key script", err)
		os.Exit(2)
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
	if _, err := sim.SpawnTraffic(); err != nil {
		logger.Error(ctx, "Failed to spawn traffic", err)
		os.Exit(1)
	}

	runner := &Runner{
		Sim:         sim,
		Script:      steps,
		RenderEvery: *every,
		MaxFrames:   *frames,
		Logger:      logger,
	}
	if !*fast {
		runner.Interval = cfg.Runtime.FrameInterval()
	}
	if *draw {
		term := render.NewTerminalRenderer(os.Stdout, 60, 30, *scale)
		term.SetClearScreen(true)
		runner.Renderer = term
	}

	rm := resource.NewResourceManager(resource.LimitsFromConfig(cfg.Runtime), logger)
	if err := rm.Start(); err != nil {
		logger.Error(ctx, "Failed to start resource manager", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var healthServer *http.Server
	if !*noHealth && cfg.Runtime.HealthAddr != "" {
		checker := health.NewHealthChecker()
		checker.AddCheck(health.NewFrameLoopHealthCheck(sim.Frames, maxFrameStall))
		if m := sim.Monitor(); m != nil {
			checker.AddCheck(health.NewPhysicsReadinessHealthCheck(m.State))
		}
		checker.AddCheck(resource.NewResourceHealthCheck(rm))

		healthServer = &http.Server{
			Addr:         cfg.Runtime.HealthAddr,
			Handler:      checker.Handler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
		}
		err := rm.StartGoroutine(runCtx, "health-server", func(context.Context) {
			logger.Info(ctx, "Starting health check server", "address", healthServer.Addr)
			if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error(ctx, "Health check server failed", err)
			}
		})
		if err != nil {
			logger.Error(ctx, "Failed to start health server", err)
			os.Exit(1)
		}
	}

	dt := cfg.Runtime.FrameInterval().Seconds()
	finished := make(chan error, 1)
	err = rm.StartGoroutine(runCtx, "frame-loop", func(loopCtx context.Context) {
		runErr := errors.New("frame loop aborted")
		defer func() { finished <- runErr }()
		runErr = runner.Run(loopCtx, dt)
	})
	if err != nil {
		logger.Error(ctx, "Failed to start frame loop", err)
		os.Exit(1)
	}

	exitCode := 0
	select {
	case err := <-finished:
		if err != nil {
			logger.Error(ctx, "Frame loop failed", err)
			exitCode = 1
		}
	case <-runCtx.Done():
		logger.Info(ctx, "Shutting down")
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Runtime.ShutdownTimeout())
	defer cancel()

	if healthServer != nil {
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "Health check server shutdown failed", err)
		}
	}
	if err := rm.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Resource manager shutdown failed", err)
		exitCode = 1
	}
	if err := sim.Close(); err != nil {
		logger.Error(ctx, "Simulation close failed", err)
		exitCode = 1
	}
	logger.Info(ctx, "Stopped", "frames", sim.Frames())
	os.Exit(exitCode)
}
