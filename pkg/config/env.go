// pkg/config/env.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Environment variables recognized by ApplyEnvironmentOverrides
const (
	EnvForwardLimit    = "TRACKDRIVE_FORWARD_LIMIT"
	EnvResetPosition   = "TRACKDRIVE_RESET_POSITION"
	EnvFixedStep       = "TRACKDRIVE_FIXED_STEP"
	EnvPlayerSpeed     = "TRACKDRIVE_PLAYER_SPEED"
	EnvAutonomousSpeed = "TRACKDRIVE_AUTONOMOUS_SPEED"
	EnvAutonomousCount = "TRACKDRIVE_AUTONOMOUS_COUNT"
	EnvCameraSmoothing = "TRACKDRIVE_CAMERA_SMOOTHING"
	EnvBreakerEnabled  = "TRACKDRIVE_BREAKER_ENABLED"
	EnvHealthAddr      = "TRACKDRIVE_HEALTH_ADDR"
	EnvFrameRate       = "TRACKDRIVE_FRAME_RATE"
	EnvFullscreen      = "TRACKDRIVE_FULLSCREEN"
)

// ApplyEnvironmentOverrides replaces config values with any TRACKDRIVE_*
// variables that are set. A set but unparsable variable is an error.
func ApplyEnvironmentOverrides(config *Config) error {
	floats := []struct {
		key string
		dst *float64
	}{
		{EnvForwardLimit, &config.Track.ForwardLimit},
		{EnvResetPosition, &config.Track.ResetPosition},
		{EnvFixedStep, &config.Physics.FixedStep},
		{EnvPlayerSpeed, &config.Vehicles.PlayerSpeed},
		{EnvAutonomousSpeed, &config.Vehicles.AutonomousSpeed},
		{EnvCameraSmoothing, &config.Camera.Smoothing},
	}
	for _, f := range floats {
		if err := overrideFloat(f.key, f.dst); err != nil {
			return err
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{EnvAutonomousCount, &config.Vehicles.AutonomousCount},
		{EnvFrameRate, &config.Runtime.FrameRate},
	}
	for _, i := range ints {
		if err := overrideInt(i.key, i.dst); err != nil {
			return err
		}
	}

	if err := overrideBool(EnvBreakerEnabled, &config.Bridge.BreakerEnabled); err != nil {
		return err
	}
	if err := overrideBool(EnvFullscreen, &config.Window.Fullscreen); err != nil {
		return err
	}

	config.Runtime.HealthAddr = getEnvOrDefault(EnvHealthAddr, config.Runtime.HealthAddr)
	return nil
}

// Load reads path when non-empty, otherwise starts from DefaultConfig, then
// applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnvironmentOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func overrideFloat(key string, dst *float64) error {
	value, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = f
	return nil
}

func overrideInt(key string, dst *int) error {
	value, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = i
	return nil
}

func overrideBool(key string, dst *bool) error {
	value, ok := lookupEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	*dst = b
	return nil
}

func lookupEnv(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value, ok := lookupEnv(key); ok {
		return value
	}
	return defaultValue
}
