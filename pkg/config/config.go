// pkg/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/opd-ai/go-trackdrive/pkg/track"
	"github.com/opd-ai/go-trackdrive/pkg/validation"
)

// Config contains configuration for a track driving session
type Config struct {
	Track    TrackConfig   `json:"track"`
	Physics  PhysicsConfig `json:"physics"`
	Vehicles VehicleConfig `json:"vehicles"`
	Camera   CameraConfig  `json:"camera"`
	Bridge   BridgeConfig  `json:"bridge"`
	Window   WindowConfig  `json:"window"`
	Runtime  RuntimeConfig `json:"runtime"`
}

// TrackConfig contains the track layout and wraparound bounds
type TrackConfig struct {
	ForwardLimit  float64 `json:"forwardLimit"`
	ResetPosition float64 `json:"resetPosition"`
	Width         float64 `json:"width"`
	Lanes         int     `json:"lanes"`
	SegmentLength float64 `json:"segmentLength"`
}

// PhysicsConfig contains physics stepping configuration
type PhysicsConfig struct {
	// FixedStep in seconds; zero integrates with the frame delta directly.
	FixedStep   float64 `json:"fixedStep"`
	MaxSubSteps int     `json:"maxSubSteps"`
}

// VehicleConfig contains vehicle spawning and driving configuration
type VehicleConfig struct {
	FixedHeight     float64    `json:"fixedHeight"`
	PlayerSpeed     float64    `json:"playerSpeed"`
	AutonomousSpeed float64    `json:"autonomousSpeed"`
	AutonomousCount int        `json:"autonomousCount"`
	Mass            float64    `json:"mass"`
	Extent          [3]float64 `json:"extent"`
	PlayerSpawn     [3]float64 `json:"playerSpawn"`
}

// CameraConfig contains the follow camera placement
type CameraConfig struct {
	Offset    [3]float64 `json:"offset"`
	LookAhead [3]float64 `json:"lookAhead"`
	// Smoothing is the exponential follow rate per second; zero snaps.
	Smoothing float64 `json:"smoothing"`
}

// BridgeConfig contains the readiness monitor settings
type BridgeConfig struct {
	BreakerEnabled         bool   `json:"breakerEnabled"`
	MaxConsecutiveNotReady uint32 `json:"maxConsecutiveNotReady"`
	OpenTimeoutMS          int    `json:"openTimeoutMs"`
	HalfOpenProbes         uint32 `json:"halfOpenProbes"`
}

// WindowConfig contains the graphical client window settings
type WindowConfig struct {
	Title      string `json:"title"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Fullscreen bool   `json:"fullscreen"`
}

// RuntimeConfig contains process level settings for the runners
type RuntimeConfig struct {
	HealthAddr        string `json:"healthAddr"`
	FrameRate         int    `json:"frameRate"`
	ShutdownTimeoutMS int    `json:"shutdownTimeoutMs"`
	MaxGoroutines     int    `json:"maxGoroutines"`
	MaxMemoryMB       int64  `json:"maxMemoryMb"`
}

// OpenTimeout returns the breaker open period as a duration
func (b BridgeConfig) OpenTimeout() time.Duration {
	return time.Duration(b.OpenTimeoutMS) * time.Millisecond
}

// ShutdownTimeout returns the shutdown grace period as a duration
func (r RuntimeConfig) ShutdownTimeout() time.Duration {
	return time.Duration(r.ShutdownTimeoutMS) * time.Millisecond
}

// FrameInterval returns the wall clock time between frames
func (r RuntimeConfig) FrameInterval() time.Duration {
	if r.FrameRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(r.FrameRate)
}

// Bounds builds the wraparound bounds from the track section
func (c *Config) Bounds() (track.Bounds, error) {
	return track.NewBounds(c.Track.ForwardLimit, c.Track.ResetPosition)
}

// BuildTrack builds the full track layout
func (c *Config) BuildTrack() (*track.Track, error) {
	bounds, err := c.Bounds()
	if err != nil {
		return nil, err
	}
	return track.New(bounds, c.Track.Width, c.Track.Lanes, c.Track.SegmentLength)
}

// Validate checks the whole configuration and returns the first problem found
func (c *Config) Validate() error {
	if _, err := c.BuildTrack(); err != nil {
		return fmt.Errorf("track: %w", err)
	}
	if err := validation.ValidateTimestep(c.Physics.FixedStep, c.Physics.MaxSubSteps); err != nil {
		return fmt.Errorf("physics: %w", err)
	}

	v := c.Vehicles
	if err := validation.ValidateFinite("fixed height", v.FixedHeight); err != nil {
		return fmt.Errorf("vehicles: %w", err)
	}
	if err := validation.ValidateSpeed("player speed", v.PlayerSpeed); err != nil {
		return fmt.Errorf("vehicles: %w", err)
	}
	if err := validation.ValidateSpeed("autonomous speed", v.AutonomousSpeed); err != nil {
		return fmt.Errorf("vehicles: %w", err)
	}
	if err := validation.ValidateVehicleCount(v.AutonomousCount); err != nil {
		return fmt.Errorf("vehicles: %w", err)
	}
	if err := validation.ValidatePositive("mass", v.Mass); err != nil {
		return fmt.Errorf("vehicles: %w", err)
	}
	if err := validation.ValidateExtent(v.Extent); err != nil {
		return fmt.Errorf("vehicles: %w", err)
	}
	if err := validation.ValidatePosition("player spawn", v.PlayerSpawn); err != nil {
		return fmt.Errorf("vehicles: %w", err)
	}

	if err := validation.ValidatePosition("camera offset", c.Camera.Offset); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	if err := validation.ValidatePosition("camera look-ahead", c.Camera.LookAhead); err != nil {
		return fmt.Errorf("camera: %w", err)
	}
	if c.Camera.Smoothing < 0 {
		return fmt.Errorf("camera: smoothing must not be negative, got %v", c.Camera.Smoothing)
	}

	if c.Bridge.BreakerEnabled {
		if c.Bridge.MaxConsecutiveNotReady == 0 {
			return fmt.Errorf("bridge: maxConsecutiveNotReady must be positive")
		}
		if c.Bridge.OpenTimeoutMS <= 0 {
			return fmt.Errorf("bridge: openTimeoutMs must be positive, got %d", c.Bridge.OpenTimeoutMS)
		}
	}

	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window: invalid size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Runtime.FrameRate <= 0 {
		return fmt.Errorf("runtime: frame rate must be positive, got %d", c.Runtime.FrameRate)
	}
	if c.Runtime.ShutdownTimeoutMS < 0 {
		return fmt.Errorf("runtime: shutdown timeout must not be negative")
	}
	if c.Runtime.MaxGoroutines <= 0 {
		return fmt.Errorf("runtime: maxGoroutines must be positive, got %d", c.Runtime.MaxGoroutines)
	}
	return nil
}

// LoadConfig loads a configuration from a file. Fields missing from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *Config, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns the default session configuration
func DefaultConfig() *Config {
	return &Config{
		Track: TrackConfig{
			ForwardLimit:  -500,
			ResetPosition: 10,
			Width:         12,
			Lanes:         3,
			SegmentLength: 20,
		},
		Physics: PhysicsConfig{
			FixedStep:   1.0 / 60,
			MaxSubSteps: 3,
		},
		Vehicles: VehicleConfig{
			FixedHeight:     1,
			PlayerSpeed:     20,
			AutonomousSpeed: 12,
			AutonomousCount: 4,
			Mass:            1,
			Extent:          [3]float64{1.6, 1, 3.2},
			PlayerSpawn:     [3]float64{0, 1, 0},
		},
		Camera: CameraConfig{
			Offset:    [3]float64{3, 10, 8},
			LookAhead: [3]float64{0, 0, -3},
		},
		Bridge: BridgeConfig{
			BreakerEnabled:         true,
			MaxConsecutiveNotReady: 120,
			OpenTimeoutMS:          500,
			HalfOpenProbes:         1,
		},
		Window: WindowConfig{
			Title:  "Trackdrive",
			Width:  1024,
			Height: 768,
		},
		Runtime: RuntimeConfig{
			HealthAddr:        ":8081",
			FrameRate:         60,
			ShutdownTimeoutMS: 5000,
			MaxGoroutines:     16,
			MaxMemoryMB:       256,
		},
	}
}
