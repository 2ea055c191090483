package bridge

import (
	"context"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-trackdrive/pkg/logging"
)

// BreakerSettings configures Monitored
type BreakerSettings struct {
	// MaxConsecutiveNotReady trips the breaker after that many failed reads in a row.
	MaxConsecutiveNotReady uint32
	// OpenTimeout is how long reads are short-circuited before probing again.
	OpenTimeout time.Duration
	// HalfOpenProbes is the number of reads let through while half-open.
	HalfOpenProbes uint32
}

// Monitored wraps a Bridge and watches position readiness through a circuit
// breaker. While the breaker is open, reads answer not-ready without touching
// the backend; writes always pass through.
type Monitored struct {
	inner   Bridge
	breaker *gobreaker.TwoStepCircuitBreaker
	logger  *logging.Logger
}

// NewMonitored wraps inner. A nil logger discards state-change logs.
func NewMonitored(inner Bridge, settings BreakerSettings, logger *logging.Logger) *Monitored {
	if logger == nil {
		logger = logging.Discard()
	}
	if settings.MaxConsecutiveNotReady == 0 {
		settings.MaxConsecutiveNotReady = 1
	}

	st := gobreaker.Settings{
		Name:        "physics-readiness",
		MaxRequests: settings.HalfOpenProbes,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxConsecutiveNotReady
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			level := logger.Info
			if to == gobreaker.StateOpen {
				level = logger.Warn
			}
			level(context.Background(), "physics readiness breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Monitored{
		inner:   inner,
		breaker: gobreaker.NewTwoStepCircuitBreaker(st),
		logger:  logger,
	}
}

// ReadPosition implements Bridge
func (m *Monitored) ReadPosition(h Handle) (mgl64.Vec3, bool) {
	done, err := m.breaker.Allow()
	if err != nil {
		return mgl64.Vec3{}, false
	}
	pos, ok := m.inner.ReadPosition(h)
	done(ok)
	return pos, ok
}

// SetVelocity implements Bridge
func (m *Monitored) SetVelocity(h Handle, v mgl64.Vec3) error {
	return m.inner.SetVelocity(h, v)
}

// SetPosition implements Bridge
func (m *Monitored) SetPosition(h Handle, p mgl64.Vec3) error {
	return m.inner.SetPosition(h, p)
}

// State returns the breaker state
func (m *Monitored) State() gobreaker.State {
	return m.breaker.State()
}

// Counts returns the breaker counters for the current generation
func (m *Monitored) Counts() gobreaker.Counts {
	return m.breaker.Counts()
}
