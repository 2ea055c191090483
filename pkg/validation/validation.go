// Package validation provides the numeric checks shared by configuration
// loading and vehicle spawning.
package validation

import (
	"errors"
	"fmt"
	"math"
)

// Upper limits that keep a misconfigured run from producing absurd frames
const (
	MaxSpeed       = 1000.0 // units per second
	MaxExtent      = 100.0
	MaxFixedStep   = 0.25 // seconds
	MaxVehicles    = 256
	MaxSubStepsCap = 16
)

// ErrInvalid is wrapped by every error returned from this package
var ErrInvalid = errors.New("invalid value")

// ValidateFinite rejects NaN and infinities
func ValidateFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalid, name, v)
	}
	return nil
}

// ValidatePositive requires 0 < v
func ValidatePositive(name string, v float64) error {
	if err := ValidateFinite(name, v); err != nil {
		return err
	}
	if v <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalid, name, v)
	}
	return nil
}

// ValidateSpeed requires 0 <= v <= MaxSpeed
func ValidateSpeed(name string, v float64) error {
	if err := ValidateFinite(name, v); err != nil {
		return err
	}
	if v < 0 || v > MaxSpeed {
		return fmt.Errorf("%w: %s must be within [0, %v], got %v", ErrInvalid, name, MaxSpeed, v)
	}
	return nil
}

// ValidateExtent checks a collision box size; every axis must be in (0, MaxExtent]
func ValidateExtent(extent [3]float64) error {
	for i, e := range extent {
		if err := ValidatePositive(fmt.Sprintf("extent[%d]", i), e); err != nil {
			return err
		}
		if e > MaxExtent {
			return fmt.Errorf("%w: extent[%d] too large: %v (max %v)", ErrInvalid, i, e, MaxExtent)
		}
	}
	return nil
}

// ValidatePosition requires every component to be finite
func ValidatePosition(name string, p [3]float64) error {
	for i, c := range p {
		if err := ValidateFinite(fmt.Sprintf("%s[%d]", name, i), c); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTimestep checks the physics stepping settings. A zero fixed step
// selects variable stepping.
func ValidateTimestep(fixedStep float64, maxSubSteps int) error {
	if err := ValidateFinite("fixed step", fixedStep); err != nil {
		return err
	}
	if fixedStep < 0 || fixedStep > MaxFixedStep {
		return fmt.Errorf("%w: fixed step must be within [0, %v], got %v", ErrInvalid, MaxFixedStep, fixedStep)
	}
	if maxSubSteps < 1 || maxSubSteps > MaxSubStepsCap {
		return fmt.Errorf("%w: max substeps must be within [1, %d], got %d", ErrInvalid, MaxSubStepsCap, maxSubSteps)
	}
	return nil
}

// ValidateVehicleCount bounds the number of autonomous vehicles
func ValidateVehicleCount(n int) error {
	if n < 0 || n > MaxVehicles {
		return fmt.Errorf("%w: vehicle count must be within [0, %d], got %d", ErrInvalid, MaxVehicles, n)
	}
	return nil
}
