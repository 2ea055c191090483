// Package track supplies the static layout of the looping track and the
// bounds used for wraparound. Vehicles drive towards negative z.
package track

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidBounds is returned when the reset position would not send a
// vehicle back behind the forward limit.
var ErrInvalidBounds = errors.New("invalid track bounds")

// Bounds is the z-extent of the drivable loop. Immutable once built.
type Bounds struct {
	forwardLimit  float64
	resetPosition float64
}

// NewBounds validates and builds Bounds. resetPosition must be strictly
// greater than forwardLimit.
func NewBounds(forwardLimit, resetPosition float64) (Bounds, error) {
	if math.IsNaN(forwardLimit) || math.IsNaN(resetPosition) ||
		math.IsInf(forwardLimit, 0) || math.IsInf(resetPosition, 0) {
		return Bounds{}, fmt.Errorf("%w: limits must be finite", ErrInvalidBounds)
	}
	if resetPosition <= forwardLimit {
		return Bounds{}, fmt.Errorf("%w: reset position %v must be greater than forward limit %v",
			ErrInvalidBounds, resetPosition, forwardLimit)
	}
	return Bounds{forwardLimit: forwardLimit, resetPosition: resetPosition}, nil
}

// ForwardLimit is the z below which a vehicle wraps
func (b Bounds) ForwardLimit() float64 { return b.forwardLimit }

// ResetPosition is the z a wrapped vehicle is placed at
func (b Bounds) ResetPosition() float64 { return b.resetPosition }

// Length of one lap
func (b Bounds) Length() float64 { return b.resetPosition - b.forwardLimit }

// Passed reports whether z is beyond the forward limit. A vehicle exactly at
// the limit has not passed it.
func (b Bounds) Passed(z float64) bool { return z < b.forwardLimit }

// Segment is one straight piece of road between ZFar and ZNear (ZFar < ZNear)
type Segment struct {
	Index  int
	ZNear  float64
	ZFar   float64
	Width  float64
	Stripe bool
}

// Track is the static road description handed to renderers
type Track struct {
	Bounds        Bounds
	Width         float64
	Lanes         int
	SegmentLength float64
}

// New builds a Track. Width and SegmentLength must be positive and Lanes at least one.
func New(bounds Bounds, width float64, lanes int, segmentLength float64) (*Track, error) {
	if width <= 0 || segmentLength <= 0 || lanes < 1 {
		return nil, fmt.Errorf("track: width %v, lanes %d and segment length %v must be positive",
			width, lanes, segmentLength)
	}
	return &Track{
		Bounds:        bounds,
		Width:         width,
		Lanes:         lanes,
		SegmentLength: segmentLength,
	}, nil
}

// Segments lays road pieces from the reset position down to the forward
// limit. Stripes alternate so a moving camera reads speed. The last segment
// is clipped to the limit.
func (t *Track) Segments() []Segment {
	n := int(math.Ceil(t.Bounds.Length() / t.SegmentLength))
	out := make([]Segment, 0, n)
	for i := 0; i < n; i++ {
		near := t.Bounds.ResetPosition() - float64(i)*t.SegmentLength
		far := math.Max(near-t.SegmentLength, t.Bounds.ForwardLimit())
		out = append(out, Segment{
			Index:  i,
			ZNear:  near,
			ZFar:   far,
			Width:  t.Width,
			Stripe: i%2 == 0,
		})
	}
	return out
}

// LaneCenters returns the x coordinate of each lane centre, left to right
func (t *Track) LaneCenters() []float64 {
	laneWidth := t.Width / float64(t.Lanes)
	out := make([]float64, t.Lanes)
	for i := range out {
		out[i] = -t.Width/2 + laneWidth*(float64(i)+0.5)
	}
	return out
}

// Contains reports whether x lies on the road surface
func (t *Track) Contains(x float64) bool {
	return math.Abs(x) <= t.Width/2
}
