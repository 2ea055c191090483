// pkg/physics/collision.go
package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis-aligned collision box described by its centre and half extents
type Box struct {
	Center mgl64.Vec3
	Half   mgl64.Vec3
}

// BoxAt builds a box of full size extent centred on pos
func BoxAt(pos, extent mgl64.Vec3) Box {
	return Box{Center: pos, Half: extent.Mul(0.5)}
}

// Overlaps checks if two boxes intersect. Touching faces do not count.
func (b Box) Overlaps(other Box) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(b.Center[i]-other.Center[i]) >= b.Half[i]+other.Half[i] {
			return false
		}
	}
	return true
}

// CollisionResult contains information about a collision
type CollisionResult struct {
	Collided    bool
	Normal      mgl64.Vec3
	Penetration float64
}

// CheckCollision returns the axis of least penetration between a and b.
// Normal points from a towards b.
func CheckCollision(a, b Box) CollisionResult {
	if !a.Overlaps(b) {
		return CollisionResult{}
	}

	best := math.Inf(1)
	var normal mgl64.Vec3
	for i := 0; i < 3; i++ {
		d := b.Center[i] - a.Center[i]
		pen := a.Half[i] + b.Half[i] - math.Abs(d)
		if pen < best {
			best = pen
			normal = mgl64.Vec3{}
			if d < 0 {
				normal[i] = -1
			} else {
				normal[i] = 1
			}
		}
	}

	return CollisionResult{
		Collided:    true,
		Normal:      normal,
		Penetration: best,
	}
}
