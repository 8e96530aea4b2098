// Package geom holds the small amount of planar geometry the evasion agent needs.
// Positions live in the XY plane of an r3 vector; headings are degrees measured
// counter-clockwise from +Y.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Vec is a position or direction. Z is carried but unused by the flight model.
type Vec = r3.Vec

// DefaultForward is the canonical forward direction for heading 0.
var DefaultForward = Vec{X: 0, Y: 1, Z: 0}

// DistanceSq returns the squared distance between a and b.
func DistanceSq(a, b Vec) float64 {
	return r3.Norm2(r3.Sub(b, a))
}

// Offset returns b - a.
func Offset(a, b Vec) Vec {
	return r3.Sub(b, a)
}

// Advance moves p along dir by distance.
func Advance(p, dir Vec, distance float64) Vec {
	return r3.Add(p, r3.Scale(distance, dir))
}

// Forward returns the unit direction for a heading in degrees.
func Forward(headingDeg float64) Vec {
	rad := headingDeg * math.Pi / 180.0
	return r3.Unit(Vec{X: -math.Sin(rad), Y: math.Cos(rad)})
}

// IsDegenerate reports whether any component of v is NaN or infinite.
func IsDegenerate(v Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return true
		}
	}
	return false
}

// NormalizeDegrees maps any angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// BearingDegrees returns the heading that points from -> to.
func BearingDegrees(from, to Vec) float64 {
	d := r3.Sub(to, from)
	if d.X == 0 && d.Y == 0 {
		return 0
	}
	return NormalizeDegrees(math.Atan2(-d.X, d.Y) * 180.0 / math.Pi)
}

// SignedDelta returns the shortest signed rotation, in degrees, from a to b.
// Positive values are counter-clockwise.
func SignedDelta(a, b float64) float64 {
	d := NormalizeDegrees(b - a)
	if d > 180 {
		d -= 360
	}
	return d
}
