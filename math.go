package pilot

import (
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

const (
	deg2rad = math.Pi / 180
	// StandardGravity is g0 in km/s^2.
	StandardGravity = 9.80665e-3
)

// norm returns the norm of a given vector which is supposed to be 3x1.
func norm(v []float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// unit returns the unit vector of a given vector.
func unit(a []float64) (b []float64) {
	n := norm(a)
	if floats.EqualWithinAbs(n, 0, 1e-12) {
		return []float64{0, 0, 0}
	}
	b = make([]float64, len(a))
	for i, val := range a {
		b[i] = val / n
	}
	return
}

// sign returns the sign of a given number.
func sign(v float64) float64 {
	if floats.EqualWithinAbs(v, 0, 1e-12) {
		return 1
	}
	return v / math.Abs(v)
}

// dot performs the inner product via mat64/BLAS.
func dot(a, b []float64) float64 {
	return mat64.Dot(mat64.NewVector(len(a), a), mat64.NewVector(len(b), b))
}

// cross performs the cross product.
func cross(a, b []float64) []float64 {
	return []float64{a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0]}
}

func add(a, b []float64) []float64 {
	return []float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func sub(a, b []float64) []float64 {
	return []float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func scale(k float64, a []float64) []float64 {
	return []float64{k * a[0], k * a[1], k * a[2]}
}

func zero3() []float64 {
	return []float64{0, 0, 0}
}

func copy3(a []float64) []float64 {
	if a == nil {
		return nil
	}
	return []float64{a[0], a[1], a[2]}
}

func isZero(a []float64) bool {
	return a == nil || norm(a) < 1e-12
}

func hasNaN(a []float64) bool {
	for _, v := range a {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// angleBetween returns the angle in radians between two vectors, or NaN if either is null.
func angleBetween(a, b []float64) float64 {
	na, nb := norm(a), norm(b)
	if na < 1e-12 || nb < 1e-12 {
		return math.NaN()
	}
	return math.Acos(clamp(dot(a, b)/(na*nb), -1, 1))
}

// exclude removes from v its component along n.
func exclude(n, v []float64) []float64 {
	un := unit(n)
	return sub(v, scale(dot(un, v), un))
}

// projectionAngle returns the signed angle (radians) between a and b once both are
// projected on the plane orthogonal to normal; positive when going from a to b
// counter-clockwise about normal.
func projectionAngle(a, b, normal []float64) float64 {
	pa := exclude(normal, a)
	pb := exclude(normal, b)
	ang := angleBetween(pa, pb)
	if math.IsNaN(ang) {
		return 0
	}
	if dot(cross(pa, pb), normal) < 0 {
		return -ang
	}
	return ang
}

// rotateAbout rotates v by θ radians about axis (Rodrigues' formula).
func rotateAbout(v, axis []float64, θ float64) []float64 {
	k := unit(axis)
	if isZero(k) {
		return copy3(v)
	}
	s, c := math.Sincos(θ)
	K := mat64.NewDense(3, 3, []float64{0, -k[2], k[1], k[2], 0, -k[0], -k[1], k[0], 0})
	var K2, rot mat64.Dense
	K2.Mul(K, K)
	rot.Scale(s, K)
	K2.Scale(1-c, &K2)
	rot.Add(&rot, &K2)
	rot.Add(&rot, DenseIdentity(3))
	return MxV33(&rot, v)
}

// clampDirection rotates dir toward ref so that their angle does not exceed maxAngle (radians).
func clampDirection(dir, ref []float64, maxAngle float64) []float64 {
	ang := angleBetween(dir, ref)
	if math.IsNaN(ang) || ang <= maxAngle {
		return copy3(dir)
	}
	axis := cross(ref, dir)
	if isZero(axis) {
		return copy3(ref)
	}
	return scale(norm(dir), unit(rotateAbout(unit(ref), axis, maxAngle)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// TimeToDistance returns the smallest positive time needed to travel d starting at speed v
// with constant acceleration a. It returns (NaN, false) when d can never be reached.
func TimeToDistance(d, v, a float64) (float64, bool) {
	if floats.EqualWithinAbs(a, 0, 1e-12) {
		if floats.EqualWithinAbs(v, 0, 1e-12) || d/v < 0 {
			return math.NaN(), false
		}
		return d / v, true
	}
	disc := v*v + 2*a*d
	if disc < 0 {
		return math.NaN(), false
	}
	sq := math.Sqrt(disc)
	t1 := (-v + sq) / a
	t2 := (-v - sq) / a
	switch {
	case t1 >= 0 && t2 >= 0:
		return math.Min(t1, t2), true
	case t1 >= 0:
		return t1, true
	case t2 >= 0:
		return t2, true
	}
	return math.NaN(), false
}

// DenseIdentity returns an identity matrix of type Dense and of the provided size.
func DenseIdentity(n int) *mat64.Dense {
	vals := make([]float64, n*n)
	for j := 0; j < n*n; j++ {
		if j%(n+1) == 0 {
			vals[j] = 1
		}
	}
	return mat64.NewDense(n, n, vals)
}

// Deg2rad converts degrees to radians, and enforced only positive numbers.
func Deg2rad(a float64) float64 {
	if a < 0 {
		a += 360
	}
	return math.Mod(a*deg2rad, 2*math.Pi)
}

// Rad2deg converts radians to degrees, and enforced only positive numbers.
func Rad2deg(a float64) float64 {
	if a < 0 {
		a += 2 * math.Pi
	}
	return math.Mod(a/deg2rad, 360)
}

// wrap180 wraps an angle in degrees to [-180, 180).
func wrap180(a float64) float64 {
	a = math.Mod(a+180, 360)
	if a < 0 {
		a += 360
	}
	return a - 180
}
