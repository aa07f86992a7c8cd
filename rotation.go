package pilot

import (
	"math"

	"github.com/gonum/matrix/mat64"
)

// R3R1R3 performs a 3-1-3 Euler parameter rotation.
// From Schaub and Junkins.
func R3R1R3(θ1, θ2, θ3 float64) *mat64.Dense {
	sθ1, cθ1 := math.Sincos(θ1)
	sθ2, cθ2 := math.Sincos(θ2)
	sθ3, cθ3 := math.Sincos(θ3)
	return mat64.NewDense(3, 3, []float64{cθ3*cθ1 - sθ3*cθ2*sθ1, cθ3*sθ1 + sθ3*cθ2*cθ1, sθ3 * sθ2,
		-sθ3*cθ1 - cθ3*cθ2*sθ1, -sθ3*sθ1 + cθ3*cθ2*cθ1, cθ3 * sθ2,
		sθ2 * sθ1, -sθ2 * cθ1, cθ2})
}

// R1 rotation about the 1st axis.
func R1(x float64) *mat64.Dense {
	s, c := math.Sincos(x)
	return mat64.NewDense(3, 3, []float64{1, 0, 0, 0, c, s, 0, -s, c})
}

// R3 rotation about the 3rd axis.
func R3(x float64) *mat64.Dense {
	s, c := math.Sincos(x)
	return mat64.NewDense(3, 3, []float64{c, s, 0, -s, c, 0, 0, 0, 1})
}

// MxV33 multiplies a matrix with a vector. Note that there is no dimension check!
func MxV33(m mat64.Matrix, v []float64) (o []float64) {
	vVec := mat64.NewVector(len(v), v)
	var rVec mat64.Vector
	rVec.MulVec(m, vVec)
	return []float64{rVec.At(0, 0), rVec.At(1, 0), rVec.At(2, 0)}
}

// GEO2Fixed converts the provided parameters (in km and degrees) to the body-fixed vector.
// Note that the first parameter is the altitude, not the radius from the center of the body!
func GEO2Fixed(altitude, latitude, longitude float64, b Body) []float64 {
	sLong, cLong := math.Sincos(longitude * deg2rad)
	sLat, cLat := math.Sincos(latitude * deg2rad)
	r := altitude + b.Radius
	return []float64{r * cLat * cLong, r * cLat * sLong, r * sLat}
}

// Fixed2GEO returns the latitude and longitude in degrees of a body-fixed vector.
func Fixed2GEO(R []float64) (latitude, longitude float64) {
	r := norm(R)
	if r == 0 {
		return 0, 0
	}
	latitude = math.Asin(clamp(R[2]/r, -1, 1)) / deg2rad
	longitude = math.Atan2(R[1], R[0]) / deg2rad
	return
}

// Inertial2Fixed converts the provided inertial vector to the body-fixed frame at the given UT.
func Inertial2Fixed(R []float64, b Body, ut float64) []float64 {
	return MxV33(R3(b.RotationAngle(ut)), R)
}

// Fixed2Inertial converts the provided body-fixed vector to the inertial frame at the given UT.
func Fixed2Inertial(R []float64, b Body, ut float64) []float64 {
	return MxV33(R3(-b.RotationAngle(ut)), R)
}

// SurfaceCoordinates returns the latitude and longitude under the inertial position R at UT.
func SurfaceCoordinates(R []float64, b Body, ut float64) (latitude, longitude float64) {
	return Fixed2GEO(Inertial2Fixed(R, b, ut))
}

// CentralAngle returns the great-circle angle in radians between two surface points given in degrees.
func CentralAngle(lat1, lon1, lat2, lon2 float64) float64 {
	cφ1 := math.Cos(lat1 * deg2rad)
	cφ2 := math.Cos(lat2 * deg2rad)
	sΔλ2 := math.Sin((lon2 - lon1) * deg2rad / 2)
	sΔφ2 := math.Sin((lat2 - lat1) * deg2rad / 2)
	// Haversine
	h := sΔφ2*sΔφ2 + cφ1*cφ2*sΔλ2*sΔλ2
	return 2 * math.Asin(math.Sqrt(clamp01(h)))
}

// Orbit2NodeΔv converts an inertial Δv into the (radial, normal, prograde) frame of the orbit at UT.
func Orbit2NodeΔv(o *Orbit, dv []float64, ut float64) []float64 {
	rad, nrm, pro := o.LocalFrame(ut)
	return []float64{dot(dv, rad), dot(dv, nrm), dot(dv, pro)}
}

// Node2OrbitΔv converts a (radial, normal, prograde) Δv into the inertial frame of the orbit at UT.
func Node2OrbitΔv(o *Orbit, node []float64, ut float64) []float64 {
	rad, nrm, pro := o.LocalFrame(ut)
	return add(add(scale(node[0], rad), scale(node[1], nrm)), scale(node[2], pro))
}
