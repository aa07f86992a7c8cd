package pilot

import (
	"fmt"
	"math"
	"strings"
)

// Body defines the central body a vessel orbits.
// All distances are in km, μ in km^3/s^2, densities in kg/m^3.
type Body struct {
	Name            string
	Radius          float64
	μ               float64
	RotationRate    float64 // rad/s about the +Z axis
	RotationAngle0  float64 // rotation angle in radians at UT=0
	AtmosphereDepth float64
	SurfaceDensity  float64
	ScaleHeight     float64
	SOI             float64
}

// GM returns μ (which is unexported because it's a lowercase letter)
func (b Body) GM() float64 {
	return b.μ
}

// String implements the Stringer interface.
func (b Body) String() string {
	return b.Name + " body"
}

// Equals returns whether the provided body is the same.
func (b Body) Equals(b2 Body) bool {
	return b.Name == b2.Name && b.Radius == b2.Radius && b.μ == b2.μ
}

// SurfaceGravity returns the gravitational acceleration at the mean radius in km/s^2.
func (b Body) SurfaceGravity() float64 {
	return b.μ / (b.Radius * b.Radius)
}

// GravityAt returns the gravitational acceleration at the given radius in km/s^2.
func (b Body) GravityAt(r float64) float64 {
	return b.μ / (r * r)
}

// HasAtmosphere returns whether this body has an atmosphere.
func (b Body) HasAtmosphere() bool {
	return b.AtmosphereDepth > 0 && b.SurfaceDensity > 0
}

// Density returns the atmospheric density at the given altitude (exponential model).
func (b Body) Density(altitude float64) float64 {
	if !b.HasAtmosphere() || altitude >= b.AtmosphereDepth {
		return 0
	}
	if altitude < 0 {
		altitude = 0
	}
	return b.SurfaceDensity * math.Exp(-altitude/b.ScaleHeight)
}

// MinPeR returns the lowest safe periapsis radius given a minimal periapsis altitude.
func (b Body) MinPeR(minPeA float64) float64 {
	return b.Radius + math.Max(b.AtmosphereDepth, minPeA)
}

// RotationAngle returns the body rotation angle in radians at the given UT.
func (b Body) RotationAngle(ut float64) float64 {
	return math.Mod(b.RotationAngle0+b.RotationRate*ut, 2*math.Pi)
}

// AngularVelocity returns the rotation vector of the body.
func (b Body) AngularVelocity() []float64 {
	return []float64{0, 0, b.RotationRate}
}

// SurfaceVelocity returns the velocity of the co-rotating frame at R.
func (b Body) SurfaceVelocity(R []float64) []float64 {
	return cross(b.AngularVelocity(), R)
}

/* Definitions */

// Earth is home.
var Earth = Body{
	Name:            "Earth",
	Radius:          6378.1363,
	μ:               3.98600433e5,
	RotationRate:    7.2921158553e-5,
	AtmosphereDepth: 100,
	SurfaceDensity:  1.225,
	ScaleHeight:     8.5,
	SOI:             924645.0,
}

// Moon has no atmosphere.
var Moon = Body{
	Name:         "Moon",
	Radius:       1737.4,
	μ:            4902.8000,
	RotationRate: 2.6616995e-6,
	SOI:          66100,
}

// Mars is the red planet.
var Mars = Body{
	Name:            "Mars",
	Radius:          3396.19,
	μ:               4.28283100e4,
	RotationRate:    7.0882181e-5,
	AtmosphereDepth: 125,
	SurfaceDensity:  0.020,
	ScaleHeight:     11.1,
	SOI:             576000,
}

// BodyFromString returns the body from its name.
func BodyFromString(name string) (Body, error) {
	switch strings.ToLower(name) {
	case "earth":
		return Earth, nil
	case "moon":
		return Moon, nil
	case "mars":
		return Mars, nil
	default:
		return Body{}, fmt.Errorf("undefined body '%s'", name)
	}
}
