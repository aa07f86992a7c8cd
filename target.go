package pilot

import "fmt"

// Target yields a position and velocity at a given UT, and its orbit if it has one.
type Target interface {
	PositionAt(ut float64) []float64
	VelocityAt(ut float64) []float64
	// Orbit returns nil for targets which are not orbiting.
	Orbit() *Orbit
	Name() string
}

// PointTarget is a fixed point in the inertial frame.
type PointTarget struct {
	Label string
	R     []float64
}

// NewPointTarget returns a fixed inertial target.
func NewPointTarget(label string, R []float64) PointTarget {
	return PointTarget{label, copy3(R)}
}

// PositionAt implements the Target interface.
func (p PointTarget) PositionAt(ut float64) []float64 {
	return copy3(p.R)
}

// VelocityAt implements the Target interface.
func (p PointTarget) VelocityAt(ut float64) []float64 {
	return zero3()
}

// Orbit implements the Target interface.
func (p PointTarget) Orbit() *Orbit {
	return nil
}

// Name implements the Target interface.
func (p PointTarget) Name() string {
	return p.Label
}

// SurfaceSite is a point on the rotating surface of a body.
type SurfaceSite struct {
	Label               string
	Latitude, Longitude float64 // degrees
	Altitude            float64 // km above the mean radius
	Body                Body
}

// NewSurfaceSite returns a surface target.
func NewSurfaceSite(label string, lat, lon, alt float64, b Body) SurfaceSite {
	return SurfaceSite{label, lat, wrap180(lon), alt, b}
}

// Fixed returns the body-fixed position of the site.
func (s SurfaceSite) Fixed() []float64 {
	return GEO2Fixed(s.Altitude, s.Latitude, s.Longitude, s.Body)
}

// PositionAt implements the Target interface.
func (s SurfaceSite) PositionAt(ut float64) []float64 {
	return Fixed2Inertial(s.Fixed(), s.Body, ut)
}

// VelocityAt implements the Target interface.
func (s SurfaceSite) VelocityAt(ut float64) []float64 {
	return s.Body.SurfaceVelocity(s.PositionAt(ut))
}

// Orbit implements the Target interface.
func (s SurfaceSite) Orbit() *Orbit {
	return nil
}

// Name implements the Target interface.
func (s SurfaceSite) Name() string {
	return s.Label
}

// String implements the Stringer interface.
func (s SurfaceSite) String() string {
	return fmt.Sprintf("%s (%.4f, %.4f) +%.3f km on %s", s.Label, s.Latitude, s.Longitude, s.Altitude, s.Body.Name)
}

// OrbitTarget is another vessel or body on a known orbit.
type OrbitTarget struct {
	Label string
	orbit *Orbit
}

// NewOrbitTarget returns an orbiting target.
func NewOrbitTarget(label string, o *Orbit) OrbitTarget {
	return OrbitTarget{label, o}
}

// PositionAt implements the Target interface.
func (t OrbitTarget) PositionAt(ut float64) []float64 {
	return t.orbit.PositionAt(ut)
}

// VelocityAt implements the Target interface.
func (t OrbitTarget) VelocityAt(ut float64) []float64 {
	return t.orbit.VelocityAt(ut)
}

// Orbit implements the Target interface.
func (t OrbitTarget) Orbit() *Orbit {
	return t.orbit
}

// Name implements the Target interface.
func (t OrbitTarget) Name() string {
	return t.Label
}
