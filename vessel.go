package pilot

// BurnTimer estimates the time needed to execute a Δv of the given magnitude (km/s),
// including engine spool-up and throttle ramps.
type BurnTimer interface {
	BurnTime(dv float64) float64
}

// Vessel reports the state and capabilities of the controlled vessel.
// Distances are in km, speeds in km/s, masses in kg, thrusts in N and pressures in kPa.
type Vessel interface {
	BurnTimer
	UT() float64
	Orbit() *Orbit
	Body() Body
	Mass() float64
	MaxThrust() float64
	Up() []float64
	G() float64
	Altitude() float64
	VerticalSpeed() float64
	SurfaceVelocity() []float64
	DynamicPressure() float64
	AtmDensity() float64
	Landed() bool
	HasControl() bool
}

// Attitude is the attitude actuation collaborator.
type Attitude interface {
	// SetThrustDirection points the thrust (i.e. the acceleration) along w.
	SetThrustDirection(w []float64)
	KillRotation()
	// AttitudeError returns the angle in degrees between the requested and current attitude.
	AttitudeError() float64
	Aligned() bool
	// ThrustDirection returns the current unit thrust direction.
	ThrustDirection() []float64
}

// Throttle is the engine actuation collaborator.
type Throttle interface {
	SetThrottle(f float64)
	ActivateEngines()
}

// Translation is the RCS actuation collaborator.
type Translation interface {
	AddTranslation(dv []float64)
	TranslationAvailable() bool
	// RCSAuthority returns the Δv (km/s) the RCS can deliver per second along dir.
	RCSAuthority(dir []float64) float64
}

// Controls groups every actuation collaborator.
type Controls interface {
	Attitude
	Throttle
	Translation
}

// SafetyTriggers is implemented by vessels with landing gear and parachutes.
type SafetyTriggers interface {
	SetGear(deployed bool)
	ArmChutes(armed bool)
}

// maxAcceleration returns the maximum thrust acceleration in km/s^2.
func maxAcceleration(v Vessel) float64 {
	m := v.Mass()
	if m <= 0 {
		return 0
	}
	return v.MaxThrust() / m / 1e3
}

// twr returns the thrust to weight ratio of the vessel.
func twr(v Vessel) float64 {
	g := v.G()
	if g <= 0 {
		return 0
	}
	return maxAcceleration(v) / g
}
