package pilot

import (
	"errors"
	"math"
	"math/rand"

	"github.com/ChristopherRabotin/ode"
	kitlog "github.com/go-kit/kit/log"
	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat/distmv"
)

// alignedε is the attitude error, in degrees, under which the sim vessel reports being aligned.
const alignedε = 1.0

// Engine is the propulsion of a simulated vessel.
type Engine struct {
	Thrust float64 // N
	Isp    float64 // s
}

// exhaustVelocity returns the exhaust velocity in km/s.
func (e Engine) exhaustVelocity() float64 {
	return e.Isp * StandardGravity
}

// SimVessel is a point mass vessel around a body. It is propagated with an RK4 integrator
// and implements the Vessel, Controls and SafetyTriggers interfaces.
type SimVessel struct {
	Engine      Engine
	DryMass     float64 // kg
	Ground      float64 // km, altitude of the terrain
	body        Body
	ut          float64
	R, V        []float64
	mass        float64
	throttle    float64
	engines     bool
	dir         []float64 // current thrust direction
	wanted      []float64 // requested thrust direction
	translation []float64
	landed      bool
	fixed       []float64 // body fixed position while landed
	gear        bool
	chutes      bool
	control     bool
	touchdown   float64 // km/s, surface relative speed at the last contact
	conf        SimConfig
	noise       *distmv.Normal
	// integration of a single tick
	thrustAcc []float64
	mdot      float64
	steps     int
	maxSteps  int
	stepSize  float64
	logger    kitlog.Logger
}

// NewSimVessel returns a vessel on the orbit o.
func NewSimVessel(o *Orbit, mass, dryMass float64, engine Engine, conf SimConfig, logger kitlog.Logger) (*SimVessel, error) {
	if mass <= 0 || dryMass <= 0 || dryMass > mass {
		return nil, errors.New("vessel mass must be positive and above its dry mass")
	}
	R, V := o.RV()
	s := &SimVessel{
		Engine:      engine,
		DryMass:     dryMass,
		body:        o.Origin,
		ut:          o.Epoch,
		R:           R,
		V:           V,
		mass:        mass,
		dir:         unit(V),
		wanted:      unit(V),
		translation: zero3(),
		control:     true,
		gear:        false,
		conf:        conf,
		thrustAcc:   zero3(),
		logger:      orNop(logger),
	}
	if isZero(s.dir) {
		s.dir = unit(R)
		s.wanted = unit(R)
	}
	if conf.ThrustNoise > 0 {
		σ2 := conf.ThrustNoise * conf.ThrustNoise
		noise, ok := distmv.NewNormal([]float64{0, 0}, mat64.NewSymDense(2, []float64{σ2, 0, 0, σ2}), rand.New(rand.NewSource(conf.Seed)))
		if !ok {
			return nil, errors.New("invalid thrust noise covariance")
		}
		s.noise = noise
	}
	return s, nil
}

// NewLandedSimVessel returns a vessel standing on the provided site at ut.
func NewLandedSimVessel(site SurfaceSite, ut, mass, dryMass float64, engine Engine, conf SimConfig, logger kitlog.Logger) (*SimVessel, error) {
	R := site.PositionAt(ut)
	o := NewOrbitFromRV(R, site.VelocityAt(ut), site.Body, ut)
	s, err := NewSimVessel(o, mass, dryMass, engine, conf, logger)
	if err != nil {
		return nil, err
	}
	s.landed = true
	s.gear = true
	s.Ground = site.Altitude
	s.fixed = site.Fixed()
	s.dir = unit(R)
	s.wanted = unit(R)
	return s, nil
}

// Tick advances the simulation by dt seconds with the current controls.
func (s *SimVessel) Tick(dt float64) {
	if dt <= 0 {
		return
	}
	s.turn(dt)
	s.applyTranslation(dt)
	s.thrustAcc, s.mdot = s.thrust()
	if s.landed {
		up := unit(s.R)
		if dot(s.thrustAcc, up) <= s.G() {
			s.ut += dt
			s.R = Fixed2Inertial(s.fixed, s.body, s.ut)
			s.V = s.body.SurfaceVelocity(s.R)
			s.mass = math.Max(s.mass-s.mdot*dt, s.DryMass)
			return
		}
		s.landed = false
		s.logger.Log("level", "info", "status", "liftoff", "UT", s.ut)
	}
	step := math.Min(s.conf.Step, dt)
	s.steps = 0
	s.maxSteps = int(math.Ceil(dt/step - 1e-9))
	s.stepSize = dt / float64(s.maxSteps)
	ode.NewRK4(0, s.stepSize, s).Solve()
	s.contact()
}

// turn rotates the thrust direction toward the requested one at the configured rate.
func (s *SimVessel) turn(dt float64) {
	θ := angleBetween(s.dir, s.wanted)
	if math.IsNaN(θ) || θ < 1e-9 {
		return
	}
	maxθ := s.conf.TurnRate * deg2rad * dt
	if θ <= maxθ {
		s.dir = copy3(s.wanted)
		return
	}
	axis := cross(s.dir, s.wanted)
	if isZero(axis) {
		// Opposite directions: any perpendicular axis does.
		axis = cross(s.dir, []float64{0, 0, 1})
		if isZero(axis) {
			axis = []float64{1, 0, 0}
		}
	}
	s.dir = unit(rotateAbout(s.dir, axis, maxθ))
}

func (s *SimVessel) applyTranslation(dt float64) {
	req := norm(s.translation)
	if req == 0 || s.conf.RCSAccel <= 0 {
		return
	}
	dv := math.Min(req, s.conf.RCSAccel*dt)
	s.V = add(s.V, scale(dv/req, s.translation))
	s.translation = zero3()
}

// thrust returns the thrust acceleration (km/s^2) and the mass flow (kg/s) of the engines.
func (s *SimVessel) thrust() ([]float64, float64) {
	if !s.engines || s.throttle <= 0 || s.mass <= s.DryMass || s.Engine.Thrust <= 0 {
		return zero3(), 0
	}
	f := s.throttle * s.Engine.Thrust
	dir := s.dir
	if s.noise != nil {
		n := s.noise.Rand(nil)
		f *= 1 + n[0]
		dir = unit(rotateAbout(dir, s.anyNormal(dir), n[1]))
	}
	mdot := f / (s.Engine.exhaustVelocity() * 1e3)
	return scale(f/s.mass/1e3, dir), mdot
}

func (s *SimVessel) anyNormal(dir []float64) []float64 {
	n := cross(dir, unit(s.R))
	if isZero(n) {
		n = cross(dir, []float64{0, 0, 1})
	}
	if isZero(n) {
		n = []float64{1, 0, 0}
	}
	return n
}

// contact lands the vessel when it goes under the surface.
func (s *SimVessel) contact() {
	ground := s.body.Radius + s.Ground
	if norm(s.R) > ground {
		return
	}
	s.touchdown = norm(s.SurfaceVelocity())
	s.R = scale(ground, unit(s.R))
	s.fixed = Inertial2Fixed(s.R, s.body, s.ut)
	s.V = s.body.SurfaceVelocity(s.R)
	s.landed = true
	s.logger.Log("level", "notice", "status", "touchdown", "speed(m/s)", s.touchdown*1e3, "UT", s.ut)
}

// GetState implements the ode.Integrable interface.
func (s *SimVessel) GetState() []float64 {
	return []float64{s.R[0], s.R[1], s.R[2], s.V[0], s.V[1], s.V[2], s.mass}
}

// SetState implements the ode.Integrable interface.
func (s *SimVessel) SetState(t float64, state []float64) {
	s.R = []float64{state[0], state[1], state[2]}
	s.V = []float64{state[3], state[4], state[5]}
	s.mass = math.Max(state[6], s.DryMass)
}

// Stop implements the ode.Integrable interface.
func (s *SimVessel) Stop(t float64) bool {
	if s.steps >= s.maxSteps {
		return true
	}
	s.steps++
	s.ut += s.stepSize
	return false
}

// Func implements the ode.Integrable interface.
func (s *SimVessel) Func(t float64, f []float64) []float64 {
	R := []float64{f[0], f[1], f[2]}
	r := norm(R)
	fDot := make([]float64, 7)
	bodyAcc := -s.body.μ / (r * r * r)
	for i := 0; i < 3; i++ {
		fDot[i] = f[i+3]
		fDot[i+3] = bodyAcc*f[i] + s.thrustAcc[i]
	}
	if f[6] > s.DryMass {
		fDot[6] = -s.mdot
	}
	return fDot
}

// UT implements the Vessel interface.
func (s *SimVessel) UT() float64 {
	return s.ut
}

// Orbit implements the Vessel interface.
func (s *SimVessel) Orbit() *Orbit {
	return NewOrbitFromRV(s.R, s.V, s.body, s.ut)
}

// Body implements the Vessel interface.
func (s *SimVessel) Body() Body {
	return s.body
}

// Mass implements the Vessel interface.
func (s *SimVessel) Mass() float64 {
	return s.mass
}

// MaxThrust implements the Vessel interface.
func (s *SimVessel) MaxThrust() float64 {
	if s.mass <= s.DryMass {
		return 0
	}
	return s.Engine.Thrust
}

// BurnTime implements the BurnTimer interface with the rocket equation at full thrust.
func (s *SimVessel) BurnTime(dv float64) float64 {
	if dv <= 0 {
		return 0
	}
	ve := s.Engine.exhaustVelocity()
	if s.Engine.Thrust <= 0 || ve <= 0 {
		return math.Inf(1)
	}
	mdot := s.Engine.Thrust / (ve * 1e3)
	return s.mass * (1 - math.Exp(-dv/ve)) / mdot
}

// Up implements the Vessel interface.
func (s *SimVessel) Up() []float64 {
	return unit(s.R)
}

// G implements the Vessel interface.
func (s *SimVessel) G() float64 {
	return s.body.GravityAt(norm(s.R))
}

// Altitude implements the Vessel interface.
func (s *SimVessel) Altitude() float64 {
	return norm(s.R) - s.body.Radius
}

// VerticalSpeed implements the Vessel interface.
func (s *SimVessel) VerticalSpeed() float64 {
	return dot(s.V, unit(s.R))
}

// SurfaceVelocity implements the Vessel interface.
func (s *SimVessel) SurfaceVelocity() []float64 {
	return sub(s.V, s.body.SurfaceVelocity(s.R))
}

// AtmDensity implements the Vessel interface.
func (s *SimVessel) AtmDensity() float64 {
	return s.body.Density(s.Altitude())
}

// DynamicPressure implements the Vessel interface, in kPa.
func (s *SimVessel) DynamicPressure() float64 {
	v := norm(s.SurfaceVelocity()) * 1e3
	return 0.5 * s.AtmDensity() * v * v / 1e3
}

// Landed implements the Vessel interface.
func (s *SimVessel) Landed() bool {
	return s.landed
}

// HasControl implements the Vessel interface.
func (s *SimVessel) HasControl() bool {
	return s.control
}

// SetControl switches the control authority, e.g. to simulate a command module failure.
func (s *SimVessel) SetControl(control bool) {
	s.control = control
}

// TouchdownSpeed returns the surface relative speed (km/s) of the last contact with the ground.
func (s *SimVessel) TouchdownSpeed() float64 {
	return s.touchdown
}

// SetThrustDirection implements the Attitude interface.
func (s *SimVessel) SetThrustDirection(w []float64) {
	if isZero(w) || hasNaN(w) {
		return
	}
	s.wanted = unit(w)
}

// KillRotation implements the Attitude interface.
func (s *SimVessel) KillRotation() {
	s.wanted = copy3(s.dir)
}

// AttitudeError implements the Attitude interface.
func (s *SimVessel) AttitudeError() float64 {
	θ := angleBetween(s.dir, s.wanted)
	if math.IsNaN(θ) {
		return 0
	}
	return θ / deg2rad
}

// Aligned implements the Attitude interface.
func (s *SimVessel) Aligned() bool {
	return s.AttitudeError() < alignedε
}

// ThrustDirection implements the Attitude interface.
func (s *SimVessel) ThrustDirection() []float64 {
	return copy3(s.dir)
}

// SetThrottle implements the Throttle interface.
func (s *SimVessel) SetThrottle(f float64) {
	if math.IsNaN(f) {
		f = 0
	}
	s.throttle = clamp01(f)
}

// Throttle returns the current throttle.
func (s *SimVessel) Throttle() float64 {
	return s.throttle
}

// ActivateEngines implements the Throttle interface.
func (s *SimVessel) ActivateEngines() {
	s.engines = true
}

// AddTranslation implements the Translation interface. The request is applied on the next tick.
func (s *SimVessel) AddTranslation(dv []float64) {
	if hasNaN(dv) {
		return
	}
	s.translation = copy3(dv)
}

// TranslationAvailable implements the Translation interface.
func (s *SimVessel) TranslationAvailable() bool {
	return s.conf.RCSAccel > 0
}

// RCSAuthority implements the Translation interface.
func (s *SimVessel) RCSAuthority(dir []float64) float64 {
	return s.conf.RCSAccel
}

// SetGear implements the SafetyTriggers interface.
func (s *SimVessel) SetGear(deployed bool) {
	s.gear = deployed
}

// Gear returns whether the landing gear is deployed.
func (s *SimVessel) Gear() bool {
	return s.gear
}

// ArmChutes implements the SafetyTriggers interface.
func (s *SimVessel) ArmChutes(armed bool) {
	s.chutes = armed
}

// ChutesArmed returns whether the parachutes are armed.
func (s *SimVessel) ChutesArmed() bool {
	return s.chutes
}
