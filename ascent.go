package pilot

import (
	"math"
	"math/rand"

	kitlog "github.com/go-kit/kit/log"
)

// AscentPhase is the phase of the ascent.
type AscentPhase uint8

const (
	// Liftoff climbs vertically.
	Liftoff AscentPhase = iota + 1
	// GravityTurn pitches over until the apoapsis reaches the target altitude.
	GravityTurn
	// Coast waits for the apoapsis.
	Coast
	// Circularize raises the periapsis at apoapsis.
	Circularize
)

func (p AscentPhase) String() string {
	switch p {
	case Liftoff:
		return "liftoff"
	case GravityTurn:
		return "gravity turn"
	case Coast:
		return "coast"
	case Circularize:
		return "circularize"
	default:
		panic("unknown ascent phase")
	}
}

// AscentGuidance flies from the surface to a circular orbit at the target altitude.
type AscentGuidance struct {
	guidance
	Phase     AscentPhase
	pids      *PID3 // pitch, throttle, plane correction
	throttle  *LowPassFilter
	gear      *SingleAction
	optimizer *TargetedOptimizer[*InsertionTrajectory]
	best      *InsertionTrajectory
	rng       *rand.Rand
	timeToApA float64 // auto-tuned target time to apoapsis
	command   float64 // last throttle command
}

// NewAscentGuidance returns an ascent guidance. Its circularization search is seeded by conf.Sim.Seed.
func NewAscentGuidance(v Vessel, ctrl Controls, conf Config, logger kitlog.Logger) *AscentGuidance {
	a := &AscentGuidance{
		guidance: newGuidance(ModeAscent, v, ctrl, conf, logger),
		pids:     NewPID3(conf.Ascent.PitchPID, conf.Ascent.ThrottlePID, conf.Ascent.NormPID),
		throttle: &LowPassFilter{Tau: conf.Ascent.ThrottleTau},
		rng:      rand.New(rand.NewSource(conf.Sim.Seed)),
	}
	a.gear = &SingleAction{Action: func() {
		if st, ok := ctrl.(SafetyTriggers); ok {
			st.SetGear(false)
		}
	}}
	a.optimizer = NewTargetedOptimizer[*InsertionTrajectory](conf.Trajectory, conf.Ascent.Dtol, kitlog.With(a.logger, "component", "optimizer"))
	a.Reset()
	return a
}

// TargetRadius returns the radius of the target orbit.
func (a *AscentGuidance) TargetRadius() float64 {
	return a.vessel.Body().Radius + a.conf.Ascent.TargetAltitude
}

// Reset implements the Guidance interface.
func (a *AscentGuidance) Reset() {
	a.reset()
	a.Phase = Liftoff
	a.pids.Reset()
	a.throttle.Reset()
	a.gear.Reset()
	a.best = nil
	a.timeToApA = a.conf.Ascent.TimeToApA
	a.command = 0
}

// Step implements the Guidance interface.
func (a *AscentGuidance) Step() Stage {
	dt := a.tick()
	if !a.checkControl() {
		return a.stage
	}
	switch a.Phase {
	case Liftoff:
		a.liftoff()
	case GravityTurn:
		a.gravityTurn(dt)
	case Coast:
		a.coast()
	case Circularize:
		a.circularize()
	}
	return a.stage
}

func (a *AscentGuidance) setPhase(p AscentPhase) {
	a.logger.Log("level", "info", "phase", p, "altitude(km)", a.vessel.Altitude(), "UT", a.vessel.UT())
	a.Phase = p
}

// maxGThrottle returns the throttle which keeps the acceleration under MaxG.
func (a *AscentGuidance) maxGThrottle() float64 {
	accel := maxAcceleration(a.vessel)
	if accel <= 0 {
		return 0
	}
	return clamp01(a.conf.Ascent.MaxG * a.vessel.G() / accel)
}

func (a *AscentGuidance) liftoff() {
	if a.stage == StageIdle {
		if st, ok := a.ctrl.(SafetyTriggers); ok {
			st.ArmChutes(false)
		}
		a.ctrl.ActivateEngines()
		a.setStage(StageExecuting, "liftoff")
	}
	a.ctrl.SetThrustDirection(a.vessel.Up())
	a.command = a.maxGThrottle()
	a.ctrl.SetThrottle(a.command)
	g := a.vessel.G()
	if g > 0 && a.vessel.VerticalSpeed()/g >= a.conf.Ascent.MinClimbTime {
		a.gear.Run()
		a.setPhase(GravityTurn)
	}
}

// heading returns the horizontal unit direction of the ascent.
func (a *AscentGuidance) heading(up, V []float64) []float64 {
	h := exclude(up, V)
	if norm(h) < 1e-6 {
		// Standing still: head east.
		h = cross([]float64{0, 0, 1}, up)
		if isZero(h) {
			h = []float64{1, 0, 0}
		}
	}
	return unit(h)
}

// neededElevation returns the angle of ascent, in degrees, the pitch program follows
// at the current altitude.
func (a *AscentGuidance) neededElevation(apA float64) float64 {
	conf := a.conf.Ascent
	frac := clamp01(a.vessel.Altitude() / conf.TargetAltitude)
	start := 90 - conf.GravityTurnAngle
	elevation := start * (1 - math.Sqrt(frac))
	// Stay near the initial pitch while the air is thick.
	if interval := conf.AtmDensityOffset - conf.AtmDensityCutoff; interval > 0 {
		elevation = lerp(elevation, start, clamp01((a.vessel.AtmDensity()-conf.AtmDensityCutoff)/interval))
	}
	// Flatten as the apoapsis approaches the target.
	apErr := clamp01((a.TargetRadius() - apA) / (conf.TargetAltitude * conf.GTurnOffset * 10))
	return elevation * apErr
}

// autoTimeToApA retunes the time to apoapsis target from the eccentricity of the orbit and
// the remaining apoapsis error.
func (a *AscentGuidance) autoTimeToApA(o *Orbit) float64 {
	conf := a.conf.Ascent
	apErr := clamp01((a.TargetRadius() - o.Apoapsis()) / conf.TargetAltitude)
	t := conf.TimeToApA * (1 + (o.Eccentricity()-conf.AscentEccentricity)*apErr)
	if math.IsNaN(t) {
		return conf.TimeToApA
	}
	return clamp(t, conf.MinTimeToApA, conf.MaxTimeToApA)
}

func (a *AscentGuidance) gravityTurn(dt float64) {
	conf := a.conf.Ascent
	o := a.vessel.Orbit()
	ut := a.vessel.UT()
	up := a.vessel.Up()
	V := o.VelocityAt(ut)
	apA := o.Apoapsis()
	if apA >= a.TargetRadius()-conf.Dtol && !math.IsInf(apA, 0) {
		a.ctrl.SetThrottle(0)
		a.command = 0
		a.setPhase(Coast)
		a.setStage(StageCoasting, "apoapsis reached")
		return
	}
	// Pitch.
	needed := a.neededElevation(apA)
	current := 90 - angleBetween(up, V)/deg2rad
	if math.IsNaN(current) {
		current = 90
	}
	a.timeToApA = a.autoTimeToApA(o)
	tta := o.TimeToApoapsis(ut)
	if math.IsNaN(tta) {
		tta = conf.MaxTimeToApA
	}
	incErr := 0.0
	if conf.TargetInclination != 0 {
		incErr = conf.TargetInclination - o.Inclination()
		if math.IsNaN(incErr) {
			incErr = 0
		}
	}
	actions := a.pids.Update([3]float64{needed - current, a.timeToApA - tta, incErr}, dt)
	elevation := clamp(needed+actions[0], 0, 90) * deg2rad
	heading := rotateAbout(a.heading(up, V), up, actions[2]*deg2rad)
	dir := add(scale(math.Cos(elevation), heading), scale(math.Sin(elevation), up))
	if a.vessel.AtmDensity() > conf.AtmDensityCutoff {
		dir = clampDirection(dir, a.vessel.SurfaceVelocity(), conf.MaxAoA*deg2rad)
	}
	a.ctrl.SetThrustDirection(dir)
	// Throttle.
	cmd := clamp(0.5+actions[1], conf.MinThrottle/100, 1)
	cmd = math.Min(cmd, a.maxGThrottle())
	if q := a.vessel.DynamicPressure(); q > conf.MaxDynPressure && q > 0 {
		cmd *= conf.MaxDynPressure / q
	}
	a.command = clamp01(a.throttle.Update(cmd, dt))
	a.ctrl.SetThrottle(a.command)
}

func (a *AscentGuidance) coast() {
	conf := a.conf.Ascent
	o := a.vessel.Orbit()
	ut := a.vessel.UT()
	a.ctrl.SetThrustDirection(o.VelocityAt(ut))
	a.command = 0
	// Atmospheric drag lowers the apoapsis: keep it at the target.
	if o.Apoapsis() < a.TargetRadius()-conf.Dtol && a.vessel.AtmDensity() > 0 {
		a.command = 0.1 * a.maxGThrottle()
	}
	a.ctrl.SetThrottle(a.command)
	tta := o.TimeToApoapsis(ut)
	if math.IsNaN(tta) {
		return
	}
	burn := a.vessel.BurnTime(norm(CircularizationΔv(o, ut+tta)))
	if tta <= burn/2+conf.CircularizeMargin && a.vessel.Altitude() > a.vessel.Body().AtmosphereDepth {
		a.setPhase(Circularize)
		a.startCircularization()
	}
}

func (a *AscentGuidance) startCircularization() {
	o := a.vessel.Orbit()
	ut := a.vessel.UT()
	startUT := ut + math.Max(o.TimeToApoapsis(ut), 0)
	search := NewInsertionSearch(o, startUT, ut, a.TargetRadius(), Periapsis, a.vessel, a.rng)
	dvTol := a.conf.Trajectory.DVTol
	a.optimizer.SetupUntil(search.Next, func() bool { return search.Collapsed(dvTol) })
	a.best = nil
	a.setStage(StageSearching, "circularization")
}

func (a *AscentGuidance) circularize() {
	a.ctrl.SetThrottle(0)
	switch a.stage {
	case StageSearching:
		best, ok := a.optimizer.Poll()
		if ok {
			a.best = best
		}
		if !a.optimizer.Done() {
			return
		}
		if a.best == nil {
			a.setStage(StageAborted, "no circularization found")
			return
		}
		if a.optimizer.Converged() {
			a.setStage(StageExecuting, "circularization found")
		} else {
			a.setStage(StageIdle, "budget exhausted")
		}
	case StageIdle:
		if a.best != nil {
			a.setStage(StageExecuting, "best effort circularization")
		}
	case StageExecuting:
		t := a.best.Trajectory
		if !a.executor.Execute(remainingΔv(a.vessel, t), a.conf.Executor.MinDeltaV, startWhenDue(a.vessel, t)) {
			if a.burnEnded() {
				a.setStage(StageDone, "in orbit")
			}
		}
	}
}

// Telemetry implements the Guidance interface.
func (a *AscentGuidance) Telemetry() Telemetry {
	tm := a.telemetry(a.Phase.String())
	o := a.vessel.Orbit()
	if a.Phase == Circularize && a.best != nil {
		tm.Distance = a.best.DistanceToTarget
		tm.TimeToStart = a.best.StartUT - a.vessel.UT()
		tm.ΔV = a.best.ΔvNorm()
	} else if apA := o.Apoapsis(); !math.IsInf(apA, 0) {
		tm.Distance = math.Abs(apA - a.TargetRadius())
	}
	tm.Iterations = a.optimizer.Iterations()
	return tm
}
