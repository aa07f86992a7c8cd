package pilot

import (
	"math"

	kitlog "github.com/go-kit/kit/log"
)

// LandingPhase is the phase of the landing.
type LandingPhase uint8

const (
	// Deorbit searches and executes the deorbit burn.
	Deorbit LandingPhase = iota + 1
	// Approach coasts toward the brake point, correcting when needed.
	Approach
	// Braking kills most of the surface relative velocity.
	Braking
	// Descent controls the vertical speed down to the touchdown.
	Descent
)

func (p LandingPhase) String() string {
	switch p {
	case Deorbit:
		return "deorbit"
	case Approach:
		return "approach"
	case Braking:
		return "braking"
	case Descent:
		return "descent"
	default:
		panic("unknown landing phase")
	}
}

// maxDescentTilt is the maximum angle between the thrust and the vertical during the descent.
const maxDescentTilt = 30 * deg2rad

// LandingGuidance deorbits the vessel, brakes above the site and descends onto it.
type LandingGuidance struct {
	guidance
	Site        SurfaceSite
	Phase       LandingPhase
	optimizer   *TargetedOptimizer[*LandingTrajectory]
	trajectory  *LandingTrajectory
	descent     *PID
	brakeTarget []float64 // surface relative velocity at the end of the brake
	deployed    *SingleAction
}

// NewLandingGuidance returns a landing guidance toward site.
func NewLandingGuidance(v Vessel, ctrl Controls, site SurfaceSite, conf Config, logger kitlog.Logger) *LandingGuidance {
	l := &LandingGuidance{
		guidance: newGuidance(ModeLanding, v, ctrl, conf, logger),
		Site:     site,
		descent:  NewPIDFromConfig(conf.Landing.DescentPID),
	}
	l.optimizer = NewTargetedOptimizer[*LandingTrajectory](conf.Trajectory, conf.Landing.Dtol, kitlog.With(l.logger, "component", "optimizer"))
	l.deployed = &SingleAction{Action: func() {
		if st, ok := ctrl.(SafetyTriggers); ok {
			st.SetGear(true)
			st.ArmChutes(v.Body().HasAtmosphere())
		}
	}}
	l.Reset()
	return l
}

// Reset implements the Guidance interface.
func (l *LandingGuidance) Reset() {
	l.reset()
	l.Phase = Deorbit
	l.trajectory = nil
	l.brakeTarget = nil
	l.descent.Reset()
	l.deployed.Reset()
}

// Trajectory returns the followed trajectory, nil until the first search produced one.
func (l *LandingGuidance) Trajectory() *LandingTrajectory {
	return l.trajectory
}

// Step implements the Guidance interface.
func (l *LandingGuidance) Step() Stage {
	dt := l.tick()
	if !l.checkControl() {
		return l.stage
	}
	if l.vessel.Landed() && l.Phase != Deorbit {
		l.ctrl.SetThrottle(0)
		l.setStage(StageDone, "landed")
		return l.stage
	}
	switch l.stage {
	case StageIdle:
		if l.trajectory != nil {
			l.setStage(StageExecuting, "best effort deorbit")
			break
		}
		l.startSearch(l.conf.Trajectory.ManeuverOffset, StageSearching)
	case StageSearching, StageCorrecting:
		l.searching()
	case StageExecuting:
		l.executing(dt)
	case StageCoasting:
		l.coasting()
	}
	return l.stage
}

func (l *LandingGuidance) startSearch(offset float64, stage Stage) {
	l.ctrl.SetThrottle(0)
	conf := l.conf
	conf.Trajectory.ManeuverOffset = offset
	search := NewLandingSearch(l.vessel.Orbit(), l.Site, l.vessel.UT(), conf, l.vessel)
	l.optimizer.Setup(search.Next)
	l.trajectory = nil
	l.setStage(stage, "deorbit search")
}

func (l *LandingGuidance) searching() {
	best, ok := l.optimizer.Poll()
	if ok && best.Defined() {
		l.trajectory = best
	}
	if !l.optimizer.Done() {
		return
	}
	if l.trajectory == nil {
		l.setStage(StageAborted, "no landing trajectory found")
		return
	}
	l.logger.Log("level", "info", "status", "landing trajectory", "distance(km)", l.trajectory.DistanceToTarget, "Δv(km/s)", l.trajectory.ΔvNorm(), "iterations", l.optimizer.Iterations())
	if l.optimizer.Converged() || l.stage == StageCorrecting {
		l.setStage(StageExecuting, "landing trajectory found")
	} else {
		l.setStage(StageIdle, "budget exhausted")
	}
}

func (l *LandingGuidance) executing(dt float64) {
	switch l.Phase {
	case Deorbit, Approach:
		t := l.trajectory.Trajectory
		if l.executor.Execute(remainingΔv(l.vessel, t), l.conf.Executor.MinDeltaV, startWhenDue(l.vessel, t)) {
			return
		}
		if l.burnEnded() {
			l.executor.Reset()
			l.trajectory = l.trajectory.Update(l.vessel.Orbit(), l.vessel.UT())
			l.Phase = Approach
			l.setStage(StageCoasting, "deorbit done")
		}
	case Braking:
		if l.brakeTarget == nil {
			l.brakeTarget = scale(1-l.conf.Landing.BrakeFactor, l.vessel.SurfaceVelocity())
		}
		dv := sub(l.brakeTarget, l.vessel.SurfaceVelocity())
		if l.executor.Execute(dv, l.conf.Executor.MinDeltaV, nil) {
			return
		}
		if l.burnEnded() {
			l.executor.Reset()
			l.startDescent()
		}
	case Descent:
		l.descend(dt)
	}
}

func (l *LandingGuidance) coasting() {
	l.ctrl.SetThrottle(0)
	ut := l.vessel.UT()
	l.trajectory = l.trajectory.Update(l.vessel.Orbit(), ut)
	t := l.trajectory
	if !t.Defined() {
		l.startDescent()
		return
	}
	brakeUT := t.BrakeStartUT
	if math.IsNaN(brakeUT) {
		brakeUT = t.AtTargetUT - l.vessel.BurnTime(norm(t.BrakeΔv))*l.conf.Landing.BrakeOffset
	}
	if ut >= brakeUT || l.vessel.Altitude() <= l.Site.Altitude+l.conf.Landing.FlyOverAlt {
		l.Phase = Braking
		l.brakeTarget = nil
		l.setStage(StageExecuting, "braking")
		return
	}
	l.ctrl.SetThrustDirection(scale(-1, l.vessel.SurfaceVelocity()))
	if t.DistanceToTarget > l.conf.Landing.CorrectionThreshold && brakeUT-ut > 2*l.conf.Trajectory.CorrectionOffset {
		l.logger.Log("level", "notice", "status", "landing point drifted", "distance(km)", t.DistanceToTarget)
		l.startSearch(l.conf.Trajectory.CorrectionOffset, StageCorrecting)
	}
}

func (l *LandingGuidance) startDescent() {
	l.Phase = Descent
	l.descent.Reset()
	l.deployed.Run()
	l.setStage(StageExecuting, "descent")
}

// descentSpeed returns the vertical speed (negative, km/s) the descent aims for.
func (l *LandingGuidance) descentSpeed(alt, netAccel float64) float64 {
	if netAccel <= 0 {
		return -l.conf.Landing.TouchdownSpeed
	}
	// Half of the deceleration left for margin.
	return -math.Max(l.conf.Landing.TouchdownSpeed, math.Sqrt(netAccel*math.Max(alt, 0)))
}

func (l *LandingGuidance) descend(dt float64) {
	v := l.vessel
	up := v.Up()
	g := v.G()
	accel := maxAcceleration(v)
	if accel <= 0 {
		l.ctrl.SetThrottle(0)
		l.setStage(StageAborted, "no thrust for the descent")
		return
	}
	alt := math.Max(v.Altitude()-l.Site.Altitude, 0)
	vs := v.VerticalSpeed()
	wanted := l.descentSpeed(alt, accel-g)
	hover := clamp01(g / accel)
	throttle := clamp01(hover + l.descent.Update((wanted-vs)*1e3, dt))
	// Suicide burn check: the ground is still reached at full thrust.
	if vs < 0 && accel > g {
		if _, reached := TimeToDistance(alt, -vs, g-accel); reached {
			throttle = 1
		}
	}
	horizontal := exclude(up, v.SurfaceVelocity())
	dir := sub(scale(g, up), scale(1/math.Max(l.conf.Executor.ThrottleTau, 1), horizontal))
	l.ctrl.ActivateEngines()
	l.ctrl.SetThrustDirection(clampDirection(dir, up, maxDescentTilt))
	l.ctrl.SetThrottle(throttle)
}

// Telemetry implements the Guidance interface.
func (l *LandingGuidance) Telemetry() Telemetry {
	tm := l.telemetry(l.Phase.String())
	if t := l.trajectory; t != nil {
		tm.Distance = t.DistanceToTarget
		tm.TimeToStart = t.StartUT - l.vessel.UT()
		tm.ΔV = t.ΔvNorm()
		tm.SurfaceLat, tm.SurfaceLon = t.SurfaceLat, t.SurfaceLon
	}
	tm.Iterations = l.optimizer.Iterations()
	return tm
}
