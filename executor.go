package pilot

import (
	"math"

	kitlog "github.com/go-kit/kit/log"
)

// Outcome is the state of the maneuver being executed.
type Outcome uint8

const (
	// InProgress means the burn is being aligned or executed.
	InProgress Outcome = iota + 1
	// Complete means the remaining Δv fell below the requested minimum.
	Complete
	// Stalled means the remaining Δv stopped decreasing.
	Stalled
	// Overshot means the remaining Δv rose again above its minimum.
	Overshot
	// NoThrust means the vessel cannot accelerate.
	NoThrust
)

func (o Outcome) String() string {
	switch o {
	case InProgress:
		return "in progress"
	case Complete:
		return "complete"
	case Stalled:
		return "stalled"
	case Overshot:
		return "overshot"
	case NoThrust:
		return "no thrust"
	default:
		panic("unknown outcome")
	}
}

// ManeuverExecutor turns a Δv to burn into attitude, throttle and translation requests.
// Execute is called once per tick with the up to date remaining Δv.
type ManeuverExecutor struct {
	StopAtMinimum     bool
	ThrustWhenAligned bool
	conf              ExecutorConfig
	vessel            Vessel
	ctrl              Controls
	threshold         *FuzzyThreshold
	stall             *StallDetector
	correction        []float64
	working           bool
	remaining         float64
	minRemaining      float64
	outcome           Outcome
	logger            kitlog.Logger
}

// NewManeuverExecutor returns an executor driving ctrl for vessel v.
func NewManeuverExecutor(v Vessel, ctrl Controls, conf ExecutorConfig, logger kitlog.Logger) *ManeuverExecutor {
	return &ManeuverExecutor{
		StopAtMinimum:     conf.StopAtMinimum,
		ThrustWhenAligned: conf.ThrustWhenAligned,
		conf:              conf,
		vessel:            v,
		ctrl:              ctrl,
		threshold:         NewFuzzyThreshold(conf.FuzzyLower, conf.FuzzyUpper),
		stall:             NewStallDetector(conf.StallWindow, conf.StallEpsilon),
		correction:        zero3(),
		remaining:         math.NaN(),
		outcome:           InProgress,
		logger:            orNop(logger),
	}
}

// AddCourseCorrection accumulates dv, which is folded into the next Execute.
func (e *ManeuverExecutor) AddCourseCorrection(dv []float64) {
	if hasNaN(dv) {
		return
	}
	e.correction = add(e.correction, dv)
}

// Execute drives the burn of dv for this tick. It returns true while the burn goes on and
// false once it is complete or aborted: see Outcome. cond, if not nil, is consulted with the
// remaining Δv before the engines start thrusting.
func (e *ManeuverExecutor) Execute(dv []float64, minΔv float64, cond func(remaining float64) bool) bool {
	dv = add(dv, e.correction)
	e.correction = zero3()
	e.ctrl.SetThrottle(0)
	if hasNaN(dv) {
		e.finish(Stalled)
		return false
	}
	remaining := norm(dv)
	e.remaining = remaining
	e.threshold.Update(remaining)
	if remaining < minΔv {
		e.finish(Complete)
		return false
	}
	e.outcome = InProgress
	e.ctrl.ActivateEngines()
	dir := unit(dv)
	tau := e.conf.ThrottleTau
	if tau <= 0 {
		tau = 1
	}
	var rcs float64
	if e.ctrl.TranslationAvailable() {
		rcs = e.ctrl.RCSAuthority(dir)
	}
	fine := !e.threshold.On() && rcs > 0 && remaining <= rcs*tau
	if fine {
		e.ctrl.KillRotation()
	} else {
		e.ctrl.SetThrustDirection(dir)
	}
	if !e.working {
		if cond != nil && !cond(remaining) {
			return true
		}
		if e.ThrustWhenAligned && !fine && !e.ctrl.Aligned() && e.ctrl.AttitudeError() > e.conf.AlignmentError {
			return true
		}
		e.working = true
		e.minRemaining = remaining
		e.stall.Reset()
		e.logger.Log("level", "info", "status", "burn started", "Δv(km/s)", remaining, "UT", e.vessel.UT())
	}
	if e.stall.Update(remaining) {
		e.logger.Log("level", "warning", "status", "burn stalled", "remaining(km/s)", remaining)
		e.finish(Stalled)
		return false
	}
	if e.StopAtMinimum {
		if remaining < e.minRemaining {
			e.minRemaining = remaining
		} else if remaining-e.minRemaining > minΔv {
			e.logger.Log("level", "notice", "status", "passed minimum", "remaining(km/s)", remaining, "minimum(km/s)", e.minRemaining)
			e.finish(Overshot)
			return false
		}
	}
	if fine {
		e.ctrl.AddTranslation(dv)
		return true
	}
	accel := maxAcceleration(e.vessel)
	if accel <= 0 {
		e.logger.Log("level", "critical", "status", "no thrust", "remaining(km/s)", remaining)
		e.finish(NoThrust)
		return false
	}
	throttle := clamp01(remaining / (accel * tau))
	align := math.Max(math.Cos(e.ctrl.AttitudeError()*deg2rad), 0)
	e.ctrl.SetThrottle(throttle * align * align)
	return true
}

func (e *ManeuverExecutor) finish(o Outcome) {
	if e.working && o == Complete {
		e.logger.Log("level", "info", "status", "burn complete", "remaining(km/s)", e.remaining)
	}
	e.working = false
	e.outcome = o
}

// Outcome returns the state of the last executed maneuver.
func (e *ManeuverExecutor) Outcome() Outcome {
	return e.outcome
}

// Remaining returns the remaining Δv seen by the last Execute, NaN before the first one.
func (e *ManeuverExecutor) Remaining() float64 {
	return e.remaining
}

// Working returns whether the engines were allowed to thrust.
func (e *ManeuverExecutor) Working() bool {
	return e.working
}

// Reset clears every state, including pending corrections.
func (e *ManeuverExecutor) Reset() {
	e.threshold.Reset()
	e.stall.Reset()
	e.correction = zero3()
	e.working = false
	e.remaining = math.NaN()
	e.minRemaining = 0
	e.outcome = InProgress
}
