package pilot

import (
	"math"

	kitlog "github.com/go-kit/kit/log"
)

type rendezvousBurn uint8

const (
	transferBurn rendezvousBurn = iota + 1
	correctionBurn
	matchBurn
)

func (b rendezvousBurn) String() string {
	switch b {
	case transferBurn:
		return "transfer"
	case correctionBurn:
		return "correction"
	case matchBurn:
		return "match orbits"
	default:
		return "none"
	}
}

// RendezvousGuidance transfers the vessel to an orbiting target, corrects the course on the
// way and matches the target velocity on arrival.
type RendezvousGuidance struct {
	guidance
	Target     Target
	optimizer  *Optimizer[*RendezvousTrajectory]
	search     *RendezvousSearch
	trajectory *RendezvousTrajectory
	burn       rendezvousBurn
}

// NewRendezvousGuidance returns a rendezvous guidance toward target.
func NewRendezvousGuidance(v Vessel, ctrl Controls, target Target, conf Config, logger kitlog.Logger) *RendezvousGuidance {
	r := &RendezvousGuidance{
		guidance: newGuidance(ModeRendezvous, v, ctrl, conf, logger),
		Target:   target,
	}
	r.optimizer = NewOptimizer[*RendezvousTrajectory](conf.Trajectory, kitlog.With(r.logger, "component", "optimizer"))
	return r
}

// Reset implements the Guidance interface.
func (r *RendezvousGuidance) Reset() {
	r.reset()
	r.search = nil
	r.trajectory = nil
	r.burn = 0
}

// Trajectory returns the followed trajectory, nil until the first search produced one.
func (r *RendezvousGuidance) Trajectory() *RendezvousTrajectory {
	return r.trajectory
}

// Step implements the Guidance interface.
func (r *RendezvousGuidance) Step() Stage {
	r.tick()
	if !r.checkControl() {
		return r.stage
	}
	switch r.stage {
	case StageIdle:
		if r.trajectory != nil && r.burn == transferBurn {
			r.setStage(StageExecuting, "best effort transfer")
			break
		}
		r.startSearch()
	case StageSearching:
		r.searching()
	case StageExecuting:
		r.executing()
	case StageCoasting:
		r.coasting()
	case StageCorrecting:
		r.correcting()
	}
	return r.stage
}

func (r *RendezvousGuidance) startSearch() {
	r.ctrl.SetThrottle(0)
	r.search = NewRendezvousSearch(r.vessel.Orbit(), r.Target, r.vessel.UT(), r.conf, r.vessel)
	search := r.search
	// A Lambert candidate always reaches the target: the search runs until the pattern converges.
	r.optimizer.Setup(search.Next, BetterTargeted[*RendezvousTrajectory], func(_, _ *RendezvousTrajectory) bool {
		return !search.Converged()
	})
	r.trajectory = nil
	r.setStage(StageSearching, "transfer search")
}

func (r *RendezvousGuidance) searching() {
	best, ok := r.optimizer.Poll()
	if ok && best.Defined() {
		r.trajectory = best
	}
	if !r.optimizer.Done() {
		return
	}
	if r.trajectory == nil {
		r.setStage(StageAborted, "no transfer found")
		return
	}
	if r.trajectory.Unsafe {
		r.logger.Log("level", "warning", "status", "every transfer dips under the minimum periapsis", "periapsis(km)", r.trajectory.Orbit.Periapsis())
		r.setStage(StageAborted, "only killer transfers found")
		return
	}
	r.burn = transferBurn
	if r.optimizer.Converged() {
		r.setStage(StageExecuting, "transfer found")
	} else {
		r.setStage(StageIdle, "budget exhausted")
	}
}

func (r *RendezvousGuidance) executing() {
	ut := r.vessel.UT()
	var dv []float64
	var cond func(float64) bool
	minΔv := r.conf.Executor.MinDeltaV
	switch r.burn {
	case matchBurn:
		dv = sub(r.Target.VelocityAt(ut), r.vessel.Orbit().VelocityAt(ut))
		minΔv = math.Max(r.conf.Rendezvous.MatchSpeed, minΔv)
	default:
		dv = remainingΔv(r.vessel, r.trajectory.Trajectory)
		cond = startWhenDue(r.vessel, r.trajectory.Trajectory)
	}
	if r.executor.Execute(dv, minΔv, cond) {
		return
	}
	if !r.burnEnded() {
		return
	}
	if r.burn == matchBurn {
		if d := r.separation() - r.conf.Rendezvous.VesselRadius; d > r.conf.Rendezvous.Dtol {
			r.logger.Log("level", "notice", "status", "too far after matching orbits", "distance(km)", d)
			r.Reset()
			return
		}
		r.setStage(StageDone, "orbits matched")
		return
	}
	r.executor.Reset()
	r.trajectory = r.trajectory.Update(r.vessel.Orbit(), ut)
	r.setStage(StageCoasting, r.burn.String()+" done")
}

func (r *RendezvousGuidance) separation() float64 {
	ut := r.vessel.UT()
	return norm(sub(r.Target.PositionAt(ut), r.vessel.Orbit().PositionAt(ut)))
}

func (r *RendezvousGuidance) coasting() {
	r.ctrl.SetThrottle(0)
	ut := r.vessel.UT()
	r.trajectory = r.trajectory.Update(r.vessel.Orbit(), ut)
	tt := r.trajectory.AtTargetUT - ut
	if math.IsNaN(tt) {
		r.Reset()
		return
	}
	brake := r.vessel.BurnTime(norm(r.trajectory.BrakeΔv))
	if tt <= brake/2+r.conf.Trajectory.CorrectionOffset {
		r.burn = matchBurn
		r.executor.Reset()
		r.setStage(StageExecuting, "arrival")
		return
	}
	r.ctrl.SetThrustDirection(r.trajectory.BrakeΔv)
	if r.trajectory.DistanceToTarget > r.conf.Rendezvous.CorrectionDistance && tt > r.conf.Rendezvous.MinTransfer {
		r.planCorrection(ut)
	}
}

// planCorrection replaces the trajectory with a Lambert transfer to the same arrival.
func (r *RendezvousGuidance) planCorrection(ut float64) {
	o := r.vessel.Orbit()
	start := ut + r.conf.Trajectory.CorrectionOffset
	dv, err := TransferΔv(o, r.Target, start, r.trajectory.AtTargetUT)
	if err != nil {
		r.logger.Log("level", "warning", "status", "no course correction", "err", err)
		return
	}
	minPeR := o.Origin.MinPeR(r.conf.Trajectory.MinPeA)
	correction := NewRendezvousTrajectory(o, dv, start, ut, r.Target, r.trajectory.AtTargetUT-start, minPeR, r.conf.Rendezvous.VesselRadius, r.vessel)
	if !BetterTargeted(correction, r.trajectory) {
		return
	}
	r.trajectory = correction
	r.burn = correctionBurn
	r.executor.Reset()
	r.setStage(StageCorrecting, "drifted off")
}

func (r *RendezvousGuidance) correcting() {
	t := r.trajectory.Trajectory
	r.executor.AddCourseCorrection(remainingΔv(r.vessel, t))
	if r.executor.Execute(zero3(), r.conf.Executor.MinDeltaV, startWhenDue(r.vessel, t)) {
		return
	}
	if r.burnEnded() {
		r.executor.Reset()
		r.trajectory = r.trajectory.Update(r.vessel.Orbit(), r.vessel.UT())
		r.setStage(StageCoasting, "correction done")
	}
}

// Telemetry implements the Guidance interface.
func (r *RendezvousGuidance) Telemetry() Telemetry {
	tm := r.telemetry(r.burn.String())
	if t := r.trajectory; t != nil {
		tm.Distance = t.DistanceToTarget
		tm.TimeToStart = t.StartUT - r.vessel.UT()
		tm.ΔV = t.ΔvNorm()
	}
	tm.Iterations = r.optimizer.Iterations()
	return tm
}
