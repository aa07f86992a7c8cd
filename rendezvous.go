package pilot

import (
	"fmt"
	"math"
)

// RendezvousTrajectory targets another orbiting vessel or body.
type RendezvousTrajectory struct {
	TargetedTrajectory
	TargetOrbit  *Orbit
	TransferTime float64 // negative to search the closest approach over one revolution
	DeltaTA      float64 // deg, positive when the target is ahead
	DeltaFi      float64 // deg, out of plane angle of the target
	DeltaR       float64 // km, radial offset of the target
	MinPeR       float64
	VesselRadius float64
	KillerOrbit  bool
}

// NewRendezvousTrajectory computes the arrival of the maneuver at the target, either after
// the given transfer time or at the closest approach when transfer is negative.
func NewRendezvousTrajectory(src *Orbit, dv []float64, startUT, nowUT float64, target Target, transfer, minPeR, vesselRadius float64, bt BurnTimer) *RendezvousTrajectory {
	t := &RendezvousTrajectory{
		TargetOrbit:  target.Orbit(),
		TransferTime: transfer,
		MinPeR:       minPeR,
		VesselRadius: vesselRadius,
	}
	t.TargetedTrajectory = newTargetedTrajectory(NewTrajectory(src, dv, startUT, nowUT, bt), target)
	var arrival float64
	if transfer > 0 {
		arrival = startUT + transfer
	} else {
		arrival, _ = ClosestApproach(t.Orbit, target, startUT, startUT+t.searchWindow())
	}
	t.arrive(arrival, bt)
	targetPos := target.PositionAt(arrival)
	t.DistanceToTarget = math.Max(norm(sub(t.AtTargetPos, targetPos))-vesselRadius, 0)
	if hasNaN(t.AtTargetPos) {
		t.DistanceToTarget = -1
	}
	normal := t.Orbit.Normal()
	t.DeltaTA = projectionAngle(t.AtTargetPos, targetPos, normal) / deg2rad
	t.DeltaFi = 90 - angleBetween(normal, targetPos)/deg2rad
	t.DeltaR = dot(sub(targetPos, t.AtTargetPos), unit(t.AtTargetPos))
	t.KillerOrbit = IsKillerOrbit(t.Orbit, startUT, t.TimeToTarget(), minPeR)
	t.Unsafe = t.KillerOrbit
	return t
}

// IsKillerOrbit returns whether the periapsis of o is below minPeR and is reached within
// the transfer time from startUT.
func IsKillerOrbit(o *Orbit, startUT, transfer, minPeR float64) bool {
	return o.Periapsis() < minPeR && o.TimeToPeriapsis(startUT) < transfer
}

func (t *RendezvousTrajectory) searchWindow() float64 {
	if p := t.Orbit.Period(); !math.IsInf(p, 0) {
		return p
	}
	if t.TargetOrbit != nil && t.TargetOrbit.Closed() {
		return t.TargetOrbit.Period()
	}
	return 3600
}

// Kind implements the Targeted interface.
func (t *RendezvousTrajectory) Kind() TrajectoryKind {
	return KindRendezvous
}

// Update returns the trajectory followed from ut without further burns, keeping the arrival time.
func (t *RendezvousTrajectory) Update(o *Orbit, ut float64) *RendezvousTrajectory {
	transfer := -1.0
	if t.TransferTime > 0 && t.AtTargetUT > ut {
		transfer = t.AtTargetUT - ut
	}
	return NewRendezvousTrajectory(o, nil, ut, ut, t.Target, transfer, t.MinPeR, t.VesselRadius, nil)
}

// String implements the Stringer interface.
func (t *RendezvousTrajectory) String() string {
	return fmt.Sprintf("%s ΔTA=%.3f° ΔFi=%.3f° ΔR=%.3f killer=%v", t.TargetedTrajectory, t.DeltaTA, t.DeltaFi, t.DeltaR, t.KillerOrbit)
}

// RendezvousSearch generates Lambert transfers to the target and moves the pair
// (start time, transfer time) with a pattern search.
type RendezvousSearch struct {
	Source       *Orbit
	Target       Target
	NowUT        float64
	MinPeR       float64
	VesselRadius float64
	bt           BurnTimer
	pattern      *PatternSearch
}

// NewRendezvousSearch seeds the search with an Hohmann-like transfer time.
func NewRendezvousSearch(src *Orbit, target Target, nowUT float64, conf Config, bt BurnTimer) *RendezvousSearch {
	period := src.Period()
	if math.IsInf(period, 0) {
		period = 3600
	}
	transfer := period / 2
	if to := target.Orbit(); to != nil {
		_, _, tof := HohmannΔv(src.RNorm(), to.RNorm(), src.Origin)
		if !math.IsNaN(tof) && tof > 0 {
			transfer = tof
		}
	}
	transfer = math.Max(transfer, conf.Rendezvous.MinTransfer)
	start := nowUT + conf.Trajectory.ManeuverOffset
	maxStart := nowUT + math.Max(conf.Rendezvous.MaxTTR, 1)*period
	return &RendezvousSearch{
		Source:       src,
		Target:       target,
		NowUT:        nowUT,
		MinPeR:       src.Origin.MinPeR(conf.Trajectory.MinPeA),
		VesselRadius: conf.Rendezvous.VesselRadius,
		bt:           bt,
		pattern: NewPatternSearch(
			[]float64{start, transfer},
			[]float64{period / 8, transfer / 4},
			[]float64{1, 1},
			[]float64{start, conf.Rendezvous.MinTransfer},
			[]float64{maxStart, 2 * math.Max(period, transfer)},
		),
	}
}

// Next implements the optimizer's candidate generator.
func (s *RendezvousSearch) Next(current, best *RendezvousTrajectory) *RendezvousTrajectory {
	x := s.pattern.Next(current != nil && current == best)
	return s.Candidate(x[0], x[1])
}

// Candidate returns the Lambert transfer starting at startUT and lasting transfer seconds.
// When no transfer exists, the candidate coasts to the given arrival time.
func (s *RendezvousSearch) Candidate(startUT, transfer float64) *RendezvousTrajectory {
	dv, err := TransferΔv(s.Source, s.Target, startUT, startUT+transfer)
	if err != nil {
		dv = nil
	}
	return NewRendezvousTrajectory(s.Source, dv, startUT, s.NowUT, s.Target, transfer, s.MinPeR, s.VesselRadius, s.bt)
}

// Converged returns whether the pattern search cannot refine any further.
func (s *RendezvousSearch) Converged() bool {
	return s.pattern.Converged()
}
