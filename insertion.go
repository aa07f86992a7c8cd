package pilot

import (
	"fmt"
	"math"
	"math/rand"
)

// Apsis selects which apsis an insertion trajectory shapes.
type Apsis uint8

const (
	// Apoapsis is shaped by the burn.
	Apoapsis Apsis = iota + 1
	// Periapsis is shaped by the burn.
	Periapsis
)

func (a Apsis) String() string {
	if a == Periapsis {
		return "periapsis"
	}
	return "apoapsis"
}

// InsertionTrajectory brings one apsis of the orbit to a target radius.
type InsertionTrajectory struct {
	TargetedTrajectory
	TargetR float64
	Shape   Apsis
	apsisR  float64
}

// NewInsertionTrajectory computes the apsis reached after applying dv at startUT.
func NewInsertionTrajectory(src *Orbit, dv []float64, startUT, nowUT, targetR float64, shape Apsis, bt BurnTimer) *InsertionTrajectory {
	base := NewTrajectory(src, dv, startUT, nowUT, bt)
	t := &InsertionTrajectory{TargetR: targetR, Shape: shape}
	o := base.Orbit
	var arrival, apsisR float64
	if (shape == Periapsis) != overshot(o, startUT, shape) {
		arrival = startUT + o.TimeToPeriapsis(startUT)
		apsisR = o.Periapsis()
	} else {
		arrival = startUT + o.TimeToApoapsis(startUT)
		apsisR = o.Apoapsis()
	}
	t.apsisR = apsisR
	// The target is the point of the apsis raised (or lowered) to the target radius.
	var target Target = NewPointTarget(shape.String(), zero3())
	if !math.IsNaN(arrival) {
		target = NewPointTarget(shape.String(), scale(targetR, unit(o.PositionAt(arrival))))
	}
	t.TargetedTrajectory = newTargetedTrajectory(base, target)
	if math.IsNaN(arrival) || math.IsInf(apsisR, 0) {
		// Open orbit: no apoapsis to speak of.
		return t
	}
	t.arrive(arrival, nil)
	t.DistanceToTarget = math.Abs(apsisR - targetR)
	// Braking here means circularizing at the shaped apsis.
	vc := math.Sqrt(o.Origin.μ / norm(t.AtTargetPos))
	t.BrakeΔv = sub(scale(vc, unit(exclude(t.AtTargetPos, t.AtTargetVel))), t.AtTargetVel)
	if bt != nil {
		t.BrakeDuration = bt.BurnTime(norm(t.BrakeΔv))
	}
	return t
}

// overshot returns whether the shaped apsis of o sits on the burn point at ut. A burn past
// the circular speed moves the shaped apsis there and the opposite apsis then carries the
// overshoot.
func overshot(o *Orbit, ut float64, shape Apsis) bool {
	if !o.Closed() {
		return false
	}
	Δt := o.TimeToApoapsis(ut)
	if shape == Periapsis {
		Δt = o.TimeToPeriapsis(ut)
	}
	period := o.Period()
	return Δt < period/8 || Δt > 7*period/8
}

// Kind implements the Targeted interface.
func (t *InsertionTrajectory) Kind() TrajectoryKind {
	return KindInsertion
}

// ApsisR returns the radius of the apsis opposite the burn, which the burn shapes.
func (t *InsertionTrajectory) ApsisR() float64 {
	return t.apsisR
}

// Update returns the insertion trajectory followed from ut without further burns.
func (t *InsertionTrajectory) Update(o *Orbit, ut float64) *InsertionTrajectory {
	return NewInsertionTrajectory(o, nil, ut, ut, t.TargetR, t.Shape, nil)
}

// String implements the Stringer interface.
func (t *InsertionTrajectory) String() string {
	return fmt.Sprintf("[%s→%.3f] %s", t.Shape, t.TargetR, t.TargetedTrajectory)
}

// InsertionSearch generates insertion candidates by bracketing then bisecting the
// magnitude of a horizontal burn at a fixed start time.
type InsertionSearch struct {
	Source   *Orbit
	StartUT  float64
	NowUT    float64
	TargetR  float64
	Shape    Apsis
	bt       BurnTimer
	dir      []float64
	lo, hi   float64
	bracket  bool
	last     float64
	lowering bool
}

// NewInsertionSearch prepares the search. The initial upper bound of the bracket is
// drawn from rng, so a given seed always yields the same sequence of candidates.
func NewInsertionSearch(src *Orbit, startUT, nowUT, targetR float64, shape Apsis, bt BurnTimer, rng *rand.Rand) *InsertionSearch {
	s := &InsertionSearch{Source: src, StartUT: startUT, NowUT: nowUT, TargetR: targetR, Shape: shape, bt: bt}
	s.dir = src.Horizontal(startUT)
	initial := NewInsertionTrajectory(src, nil, startUT, nowUT, targetR, shape, nil)
	if initial.Defined() && initial.ApsisR() > targetR {
		s.lowering = true
		s.dir = scale(-1, s.dir)
	}
	guess := 0.05
	if rng != nil {
		guess += 0.1 * rng.Float64()
	}
	s.hi = guess
	return s
}

// below returns whether the candidate has not reached the target apsis yet.
func (s *InsertionSearch) below(t *InsertionTrajectory) bool {
	if !t.Defined() {
		// Escape trajectories overshoot any apsis.
		return false
	}
	if s.lowering {
		return t.ApsisR() > s.TargetR
	}
	return t.ApsisR() < s.TargetR
}

func (s *InsertionSearch) candidate(dv float64) *InsertionTrajectory {
	s.last = dv
	return NewInsertionTrajectory(s.Source, scale(dv, s.dir), s.StartUT, s.NowUT, s.TargetR, s.Shape, s.bt)
}

// Next implements the optimizer's candidate generator.
func (s *InsertionSearch) Next(current, best *InsertionTrajectory) *InsertionTrajectory {
	if current != nil {
		if !s.bracket {
			if s.below(current) {
				s.lo = s.last
				s.hi = s.last * 2
				return s.candidate(s.hi)
			}
			s.bracket = true
		} else if s.below(current) {
			s.lo = s.last
		} else {
			s.hi = s.last
		}
		return s.candidate((s.lo + s.hi) / 2)
	}
	return s.candidate(s.hi)
}

// Collapsed returns whether the Δv bracket is narrower than tol, past which bisecting
// cannot bring the apsis any closer.
func (s *InsertionSearch) Collapsed(tol float64) bool {
	return s.bracket && s.hi-s.lo <= tol
}

// Bracket returns the current Δv bracket.
func (s *InsertionSearch) Bracket() (lo, hi float64) {
	return s.lo, s.hi
}
