package pilot

import (
	"fmt"
	"math"
)

// TrajectoryKind tags the concrete trajectory variants.
type TrajectoryKind uint8

const (
	// KindBase is a plain maneuver without target.
	KindBase TrajectoryKind = iota + 1
	// KindLanding targets a surface site.
	KindLanding
	// KindRendezvous targets an orbiting vessel or body.
	KindRendezvous
	// KindInsertion targets an apsis radius.
	KindInsertion
)

func (k TrajectoryKind) String() string {
	switch k {
	case KindBase:
		return "base"
	case KindLanding:
		return "landing"
	case KindRendezvous:
		return "rendezvous"
	case KindInsertion:
		return "insertion"
	default:
		panic("unknown trajectory kind")
	}
}

// Trajectory is the snapshot of a source orbit, a candidate impulsive maneuver and the
// orbit which results from it. It is never mutated: see Update.
type Trajectory struct {
	SourceOrbit      *Orbit
	Orbit            *Orbit // resulting orbit
	ManeuverΔv       []float64
	ManeuverDuration float64
	StartUT          float64
	NowUT            float64
	StartPos         []float64
	StartVel         []float64
}

// NewTrajectory applies dv to src at startUT. When the result is numerically undefined,
// the maneuver is dropped and the resulting orbit is the source orbit.
func NewTrajectory(src *Orbit, dv []float64, startUT, nowUT float64, bt BurnTimer) Trajectory {
	t := Trajectory{SourceOrbit: src, Orbit: src, ManeuverΔv: zero3(), StartUT: startUT, NowUT: nowUT}
	if !isZero(dv) && !hasNaN(dv) {
		if nOrbit := src.After(dv, startUT); nOrbit != nil {
			t.Orbit = nOrbit
			t.ManeuverΔv = copy3(dv)
			if bt != nil {
				t.ManeuverDuration = bt.BurnTime(norm(dv))
			}
		}
	}
	t.StartPos, t.StartVel = t.Orbit.StateAt(startUT)
	return t
}

// Update returns the trajectory the vessel follows from ut on if no further burn is applied.
func (t Trajectory) Update(o *Orbit, ut float64) Trajectory {
	return NewTrajectory(o, nil, ut, ut, nil)
}

// Kind implements the Targeted interface for the embedding types.
func (t Trajectory) Kind() TrajectoryKind {
	return KindBase
}

// TimeToStart returns the time between the creation of the snapshot and the burn.
func (t Trajectory) TimeToStart() float64 {
	return t.StartUT - t.NowUT
}

// ΔvNorm returns the magnitude of the maneuver.
func (t Trajectory) ΔvNorm() float64 {
	return norm(t.ManeuverΔv)
}

// NodeΔv returns the maneuver in the (radial, normal, prograde) frame of the source orbit.
func (t Trajectory) NodeΔv() []float64 {
	return Orbit2NodeΔv(t.SourceOrbit, t.ManeuverΔv, t.StartUT)
}

// String implements the Stringer interface.
func (t Trajectory) String() string {
	return fmt.Sprintf("Δv=%.5f km/s (%.1fs) in %.1fs → %s", t.ΔvNorm(), t.ManeuverDuration, t.TimeToStart(), t.Orbit)
}

// TargetedTrajectory adds a target and a distance metric to a trajectory.
type TargetedTrajectory struct {
	Trajectory
	Target           Target
	AtTargetUT       float64
	AtTargetPos      []float64
	AtTargetVel      []float64
	DistanceToTarget float64 // negative while undefined
	BrakeΔv          []float64
	BrakeDuration    float64
	Unsafe           bool
}

// Targeted is implemented by every targeted trajectory variant.
type Targeted interface {
	Targeted() *TargetedTrajectory
	Kind() TrajectoryKind
}

func newTargetedTrajectory(t Trajectory, target Target) TargetedTrajectory {
	return TargetedTrajectory{
		Trajectory:       t,
		Target:           target,
		AtTargetUT:       math.NaN(),
		DistanceToTarget: -1,
		BrakeΔv:          zero3(),
	}
}

// Targeted implements the Targeted interface.
func (t *TargetedTrajectory) Targeted() *TargetedTrajectory {
	return t
}

// arrive caches the arrival state at ut and the Δv needed to match the target velocity.
func (t *TargetedTrajectory) arrive(ut float64, bt BurnTimer) {
	t.AtTargetUT = ut
	t.AtTargetPos, t.AtTargetVel = t.Orbit.StateAt(ut)
	t.BrakeΔv = sub(t.Target.VelocityAt(ut), t.AtTargetVel)
	if bt != nil {
		t.BrakeDuration = bt.BurnTime(norm(t.BrakeΔv))
	}
}

// Defined returns whether the distance to target could be computed.
func (t TargetedTrajectory) Defined() bool {
	return t.DistanceToTarget >= 0 && !math.IsNaN(t.DistanceToTarget)
}

// TimeToTarget returns the time between the burn and the arrival.
func (t TargetedTrajectory) TimeToTarget() float64 {
	return t.AtTargetUT - t.StartUT
}

// Score is what the targeted optimizer minimizes.
func (t TargetedTrajectory) Score() float64 {
	return t.DistanceToTarget + norm(t.ManeuverΔv) + norm(t.BrakeΔv)
}

// String implements the Stringer interface.
func (t TargetedTrajectory) String() string {
	return fmt.Sprintf("%s dist=%.3f km brake=%.5f km/s arrival in %.1fs", t.Trajectory, t.DistanceToTarget, norm(t.BrakeΔv), t.AtTargetUT-t.NowUT)
}
