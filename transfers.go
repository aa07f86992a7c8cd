package pilot

import (
	"errors"
	"math"

	"github.com/gonum/matrix/mat64"
	"github.com/orbitpilot/pilot/tools"
)

const (
	approachSamples  = 36
	approachRefine   = 60
	apsisSearchSteps = 100
	goldenRatio      = 0.6180339887498949
)

// CircularizationΔv returns the Δv which circularizes the orbit at ut.
func CircularizationΔv(o *Orbit, ut float64) []float64 {
	R, V := o.StateAt(ut)
	vc := math.Sqrt(o.Origin.μ / norm(R))
	return sub(scale(vc, unit(exclude(R, V))), V)
}

// ΔvForApsis returns the horizontal Δv at ut which brings the given apsis to radius r,
// within tol km. The search is a bracketed bisection on the magnitude of the burn.
func ΔvForApsis(o *Orbit, r, ut float64, shape Apsis, tol, dvTol float64) []float64 {
	search := NewInsertionSearch(o, ut, ut, r, shape, nil, nil)
	var cur, best *InsertionTrajectory
	for i := 0; i < apsisSearchSteps; i++ {
		cur = search.Next(cur, best)
		if cur.Defined() && (best == nil || !best.Defined() || cur.DistanceToTarget < best.DistanceToTarget) {
			best = cur
		}
		if best != nil && best.Defined() && best.DistanceToTarget <= tol {
			break
		}
		if search.Collapsed(dvTol) {
			break
		}
	}
	if best == nil {
		return zero3()
	}
	return copy3(best.ManeuverΔv)
}

// HohmannΔv returns the magnitudes of both burns of an Hohmann transfer between two circular radii,
// and its time of flight.
func HohmannΔv(rI, rF float64, b Body) (ΔvI, ΔvF, tof float64) {
	vDep, vArr, tof := tools.Hohmann(rI, rF, b.μ)
	ΔvI = math.Abs(vDep - math.Sqrt(b.μ/rI))
	ΔvF = math.Abs(math.Sqrt(b.μ/rF) - vArr)
	return
}

// TransferΔv returns the Δv needed at startUT for the vessel to be at the target's position at arrivalUT.
func TransferΔv(o *Orbit, target Target, startUT, arrivalUT float64) ([]float64, error) {
	if arrivalUT <= startUT {
		return nil, errors.New("arrival must be after the start of the transfer")
	}
	R, V := o.StateAt(startUT)
	Rt := target.PositionAt(arrivalUT)
	ttype := tools.TransferTypeFor(R, Rt, o.H())
	Vi, _, _, err := tools.Lambert(mat64.NewVector(3, R), mat64.NewVector(3, Rt), arrivalUT-startUT, ttype, o.Origin.μ)
	if err != nil {
		return nil, err
	}
	dv := sub([]float64{Vi.At(0, 0), Vi.At(1, 0), Vi.At(2, 0)}, V)
	if hasNaN(dv) {
		return nil, errors.New("undefined transfer")
	}
	return dv, nil
}

// ClosestApproach returns the UT and distance of the closest approach between the orbit and
// the target within [fromUT, toUT]: a coarse scan followed by a golden section refinement.
func ClosestApproach(o *Orbit, target Target, fromUT, toUT float64) (ut, dist float64) {
	if toUT <= fromUT {
		return fromUT, norm(sub(o.PositionAt(fromUT), target.PositionAt(fromUT)))
	}
	separation := func(t float64) float64 {
		return norm(sub(o.PositionAt(t), target.PositionAt(t)))
	}
	step := (toUT - fromUT) / approachSamples
	ut, dist = fromUT, separation(fromUT)
	for i := 1; i <= approachSamples; i++ {
		t := fromUT + float64(i)*step
		if d := separation(t); d < dist {
			ut, dist = t, d
		}
	}
	lo := math.Max(fromUT, ut-step)
	hi := math.Min(toUT, ut+step)
	x1 := hi - goldenRatio*(hi-lo)
	x2 := lo + goldenRatio*(hi-lo)
	f1, f2 := separation(x1), separation(x2)
	for i := 0; i < approachRefine && hi-lo > 1e-3; i++ {
		if f1 < f2 {
			hi, x2, f2 = x2, x1, f1
			x1 = hi - goldenRatio*(hi-lo)
			f1 = separation(x1)
		} else {
			lo, x1, f1 = x1, x2, f2
			x2 = lo + goldenRatio*(hi-lo)
			f2 = separation(x2)
		}
	}
	if f1 < dist {
		ut, dist = x1, f1
	}
	if f2 < dist {
		ut, dist = x2, f2
	}
	return
}
