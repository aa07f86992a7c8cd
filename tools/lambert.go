package tools

import (
	"errors"
	"fmt"
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

// TransferType defines the type of zero revolution Lambert transfer.
type TransferType uint8

const (
	// TTypeAuto lets the solver pick the direction of motion from the XY plane geometry.
	TTypeAuto TransferType = iota + 1
	// TType1 is the short way (Δν < π).
	TType1
	// TType2 is the long way (Δν > π).
	TType2
)

const (
	lambertε       = 1e-4                   // General epsilon
	lambertTε      = 1e-4                   // Time epsilon
	lambertνε      = (5e-5 / 180) * math.Pi // 0.00005 degrees
	lambertMaxIter = 10000
)

// Longway returns whether or not this is the long way.
func (t TransferType) Longway() bool {
	return t == TType2
}

func (t TransferType) String() string {
	switch t {
	case TTypeAuto:
		return "auto"
	case TType1:
		return "type-1"
	case TType2:
		return "type-2"
	default:
		panic("unknown transfer type")
	}
}

// TransferTypeFor returns the zero revolution transfer type which goes from Ri to Rf in the
// direction of the provided angular momentum.
func TransferTypeFor(Ri, Rf, h []float64) TransferType {
	c := []float64{Ri[1]*Rf[2] - Ri[2]*Rf[1], Ri[2]*Rf[0] - Ri[0]*Rf[2], Ri[0]*Rf[1] - Ri[1]*Rf[0]}
	if c[0]*h[0]+c[1]*h[1]+c[2]*h[2] >= 0 {
		return TType1
	}
	return TType2
}

// Hohmann computes an Hohmann transfer. It returns the departure and arrival velocities, and the time of flight in seconds.
// To get final computations:
// ΔvInit = vDepature - vI
// ΔvFinal = vArrival - vF
func Hohmann(rI, rF, μ float64) (vDeparture, vArrival, tof float64) {
	aTransfer := 0.5 * (rI + rF)
	vDeparture = math.Sqrt((2 * μ / rI) - (μ / aTransfer))
	vArrival = math.Sqrt((2 * μ / rF) - (μ / aTransfer))
	tof = math.Pi * math.Sqrt(math.Pow(aTransfer, 3)/μ)
	return
}

// Lambert solves the Lambert boundary problem:
// Given the initial and final radii and the gravitational parameter of the central body, it returns the
// needed initial and final velocities along with ψ which is the square of the difference in eccentric anomaly.
func Lambert(Ri, Rf *mat64.Vector, Δt0 float64, ttype TransferType, μ float64) (Vi, Vf *mat64.Vector, ψ float64, err error) {
	// Initialize return variables
	Vi = mat64.NewVector(3, nil)
	Vf = mat64.NewVector(3, nil)
	// Sanity checks
	Rir, _ := Ri.Dims()
	Rfr, _ := Rf.Dims()
	if Rir != Rfr || Rir != 3 {
		err = errors.New("initial and final radii must be 3x1 vectors")
		return
	}
	if Δt0 <= 0 {
		err = fmt.Errorf("time of flight must be positive (got %f)", Δt0)
		return
	}
	rI := mat64.Norm(Ri, 2)
	rF := mat64.Norm(Rf, 2)
	cosΔν := mat64.Dot(Ri, Rf) / (rI * rF)
	// Compute the direction of motion
	νI := math.Atan2(Ri.At(1, 0), Ri.At(0, 0))
	νF := math.Atan2(Rf.At(1, 0), Rf.At(0, 0))
	dm := 1.0
	switch ttype {
	case TType2:
		dm = -1.0
	case TTypeAuto:
		Δν := νF - νI
		if Δν > 2*math.Pi {
			Δν -= 2 * math.Pi
		} else if Δν < 0 {
			Δν += 2 * math.Pi
		}
		if Δν > math.Pi {
			dm = -1.0
		}
	}

	A := dm * math.Sqrt(rI*rF*(1+cosΔν))
	if math.Abs(νF-νI) < lambertνε && floats.EqualWithinAbs(A, 0, lambertε) {
		err = errors.New("cannot compute trajectory: Δν ~=0 and A ~=0")
		return
	}

	ψup := 4 * math.Pow(math.Pi, 2)
	ψlow := -4 * math.Pi
	// Initial guesses for c2 and c3
	c2 := 1 / 2.
	c3 := 1 / 6.
	var Δt, y float64
	var iteration uint
	for math.Abs(Δt-Δt0) > lambertTε {
		if iteration > lambertMaxIter {
			err = fmt.Errorf("did not converge after %d iterations", lambertMaxIter)
			return
		}
		iteration++
		y = rI + rF + A*(ψ*c3-1)/math.Sqrt(c2)
		if A > 0 && y < 0 {
			tmpIt := 0
			for y < 0 {
				ψ += 0.1
				c2, c3 = stumpff(ψ)
				y = rI + rF + A*(ψ*c3-1)/math.Sqrt(c2)
				if tmpIt > lambertMaxIter {
					err = fmt.Errorf("did not converge after %d attempts to increase ψ", lambertMaxIter)
					return
				}
				tmpIt++
			}
		}
		χ := math.Sqrt(y / c2)
		Δt = (math.Pow(χ, 3)*c3 + A*math.Sqrt(y)) / math.Sqrt(μ)
		if Δt <= Δt0 {
			ψlow = ψ
		} else {
			ψup = ψ
		}
		ψ = (ψup + ψlow) / 2
		c2, c3 = stumpff(ψ)
		if math.Abs(ψup-ψlow) < 1e-14 && math.Abs(Δt-Δt0) > lambertTε {
			err = errors.New("bisection collapsed: no zero revolution solution for this time of flight")
			return
		}
	}
	f := 1 - y/rI
	gDot := 1 - y/rF
	g := (A * math.Sqrt(y/μ))
	// Compute velocities
	Rf2 := mat64.NewVector(3, nil)
	Vi.AddScaledVec(Rf, -f, Ri)
	Vi.ScaleVec(1/g, Vi)
	Rf2.ScaleVec(gDot, Rf)
	Vf.AddScaledVec(Rf2, -1, Ri)
	Vf.ScaleVec(1/g, Vf)
	return
}

// stumpff returns the c2 and c3 functions of ψ.
func stumpff(ψ float64) (c2, c3 float64) {
	if ψ > lambertε {
		sψ := math.Sqrt(ψ)
		ssψ, csψ := math.Sincos(sψ)
		c2 = (1 - csψ) / ψ
		c3 = (sψ - ssψ) / math.Sqrt(math.Pow(ψ, 3))
	} else if ψ < -lambertε {
		sψ := math.Sqrt(-ψ)
		c2 = (1 - math.Cosh(sψ)) / ψ
		c3 = (math.Sinh(sψ) - sψ) / math.Sqrt(math.Pow(-ψ, 3))
	} else {
		c2 = 1 / 2.
		c3 = 1 / 6.
	}
	return
}
