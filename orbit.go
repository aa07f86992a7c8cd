package pilot

import (
	"errors"
	"fmt"
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

const (
	eccentricityε = 5e-5                         // 0.00005
	angleε        = (5e-3 / 360) * (2 * math.Pi) // 0.005 degrees
	distanceε     = 1e-3                         // 1 m
	circularε     = 1e-10                        // below this the eccentricity vector has no direction
	keplerMaxIter = 100
)

// Orbit defines a two-body conic by its state at an epoch (UT in seconds).
// The classical elements are derived once at creation and the orbit is never mutated.
type Orbit struct {
	a, e, i, Ω, ω, ν float64
	Origin           Body // Orbit origin
	Epoch            float64
	r0, v0           []float64
	m0               float64 // mean anomaly at epoch
}

// Energyξ returns the specific mechanical energy ξ.
func (o Orbit) Energyξ() float64 {
	v := norm(o.v0)
	return v*v/2 - o.Origin.μ/norm(o.r0)
}

// H returns the orbital angular momentum vector.
func (o Orbit) H() []float64 {
	return cross(o.r0, o.v0)
}

// Normal returns the unit vector of the orbital angular momentum.
func (o Orbit) Normal() []float64 {
	return unit(o.H())
}

// SemiParameter returns the semi parameter p.
func (o Orbit) SemiParameter() float64 {
	h := norm(o.H())
	return h * h / o.Origin.μ
}

// SemiMajorAxis returns a, which is negative for hyperbolic orbits.
func (o Orbit) SemiMajorAxis() float64 {
	return o.a
}

// Eccentricity returns e.
func (o Orbit) Eccentricity() float64 {
	return o.e
}

// Inclination returns the inclination in degrees.
func (o Orbit) Inclination() float64 {
	return o.i / deg2rad
}

// Apoapsis returns the apoapsis radius, or +Inf for open orbits.
func (o Orbit) Apoapsis() float64 {
	if o.e >= 1 {
		return math.Inf(1)
	}
	return o.SemiParameter() / (1 - o.e)
}

// Periapsis returns the periapsis radius.
func (o Orbit) Periapsis() float64 {
	return o.SemiParameter() / (1 + o.e)
}

// Closed returns whether this orbit is an ellipse.
func (o Orbit) Closed() bool {
	return o.e < 1
}

// Period returns the period of this orbit in seconds, or +Inf for open orbits.
func (o Orbit) Period() float64 {
	if !o.Closed() {
		return math.Inf(1)
	}
	return 2 * math.Pi * math.Sqrt(math.Pow(o.a, 3)/o.Origin.μ)
}

// MeanMotion returns n in rad/s.
func (o Orbit) MeanMotion() float64 {
	return math.Sqrt(o.Origin.μ / math.Pow(math.Abs(o.a), 3))
}

// R returns a copy of the radius vector at epoch.
func (o Orbit) R() []float64 {
	return copy3(o.r0)
}

// V returns a copy of the velocity vector at epoch.
func (o Orbit) V() []float64 {
	return copy3(o.v0)
}

// RV returns copies of the state vectors at epoch.
func (o Orbit) RV() ([]float64, []float64) {
	return o.R(), o.V()
}

// RNorm returns the norm of the radius vector at epoch.
func (o Orbit) RNorm() float64 {
	return norm(o.r0)
}

// VNorm returns the norm of the velocity vector at epoch.
func (o Orbit) VNorm() float64 {
	return norm(o.v0)
}

// Elements returns the classical orbital elements, angles in radians.
func (o Orbit) Elements() (a, e, i, Ω, ω, ν float64) {
	return o.a, o.e, o.i, o.Ω, o.ω, o.ν
}

// valid returns whether this orbit can be propagated.
func (o *Orbit) valid() bool {
	if o == nil || hasNaN(o.r0) || hasNaN(o.v0) || norm(o.r0) < distanceε {
		return false
	}
	return !math.IsNaN(o.e) && !math.IsNaN(o.m0) && !math.IsInf(o.a, 0)
}

// StateAt returns the position and velocity at the given UT using the universal variable
// formulation (Vallado's KEPLER algorithm), which is valid for all conics.
func (o Orbit) StateAt(ut float64) (R, V []float64) {
	Δt := ut - o.Epoch
	if floats.EqualWithinAbs(Δt, 0, 1e-9) {
		return o.RV()
	}
	μ := o.Origin.μ
	sqrtμ := math.Sqrt(μ)
	r0 := norm(o.r0)
	v0 := norm(o.v0)
	rdv := dot(o.r0, o.v0)
	α := -v0*v0/μ + 2/r0
	var χ float64
	switch {
	case α > 1e-12:
		// Ellipse: only propagate within one period.
		T := 2 * math.Pi / math.Sqrt(μ*α*α*α)
		Δt = math.Mod(Δt, T)
		χ = sqrtμ * Δt * α
	case α < -1e-12:
		a := 1 / α
		num := -2 * μ * α * Δt
		den := rdv + sign(Δt)*math.Sqrt(-μ*a)*(1-r0*α)
		χ = sign(Δt) * math.Sqrt(-a) * math.Log(num/den)
		if math.IsNaN(χ) || math.IsInf(χ, 0) {
			χ = sqrtμ * Δt / r0
		}
	default:
		p := o.SemiParameter()
		s := 0.5 * math.Atan(1/(3*math.Sqrt(μ/(p*p*p))*Δt))
		w := math.Atan(math.Cbrt(math.Tan(s)))
		χ = math.Sqrt(p) * 2 / math.Tan(2*w)
	}
	var r, ψ, c2, c3 float64
	for iter := 0; iter < keplerMaxIter; iter++ {
		ψ = χ * χ * α
		c2, c3 = stumpff(ψ)
		r = χ*χ*c2 + rdv/sqrtμ*χ*(1-ψ*c3) + r0*(1-ψ*c2)
		χn := χ + (sqrtμ*Δt-χ*χ*χ*c3-rdv/sqrtμ*χ*χ*c2-r0*χ*(1-ψ*c3))/r
		if math.Abs(χn-χ) < 1e-9 {
			χ = χn
			break
		}
		χ = χn
	}
	ψ = χ * χ * α
	c2, c3 = stumpff(ψ)
	r = χ*χ*c2 + rdv/sqrtμ*χ*(1-ψ*c3) + r0*(1-ψ*c2)
	f := 1 - χ*χ/r0*c2
	g := Δt - χ*χ*χ/sqrtμ*c3
	gDot := 1 - χ*χ/r*c2
	fDot := sqrtμ / (r * r0) * χ * (ψ*c3 - 1)
	R = add(scale(f, o.r0), scale(g, o.v0))
	V = add(scale(fDot, o.r0), scale(gDot, o.v0))
	return
}

// stumpff returns the c2 and c3 Stumpff functions of ψ.
func stumpff(ψ float64) (c2, c3 float64) {
	if ψ > 1e-6 {
		sψ := math.Sqrt(ψ)
		ssψ, csψ := math.Sincos(sψ)
		c2 = (1 - csψ) / ψ
		c3 = (sψ - ssψ) / (sψ * ψ)
	} else if ψ < -1e-6 {
		sψ := math.Sqrt(-ψ)
		c2 = (1 - math.Cosh(sψ)) / ψ
		c3 = (math.Sinh(sψ) - sψ) / (sψ * -ψ)
	} else {
		c2 = 1 / 2.
		c3 = 1 / 6.
	}
	return
}

// PositionAt returns the position vector at the given UT.
func (o Orbit) PositionAt(ut float64) []float64 {
	R, _ := o.StateAt(ut)
	return R
}

// VelocityAt returns the velocity vector at the given UT.
func (o Orbit) VelocityAt(ut float64) []float64 {
	_, V := o.StateAt(ut)
	return V
}

// RadiusAt returns the distance to the body center at the given UT.
func (o Orbit) RadiusAt(ut float64) float64 {
	return norm(o.PositionAt(ut))
}

// LocalFrame returns the radial, normal and prograde unit vectors at the given UT.
func (o Orbit) LocalFrame(ut float64) (radial, normal, prograde []float64) {
	R, V := o.StateAt(ut)
	prograde = unit(V)
	normal = unit(cross(R, V))
	radial = unit(cross(prograde, normal))
	return
}

// Horizontal returns the unit horizontal direction of motion at the given UT.
func (o Orbit) Horizontal(ut float64) []float64 {
	R, V := o.StateAt(ut)
	return unit(exclude(R, V))
}

// meanAnomaly returns the mean anomaly for the given true anomaly.
func (o Orbit) meanAnomaly(ν float64) float64 {
	if o.e < 1 {
		sν2, cν2 := math.Sincos(ν / 2)
		E := 2 * math.Atan2(math.Sqrt(1-o.e)*sν2, math.Sqrt(1+o.e)*cν2)
		M := E - o.e*math.Sin(E)
		M = math.Mod(M, 2*math.Pi)
		if M < 0 {
			M += 2 * math.Pi
		}
		return M
	}
	if ν > math.Pi {
		ν -= 2 * math.Pi
	}
	H := 2 * math.Atanh(math.Sqrt((o.e-1)/(o.e+1))*math.Tan(ν/2))
	return o.e*math.Sinh(H) - H
}

// meanAnomalyAt returns the mean anomaly at the given UT, wrapped to [0, 2π) for closed orbits.
func (o Orbit) meanAnomalyAt(ut float64) float64 {
	M := o.m0 + o.MeanMotion()*(ut-o.Epoch)
	if o.Closed() {
		M = math.Mod(M, 2*math.Pi)
		if M < 0 {
			M += 2 * math.Pi
		}
	}
	return M
}

// TimeToPeriapsis returns the time from ut to the next periapsis passage.
// For open orbits the result is negative once periapsis is behind.
func (o Orbit) TimeToPeriapsis(ut float64) float64 {
	M := o.meanAnomalyAt(ut)
	if !o.Closed() {
		return -M / o.MeanMotion()
	}
	if M < 1e-12 {
		return 0
	}
	return (2*math.Pi - M) / o.MeanMotion()
}

// TimeToApoapsis returns the time from ut to the next apoapsis passage, or NaN for open orbits.
func (o Orbit) TimeToApoapsis(ut float64) float64 {
	if !o.Closed() {
		return math.NaN()
	}
	Δ := math.Mod(math.Pi-o.meanAnomalyAt(ut), 2*math.Pi)
	if Δ < 0 {
		Δ += 2 * math.Pi
	}
	return Δ / o.MeanMotion()
}

// ApAhead returns whether the apoapsis comes before the periapsis from ut.
func (o Orbit) ApAhead(ut float64) bool {
	return o.Closed() && o.TimeToApoapsis(ut) < o.TimeToPeriapsis(ut)
}

// RadiusCrossingUT returns the UT after ut at which the orbit crosses radius r,
// on the descending (inbound) or ascending branch. It returns NaN when r is never reached.
func (o Orbit) RadiusCrossingUT(r, ut float64, descending bool) float64 {
	if o.e < circularε || r <= 0 {
		return math.NaN()
	}
	cosν := (o.SemiParameter()/r - 1) / o.e
	if math.Abs(cosν) > 1 {
		return math.NaN()
	}
	ν := math.Acos(cosν)
	if descending {
		if o.Closed() {
			ν = 2*math.Pi - ν
		} else {
			ν = -ν
		}
	}
	Δ := o.meanAnomaly(ν) - o.meanAnomalyAt(ut)
	if o.Closed() {
		Δ = math.Mod(Δ, 2*math.Pi)
		if Δ < 0 {
			Δ += 2 * math.Pi
		}
	} else if Δ < 0 {
		return math.NaN()
	}
	return ut + Δ/o.MeanMotion()
}

// After returns the orbit resulting from an impulsive Δv applied at the given UT.
// It returns nil when the result is numerically undefined.
func (o Orbit) After(Δv []float64, ut float64) *Orbit {
	R, V := o.StateAt(ut)
	if hasNaN(R) || hasNaN(V) || hasNaN(Δv) {
		return nil
	}
	nOrbit := NewOrbitFromRV(R, add(V, Δv), o.Origin, ut)
	if !nOrbit.valid() {
		return nil
	}
	return nOrbit
}

// String implements the stringer interface (hence the value receiver)
func (o Orbit) String() string {
	return fmt.Sprintf("a=%.3f e=%.5f i=%.3f Ω=%.3f ω=%.3f ν=%.3f rP=%.3f rA=%.3f @%.1f", o.a, o.e, Rad2deg(o.i), Rad2deg(o.Ω), Rad2deg(o.ω), Rad2deg(o.ν), o.Periapsis(), o.Apoapsis(), o.Epoch)
}

// Equals returns whether two orbits describe the same conic, regardless of the position on it.
func (o Orbit) Equals(o1 Orbit) (bool, error) {
	if !o.Origin.Equals(o1.Origin) {
		return false, errors.New("different origin")
	}
	if !floats.EqualWithinRel(o.a, o1.a, 1e-9) {
		return false, errors.New("semi major axis invalid")
	}
	if !floats.EqualWithinAbs(o.e, o1.e, eccentricityε) {
		return false, errors.New("eccentricity invalid")
	}
	if !floats.EqualWithinAbs(o.i, o1.i, angleε) {
		return false, errors.New("inclination invalid")
	}
	if o.i > angleε && !floats.EqualWithinAbs(o.Ω, o1.Ω, angleε) {
		return false, errors.New("RAAN invalid")
	}
	if o.e > eccentricityε && !floats.EqualWithinAbs(o.ω, o1.ω, angleε) {
		return false, errors.New("argument of periapsis invalid")
	}
	return true, nil
}

// PQW2ECI converts a vector from the perifocal frame to the inertial frame.
func PQW2ECI(i, ω, Ω float64, vI []float64) []float64 {
	var mulM mat64.Dense
	mulM.Mul(R3(-Ω), R1(-i))
	mulM.Mul(&mulM, R3(-ω))
	return MxV33(&mulM, vI)
}

// NewOrbitFromOE creates an orbit from the orbital elements at the given epoch.
// WARNING: Angles must be in degrees not radian.
func NewOrbitFromOE(a, e, i, Ω, ω, ν float64, b Body, epoch float64) *Orbit {
	p := a * (1 - e*e)
	iR, ΩR, ωR, νR := Deg2rad(i), Deg2rad(Ω), Deg2rad(ω), Deg2rad(ν)
	sinν, cosν := math.Sincos(νR)
	R := []float64{p * cosν / (1 + e*cosν), p * sinν / (1 + e*cosν), 0}
	V := []float64{-math.Sqrt(b.μ/p) * sinν, math.Sqrt(b.μ/p) * (e + cosν), 0}
	return NewOrbitFromRV(PQW2ECI(iR, ωR, ΩR, R), PQW2ECI(iR, ωR, ΩR, V), b, epoch)
}

// NewCircularOrbit returns an equatorial prograde circular orbit of radius r.
func NewCircularOrbit(r float64, b Body, epoch float64) *Orbit {
	return NewOrbitFromOE(r, 0, 0, 0, 0, 0, b, epoch)
}

// NewOrbitFromRV returns the orbit defined by the R and V vectors at the given epoch.
func NewOrbitFromRV(R, V []float64, b Body, epoch float64) *Orbit {
	// From Vallado's RV2COE, page 113
	hVec := cross(R, V)
	n := cross([]float64{0, 0, 1}, hVec)
	v := norm(V)
	r := norm(R)
	ξ := (v*v)/2 - b.μ/r
	a := -b.μ / (2 * ξ)
	eVec := make([]float64, 3)
	for i := 0; i < 3; i++ {
		eVec[i] = ((v*v-b.μ/r)*R[i] - dot(R, V)*V[i]) / b.μ
	}
	e := norm(eVec)
	h := norm(hVec)
	i := math.Acos(clamp(hVec[2]/h, -1, 1))
	equatorial := norm(n) < 1e-9*h
	Ω := 0.0
	if !equatorial {
		Ω = math.Acos(clamp(n[0]/norm(n), -1, 1))
		if n[1] < 0 {
			Ω = 2*math.Pi - Ω
		}
	}
	// Reference direction from which ω and ν are measured.
	ref := []float64{1, 0, 0}
	if !equatorial {
		ref = unit(n)
	}
	var ω, ν float64
	if e > circularε {
		ω = math.Acos(clamp(dot(ref, eVec)/e, -1, 1))
		if dot(cross(ref, eVec), hVec) < 0 {
			ω = 2*math.Pi - ω
		}
		ν = math.Acos(clamp(dot(eVec, R)/(e*r), -1, 1))
		if dot(R, V) < 0 {
			ν = 2*math.Pi - ν
		}
	} else {
		// Circular: ν becomes the argument of latitude (or true longitude).
		ν = math.Acos(clamp(dot(ref, R)/r, -1, 1))
		if dot(cross(ref, R), hVec) < 0 {
			ν = 2*math.Pi - ν
		}
	}
	orbit := Orbit{a: a, e: e, i: i, Ω: Ω, ω: ω, ν: ν, Origin: b, Epoch: epoch, r0: copy3(R), v0: copy3(V)}
	orbit.m0 = orbit.meanAnomaly(ν)
	return &orbit
}

// Radii2ae returns the semi major axis and the eccentricty from the radii.
func Radii2ae(rA, rP float64) (a, e float64) {
	if rA < rP {
		rA, rP = rP, rA
	}
	a = (rP + rA) / 2
	e = (rA - rP) / (rA + rP)
	return
}
