package tools

import (
	"math"
	"testing"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

const μEarth = 3.98600433e5

func TestLambert(t *testing.T) {
	// From Vallado 4th edition, page 497
	Ri := mat64.NewVector(3, []float64{15945.34, 0, 0})
	Rf := mat64.NewVector(3, []float64{12214.83899, 10249.46731, 0})
	ViExp := mat64.NewVector(3, []float64{2.058913, 2.915965, 0})
	VfExp := mat64.NewVector(3, []float64{-3.451565, 0.910315, 0})
	for _, ttype := range []TransferType{TTypeAuto, TType1} {
		Vi, Vf, ψ, err := Lambert(Ri, Rf, 76.0*60, ttype, μEarth)
		if err != nil {
			t.Fatalf("err %s", err)
		}
		if !mat64.EqualApprox(Vi, ViExp, 1e-5) {
			t.Logf("ψ=%f", ψ)
			t.Logf("\nGot %+v\nExp %+v\n", mat64.Formatted(Vi.T()), mat64.Formatted(ViExp.T()))
			t.Fatalf("[%s] incorrect Vi computed", ttype)
		}
		if !mat64.EqualApprox(Vf, VfExp, 1e-5) {
			t.Logf("ψ=%f", ψ)
			t.Logf("\nGot %+v\nExp %+v\n", mat64.Formatted(Vf.T()), mat64.Formatted(VfExp.T()))
			t.Fatalf("[%s] incorrect Vf computed", ttype)
		}
	}
	// Long way
	ViExp = mat64.NewVector(3, []float64{-3.811158, -2.003854, 0})
	VfExp = mat64.NewVector(3, []float64{4.207569, 0.914724, 0})
	Vi, Vf, ψ, err := Lambert(Ri, Rf, 76.0*60, TType2, μEarth)
	if err != nil {
		t.Fatalf("err %s", err)
	}
	if !mat64.EqualApprox(Vi, ViExp, 1e-5) {
		t.Logf("ψ=%f", ψ)
		t.Fatal("[type-2] incorrect Vi computed")
	}
	if !mat64.EqualApprox(Vf, VfExp, 1e-5) {
		t.Logf("ψ=%f", ψ)
		t.Fatal("[type-2] incorrect Vf computed")
	}
}

func TestLambertErrors(t *testing.T) {
	Rf := mat64.NewVector(3, []float64{12214.83899, 10249.46731, 0})
	if _, _, _, err := Lambert(mat64.NewVector(2, []float64{15945.34, 0}), Rf, 76.0*60, TType1, μEarth); err == nil {
		t.Fatal("err should not be nil if the R vectors are of different dimensions")
	}
	if _, _, _, err := Lambert(mat64.NewVector(2, []float64{15945.34, 0}), mat64.NewVector(2, []float64{12214.83899, 10249.46731}), 76.0*60, TType1, μEarth); err == nil {
		t.Fatal("err should not be nil if the R vectors are of not of dimension 3x1")
	}
	if _, _, _, err := Lambert(mat64.NewVector(3, []float64{15945.34, 0, 0}), Rf, -10, TType1, μEarth); err == nil {
		t.Fatal("err should not be nil for a negative time of flight")
	}
}

func TestTransferTypeFor(t *testing.T) {
	h := []float64{0, 0, 1}
	if tt := TransferTypeFor([]float64{1, 0, 0}, []float64{0, 1, 0}, h); tt != TType1 {
		t.Fatalf("expected short way, got %s", tt)
	}
	if tt := TransferTypeFor([]float64{1, 0, 0}, []float64{0, -1, 0}, h); tt != TType2 {
		t.Fatalf("expected long way, got %s", tt)
	}
}

func TestHohmann(t *testing.T) {
	rI, rF := 7000.0, 42164.0
	vDep, vArr, tof := Hohmann(rI, rF, μEarth)
	vI := math.Sqrt(μEarth / rI)
	vF := math.Sqrt(μEarth / rF)
	if !floats.EqualWithinAbs(vDep-vI, 2.3368, 1e-3) {
		t.Fatalf("incorrect departure Δv %f", vDep-vI)
	}
	if !floats.EqualWithinAbs(vF-vArr, 1.4339, 1e-3) {
		t.Fatalf("incorrect arrival Δv %f", vF-vArr)
	}
	if tof <= 0 || !floats.EqualWithinRel(tof, math.Pi*math.Sqrt(math.Pow((rI+rF)/2, 3)/μEarth), 1e-12) {
		t.Fatalf("incorrect time of flight %f", tof)
	}
}
