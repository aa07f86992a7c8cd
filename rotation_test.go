package pilot

import (
	"math"
	"testing"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

func TestR1R3(t *testing.T) {
	x := math.Pi / 3.0
	s, c := math.Sincos(x)
	r1 := R1(x)
	r3 := R3(x)
	if r1.At(0, 0) != 1 || r3.At(2, 2) != 1 {
		t.Fatal("expected R1.At(0, 0) = R3.At(2, 2) = 1")
	}
	if r1.At(0, 1) != 0 || r1.At(0, 2) != 0 || r1.At(1, 0) != 0 || r1.At(2, 0) != 0 {
		t.Fatal("misplaced zeros in R1")
	}
	if r3.At(2, 0) != 0 || r3.At(2, 1) != 0 || r3.At(0, 2) != 0 || r3.At(1, 2) != 0 {
		t.Fatal("misplaced zeros in R3")
	}
	if r1.At(1, 1) != c || r1.At(2, 2) != c || r1.At(1, 2) != s || r1.At(2, 1) != -s {
		t.Fatal("R1 sines or cosines misplaced")
	}
	if r3.At(0, 0) != c || r3.At(1, 1) != c || r3.At(0, 1) != s || r3.At(1, 0) != -s {
		t.Fatal("R3 sines or cosines misplaced")
	}
}

func TestRot313(t *testing.T) {
	var R1R3, R3R1R3m mat64.Dense
	θ1 := math.Pi / 17
	θ2 := math.Pi / 16
	θ3 := math.Pi / 15
	R1R3.Mul(R1(θ2), R3(θ1))
	R3R1R3m.Mul(R3(θ3), &R1R3)
	R3R1R3m.Sub(&R3R1R3m, R3R1R3(θ1, θ2, θ3))
	if !mat64.EqualApprox(&R3R1R3m, mat64.NewDense(3, 3, nil), 1e-12) {
		t.Logf("\n%+v", mat64.Formatted(&R3R1R3m))
		t.Fatal("3-1-3 rotation differs from the product of elementary rotations")
	}
}

func TestPQW2ECI(t *testing.T) {
	// From Vallado, example 2-6.
	i := Deg2rad(87.87)
	ω := Deg2rad(53.38)
	Ω := Deg2rad(227.89)
	R := PQW2ECI(i, ω, Ω, []float64{-466.7639, 11447.0219, 0})
	V := PQW2ECI(i, ω, Ω, []float64{-5.996222, 4.753601, 0})
	Re := []float64{6525.344, 6861.535, 6449.125}
	Ve := []float64{4.902276, 5.533124, -1.975709}
	for k := 0; k < 3; k++ {
		if !floats.EqualWithinAbs(R[k], Re[k], 1) {
			t.Fatalf("R conversion failed: %+v", R)
		}
		if !floats.EqualWithinAbs(V[k], Ve[k], 1e-3) {
			t.Fatalf("V conversion failed: %+v", V)
		}
	}
}

func TestGeodetic(t *testing.T) {
	for _, c := range []struct{ lat, lon, alt float64 }{{0, 0, 0}, {45, 90, 10}, {-30, -120, 2.5}, {89, 179, 0}} {
		R := GEO2Fixed(c.alt, c.lat, c.lon, Earth)
		if !floats.EqualWithinAbs(norm(R), Earth.Radius+c.alt, 1e-9) {
			t.Fatalf("radius of %+v is %f", c, norm(R))
		}
		lat, lon := Fixed2GEO(R)
		if !floats.EqualWithinAbs(lat, c.lat, 1e-9) || !floats.EqualWithinAbs(lon, c.lon, 1e-9) {
			t.Fatalf("round trip of %+v gave lat=%f lon=%f", c, lat, lon)
		}
	}
}

func TestInertialFixed(t *testing.T) {
	R := []float64{7000, 100, -200}
	for _, ut := range []float64{0, 1234, 86400 / 3} {
		back := Fixed2Inertial(Inertial2Fixed(R, Earth, ut), Earth, ut)
		if !vectorsEqual(back, R) {
			t.Fatalf("round trip at %f gave %+v", ut, back)
		}
	}
	// A point fixed on the equator drifts east in the inertial frame.
	fixed := GEO2Fixed(0, 0, 0, Earth)
	quarter := math.Pi / 2 / Earth.RotationRate
	inertial := Fixed2Inertial(fixed, Earth, quarter)
	if !floats.EqualWithinAbs(inertial[1], Earth.Radius, 1e-6) {
		t.Fatalf("after a quarter rotation: %+v", inertial)
	}
	lat, lon := SurfaceCoordinates(inertial, Earth, quarter)
	if !floats.EqualWithinAbs(lat, 0, 1e-9) || !floats.EqualWithinAbs(lon, 0, 1e-6) {
		t.Fatalf("surface coordinates lat=%f lon=%f", lat, lon)
	}
}

func TestCentralAngle(t *testing.T) {
	if a := CentralAngle(0, 0, 0, 90); !floats.EqualWithinAbs(a, math.Pi/2, 1e-12) {
		t.Fatalf("equator quarter: %f", a)
	}
	if a := CentralAngle(-90, 0, 90, 0); !floats.EqualWithinAbs(a, math.Pi, 1e-12) {
		t.Fatalf("pole to pole: %f", a)
	}
	if a := CentralAngle(10, 170, 10, -190); !floats.EqualWithinAbs(a, 0, 1e-9) {
		t.Fatalf("same point across the antimeridian: %f", a)
	}
}

func TestNodeΔv(t *testing.T) {
	o := NewOrbitFromOE(8000, 0.05, 30, 40, 50, 60, Earth, 0)
	node := []float64{0.01, -0.02, 0.3}
	dv := Node2OrbitΔv(o, node, 500)
	if !floats.EqualWithinAbs(norm(dv), norm(node), 1e-12) {
		t.Fatal("frame change altered the magnitude")
	}
	if !vectorsEqual(Orbit2NodeΔv(o, dv, 500), node) {
		t.Fatal("node Δv round trip failed")
	}
	_, _, pro := o.LocalFrame(500)
	if !floats.EqualWithinAbs(dot(Node2OrbitΔv(o, []float64{0, 0, 1}, 500), pro), 1, 1e-12) {
		t.Fatal("third node component is not prograde")
	}
}
