package pilot

import (
	"fmt"
	"math"
	"testing"

	"github.com/gonum/floats"
)

func assertPanic(t *testing.T, f func()) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("code did not panic")
		}
	}()
	f()
}

func vectorsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := len(a) - 1; i >= 0; i-- {
		if !floats.EqualWithinAbsOrRel(a[i], b[i], 1e-9, 1e-6) {
			return false
		}
	}
	return true
}

// anglesEqual returns whether two angles in radians are equal.
func anglesEqual(a, b float64) (bool, error) {
	diff := math.Mod(math.Abs(a-b), 2*math.Pi)
	if diff < angleε || 2*math.Pi-diff < angleε {
		return true, nil
	}
	return false, fmt.Errorf("difference of %3.10f degrees", math.Abs(Rad2deg(diff)))
}

func TestCross(t *testing.T) {
	i := []float64{1, 0, 0}
	j := []float64{0, 1, 0}
	k := []float64{0, 0, 1}
	if !vectorsEqual(cross(i, j), k) {
		t.Fatal("i x j != k")
	}
	if !vectorsEqual(cross(j, k), i) {
		t.Fatal("j x k != i")
	}
	if !vectorsEqual(cross([]float64{2, 3, 4}, []float64{5, 6, 7}), []float64{-3, 6, -3}) {
		t.Fatal("cross fail")
	}
}

func TestAngles(t *testing.T) {
	for _, deg := range []float64{0, 30, 90, 180, 270, 359.5} {
		if ok, err := anglesEqual(Deg2rad(deg), deg*math.Pi/180); !ok {
			t.Fatalf("Deg2rad(%f): %s", deg, err)
		}
		if !floats.EqualWithinAbs(Rad2deg(Deg2rad(deg)), deg, 1e-9) {
			t.Fatalf("round trip of %f gave %f", deg, Rad2deg(Deg2rad(deg)))
		}
	}
	if !floats.EqualWithinAbs(Rad2deg(Deg2rad(-359)), 1, 1e-9) {
		t.Fatal("incorrect conversion for -359")
	}
	for _, c := range []struct{ in, exp float64 }{{190, -170}, {-190, 170}, {180, -180}, {45, 45}} {
		if !floats.EqualWithinAbs(wrap180(c.in), c.exp, 1e-12) {
			t.Fatalf("wrap180(%f)=%f != %f", c.in, wrap180(c.in), c.exp)
		}
	}
}

func TestMisc(t *testing.T) {
	if sign(10) != 1 || sign(-10) != -1 || sign(0) != 1 {
		t.Fatal("sign is invalid")
	}
	nilVec := []float64{0, 0, 0}
	if norm(nilVec) != 0 {
		t.Fatal("norm of a nil vector was not nil")
	}
	if !vectorsEqual(unit(nilVec), nilVec) {
		t.Fatal("unit of a nil vector is not nil")
	}
	if !math.IsNaN(angleBetween(nilVec, []float64{1, 0, 0})) {
		t.Fatal("angle with a nil vector should be NaN")
	}
	if !floats.EqualWithinAbs(angleBetween([]float64{1, 0, 0}, []float64{0, 3, 0}), math.Pi/2, 1e-12) {
		t.Fatal("angle between x and y is not π/2")
	}
	if !vectorsEqual(exclude([]float64{0, 0, 2}, []float64{1, 2, 3}), []float64{1, 2, 0}) {
		t.Fatal("exclude did not remove the z component")
	}
	if !hasNaN([]float64{0, math.NaN(), 0}) || !hasNaN([]float64{math.Inf(1), 0, 0}) || hasNaN(nilVec) {
		t.Fatal("hasNaN is invalid")
	}
}

func TestRotateAbout(t *testing.T) {
	got := rotateAbout([]float64{1, 0, 0}, []float64{0, 0, 1}, math.Pi/2)
	if !vectorsEqual(got, []float64{0, 1, 0}) {
		t.Fatalf("x rotated by 90° about z: %+v", got)
	}
	if !vectorsEqual(rotateAbout([]float64{1, 2, 3}, zero3(), 1), []float64{1, 2, 3}) {
		t.Fatal("rotation about a null axis must not change the vector")
	}
}

func TestProjectionAngle(t *testing.T) {
	z := []float64{0, 0, 1}
	if a := projectionAngle([]float64{1, 0, 5}, []float64{0, 1, -2}, z); !floats.EqualWithinAbs(a, math.Pi/2, 1e-12) {
		t.Fatalf("expected +π/2, got %f", a)
	}
	if a := projectionAngle([]float64{0, 1, 0}, []float64{1, 0, 0}, z); !floats.EqualWithinAbs(a, -math.Pi/2, 1e-12) {
		t.Fatalf("expected -π/2, got %f", a)
	}
	if a := projectionAngle(z, []float64{1, 0, 0}, z); a != 0 {
		t.Fatalf("degenerate projection should be zero, got %f", a)
	}
}

func TestClampDirection(t *testing.T) {
	ref := []float64{1, 0, 0}
	dir := []float64{0, 2, 0}
	got := clampDirection(dir, ref, math.Pi/4)
	if !floats.EqualWithinAbs(angleBetween(got, ref), math.Pi/4, 1e-9) {
		t.Fatalf("clamped angle is %f", angleBetween(got, ref))
	}
	if !floats.EqualWithinAbs(norm(got), 2, 1e-9) {
		t.Fatal("clamping changed the magnitude")
	}
	inside := []float64{1, 0.1, 0}
	if !vectorsEqual(clampDirection(inside, ref, math.Pi/4), inside) {
		t.Fatal("direction within bounds was changed")
	}
}

func TestTimeToDistance(t *testing.T) {
	for _, c := range []struct {
		d, v, a, exp float64
		ok           bool
	}{
		{100, 10, 0, 10, true},
		{100, -10, 0, math.NaN(), false},
		{100, 0, 0, math.NaN(), false},
		{50, 0, 1, 10, true},
		{50, 10, -1, 10, true}, // reached at the apex
		{100, 10, -1, math.NaN(), false},
		{-50, 0, -1, 10, true},
	} {
		got, ok := TimeToDistance(c.d, c.v, c.a)
		if ok != c.ok {
			t.Fatalf("TimeToDistance(%f, %f, %f) reachable=%v", c.d, c.v, c.a, ok)
		}
		if !ok {
			if !math.IsNaN(got) {
				t.Fatalf("unreachable distance should return NaN, got %f", got)
			}
			continue
		}
		if !floats.EqualWithinAbs(got, c.exp, 1e-9) {
			t.Fatalf("TimeToDistance(%f, %f, %f)=%f != %f", c.d, c.v, c.a, got, c.exp)
		}
	}
}

func TestDenseIdentity(t *testing.T) {
	id := DenseIdentity(3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			exp := 0.0
			if i == j {
				exp = 1
			}
			if id.At(i, j) != exp {
				t.Fatalf("(%d, %d)=%f", i, j, id.At(i, j))
			}
		}
	}
}
