package pilot

import (
	"testing"

	"github.com/gonum/floats"
)

func TestPIDClamp(t *testing.T) {
	pid := NewSymmetricPID(1, 0, 0, -1)
	if pid.Min != -1 || pid.Max != 1 {
		t.Fatalf("symmetric clamp is [%f, %f]", pid.Min, pid.Max)
	}
	for _, c := range []struct{ err, exp float64 }{{0.5, 0.5}, {5, 1}, {-5, -1}, {0, 0}} {
		if a := pid.Update(c.err, 0.1); a != c.exp {
			t.Fatalf("action for %f is %f instead of %f", c.err, a, c.exp)
		}
	}
	if swapped := NewPID(1, 0, 0, 2, -2); swapped.Min != -2 || swapped.Max != 2 {
		t.Fatal("inverted bounds were not swapped")
	}
}

func TestPIDIntegral(t *testing.T) {
	pid := NewPID(0, 1, 0, -1, 1)
	if a := pid.Update(0.25, 1); !floats.EqualWithinAbs(a, 0.25, 1e-12) {
		t.Fatalf("integral action %f", a)
	}
	if a := pid.Update(0.25, 1); !floats.EqualWithinAbs(a, 0.5, 1e-12) {
		t.Fatalf("integral action %f", a)
	}
	// Saturation does not wind up the integral.
	pid.Update(10, 1)
	if !floats.EqualWithinAbs(pid.Integral(), 0.5, 1e-12) {
		t.Fatalf("integral wound up to %f", pid.Integral())
	}
	// Zero dt does not integrate.
	pid.Update(0.1, 0)
	if !floats.EqualWithinAbs(pid.Integral(), 0.5, 1e-12) {
		t.Fatalf("integral changed with dt=0: %f", pid.Integral())
	}
}

func TestPIDDerivative(t *testing.T) {
	pid := NewPID(0, 0, 1, -10, 10)
	if a := pid.Update(5, 1); a != 0 {
		t.Fatalf("derivative on the first update is %f", a)
	}
	if a := pid.Update(7, 0.5); !floats.EqualWithinAbs(a, 4, 1e-12) {
		t.Fatalf("derivative action %f", a)
	}
	pid.Reset()
	if pid.Action() != 0 || pid.Integral() != 0 {
		t.Fatal("reset did not zero the state")
	}
	if a := pid.Update(1, 1); a != 0 {
		t.Fatalf("derivative after reset is %f", a)
	}
}

func TestPID3(t *testing.T) {
	pids := NewPID3(
		PIDConfig{P: 1, Min: -1, Max: 1},
		PIDConfig{P: 2, Min: -1, Max: 1},
		PIDConfig{P: -1, Min: -5, Max: 5},
	)
	actions := pids.Update([3]float64{0.5, 0.75, 2}, 0.1)
	if actions != [3]float64{0.5, 1, -2} {
		t.Fatalf("actions %+v", actions)
	}
	if pids.Channel(1).Action() != 1 {
		t.Fatal("channel action not kept")
	}
	pids.Reset()
	for i := 0; i < 3; i++ {
		if pids.Channel(i).Action() != 0 {
			t.Fatalf("channel %d not reset", i)
		}
	}
}
