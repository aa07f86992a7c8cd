package pilot

import (
	"math"
	"testing"
)

func TestPatternSearchMinimizes(t *testing.T) {
	f := func(x []float64) float64 {
		return math.Pow(x[0]-3, 2) + math.Pow(x[1]+1, 2)
	}
	p := NewPatternSearch([]float64{0, 0}, []float64{1, 1}, []float64{1e-4, 1e-4}, nil, nil)
	first := p.Next(false)
	if first[0] != 0 || first[1] != 0 {
		t.Fatalf("first trial %v is not the center", first)
	}
	best := f(first)
	accepted := false
	for i := 0; i < 1000 && !p.Converged(); i++ {
		x := p.Next(accepted)
		v := f(x)
		accepted = v < best
		if accepted {
			best = v
		}
	}
	if !p.Converged() {
		t.Fatalf("search did not converge: steps %v", p.Steps())
	}
	c := p.Center()
	if math.Abs(c[0]-3) > 1e-3 || math.Abs(c[1]+1) > 1e-3 {
		t.Fatalf("minimum found at %v", c)
	}
}

func TestPatternSearchBounds(t *testing.T) {
	p := NewPatternSearch([]float64{5}, []float64{2}, []float64{0.01}, []float64{0}, []float64{4})
	if c := p.Center(); c[0] != 4 {
		t.Fatalf("center %v not bounded", c)
	}
	p.Next(false)
	for i := 0; i < 50; i++ {
		x := p.Next(false)
		if x[0] < 0 || x[0] > 4 {
			t.Fatalf("trial %v out of bounds", x)
		}
	}
}

func TestPatternSearchHalvesSteps(t *testing.T) {
	p := NewPatternSearch([]float64{0, 0}, []float64{1, 2}, []float64{0.1, 0.1}, nil, nil)
	p.Next(false)
	// One full sweep without improvement.
	for i := 0; i < 4; i++ {
		p.Next(false)
	}
	p.Next(false)
	if s := p.Steps(); s[0] != 0.5 || s[1] != 1 {
		t.Fatalf("steps %v not halved", s)
	}
}
