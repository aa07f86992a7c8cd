package pilot

import "math"

// PatternSearch is a compass search over a small vector of free parameters: it tries
// every parameter up and down by its step around the current center, moves the center
// to any improving trial, and halves all steps after a full sweep without improvement.
// It never evaluates anything itself: the caller reports which trials were accepted.
type PatternSearch struct {
	center   []float64
	steps    []float64
	minSteps []float64
	lower    []float64
	upper    []float64
	trial    int
	improved bool
	last     []float64
}

// NewPatternSearch returns a search starting at center. Bounds may be nil.
func NewPatternSearch(center, steps, minSteps, lower, upper []float64) *PatternSearch {
	p := &PatternSearch{
		center:   append([]float64(nil), center...),
		steps:    append([]float64(nil), steps...),
		minSteps: append([]float64(nil), minSteps...),
		lower:    lower,
		upper:    upper,
		trial:    -1,
	}
	for i := range p.minSteps {
		if p.minSteps[i] <= 0 {
			p.minSteps[i] = 1e-9
		}
	}
	p.center = p.bound(p.center)
	return p
}

func (p *PatternSearch) bound(x []float64) []float64 {
	for i := range x {
		if p.lower != nil && x[i] < p.lower[i] {
			x[i] = p.lower[i]
		}
		if p.upper != nil && x[i] > p.upper[i] {
			x[i] = p.upper[i]
		}
	}
	return x
}

// Next returns the next parameters to evaluate. accepted tells whether the previous
// trial became the new best. The very first call returns the center.
func (p *PatternSearch) Next(accepted bool) []float64 {
	if p.trial < 0 {
		p.trial = 0
		p.last = append([]float64(nil), p.center...)
		return append([]float64(nil), p.last...)
	}
	if accepted {
		p.center = append([]float64(nil), p.last...)
		p.improved = true
	}
	n := len(p.center)
	for {
		if p.trial >= 2*n {
			if !p.improved {
				for i := range p.steps {
					p.steps[i] /= 2
				}
			}
			p.trial = 0
			p.improved = false
		}
		k := p.trial / 2
		dir := 1.0
		if p.trial%2 == 1 {
			dir = -1
		}
		p.trial++
		x := append([]float64(nil), p.center...)
		x[k] += dir * p.steps[k]
		x = p.bound(x)
		if x[k] != p.center[k] || p.Converged() {
			p.last = x
			return append([]float64(nil), x...)
		}
		// Trial pinned on a bound: try the next direction.
	}
}

// Center returns the current best parameters.
func (p *PatternSearch) Center() []float64 {
	return append([]float64(nil), p.center...)
}

// Steps returns the current step sizes.
func (p *PatternSearch) Steps() []float64 {
	return append([]float64(nil), p.steps...)
}

// Converged returns whether every step went below its minimum.
func (p *PatternSearch) Converged() bool {
	for i, s := range p.steps {
		if math.Abs(s) > p.minSteps[i] {
			return false
		}
	}
	return true
}
