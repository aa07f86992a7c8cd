package pilot

import "math"

// FuzzyThreshold is a boolean with hysteresis over a scalar: it turns on when the
// value rises above Upper and only turns off once the value falls below Lower.
type FuzzyThreshold struct {
	Lower, Upper float64
	value        float64
	on           bool
}

// NewFuzzyThreshold returns a threshold for the provided bounds.
func NewFuzzyThreshold(lower, upper float64) *FuzzyThreshold {
	if lower > upper {
		lower, upper = upper, lower
	}
	return &FuzzyThreshold{Lower: lower, Upper: upper}
}

// Update sets the value and returns the resulting state.
func (f *FuzzyThreshold) Update(v float64) bool {
	f.value = v
	if f.on {
		f.on = v >= f.Lower
	} else {
		f.on = v > f.Upper
	}
	return f.on
}

// On returns the current state.
func (f *FuzzyThreshold) On() bool {
	return f.on
}

// Value returns the last value.
func (f *FuzzyThreshold) Value() float64 {
	return f.value
}

// Reset switches the threshold off and zeroes its value.
func (f *FuzzyThreshold) Reset() {
	f.value = 0
	f.on = false
}

// StallDetector declares a stall when a scalar sample stream stops decreasing.
// The window duration is Window ticks.
type StallDetector struct {
	Window  int
	Epsilon float64
	samples []float64
	head    int
	count   int
}

// NewStallDetector returns a stall detector over the given number of samples.
func NewStallDetector(window int, ε float64) *StallDetector {
	if window < 2 {
		window = 2
	}
	return &StallDetector{Window: window, Epsilon: ε, samples: make([]float64, window)}
}

// Update adds a sample and returns whether the stream has stalled.
func (s *StallDetector) Update(v float64) bool {
	s.samples[s.head] = v
	s.head = (s.head + 1) % s.Window
	if s.count < s.Window {
		s.count++
	}
	return s.Stalled()
}

// Stalled returns whether the window is full and the newest sample is not smaller
// than the oldest by more than epsilon.
func (s *StallDetector) Stalled() bool {
	if s.count < s.Window {
		return false
	}
	// head points at the oldest sample once the window is full.
	oldest := s.samples[s.head]
	newest := s.samples[(s.head+s.Window-1)%s.Window]
	return newest >= oldest-s.Epsilon
}

// Reset clears the window.
func (s *StallDetector) Reset() {
	s.head = 0
	s.count = 0
}

// StallDetectorN is the n-vector variant of the StallDetector: it stalls when no
// component made progress over the window.
type StallDetectorN struct {
	detectors []*StallDetector
}

// NewStallDetectorN returns a stall detector for n-dimensional samples.
func NewStallDetectorN(n, window int, ε float64) *StallDetectorN {
	s := &StallDetectorN{make([]*StallDetector, n)}
	for i := range s.detectors {
		s.detectors[i] = NewStallDetector(window, ε)
	}
	return s
}

// Update adds a sample and returns whether the stream has stalled.
// Samples of the wrong dimension are ignored.
func (s *StallDetectorN) Update(v []float64) bool {
	if len(v) != len(s.detectors) {
		return s.Stalled()
	}
	for i, d := range s.detectors {
		d.Update(v[i])
	}
	return s.Stalled()
}

// Stalled returns whether every component has stalled.
func (s *StallDetectorN) Stalled() bool {
	for _, d := range s.detectors {
		if !d.Stalled() {
			return false
		}
	}
	return len(s.detectors) > 0
}

// Reset clears every window.
func (s *StallDetectorN) Reset() {
	for _, d := range s.detectors {
		d.Reset()
	}
}

// LowPassFilter is a first order filter with time constant Tau in seconds.
type LowPassFilter struct {
	Tau   float64
	value float64
	set   bool
}

// Update filters v sampled after dt seconds.
func (l *LowPassFilter) Update(v, dt float64) float64 {
	if !l.set || l.Tau <= 0 {
		l.value = v
		l.set = true
		return v
	}
	k := 1 - math.Exp(-dt/l.Tau)
	l.value += (v - l.value) * k
	return l.value
}

// Value returns the filtered value.
func (l *LowPassFilter) Value() float64 {
	return l.value
}

// Reset forgets the filter state.
func (l *LowPassFilter) Reset() {
	l.value = 0
	l.set = false
}

// SingleAction runs its action only once until reset.
type SingleAction struct {
	Action func()
	done   bool
}

// Run executes the action if it has not run yet and returns whether it ran.
func (s *SingleAction) Run() bool {
	if s.done {
		return false
	}
	s.done = true
	if s.Action != nil {
		s.Action()
	}
	return true
}

// Done returns whether the action ran.
func (s *SingleAction) Done() bool {
	return s.done
}

// Reset re-arms the action.
func (s *SingleAction) Reset() {
	s.done = false
}
