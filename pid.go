package pilot

import "fmt"

// PIDConfig holds the gains and output clamp of one PID channel.
type PIDConfig struct {
	P, I, D  float64
	Min, Max float64
}

// PID is a single clamped PID channel.
type PID struct {
	P, I, D  float64
	Min, Max float64
	integral float64
	lastErr  float64
	action   float64
	primed   bool // false until the first update after a reset
}

// NewPID returns a PID channel clamped to [min, max].
func NewPID(p, i, d, min, max float64) *PID {
	if min > max {
		min, max = max, min
	}
	return &PID{P: p, I: i, D: d, Min: min, Max: max}
}

// NewSymmetricPID returns a PID channel clamped to [-clamp, +clamp].
func NewSymmetricPID(p, i, d, clamp float64) *PID {
	if clamp < 0 {
		clamp = -clamp
	}
	return NewPID(p, i, d, -clamp, clamp)
}

// NewPIDFromConfig returns a PID channel from its configuration.
func NewPIDFromConfig(c PIDConfig) *PID {
	return NewPID(c.P, c.I, c.D, c.Min, c.Max)
}

// Update feeds the error observed after dt seconds and returns the clamped action.
// The derivative term is zero on the first update after a reset, and the integral
// increment is dropped whenever the output saturates.
func (p *PID) Update(err, dt float64) float64 {
	derivative := 0.0
	increment := 0.0
	if dt > 0 {
		if p.primed {
			derivative = (err - p.lastErr) / dt
		}
		increment = err * dt
	}
	p.lastErr = err
	p.primed = true
	p.integral += increment
	raw := p.P*err + p.I*p.integral + p.D*derivative
	p.action = clamp(raw, p.Min, p.Max)
	if p.action != raw {
		p.integral -= increment
	}
	return p.action
}

// Action returns the last computed output.
func (p *PID) Action() float64 {
	return p.action
}

// Integral returns the integral state.
func (p *PID) Integral() float64 {
	return p.integral
}

// Reset zeroes the integral and the last error.
func (p *PID) Reset() {
	p.integral = 0
	p.lastErr = 0
	p.action = 0
	p.primed = false
}

// String implements the Stringer interface.
func (p *PID) String() string {
	return fmt.Sprintf("PID{P=%.3f I=%.3f D=%.3f [%.3f, %.3f] action=%.4f}", p.P, p.I, p.D, p.Min, p.Max, p.action)
}

// PID3 holds three independently clamped channels updated together.
type PID3 struct {
	Channels [3]*PID
}

// NewPID3 returns a three channel controller.
func NewPID3(a, b, c PIDConfig) *PID3 {
	return &PID3{[3]*PID{NewPIDFromConfig(a), NewPIDFromConfig(b), NewPIDFromConfig(c)}}
}

// Update feeds one error per channel and returns the three actions.
func (p *PID3) Update(errs [3]float64, dt float64) (actions [3]float64) {
	for i, ch := range p.Channels {
		actions[i] = ch.Update(errs[i], dt)
	}
	return
}

// Channel returns the i-th channel.
func (p *PID3) Channel(i int) *PID {
	return p.Channels[i]
}

// Reset resets all three channels.
func (p *PID3) Reset() {
	for _, ch := range p.Channels {
		ch.Reset()
	}
}
