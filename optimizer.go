package pilot

import (
	kitlog "github.com/go-kit/kit/log"
)

// Optimizer is an anytime search over candidates of type T. It is a hand-rolled generator:
// each Step runs a bounded number of iterations and returns, keeping its state so that the
// next Step resumes the search. Dropping the optimizer cancels it.
type Optimizer[T any] struct {
	conf       TrajectoryConfig
	next       func(current, best T) T
	better     func(a, b T) bool
	keep       func(current, best T) bool
	current    T
	best       T
	hasBest    bool
	iterations int
	active     bool
	done       bool
	converged  bool
	logger     kitlog.Logger
}

// NewOptimizer returns an idle optimizer with the iteration budgets of conf.
func NewOptimizer[T any](conf TrajectoryConfig, logger kitlog.Logger) *Optimizer[T] {
	return &Optimizer[T]{conf: conf, logger: orNop(logger)}
}

// Setup rearms the search. next receives the zero value of T while there is no
// current candidate or no best yet.
func (o *Optimizer[T]) Setup(next func(current, best T) T, better func(a, b T) bool, keep func(current, best T) bool) {
	var zero T
	o.next, o.better, o.keep = next, better, keep
	o.current, o.best = zero, zero
	o.hasBest = false
	o.iterations = 0
	o.active = next != nil
	o.done = false
	o.converged = false
}

// Step runs at most PerTickIterations iterations and returns whether the search goes on.
func (o *Optimizer[T]) Step() bool {
	if !o.active {
		return false
	}
	for i := 0; i < o.conf.PerTickIterations; i++ {
		if o.iterations >= o.conf.MaxIterations {
			o.finish(false)
			return false
		}
		o.current = o.next(o.current, o.best)
		o.iterations++
		if !o.hasBest || (o.better != nil && o.better(o.current, o.best)) {
			o.best = o.current
			o.hasBest = true
		}
		if o.keep != nil && !o.keep(o.current, o.best) {
			o.finish(true)
			return false
		}
	}
	if o.iterations >= o.conf.MaxIterations {
		o.finish(false)
		return false
	}
	return true
}

func (o *Optimizer[T]) finish(converged bool) {
	o.active = false
	o.done = true
	o.converged = converged
	if converged {
		o.logger.Log("level", "debug", "status", "converged", "iterations", o.iterations)
	} else {
		o.logger.Log("level", "notice", "status", "budget exhausted", "iterations", o.iterations)
	}
}

// Poll drives one slice of the search and returns the best candidate so far, if any.
func (o *Optimizer[T]) Poll() (T, bool) {
	o.Step()
	return o.best, o.hasBest
}

// Best returns the best candidate so far without searching.
func (o *Optimizer[T]) Best() (T, bool) {
	return o.best, o.hasBest
}

// Result returns the final best candidate once the search ended.
func (o *Optimizer[T]) Result() (T, bool) {
	return o.best, o.done && o.hasBest
}

// Done returns whether the search ended, whether it converged or ran out of budget.
func (o *Optimizer[T]) Done() bool {
	return o.done
}

// Active returns whether the search is still running.
func (o *Optimizer[T]) Active() bool {
	return o.active
}

// Converged returns whether the search stopped on its own predicate rather than the budget.
func (o *Optimizer[T]) Converged() bool {
	return o.converged
}

// Iterations returns the number of candidates evaluated since Setup.
func (o *Optimizer[T]) Iterations() int {
	return o.iterations
}

// TargetedOptimizer minimizes the distance to target of targeted trajectories.
type TargetedOptimizer[T Targeted] struct {
	*Optimizer[T]
	Tolerance float64 // km
}

// NewTargetedOptimizer returns an idle optimizer which searches until the best distance
// to target falls within tol.
func NewTargetedOptimizer[T Targeted](conf TrajectoryConfig, tol float64, logger kitlog.Logger) *TargetedOptimizer[T] {
	return &TargetedOptimizer[T]{Optimizer: NewOptimizer[T](conf, logger), Tolerance: tol}
}

// Setup rearms the search with the given candidate generator.
func (o *TargetedOptimizer[T]) Setup(next func(current, best T) T) {
	o.Optimizer.Setup(next, BetterTargeted[T], o.keepSearching)
}

// SetupUntil is Setup with an extra stop condition, checked after every candidate.
func (o *TargetedOptimizer[T]) SetupUntil(next func(current, best T) T, stop func() bool) {
	o.Optimizer.Setup(next, BetterTargeted[T], func(current, best T) bool {
		return o.keepSearching(current, best) && !stop()
	})
}

func (o *TargetedOptimizer[T]) keepSearching(_, best T) bool {
	b := best.Targeted()
	return !b.Defined() || b.DistanceToTarget > o.Tolerance
}

// BetterTargeted returns whether a should replace b as the best candidate. An undefined
// candidate is never preferred and safe candidates always win over unsafe ones. Between two
// unsafe candidates the higher periapsis wins. Otherwise the lower score wins.
func BetterTargeted[T Targeted](a, b T) bool {
	ta, tb := a.Targeted(), b.Targeted()
	if !ta.Defined() {
		return false
	}
	if !tb.Defined() {
		return true
	}
	if ta.Unsafe != tb.Unsafe {
		return !ta.Unsafe
	}
	if ta.Unsafe && ta.Orbit != nil && tb.Orbit != nil {
		return ta.Orbit.Periapsis() > tb.Orbit.Periapsis()
	}
	return ta.Score() < tb.Score()
}
