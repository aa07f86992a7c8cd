package pilot

import (
	"math"
	"math/rand"
	"testing"
)

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func countingOptimizer(conf TrajectoryConfig, keep func(current, best int) bool) *Optimizer[int] {
	o := NewOptimizer[int](conf, nil)
	o.Setup(
		func(current, _ int) int { return current + 1 },
		func(a, b int) bool { return absInt(a-7) < absInt(b-7) },
		keep,
	)
	return o
}

func TestOptimizerBudget(t *testing.T) {
	conf := TrajectoryConfig{MaxIterations: 25, PerTickIterations: 10}
	o := countingOptimizer(conf, func(int, int) bool { return true })
	if !o.Active() || o.Done() {
		t.Fatal("optimizer should be active after setup")
	}
	if !o.Step() || o.Iterations() != 10 {
		t.Fatalf("first slice ran %d iterations", o.Iterations())
	}
	if best, ok := o.Best(); !ok || best != 7 {
		t.Fatalf("best after the first slice is %d", best)
	}
	if _, ok := o.Result(); ok {
		t.Fatal("result available before the end of the search")
	}
	// The search resumes where it stopped.
	if !o.Step() || o.Iterations() != 20 {
		t.Fatalf("second slice ended at %d iterations", o.Iterations())
	}
	if o.Step() {
		t.Fatal("budget exhausted but the search goes on")
	}
	if !o.Done() || o.Converged() || o.Active() || o.Iterations() != 25 {
		t.Fatalf("done=%v converged=%v iterations=%d", o.Done(), o.Converged(), o.Iterations())
	}
	if best, ok := o.Result(); !ok || best != 7 {
		t.Fatalf("result %d %v", best, ok)
	}
	// Stepping a finished optimizer is a no-op.
	if o.Step() || o.Iterations() != 25 {
		t.Fatal("finished optimizer kept searching")
	}
}

func TestOptimizerConverged(t *testing.T) {
	conf := TrajectoryConfig{MaxIterations: 100, PerTickIterations: 3}
	o := countingOptimizer(conf, func(current, _ int) bool { return current != 5 })
	polls := 0
	for !o.Done() {
		o.Poll()
		polls++
	}
	if polls != 2 || !o.Converged() || o.Iterations() != 5 {
		t.Fatalf("polls=%d converged=%v iterations=%d", polls, o.Converged(), o.Iterations())
	}
	if best, _ := o.Result(); best != 5 {
		t.Fatalf("best %d", best)
	}
	// Setup rearms the search.
	o.Setup(func(current, _ int) int { return current - 1 }, nil, nil)
	if o.Done() || o.Iterations() != 0 {
		t.Fatal("setup did not rearm the search")
	}
	if best, ok := o.Poll(); !ok || best != -1 {
		t.Fatalf("without a better function the first candidate is kept, got %d", best)
	}
}

func TestOptimizerIdle(t *testing.T) {
	o := NewOptimizer[int](DefaultConfig().Trajectory, nil)
	if o.Step() || o.Active() {
		t.Fatal("optimizer without generator should be idle")
	}
	if _, ok := o.Poll(); ok {
		t.Fatal("idle optimizer returned a candidate")
	}
}

func fakeTargeted(dist float64, unsafe bool, dv float64) *InsertionTrajectory {
	return &InsertionTrajectory{TargetedTrajectory: TargetedTrajectory{
		Trajectory:       Trajectory{ManeuverΔv: []float64{dv, 0, 0}},
		DistanceToTarget: dist,
		BrakeΔv:          zero3(),
		Unsafe:           unsafe,
	}}
}

// fakeKiller is an unsafe candidate on an orbit of the given periapsis.
func fakeKiller(dist, peR float64) *InsertionTrajectory {
	t := fakeTargeted(dist, true, 0)
	a, e := Radii2ae(8000, peR)
	t.Orbit = NewOrbitFromOE(a, e, 0, 0, 0, 180, Earth, 0)
	return t
}

func TestBetterTargeted(t *testing.T) {
	for i, c := range []struct {
		a, b *InsertionTrajectory
		exp  bool
	}{
		{fakeTargeted(-1, false, 0), fakeTargeted(10, false, 0), false},
		{fakeTargeted(10, false, 0), fakeTargeted(-1, false, 0), true},
		{fakeTargeted(math.NaN(), false, 0), fakeTargeted(-1, false, 0), false},
		{fakeTargeted(100, false, 0), fakeTargeted(1, true, 0), true},
		{fakeTargeted(1, true, 0), fakeTargeted(100, false, 0), false},
		{fakeTargeted(1, false, 0.5), fakeTargeted(1, false, 1), true},
		{fakeTargeted(2, false, 0), fakeTargeted(1, false, 0), false},
		{fakeTargeted(1, true, 0), fakeTargeted(2, true, 0), true},
		// Two killers: the higher periapsis wins whatever the score.
		{fakeKiller(1, 6000), fakeKiller(2, 6300), false},
		{fakeKiller(2, 6300), fakeKiller(1, 6000), true},
	} {
		if got := BetterTargeted(c.a, c.b); got != c.exp {
			t.Fatalf("#%d: got %v", i, got)
		}
	}
}

func TestTargetedOptimizerInsertion(t *testing.T) {
	conf := DefaultConfig()
	src := NewCircularOrbit(7000, Earth, 0)
	o := NewTargetedOptimizer[*InsertionTrajectory](conf.Trajectory, 0.1, nil)
	search := NewInsertionSearch(src, 0, 0, 8000, Apoapsis, nil, rand.New(rand.NewSource(1)))
	o.Setup(search.Next)
	for i := 0; i < 100 && !o.Done(); i++ {
		o.Poll()
	}
	best, ok := o.Result()
	if !ok || !o.Converged() {
		t.Fatalf("search did not converge after %d iterations", o.Iterations())
	}
	if best.DistanceToTarget > 0.1 {
		t.Fatalf("distance %f km", best.DistanceToTarget)
	}
	// First burn of an Hohmann transfer from 7000 km to 8000 km.
	exp, _, _ := HohmannΔv(7000, 8000, Earth)
	if math.Abs(best.ΔvNorm()-exp)/exp > 0.01 {
		t.Fatalf("Δv %f km/s instead of %f", best.ΔvNorm(), exp)
	}
	if best.Kind() != KindInsertion || best.ApsisR() < 7999.9 {
		t.Fatalf("apoapsis %f", best.ApsisR())
	}
}

func TestTargetedOptimizerCollapsedBracket(t *testing.T) {
	conf := DefaultConfig()
	src := NewCircularOrbit(7000, Earth, 0)
	// A null tolerance is never met: only the bracket width stops the search.
	o := NewTargetedOptimizer[*InsertionTrajectory](conf.Trajectory, 0, nil)
	search := NewInsertionSearch(src, 0, 0, 8000, Apoapsis, nil, rand.New(rand.NewSource(1)))
	o.SetupUntil(search.Next, func() bool { return search.Collapsed(1e-3) })
	for i := 0; i < 100 && !o.Done(); i++ {
		o.Poll()
	}
	if !o.Converged() || o.Iterations() >= conf.Trajectory.MaxIterations {
		t.Fatalf("search did not stop on the bracket after %d iterations", o.Iterations())
	}
	lo, hi := search.Bracket()
	if hi-lo > 1e-3 || lo >= hi {
		t.Fatalf("bracket [%f, %f]", lo, hi)
	}
	if search.Collapsed(1e-9) {
		t.Fatal("bracket collapsed below the requested width")
	}
}

func TestInsertionTrajectoryOvershoot(t *testing.T) {
	a, e := Radii2ae(7000, 6600)
	src := NewOrbitFromOE(a, e, 0, 0, 0, 180, Earth, 0)
	circ := CircularizationΔv(src, 0)
	short := NewInsertionTrajectory(src, scale(0.5, circ), 0, 0, 7000, Periapsis, nil)
	if short.ApsisR() != short.Orbit.Periapsis() || short.ApsisR() > 6900 {
		t.Fatalf("short burn shaped %f", short.ApsisR())
	}
	// Past the circular speed the burn point is the new periapsis: the apoapsis rises instead.
	long := NewInsertionTrajectory(src, scale(1.5, circ), 0, 0, 7000, Periapsis, nil)
	if long.ApsisR() != long.Orbit.Apoapsis() {
		t.Fatalf("overshoot measured on %f instead of the apoapsis %f", long.ApsisR(), long.Orbit.Apoapsis())
	}
	if long.DistanceToTarget < 100 {
		t.Fatalf("overshoot is %f km away from the target", long.DistanceToTarget)
	}
	exact := NewInsertionTrajectory(src, circ, 0, 0, 7000, Periapsis, nil)
	if exact.DistanceToTarget > 0.1 {
		t.Fatalf("circularization is %f km away from the target", exact.DistanceToTarget)
	}
}

func TestInsertionSearchSeed(t *testing.T) {
	src := NewCircularOrbit(7000, Earth, 0)
	candidates := func(seed int64) []float64 {
		s := NewInsertionSearch(src, 0, 0, 8000, Apoapsis, nil, rand.New(rand.NewSource(seed)))
		var cur *InsertionTrajectory
		var out []float64
		for i := 0; i < 10; i++ {
			cur = s.Next(cur, nil)
			out = append(out, cur.ΔvNorm())
		}
		return out
	}
	a, b := candidates(3), candidates(3)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed gave different candidates at #%d", i)
		}
	}
}
