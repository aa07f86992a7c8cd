package pilot

import (
	"math"
	"testing"
)

func moonDeorbit(dv float64) (*Orbit, []float64) {
	o := NewCircularOrbit(1837.4, Moon, 0)
	return o, scale(-dv, unit(o.VelocityAt(0)))
}

func TestLandingTrajectoryArrival(t *testing.T) {
	conf := DefaultConfig().Landing
	o, dv := moonDeorbit(0.03)
	somewhere := NewSurfaceSite("somewhere", 0, 0, 0, Moon)
	l := NewLandingTrajectory(o, dv, 0, 0, somewhere, false, conf, nil)
	if !l.Defined() {
		t.Fatal("deorbit should reach the surface")
	}
	if r := norm(l.AtTargetPos); math.Abs(r-Moon.Radius) > 1e-3 {
		t.Fatalf("arrival radius %f instead of %f", r, Moon.Radius)
	}
	if l.AtTargetUT <= 0 || l.AtTargetUT > o.Period() {
		t.Fatalf("arrival at %f", l.AtTargetUT)
	}
	// A site right under the arrival point is hit.
	site := NewSurfaceSite("spot", l.SurfaceLat, l.SurfaceLon, 0, Moon)
	hit := NewLandingTrajectory(o, dv, 0, 0, site, false, conf, nil)
	if hit.DistanceToTarget > 1e-3 {
		t.Fatalf("distance %f to a site under the arrival", hit.DistanceToTarget)
	}
	if math.Abs(hit.DeltaLat) > 1e-6 || math.Abs(hit.DeltaLon) > 1e-6 {
		t.Fatalf("Δlat=%f Δlon=%f", hit.DeltaLat, hit.DeltaLon)
	}
}

func TestLandingTrajectoryMiss(t *testing.T) {
	conf := DefaultConfig().Landing
	o, dv := moonDeorbit(0.02)
	site := NewSurfaceSite("somewhere", 0, 0, 0, Moon)
	l := NewLandingTrajectory(o, dv, 0, 0, site, false, conf, nil)
	miss := l.Orbit.Periapsis() - Moon.Radius
	if miss <= 0 {
		t.Fatalf("periapsis should stay above the surface, got miss %f", miss)
	}
	if !l.Defined() || l.DistanceToTarget < miss-1e-9 {
		t.Fatalf("distance %f does not account for the %f km miss", l.DistanceToTarget, miss)
	}
}

func TestLandingTrajectoryBrakeUpdate(t *testing.T) {
	conf := DefaultConfig().Landing
	o, dv := moonDeorbit(0.03)
	site := NewSurfaceSite("somewhere", 5, 40, 0, Moon)
	bt := newFakeVessel()
	l := NewLandingTrajectory(o, dv, 0, 0, site, true, conf, bt)
	if math.IsNaN(l.BrakeUT) {
		t.Fatal("no brake burn")
	}
	if !(l.BrakeStartUT <= l.BrakeUT && l.BrakeUT <= l.BrakeEndUT) {
		t.Fatalf("brake window [%f %f %f] out of order", l.BrakeStartUT, l.BrakeUT, l.BrakeEndUT)
	}
	if l.BrakeDuration != bt.BurnTime(norm(l.BrakeΔv)) {
		t.Fatalf("brake duration %f", l.BrakeDuration)
	}
	u := l.Update(l.Orbit, l.StartUT)
	if math.Abs(u.DistanceToTarget-l.DistanceToTarget) > 1e-6 {
		t.Fatalf("update changed the distance from %f to %f", l.DistanceToTarget, u.DistanceToTarget)
	}
	if math.Abs(u.BrakeUT-l.BrakeUT) > 1e-6 {
		t.Fatalf("update moved the brake from %f to %f", l.BrakeUT, u.BrakeUT)
	}
}

func TestLandingSearch(t *testing.T) {
	conf := DefaultConfig()
	src := NewCircularOrbit(1837.4, Moon, 0)
	site := NewSurfaceSite("crater", 0, 60, 0, Moon)
	first := NewLandingSearch(src, site, 0, conf, newFakeVessel()).Next(nil, nil)
	if !first.Defined() {
		t.Fatalf("initial deorbit undefined: %s", first)
	}
	if first.StartUT != conf.Trajectory.ManeuverOffset {
		t.Fatalf("initial deorbit at %f", first.StartUT)
	}
	search := NewLandingSearch(src, site, 0, conf, newFakeVessel())
	o := NewTargetedOptimizer[*LandingTrajectory](conf.Trajectory, conf.Landing.Dtol, nil)
	o.Setup(search.Next)
	for i := 0; i < 200 && !o.Done(); i++ {
		o.Poll()
	}
	best, ok := o.Best()
	if !ok || !best.Defined() {
		t.Fatal("no landing found")
	}
	if best.Score() > first.Score() {
		t.Fatalf("best score %f worse than the initial %f", best.Score(), first.Score())
	}
}
