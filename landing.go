package pilot

import (
	"fmt"
	"math"
)

// LandingTrajectory targets a surface site, optionally braking before arrival.
type LandingTrajectory struct {
	TargetedTrajectory
	Site           SurfaceSite
	TargetAltitude float64
	SurfaceLat     float64
	SurfaceLon     float64
	DeltaLat       float64 // deg
	DeltaLon       float64 // deg
	DeltaR         float64 // deg, along track overshoot
	DeltaFi        float64 // deg, cross track angle
	VesselStartLat float64
	VesselStartLon float64
	WithBrake      bool
	BrakeUT        float64 // impulsive equivalent of the brake burn
	BrakeStartUT   float64
	BrakeEndUT     float64
	conf           LandingConfig
	bt             BurnTimer
}

// NewLandingTrajectory computes where the vessel touches the site altitude after applying dv at startUT.
func NewLandingTrajectory(src *Orbit, dv []float64, startUT, nowUT float64, site SurfaceSite, withBrake bool, conf LandingConfig, bt BurnTimer) *LandingTrajectory {
	t := &LandingTrajectory{
		Site:           site,
		TargetAltitude: site.Altitude,
		WithBrake:      withBrake,
		BrakeUT:        math.NaN(),
		BrakeStartUT:   math.NaN(),
		BrakeEndUT:     math.NaN(),
		conf:           conf,
		bt:             bt,
	}
	t.TargetedTrajectory = newTargetedTrajectory(NewTrajectory(src, dv, startUT, nowUT, bt), site)
	body := src.Origin
	targetR := body.Radius + site.Altitude
	t.VesselStartLat, t.VesselStartLon = SurfaceCoordinates(t.StartPos, body, startUT)
	arrival, miss := landingUT(t.Orbit, targetR, startUT)
	if math.IsNaN(arrival) {
		return t
	}
	t.arrive(arrival, bt)
	if withBrake {
		t.brake(targetR)
	}
	if hasNaN(t.AtTargetPos) {
		t.DistanceToTarget = -1
		return t
	}
	if t.WithBrake && !math.IsNaN(t.BrakeUT) {
		// The brake changes the trajectory: recompute the miss of the braked orbit.
		_, miss = landingUT(t.Orbit.After(t.BrakeΔv, t.BrakeUT), targetR, t.BrakeUT)
	}
	t.SurfaceLat, t.SurfaceLon = SurfaceCoordinates(t.AtTargetPos, body, t.AtTargetUT)
	t.DeltaLat = t.SurfaceLat - site.Latitude
	t.DeltaLon = wrap180(t.SurfaceLon - site.Longitude)
	t.DistanceToTarget = CentralAngle(t.SurfaceLat, t.SurfaceLon, site.Latitude, site.Longitude)*body.Radius + miss
	sitePos := site.PositionAt(t.AtTargetUT)
	normal := t.Orbit.Normal()
	t.DeltaFi = 90 - angleBetween(normal, sitePos)/deg2rad
	t.DeltaR = wrap180((projectionAngle(t.StartPos, t.AtTargetPos, normal) - projectionAngle(t.StartPos, sitePos, normal)) / deg2rad)
	return t
}

// landingUT returns when the orbit reaches radius r after ut, descending. If r is never
// reached, it returns the periapsis time and how far above r the periapsis passes.
func landingUT(o *Orbit, r, ut float64) (arrival, miss float64) {
	if o == nil {
		return math.NaN(), 0
	}
	if o.RadiusAt(ut) <= r {
		return ut, 0
	}
	if o.Periapsis() < r {
		return o.RadiusCrossingUT(r, ut, true), 0
	}
	Δt := o.TimeToPeriapsis(ut)
	if Δt < 0 || math.IsNaN(Δt) {
		return math.NaN(), 0
	}
	return ut + Δt, o.Periapsis() - r
}

// brake inserts the braking burn which kills most of the surface relative velocity before
// flying over the site altitude. The brake time is refined against the brake duration.
func (t *LandingTrajectory) brake(targetR float64) {
	o := t.Orbit
	body := o.Origin
	flyOverR := targetR + t.conf.FlyOverAlt
	brakeEnd, _ := landingUT(o, flyOverR, t.StartUT)
	if math.IsNaN(brakeEnd) {
		brakeEnd = t.AtTargetUT
	}
	brakeUT := brakeEnd
	var dv []float64
	var duration float64
	for i := 0; i < t.conf.MaxBrakeIterations; i++ {
		R, V := o.StateAt(brakeUT)
		dv = scale(-t.conf.BrakeFactor, sub(V, body.SurfaceVelocity(R)))
		duration = 0
		if t.bt != nil {
			duration = t.bt.BurnTime(norm(dv))
		}
		next := math.Max(brakeEnd-duration*t.conf.BrakeOffset/2, t.StartUT)
		if math.Abs(next-brakeUT) < 1e-2 {
			brakeUT = next
			break
		}
		brakeUT = next
	}
	braked := o.After(dv, brakeUT)
	if braked == nil {
		return
	}
	arrival, _ := landingUT(braked, targetR, brakeUT)
	if math.IsNaN(arrival) {
		return
	}
	t.BrakeUT = brakeUT
	t.BrakeEndUT = brakeEnd
	t.BrakeStartUT = math.Max(brakeEnd-duration*t.conf.BrakeOffset, t.StartUT)
	t.BrakeΔv = dv
	t.BrakeDuration = duration
	t.AtTargetUT = arrival
	t.AtTargetPos, t.AtTargetVel = braked.StateAt(arrival)
}

// Kind implements the Targeted interface.
func (t *LandingTrajectory) Kind() TrajectoryKind {
	return KindLanding
}

// Update returns the landing trajectory followed from ut without further burns.
func (t *LandingTrajectory) Update(o *Orbit, ut float64) *LandingTrajectory {
	return NewLandingTrajectory(o, nil, ut, ut, t.Site, t.WithBrake, t.conf, t.bt)
}

// String implements the Stringer interface.
func (t *LandingTrajectory) String() string {
	return fmt.Sprintf("%s at (%.4f, %.4f) Δlat=%.4f Δlon=%.4f", t.TargetedTrajectory, t.SurfaceLat, t.SurfaceLon, t.DeltaLat, t.DeltaLon)
}

// LandingSearch moves the deorbit burn (start time, prograde Δv, normal Δv) with a pattern search.
type LandingSearch struct {
	Source  *Orbit
	Site    SurfaceSite
	NowUT   float64
	conf    LandingConfig
	bt      BurnTimer
	pattern *PatternSearch
}

// NewLandingSearch seeds the deorbit with a burn which lowers the periapsis under the site.
func NewLandingSearch(src *Orbit, site SurfaceSite, nowUT float64, conf Config, bt BurnTimer) *LandingSearch {
	period := src.Period()
	if math.IsInf(period, 0) {
		period = 3600
	}
	start := nowUT + conf.Trajectory.ManeuverOffset
	targetR := src.Origin.Radius + site.Altitude
	altitude := src.RadiusAt(start) - targetR
	deorbit := ΔvForApsis(src, targetR-0.25*math.Max(altitude, 0), start, Periapsis, conf.Landing.Dtol, conf.Trajectory.DVTol)
	prograde := -norm(deorbit)
	v := norm(src.VelocityAt(start))
	return &LandingSearch{
		Source: src,
		Site:   site,
		NowUT:  nowUT,
		conf:   conf.Landing,
		bt:     bt,
		pattern: NewPatternSearch(
			[]float64{start, prograde, 0},
			[]float64{period / 16, 0.02, 0.01},
			[]float64{0.5, 1e-5, 1e-5},
			[]float64{start, -v, -0.2 * v},
			[]float64{start + period, 0, 0.2 * v},
		),
	}
}

// Next implements the optimizer's candidate generator.
func (s *LandingSearch) Next(current, best *LandingTrajectory) *LandingTrajectory {
	x := s.pattern.Next(current != nil && current == best)
	return s.Candidate(x[0], x[1], x[2])
}

// Candidate returns the landing trajectory of the given deorbit burn.
func (s *LandingSearch) Candidate(startUT, prograde, normal float64) *LandingTrajectory {
	dv := Node2OrbitΔv(s.Source, []float64{0, normal, prograde}, startUT)
	return NewLandingTrajectory(s.Source, dv, startUT, s.NowUT, s.Site, true, s.conf, s.bt)
}
