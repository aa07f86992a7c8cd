package pilot

import "testing"

// fakeVessel is a vessel standing still in deep space with constant properties.
type fakeVessel struct {
	ut        float64
	orbit     *Orbit
	mass      float64
	thrust    float64
	g         float64
	control   bool
	landed    bool
	burnRatio float64 // s per km/s
	vspeed    float64 // km/s
	density   float64 // kg/m^3
}

func newFakeVessel() *fakeVessel {
	return &fakeVessel{orbit: NewCircularOrbit(7000, Earth, 0), mass: 1000, thrust: 10000, g: Earth.GravityAt(7000), control: true, burnRatio: 100}
}

func (v *fakeVessel) BurnTime(dv float64) float64 { return dv * v.burnRatio }
func (v *fakeVessel) UT() float64                 { return v.ut }
func (v *fakeVessel) Orbit() *Orbit               { return v.orbit }
func (v *fakeVessel) Body() Body                  { return v.orbit.Origin }
func (v *fakeVessel) Mass() float64               { return v.mass }
func (v *fakeVessel) MaxThrust() float64          { return v.thrust }
func (v *fakeVessel) Up() []float64               { return unit(v.orbit.PositionAt(v.ut)) }
func (v *fakeVessel) G() float64                  { return v.g }
func (v *fakeVessel) Altitude() float64           { return v.orbit.RadiusAt(v.ut) - v.orbit.Origin.Radius }
func (v *fakeVessel) VerticalSpeed() float64      { return v.vspeed }
func (v *fakeVessel) SurfaceVelocity() []float64  { return v.orbit.VelocityAt(v.ut) }
func (v *fakeVessel) DynamicPressure() float64    { return 0 }
func (v *fakeVessel) AtmDensity() float64         { return v.density }
func (v *fakeVessel) Landed() bool                { return v.landed }
func (v *fakeVessel) HasControl() bool            { return v.control }

// fakeControls records every request.
type fakeControls struct {
	direction    []float64
	attErr       float64
	throttle     float64
	maxThrottle  float64
	activations  int
	kills        int
	translations [][]float64
	rcs          float64
}

func (c *fakeControls) SetThrustDirection(w []float64) { c.direction = copy3(w) }
func (c *fakeControls) KillRotation()                  { c.kills++ }
func (c *fakeControls) AttitudeError() float64         { return c.attErr }
func (c *fakeControls) Aligned() bool                  { return c.attErr < 1 }
func (c *fakeControls) ThrustDirection() []float64     { return c.direction }
func (c *fakeControls) ActivateEngines()               { c.activations++ }
func (c *fakeControls) TranslationAvailable() bool     { return c.rcs > 0 }
func (c *fakeControls) RCSAuthority([]float64) float64 { return c.rcs }
func (c *fakeControls) AddTranslation(dv []float64) {
	c.translations = append(c.translations, copy3(dv))
}
func (c *fakeControls) SetThrottle(f float64) {
	c.throttle = f
	if f > c.maxThrottle {
		c.maxThrottle = f
	}
}

func TestMaxAcceleration(t *testing.T) {
	v := newFakeVessel()
	// 10 kN on 1 t is 10 m/s².
	if a := maxAcceleration(v); a != 0.01 {
		t.Fatalf("max acceleration %f km/s²", a)
	}
	if r := twr(v); r <= 1 {
		t.Fatalf("twr %f", r)
	}
	v.mass = 0
	if maxAcceleration(v) != 0 {
		t.Fatal("massless vessel should not accelerate")
	}
	v.g = 0
	if twr(v) != 0 {
		t.Fatal("twr without gravity should be zero")
	}
}
