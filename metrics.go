package pilot

import (
	"fmt"
	"math"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes the telemetry snapshots as Prometheus metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	Ticks       prometheus.Counter
	Stage       *prometheus.GaugeVec
	Transitions *prometheus.CounterVec
	Distance    prometheus.Gauge
	TimeToStart prometheus.Gauge
	ManeuverΔv  prometheus.Gauge
	RemainingΔv prometheus.Gauge
	Iterations  prometheus.Gauge

	last Stage
}

// NewCollector registers the autopilot metrics against the provided registerer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	c := &Collector{gatherer: gatherer}
	var err error
	if c.Ticks, err = registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pilot_ticks_total",
		Help: "Number of control ticks run by the autopilot.",
	}), "pilot_ticks_total"); err != nil {
		return nil, err
	}
	if c.Stage, err = registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pilot_stage",
		Help: "Current guidance stage, one when active.",
	}, []string{"mode", "stage"}), "pilot_stage"); err != nil {
		return nil, err
	}
	if c.Transitions, err = registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pilot_stage_transitions_total",
		Help: "Number of transitions into each guidance stage.",
	}, []string{"mode", "stage"}), "pilot_stage_transitions_total"); err != nil {
		return nil, err
	}
	gauges := []struct {
		dst        *prometheus.Gauge
		name, help string
	}{
		{&c.Distance, "pilot_distance_to_target_km", "Distance to target of the followed trajectory."},
		{&c.TimeToStart, "pilot_time_to_start_seconds", "Time until the start of the next maneuver."},
		{&c.ManeuverΔv, "pilot_maneuver_delta_v_km_s", "Magnitude of the planned maneuver."},
		{&c.RemainingΔv, "pilot_remaining_delta_v_km_s", "Remaining Δv of the burn being executed."},
		{&c.Iterations, "pilot_optimizer_iterations", "Iterations spent by the trajectory optimizer."},
	}
	for _, g := range gauges {
		if *g.dst, err = registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler returns the HTTP handler serving the metrics.
func (c *Collector) Handler() http.Handler {
	gatherer := c.Gatherer()
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Observe records a telemetry snapshot.
func (c *Collector) Observe(tm Telemetry) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	mode := tm.Mode.String()
	if tm.Stage != c.last {
		if c.last != 0 {
			c.Stage.WithLabelValues(mode, c.last.String()).Set(0)
		}
		c.Stage.WithLabelValues(mode, tm.Stage.String()).Set(1)
		c.Transitions.WithLabelValues(mode, tm.Stage.String()).Inc()
		c.last = tm.Stage
	}
	setFinite(c.Distance, tm.Distance)
	setFinite(c.TimeToStart, tm.TimeToStart)
	setFinite(c.ManeuverΔv, tm.ΔV)
	setFinite(c.RemainingΔv, tm.Remaining)
	c.Iterations.Set(float64(tm.Iterations))
}

// setFinite leaves the gauge unchanged on NaN sentinels.
func setFinite(g prometheus.Gauge, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	g.Set(v)
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
