package pilot

import (
	kitlog "github.com/go-kit/kit/log"
)

// Autopilot ties a guidance to its telemetry consumers.
type Autopilot struct {
	Guidance  Guidance
	Collector *Collector         // optional
	Exporter  *TelemetryExporter // optional
	logger    kitlog.Logger
	last      Telemetry
	ticks     int
}

// NewAutopilot returns an autopilot running the guidance of the provided mode.
func NewAutopilot(mode Mode, v Vessel, ctrl Controls, target Target, conf Config, logger kitlog.Logger) (*Autopilot, error) {
	logger = orNop(logger)
	g, err := NewGuidance(mode, v, ctrl, target, conf, kitlog.With(logger, "component", "guidance"))
	if err != nil {
		return nil, err
	}
	return &Autopilot{Guidance: g, logger: logger}, nil
}

// Tick runs one control step and publishes its telemetry snapshot.
func (a *Autopilot) Tick() Telemetry {
	a.Guidance.Step()
	tm := a.Guidance.Telemetry()
	a.Collector.Observe(tm)
	if a.Exporter != nil {
		if err := a.Exporter.Write(tm); err != nil {
			a.logger.Log("level", "warning", "status", "telemetry export failed", "err", err)
			a.Exporter = nil
		}
	}
	if tm.Stage != a.last.Stage || tm.Phase != a.last.Phase {
		a.logger.Log("level", "notice", "mode", tm.Mode, "stage", tm.Stage, "phase", tm.Phase, "UT", tm.UT, "altitude(km)", tm.Altitude)
	}
	a.last = tm
	a.ticks++
	return tm
}

// Done returns whether the guidance reached a final stage.
func (a *Autopilot) Done() bool {
	return a.Guidance.Stage().Final()
}

// Ticks returns the number of ticks run.
func (a *Autopilot) Ticks() int {
	return a.ticks
}

// Last returns the last telemetry snapshot.
func (a *Autopilot) Last() Telemetry {
	return a.last
}
