package pilot

import (
	"fmt"
	"math"
	"strings"

	kitlog "github.com/go-kit/kit/log"
)

// Stage is the state of a guidance.
type Stage uint8

const (
	// StageIdle waits for a search to start, or holds a best-effort candidate.
	StageIdle Stage = iota + 1
	// StageSearching runs the trajectory optimizer.
	StageSearching
	// StageExecuting drives a burn with the maneuver executor.
	StageExecuting
	// StageCoasting follows the chosen trajectory.
	StageCoasting
	// StageCorrecting applies a course correction.
	StageCorrecting
	// StageDone is final.
	StageDone
	// StageAborted is final.
	StageAborted
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageSearching:
		return "searching"
	case StageExecuting:
		return "executing"
	case StageCoasting:
		return "coasting"
	case StageCorrecting:
		return "correcting"
	case StageDone:
		return "done"
	case StageAborted:
		return "aborted"
	default:
		panic("unknown stage")
	}
}

// Final returns whether no further step changes the stage.
func (s Stage) Final() bool {
	return s == StageDone || s == StageAborted
}

// Mode selects the guidance of the autopilot.
type Mode uint8

const (
	// ModeAscent flies from the surface to a circular orbit.
	ModeAscent Mode = iota + 1
	// ModeRendezvous brings the vessel to an orbiting target.
	ModeRendezvous
	// ModeLanding lands the vessel on a surface site.
	ModeLanding
)

func (m Mode) String() string {
	switch m {
	case ModeAscent:
		return "ascent"
	case ModeRendezvous:
		return "rendezvous"
	case ModeLanding:
		return "landing"
	default:
		panic("unknown mode")
	}
}

// ModeFromString returns the mode of the provided name.
func ModeFromString(name string) (Mode, error) {
	switch strings.ToLower(name) {
	case "ascent", "toorbit":
		return ModeAscent, nil
	case "rendezvous":
		return ModeRendezvous, nil
	case "landing", "land":
		return ModeLanding, nil
	default:
		return 0, fmt.Errorf("unknown mode `%s`", name)
	}
}

// Telemetry is the read-only snapshot a guidance publishes every tick.
type Telemetry struct {
	UT          float64
	Mode        Mode
	Stage       Stage
	Phase       string
	Altitude    float64 // km
	Distance    float64 // km, negative while undefined
	TimeToStart float64 // s
	ΔV          float64 // km/s, maneuver magnitude
	Remaining   float64 // km/s, remaining Δv of the current burn
	SurfaceLat  float64 // deg, predicted landing point
	SurfaceLon  float64 // deg
	Iterations  int
	Outcome     Outcome
}

// Guidance is a per-tick step function driving the vessel toward one goal.
type Guidance interface {
	Name() string
	Mode() Mode
	Stage() Stage
	// Step runs one control tick and returns the resulting stage.
	Step() Stage
	Reset()
	Telemetry() Telemetry
}

// NewGuidance returns the guidance of the provided mode. Rendezvous and landing need a target:
// an orbiting target and a surface site respectively.
func NewGuidance(mode Mode, v Vessel, ctrl Controls, target Target, conf Config, logger kitlog.Logger) (Guidance, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	switch mode {
	case ModeAscent:
		return NewAscentGuidance(v, ctrl, conf, logger), nil
	case ModeRendezvous:
		if target == nil {
			return nil, fmt.Errorf("%s needs a target", mode)
		}
		return NewRendezvousGuidance(v, ctrl, target, conf, logger), nil
	case ModeLanding:
		site, ok := target.(SurfaceSite)
		if !ok {
			if ptr, isPtr := target.(*SurfaceSite); isPtr && ptr != nil {
				site, ok = *ptr, true
			}
		}
		if !ok {
			return nil, fmt.Errorf("%s needs a surface site, got %T", mode, target)
		}
		return NewLandingGuidance(v, ctrl, site, conf, logger), nil
	default:
		return nil, fmt.Errorf("unsupported mode %d", mode)
	}
}

// guidance holds what every guidance shares: collaborators, the maneuver executor and the
// stage machine.
type guidance struct {
	mode     Mode
	vessel   Vessel
	ctrl     Controls
	conf     Config
	executor *ManeuverExecutor
	stage    Stage
	lastUT   float64
	logger   kitlog.Logger
}

func newGuidance(mode Mode, v Vessel, ctrl Controls, conf Config, logger kitlog.Logger) guidance {
	logger = orNop(logger)
	return guidance{
		mode:     mode,
		vessel:   v,
		ctrl:     ctrl,
		conf:     conf,
		executor: NewManeuverExecutor(v, ctrl, conf.Executor, kitlog.With(logger, "component", "executor")),
		stage:    StageIdle,
		lastUT:   math.NaN(),
		logger:   logger,
	}
}

// Name implements the Guidance interface.
func (g *guidance) Name() string {
	return g.mode.String()
}

// Mode implements the Guidance interface.
func (g *guidance) Mode() Mode {
	return g.mode
}

// Stage implements the Guidance interface.
func (g *guidance) Stage() Stage {
	return g.stage
}

// setStage moves the stage machine and logs the transition.
func (g *guidance) setStage(s Stage, reason string) {
	if s == g.stage {
		return
	}
	level := "info"
	if s == StageAborted {
		level = "critical"
	}
	g.logger.Log("level", level, "mode", g.mode, "from", g.stage, "to", s, "reason", reason, "UT", g.vessel.UT())
	g.stage = s
}

// tick returns the time elapsed since the previous tick, zero on the first one.
func (g *guidance) tick() float64 {
	ut := g.vessel.UT()
	dt := 0.0
	if !math.IsNaN(g.lastUT) {
		dt = ut - g.lastUT
	}
	g.lastUT = ut
	return dt
}

// checkControl aborts when the vessel lost control authority.
func (g *guidance) checkControl() bool {
	if g.stage.Final() {
		return false
	}
	if !g.vessel.HasControl() {
		g.ctrl.SetThrottle(0)
		g.setStage(StageAborted, "lost control")
		return false
	}
	return true
}

// burnEnded maps the outcome of a finished burn onto the stage machine: it returns false
// and aborts when the burn did not complete.
func (g *guidance) burnEnded() bool {
	switch g.executor.Outcome() {
	case Complete, Overshot:
		return true
	default:
		g.setStage(StageAborted, "burn "+g.executor.Outcome().String())
		return false
	}
}

func (g *guidance) reset() {
	g.executor.Reset()
	g.stage = StageIdle
	g.lastUT = math.NaN()
}

// remainingΔv returns the velocity change which puts the vessel on the resulting orbit of t.
func remainingΔv(v Vessel, t Trajectory) []float64 {
	ut := v.UT()
	return sub(t.Orbit.VelocityAt(ut), v.Orbit().VelocityAt(ut))
}

// startWhenDue returns the executor condition which holds the engines until half the burn
// time before the start of the maneuver.
func startWhenDue(v Vessel, t Trajectory) func(float64) bool {
	return func(remaining float64) bool {
		return v.UT() >= t.StartUT-v.BurnTime(remaining)/2
	}
}

// telemetry fills the fields which every guidance shares.
func (g *guidance) telemetry(phase string) Telemetry {
	return Telemetry{
		UT:          g.vessel.UT(),
		Mode:        g.mode,
		Stage:       g.stage,
		Phase:       phase,
		Altitude:    g.vessel.Altitude(),
		Distance:    -1,
		TimeToStart: math.NaN(),
		Remaining:   g.executor.Remaining(),
		SurfaceLat:  math.NaN(),
		SurfaceLon:  math.NaN(),
		Outcome:     g.executor.Outcome(),
	}
}
