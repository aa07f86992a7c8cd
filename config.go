package pilot

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// TrajectoryConfig tunes the trajectory searches.
type TrajectoryConfig struct {
	DVTol             float64 // km/s
	MinPeA            float64 // km
	MaxIterations     int
	PerTickIterations int
	ManeuverOffset    float64 // s
	CorrectionOffset  float64 // s
}

// ExecutorConfig tunes the maneuver executor.
type ExecutorConfig struct {
	MinDeltaV         float64 // km/s
	FuzzyLower        float64 // km/s
	FuzzyUpper        float64 // km/s
	StallWindow       int     // ticks
	StallEpsilon      float64 // km/s
	ThrottleTau       float64 // s
	AlignmentError    float64 // deg
	StopAtMinimum     bool
	ThrustWhenAligned bool
}

// AscentConfig tunes the to-orbit guidance.
type AscentConfig struct {
	TargetAltitude     float64 // km
	TargetInclination  float64 // deg, only used for the plane correction
	MaxG               float64
	MinThrottle        float64 // %
	MinClimbTime       float64 // s
	MaxDynPressure     float64 // kPa
	AtmDensityOffset   float64 // kg/m^3
	AtmDensityCutoff   float64 // kg/m^3
	AscentEccentricity float64
	GravityTurnAngle   float64 // deg
	GTurnOffset        float64
	MaxAoA             float64 // deg
	Dtol               float64 // km
	TimeToApA          float64 // s
	MinTimeToApA       float64 // s
	MaxTimeToApA       float64 // s
	CircularizeMargin  float64 // s
	ThrottleTau        float64 // s
	PitchPID           PIDConfig
	ThrottlePID        PIDConfig
	NormPID            PIDConfig
}

// RendezvousConfig tunes the rendezvous guidance.
type RendezvousConfig struct {
	Dtol               float64 // km
	MaxTTR             float64 // periods of the vessel orbit
	MinTransfer        float64 // s
	CorrectionDistance float64 // km
	MatchSpeed         float64 // km/s
	VesselRadius       float64 // km
}

// LandingConfig tunes the landing guidance.
type LandingConfig struct {
	Dtol                float64 // km
	FlyOverAlt          float64 // km
	BrakeFactor         float64
	BrakeOffset         float64
	MaxBrakeIterations  int
	CorrectionThreshold float64 // km
	TouchdownSpeed      float64 // km/s
	DescentPID          PIDConfig
}

// SimConfig tunes the simulated vessel.
type SimConfig struct {
	Step        float64 // s, integration step
	Tick        float64 // s, control tick
	ThrustNoise float64 // standard deviation of the relative thrust error
	TurnRate    float64 // deg/s
	RCSAccel    float64 // km/s^2
	Seed        int64
}

// TelemetryConfig sets where telemetry goes.
type TelemetryConfig struct {
	Output string
	Epoch  string // RFC3339 date of UT=0
}

// Config is threaded through every constructor: there is no global configuration.
type Config struct {
	Trajectory TrajectoryConfig
	Executor   ExecutorConfig
	Ascent     AscentConfig
	Rendezvous RendezvousConfig
	Landing    LandingConfig
	Sim        SimConfig
	Telemetry  TelemetryConfig
}

// DefaultConfig returns the default tunables.
func DefaultConfig() Config {
	return Config{
		Trajectory: TrajectoryConfig{
			DVTol:             1e-5,
			MinPeA:            10,
			MaxIterations:     1000,
			PerTickIterations: 10,
			ManeuverOffset:    60,
			CorrectionOffset:  20,
		},
		Executor: ExecutorConfig{
			MinDeltaV:         1e-4,
			FuzzyLower:        5e-4,
			FuzzyUpper:        1e-3,
			StallWindow:       100,
			StallEpsilon:      1e-6,
			ThrottleTau:       1,
			AlignmentError:    5,
			ThrustWhenAligned: true,
		},
		Ascent: AscentConfig{
			TargetAltitude:     200,
			MaxG:               3,
			MinThrottle:        10,
			MinClimbTime:       5,
			MaxDynPressure:     10,
			AtmDensityOffset:   1,
			AtmDensityCutoff:   0.01,
			AscentEccentricity: 0.3,
			GravityTurnAngle:   30,
			GTurnOffset:        0.1,
			MaxAoA:             10,
			Dtol:               0.1,
			TimeToApA:          40,
			MinTimeToApA:       5,
			MaxTimeToApA:       300,
			CircularizeMargin:  5,
			ThrottleTau:        0.5,
			PitchPID:           PIDConfig{P: 1, I: 0.05, D: 0.1, Min: -10, Max: 10},
			ThrottlePID:        PIDConfig{P: 0.05, I: 0.005, D: 0, Min: -0.5, Max: 0.5},
			NormPID:            PIDConfig{P: 1, I: 0.01, D: 0, Min: -5, Max: 5},
		},
		Rendezvous: RendezvousConfig{
			Dtol:               0.1,
			MaxTTR:             3,
			MinTransfer:        120,
			CorrectionDistance: 5,
			MatchSpeed:         1e-4,
			VesselRadius:       0.01,
		},
		Landing: LandingConfig{
			Dtol:                1,
			FlyOverAlt:          0.5,
			BrakeFactor:         0.9,
			BrakeOffset:         1.1,
			MaxBrakeIterations:  100,
			CorrectionThreshold: 10,
			TouchdownSpeed:      2e-3,
			DescentPID:          PIDConfig{P: 0.5, I: 0.01, D: 0.05, Min: -1, Max: 1},
		},
		Sim: SimConfig{
			Step:     0.05,
			Tick:     0.1,
			TurnRate: 15,
			RCSAccel: 2e-5,
			Seed:     1,
		},
		Telemetry: TelemetryConfig{
			Epoch: "2026-01-01T00:00:00Z",
		},
	}
}

// Validate returns an error when the configuration cannot drive the autopilot.
func (c Config) Validate() error {
	if c.Trajectory.MaxIterations <= 0 || c.Trajectory.PerTickIterations <= 0 {
		return errors.New("trajectory iteration budgets must be positive")
	}
	if c.Trajectory.PerTickIterations > c.Trajectory.MaxIterations {
		return fmt.Errorf("per tick iterations (%d) exceed the total budget (%d)", c.Trajectory.PerTickIterations, c.Trajectory.MaxIterations)
	}
	if c.Executor.FuzzyLower > c.Executor.FuzzyUpper {
		return fmt.Errorf("executor fuzzy threshold is inverted: lower=%f upper=%f", c.Executor.FuzzyLower, c.Executor.FuzzyUpper)
	}
	if c.Executor.MinDeltaV <= 0 {
		return errors.New("executor minimum Δv must be positive")
	}
	if c.Executor.StallWindow < 2 {
		return errors.New("stall window must hold at least two samples")
	}
	if c.Ascent.MaxG <= 0 {
		return errors.New("ascent max G must be positive")
	}
	if c.Ascent.AtmDensityOffset < c.Ascent.AtmDensityCutoff {
		return errors.New("ascent atmosphere density offset is below the cutoff")
	}
	if c.Trajectory.DVTol <= 0 {
		return errors.New("trajectory Δv tolerance must be positive")
	}
	if c.Ascent.MinTimeToApA > c.Ascent.MaxTimeToApA {
		return errors.New("ascent time to apoapsis bounds are inverted")
	}
	if c.Sim.Step <= 0 || c.Sim.Tick <= 0 {
		return errors.New("simulation step and tick must be positive")
	}
	return nil
}

// LoadConfig reads a TOML configuration on top of the defaults.
// Every key may be overridden with a PILOT_ prefixed environment variable,
// e.g. PILOT_ASCENT_MAXG.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	registerDefaults(v, "", reflect.ValueOf(DefaultConfig()))
	v.SetEnvPrefix("pilot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			v.SetConfigName("pilot")
			v.AddConfigPath(path)
		} else {
			v.SetConfigFile(path)
		}
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("could not read configuration %s: %w", path, err)
		}
	}
	conf := DefaultConfig()
	if err := v.Unmarshal(&conf); err != nil {
		return Config{}, fmt.Errorf("could not decode configuration: %w", err)
	}
	return conf, conf.Validate()
}

// LoadConfigFromEnv loads pilot.toml from the directory in $PILOT_CONFIG, if set.
func LoadConfigFromEnv() (Config, error) {
	return LoadConfig(os.Getenv("PILOT_CONFIG"))
}

// registerDefaults declares every leaf of the configuration so that viper knows
// which environment variables to look for.
func registerDefaults(v *viper.Viper, prefix string, val reflect.Value) {
	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		key := strings.ToLower(t.Field(i).Name)
		if prefix != "" {
			key = prefix + "." + key
		}
		field := val.Field(i)
		if field.Kind() == reflect.Struct {
			registerDefaults(v, key, field)
			continue
		}
		v.SetDefault(key, field.Interface())
	}
}
