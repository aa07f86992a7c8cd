package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"

	kitlog "github.com/go-kit/kit/log"
	"github.com/orbitpilot/pilot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

// This command reads a scenario and flies it with a simulated vessel.

const defaultScenario = "~~unset~~"

var (
	scenario string
	confPath string
	verbose  bool
)

func init() {
	flag.StringVar(&scenario, "scenario", defaultScenario, "scenario TOML file")
	flag.StringVar(&confPath, "config", "", "autopilot configuration (TOML file or directory holding pilot.toml), defaults to $PILOT_CONFIG")
	flag.BoolVar(&verbose, "verbose", false, "log the scenario")
}

func main() {
	flag.Parse()
	if scenario == defaultScenario {
		log.Fatal("no scenario provided")
	}
	scenario = strings.Replace(scenario, ".toml", "", 1)
	viper.AddConfigPath(".")
	viper.SetConfigName(scenario)
	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("./%s.toml: Error %s", scenario, err)
	}
	var (
		conf pilot.Config
		err  error
	)
	if confPath != "" {
		conf, err = pilot.LoadConfig(confPath)
	} else {
		conf, err = pilot.LoadConfigFromEnv()
	}
	if err != nil {
		log.Fatalf("configuration: %s", err)
	}
	if out := viper.GetString("mission.telemetry"); out != "" {
		conf.Telemetry.Output = out
	}
	logger := pilot.NewLogger(os.Stdout, "pilot")

	mode, err := pilot.ModeFromString(viper.GetString("mission.mode"))
	if err != nil {
		log.Fatal(err)
	}
	body, err := pilot.BodyFromString(viper.GetString("mission.body"))
	if err != nil {
		log.Fatalf("could not understand body `%s`: %s", viper.GetString("mission.body"), err)
	}
	vessel, target, err := readScenario(mode, body, conf, logger)
	if err != nil {
		log.Fatal(err)
	}
	if verbose {
		logger.Log("level", "info", "mode", mode, "body", body, "orbit", vessel.Orbit(), "target", targetName(target))
	}

	ap, err := pilot.NewAutopilot(mode, vessel, vessel, target, conf, logger)
	if err != nil {
		log.Fatal(err)
	}
	if conf.Telemetry.Output != "" {
		exporter, err := pilot.OpenTelemetryExporter(conf.Telemetry)
		if err != nil {
			log.Fatal(err)
		}
		ap.Exporter = exporter
	}
	if addr := viper.GetString("mission.metrics"); addr != "" {
		collector, err := pilot.NewCollector(prometheus.NewRegistry())
		if err != nil {
			log.Fatal(err)
		}
		ap.Collector = collector
		go func() {
			if err := http.ListenAndServe(addr, collector.Handler()); err != nil {
				logger.Log("level", "warning", "status", "metrics server stopped", "err", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	// Zero ticks per second runs as fast as possible.
	limit := rate.Inf
	if tps := viper.GetFloat64("mission.realtime"); tps > 0 {
		limit = rate.Limit(tps / conf.Sim.Tick)
	}
	limiter := rate.NewLimiter(limit, 1)
	duration := viper.GetFloat64("mission.duration")
	if duration <= 0 {
		duration = math.Inf(1)
	}
	start := vessel.UT()
	for !ap.Done() && vessel.UT()-start < duration {
		if err := limiter.Wait(ctx); err != nil {
			logger.Log("level", "warning", "status", "interrupted", "err", err)
			break
		}
		ap.Tick()
		vessel.Tick(conf.Sim.Tick)
	}
	if ap.Exporter != nil {
		if err := ap.Exporter.Close(); err != nil {
			logger.Log("level", "warning", "status", "could not close telemetry", "err", err)
		}
	}
	last := ap.Last()
	logger.Log("level", "notice", "status", "finished", "stage", last.Stage, "phase", last.Phase, "UT", vessel.UT(), "ticks", ap.Ticks(),
		"altitude(km)", vessel.Altitude(), "mass(kg)", vessel.Mass(), "orbit", vessel.Orbit())
	if vessel.Landed() {
		logger.Log("level", "notice", "touchdown(m/s)", vessel.TouchdownSpeed()*1e3)
	}
	if last.Stage == pilot.StageAborted {
		os.Exit(1)
	}
}

func targetName(t pilot.Target) string {
	if t == nil {
		return "none"
	}
	return t.Name()
}

// readScenario builds the simulated vessel and the target of the mode.
func readScenario(mode pilot.Mode, body pilot.Body, conf pilot.Config, logger kitlog.Logger) (*pilot.SimVessel, pilot.Target, error) {
	engine := pilot.Engine{Thrust: viper.GetFloat64("vessel.thrust"), Isp: viper.GetFloat64("vessel.isp")}
	mass := viper.GetFloat64("vessel.mass")
	dry := viper.GetFloat64("vessel.dry")
	simLogger := kitlog.With(logger, "component", "sim")
	site := pilot.NewSurfaceSite(viper.GetString("site.name"), viper.GetFloat64("site.lat"), viper.GetFloat64("site.lon"), viper.GetFloat64("site.alt"), body)
	switch mode {
	case pilot.ModeAscent:
		v, err := pilot.NewLandedSimVessel(site, 0, mass, dry, engine, conf.Sim, simLogger)
		return v, nil, err
	case pilot.ModeRendezvous:
		o, err := readOrbit("orbit", body)
		if err != nil {
			return nil, nil, err
		}
		to, err := readOrbit("target", body)
		if err != nil {
			return nil, nil, err
		}
		v, err := pilot.NewSimVessel(o, mass, dry, engine, conf.Sim, simLogger)
		return v, pilot.NewOrbitTarget(viper.GetString("target.name"), to), err
	default:
		o, err := readOrbit("orbit", body)
		if err != nil {
			return nil, nil, err
		}
		v, err := pilot.NewSimVessel(o, mass, dry, engine, conf.Sim, simLogger)
		return v, site, err
	}
}

func readOrbit(section string, body pilot.Body) (*pilot.Orbit, error) {
	if !viper.IsSet(section + ".sma") {
		return nil, fmt.Errorf("missing [%s] orbit", section)
	}
	return pilot.NewOrbitFromOE(
		viper.GetFloat64(section+".sma"),
		viper.GetFloat64(section+".ecc"),
		viper.GetFloat64(section+".inc"),
		viper.GetFloat64(section+".RAAN"),
		viper.GetFloat64(section+".argPeri"),
		viper.GetFloat64(section+".tAnomaly"),
		body, 0), nil
}
