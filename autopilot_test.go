package pilot

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAutopilotTick(t *testing.T) {
	v, ctrl := newFakeVessel(), &fakeControls{}
	station := NewOrbitTarget("station", NewCircularOrbit(7500, Earth, 0))
	var logs bytes.Buffer
	a, err := NewAutopilot(ModeRendezvous, v, ctrl, station, DefaultConfig(), NewLogger(&logs, "pilot"))
	if err != nil {
		t.Fatal(err)
	}
	a.Collector, err = NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	a.Exporter = NewTelemetryExporter(&out, time.Unix(0, 0))
	for i := 0; i < 3; i++ {
		a.Tick()
	}
	if a.Ticks() != 3 || a.Done() {
		t.Fatalf("%d ticks, done=%v", a.Ticks(), a.Done())
	}
	if a.Last().Stage != StageSearching || a.Last().Iterations == 0 {
		t.Fatalf("last telemetry %+v", a.Last())
	}
	if v := testutil.ToFloat64(a.Collector.Ticks); v != 3 {
		t.Fatalf("collector saw %f ticks", v)
	}
	if err := a.Exporter.Flush(); err != nil {
		t.Fatal(err)
	}
	if a.Exporter.Rows() != 3 || strings.Count(out.String(), "\n") != 4 {
		t.Fatalf("exported\n%s", out.String())
	}
	if !strings.Contains(logs.String(), "stage=searching") {
		t.Fatalf("stage change not logged:\n%s", logs.String())
	}
	v.control = false
	a.Tick()
	if !a.Done() || a.Last().Stage != StageAborted {
		t.Fatal("lost control should end the autopilot")
	}
}

func TestNewAutopilotError(t *testing.T) {
	if _, err := NewAutopilot(ModeLanding, newFakeVessel(), &fakeControls{}, nil, DefaultConfig(), nil); err == nil {
		t.Fatal("landing without a site")
	}
}
