package pilot

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

var telemetryHeader = []string{"JD", "UT", "mode", "stage", "phase", "altitude", "distance", "timeToStart", "dv", "remaining", "lat", "lon", "iterations", "outcome"}

// TelemetryExporter writes telemetry snapshots as CSV rows stamped with their Julian date.
type TelemetryExporter struct {
	w      *csv.Writer
	closer io.Closer
	epoch  time.Time
	rows   int
}

// NewTelemetryExporter writes to w. epoch is the date of UT=0.
func NewTelemetryExporter(w io.Writer, epoch time.Time) *TelemetryExporter {
	return &TelemetryExporter{w: csv.NewWriter(w), epoch: epoch.UTC()}
}

// OpenTelemetryExporter creates the output file of the configuration.
func OpenTelemetryExporter(conf TelemetryConfig) (*TelemetryExporter, error) {
	epoch, err := conf.EpochTime()
	if err != nil {
		return nil, err
	}
	f, err := os.Create(conf.Output)
	if err != nil {
		return nil, fmt.Errorf("could not create telemetry output: %w", err)
	}
	e := NewTelemetryExporter(f, epoch)
	e.closer = f
	return e, nil
}

// EpochTime parses the date of UT=0.
func (c TelemetryConfig) EpochTime() (time.Time, error) {
	if c.Epoch == "" {
		return time.Time{}, fmt.Errorf("no telemetry epoch")
	}
	epoch, err := time.Parse(time.RFC3339, c.Epoch)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid telemetry epoch: %w", err)
	}
	return epoch.UTC(), nil
}

// JD returns the Julian date of the provided UT.
func (e *TelemetryExporter) JD(ut float64) float64 {
	return julian.TimeToJD(e.epoch.Add(time.Duration(ut * float64(time.Second))))
}

// Write appends the snapshot, preceded by the header on the first call.
func (e *TelemetryExporter) Write(tm Telemetry) error {
	if e.rows == 0 {
		if err := e.w.Write(telemetryHeader); err != nil {
			return err
		}
	}
	f := func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	record := []string{
		strconv.FormatFloat(e.JD(tm.UT), 'f', 8, 64),
		f(tm.UT),
		tm.Mode.String(),
		tm.Stage.String(),
		tm.Phase,
		f(tm.Altitude),
		f(tm.Distance),
		f(tm.TimeToStart),
		f(tm.ΔV),
		f(tm.Remaining),
		f(tm.SurfaceLat),
		f(tm.SurfaceLon),
		strconv.Itoa(tm.Iterations),
		tm.Outcome.String(),
	}
	if err := e.w.Write(record); err != nil {
		return err
	}
	e.rows++
	return nil
}

// Rows returns the number of snapshots written.
func (e *TelemetryExporter) Rows() int {
	return e.rows
}

// Flush writes any buffered data.
func (e *TelemetryExporter) Flush() error {
	e.w.Flush()
	return e.w.Error()
}

// Close flushes and closes the underlying file, if any.
func (e *TelemetryExporter) Close() error {
	err := e.Flush()
	if e.closer != nil {
		if cerr := e.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
