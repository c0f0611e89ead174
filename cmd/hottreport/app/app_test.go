package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/roman-kulish/hott-telemetry/internal/flight"
	"github.com/roman-kulish/hott-telemetry/internal/hott"
	"github.com/roman-kulish/hott-telemetry/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// seedStore stores one finished session with receiver samples and laps.
func seedStore(t *testing.T) (string, int64) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "hott.sqlite")
	store := storage.NewSqliteStore(path)
	defer store.Close()

	id, err := store.CreateSession(ctx, &flight.Session{
		Kind:    flight.KindFile,
		Source:  "flight.bin",
		Format:  "bin",
		Sensors: "[RECEIVER]",
		Plan:    hott.PlanReceiverOnly.String(),
	})
	if err != nil {
		t.Fatal(err)
	}

	size := hott.Layout{}.Size()
	var samples []flight.Sample
	for i := 0; i < 10; i++ {
		p := make([]int, size)
		p[hott.PointLoss] = i * 10 * 1000
		p[hott.PointVoltageRx] = (50 + i) * 100
		samples = append(samples, flight.Sample{TimeMs: int64(i * 100), Points: p})
	}
	if err := store.StoreSamples(ctx, id, samples); err != nil {
		t.Fatal(err)
	}
	if err := store.StoreLaps(ctx, id, []flight.Lap{
		{Number: 1, Kind: flight.LapRegular, Time: 65 * time.Second},
		{Kind: flight.LapBest, Time: 65 * time.Second},
	}); err != nil {
		t.Fatal(err)
	}
	summary := flight.Summary{Blocks: 10000, Lost: 120, LossPercent: 1.2, Emitted: 10, DurationMs: 100000, LossRuns: 4, LossRunMax: 60}
	if err := store.FinishSession(ctx, id, summary, []flight.SensorStat{{Sensor: "RECEIVER", Accepted: 1000}}); err != nil {
		t.Fatal(err)
	}
	return path, id
}

func TestRunTextReport(t *testing.T) {
	path, id := seedStore(t)

	var out bytes.Buffer
	config := &Config{DBPath: path, SessionID: id, Format: OutputText}
	if err := Run(context.Background(), config, &out, discard); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	report := out.String()
	for _, want := range []string{"flight.bin", "10,000", "RECEIVER", "1m5s", "rx.voltage", "90-99%"} {
		if !strings.Contains(report, want) {
			t.Errorf("Expected %q in report:\n%s", want, report)
		}
	}
	if strings.Contains(report, "gps.latitude") {
		t.Errorf("Expected idle channels to be left out:\n%s", report)
	}
}

func TestRunJSONReport(t *testing.T) {
	path, id := seedStore(t)
	from := int64(500)

	var out bytes.Buffer
	config := &Config{DBPath: path, SessionID: id, Format: OutputJSON, StartTimeMs: &from}
	if err := Run(context.Background(), config, &out, discard); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var r Report
	if err := json.Unmarshal(out.Bytes(), &r); err != nil {
		t.Fatalf("Expected JSON report, got %v", err)
	}
	if r.Samples != 5 {
		t.Errorf("Expected 5 samples from 500 ms on, got %d", r.Samples)
	}
	if len(r.Laps) != 2 {
		t.Errorf("Expected 2 laps, got %d", len(r.Laps))
	}
	var found bool
	for _, c := range r.Channels {
		if c.Name == "rx.voltage" {
			found = true
			if c.Min != 5.5 || c.Max != 5.9 {
				t.Errorf("Expected receiver voltage 5.5..5.9, got %v..%v", c.Min, c.Max)
			}
		}
	}
	if !found {
		t.Error("Expected receiver voltage channel")
	}
}

func TestRunList(t *testing.T) {
	path, _ := seedStore(t)

	var out bytes.Buffer
	if err := Run(context.Background(), &Config{DBPath: path, List: true, Format: OutputText}, &out, discard); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(out.String(), "flight.bin") || !strings.Contains(out.String(), "1m40s") {
		t.Errorf("Expected the session in the list, got:\n%s", out.String())
	}

	if err := Run(context.Background(), &Config{DBPath: filepath.Join(t.TempDir(), "missing.sqlite"), List: true}, &out, discard); err == nil {
		t.Error("Expected error for a missing database")
	}
}
