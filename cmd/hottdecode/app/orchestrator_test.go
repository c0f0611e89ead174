package app

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/roman-kulish/hott-telemetry/internal/histo"
	"github.com/roman-kulish/hott-telemetry/internal/hott"
	"github.com/roman-kulish/hott-telemetry/internal/infocache"
	"github.com/roman-kulish/hott-telemetry/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// writeFlight writes a receiver-only .bin recording of n blocks.
func writeFlight(t *testing.T, dir, name string, n int) string {
	t.Helper()
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		b := make([]byte, hott.BlockSize)
		b[3], b[4] = 40, 45
		b[7] = 0x80
		b[35] = byte(40 + i%20)
		b[36] = 45
		b[38] = 100
		b[39] = 48
		binary.LittleEndian.PutUint16(b[40:], 1)
		buf.Write(b)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOrchestratorRun(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	good := writeFlight(t, dir, "good.bin", 6000)
	short := writeFlight(t, dir, "short.bin", 100)

	store := storage.NewSqliteStore(filepath.Join(dir, "hott.sqlite"))
	defer store.Close()

	cache, err := infocache.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	decoder := DecoderConfig{Filter: hott.DefaultFilterConfig()}
	o := NewOrchestrator(store, decoder, discard, WithWorkers(2), WithMaxBatchSize(64), WithCache(cache))
	if err := o.Run(ctx, []string{good, short}); err == nil {
		t.Error("Expected an error for the short file")
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	var finished int
	for _, s := range sessions {
		if s.Summary == nil {
			continue
		}
		finished++
		if s.Source != good {
			t.Errorf("Expected finished session of %s, got %s", good, s.Source)
		}
		if s.Sensors != "[RECEIVER]" || s.Plan != hott.PlanReceiverOnly.String() {
			t.Errorf("Expected receiver-only detection, got %s %s", s.Sensors, s.Plan)
		}
		if s.Summary.Emitted != 600 {
			t.Errorf("Expected 600 samples, got %d", s.Summary.Emitted)
		}
	}
	if finished != 1 {
		t.Fatalf("Expected 1 finished session, got %d", finished)
	}

	st, err := os.Stat(good)
	if err != nil {
		t.Fatal(err)
	}
	entry, ok, err := cache.Get(good, st.Size(), st.ModTime())
	if err != nil || !ok {
		t.Fatalf("Expected cached entry, got %v %v", ok, err)
	}
	if entry.Sensors != "[RECEIVER]" || entry.Blocks != 6000 {
		t.Errorf("Expected [RECEIVER] over 6000 blocks, got %+v", entry)
	}
}

func TestOrchestratorSampling(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFlight(t, dir, "flight.bin", 6000)

	store := storage.NewSqliteStore(filepath.Join(dir, "hott.sqlite"))
	defer store.Close()

	decoder := DecoderConfig{
		Filter:   hott.DefaultFilterConfig(),
		Sampling: &histo.Config{Budget: 50, Seed: 1},
	}
	if err := NewOrchestrator(store, decoder, discard).Run(ctx, []string{path}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	sessions, err := store.Sessions(ctx)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("Expected 1 session, got %d (%v)", len(sessions), err)
	}
	s := sessions[0]
	if s.Summary == nil || s.Summary.SampledSlots == 0 {
		t.Fatalf("Expected sampling statistics, got %+v", s.Summary)
	}
	if s.Config == nil {
		t.Error("Expected stored decoder configuration")
	}

	r, err := store.ReadSamples(ctx, s.ID)
	if err != nil {
		t.Fatalf("ReadSamples failed: %v", err)
	}
	defer r.Close()

	var n int64
	for r.Next(ctx) {
		n++
	}
	if err := r.Error(); err != nil {
		t.Fatalf("Reading samples failed: %v", err)
	}
	if n != s.Summary.Emitted {
		t.Errorf("Expected %d stored samples, got %d", s.Summary.Emitted, n)
	}
}

func TestOrchestratorCancelled(t *testing.T) {
	dir := t.TempDir()
	path := writeFlight(t, dir, "flight.bin", 6000)

	store := storage.NewSqliteStore(filepath.Join(dir, "hott.sqlite"))
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := NewOrchestrator(store, DecoderConfig{Filter: hott.DefaultFilterConfig()}, discard)
	if err := o.Run(ctx, []string{path}); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
