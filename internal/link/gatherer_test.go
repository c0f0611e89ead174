package link

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
)

func TestProbeRetriesOnTimeout(t *testing.T) {
	ft := newFakeTransport(map[hott.SensorID]func(int) ([]byte, error){
		hott.SensorReceiver: func(n int) ([]byte, error) {
			if n == 0 {
				return nil, ErrTimeout
			}
			return receiverAnswer(n)
		},
	})
	g := NewGatherer(ft, testConfig())

	b, err := g.Probe(context.Background(), hott.SensorReceiver)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if len(b) != hott.AnswerSize(hott.SensorReceiver) {
		t.Errorf("Expected a %d byte answer, got %d", hott.AnswerSize(hott.SensorReceiver), len(b))
	}
	st := g.Stats()
	if st.Queries != 2 || st.Timeouts != 1 {
		t.Errorf("Expected 2 queries and 1 timeout, got %d and %d", st.Queries, st.Timeouts)
	}

	// A sensor that never answers gives up after the retry.
	if _, err := g.Probe(context.Background(), hott.SensorGPS); !errors.Is(err, hott.ErrNoAnswer) {
		t.Errorf("Expected ErrNoAnswer, got %v", err)
	}
	if got := ft.count(hott.SensorGPS); got != 2 {
		t.Errorf("Expected 2 GPS queries, got %d", got)
	}
}

func TestDetect(t *testing.T) {
	ft := newFakeTransport(map[hott.SensorID]func(int) ([]byte, error){
		hott.SensorReceiver: receiverAnswer,
		hott.SensorVario:    func(int) ([]byte, error) { return varioAnswer(250), nil },
		// An absent GPS is answered with zeroed values.
		hott.SensorGPS: func(int) ([]byte, error) { return answer(hott.SensorGPS), nil },
		hott.SensorGAM: func(int) ([]byte, error) {
			b := answer(hott.SensorGAM)
			putInt16(b, 36, 120) // 12.0 V
			return b, nil
		},
	})
	g := NewGatherer(ft, testConfig())

	d, err := g.Detect(context.Background())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	for _, sensor := range []hott.SensorID{hott.SensorReceiver, hott.SensorVario, hott.SensorGAM} {
		if !d.Has(sensor) {
			t.Errorf("Expected %s to be detected", sensor)
		}
	}
	for _, sensor := range []hott.SensorID{hott.SensorGPS, hott.SensorEAM, hott.SensorESC} {
		if d.Has(sensor) {
			t.Errorf("Expected %s not to be detected", sensor)
		}
	}
}

func TestGathererReceiverOnly(t *testing.T) {
	ft := newFakeTransport(map[hott.SensorID]func(int) ([]byte, error){
		hott.SensorReceiver: receiverAnswer,
	})
	g := NewGatherer(ft, testConfig())

	samples := make(chan hott.Sample)
	stopped, err := g.Start(context.Background(), hott.NewDetection(), samples)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if _, err := g.Start(context.Background(), hott.NewDetection(), samples); err == nil {
		t.Error("Expected error starting a running gatherer")
	}

	var last int64 = -1
	for i := 0; i < 3; i++ {
		select {
		case s := <-samples:
			if s.TimeMs < last {
				t.Errorf("Expected non-decreasing time, got %d after %d", s.TimeMs, last)
			}
			last = s.TimeMs
			if s.Points[hott.PointVoltageRx] != 52000 {
				t.Errorf("Expected receiver voltage 52000, got %d", s.Points[hott.PointVoltageRx])
			}
		case err := <-stopped:
			t.Fatalf("Gathering stopped early: %v", err)
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for samples")
		}
	}

	tm := g.Get()
	if tm == nil || tm.ReceiverVoltage == nil {
		t.Fatal("Expected telemetry with receiver voltage")
	}
	if *tm.ReceiverVoltage < 5.19 || *tm.ReceiverVoltage > 5.21 {
		t.Errorf("Expected receiver voltage 5.2, got %f", *tm.ReceiverVoltage)
	}

	g.Stop()
	if g.IsRunning() {
		t.Error("Expected gatherer to be stopped")
	}
	if err, ok := <-stopped; ok {
		t.Errorf("Expected clean stop, got %v", err)
	}
}

func TestGathererTransferErrorLimit(t *testing.T) {
	ft := newFakeTransport(nil)
	cfg := testConfig()
	cfg.TransferErrorLimit = 3

	g := NewGatherer(ft, cfg)
	stopped, err := g.Start(context.Background(), hott.NewDetection(), make(chan hott.Sample, 16))
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case err := <-stopped:
		if !errors.Is(err, ErrTooManyTransferErrors) {
			t.Errorf("Expected ErrTooManyTransferErrors, got %v", err)
		}
	case <-time.After(2 * time.Second):
		g.Stop()
		t.Fatal("Timed out waiting for the transfer error limit")
	}

	if st := g.Stats(); st.Session.Lost == 0 {
		t.Error("Expected unanswered queries to be counted as lost frames")
	}
}

func TestGathererRotatesSensors(t *testing.T) {
	ft := newFakeTransport(map[hott.SensorID]func(int) ([]byte, error){
		hott.SensorReceiver: receiverAnswer,
		hott.SensorVario:    func(int) ([]byte, error) { return varioAnswer(300), nil },
		hott.SensorGPS:      func(int) ([]byte, error) { return answer(hott.SensorGPS), nil },
	})
	filter := hott.DefaultFilterConfig()
	filter.AltitudeSource = hott.AltitudeVario
	g := NewGatherer(ft, testConfig(), WithFilter(filter))

	samples := make(chan hott.Sample, 64)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := g.Start(ctx, hott.NewDetection(hott.SensorVario, hott.SensorGPS, hott.SensorESC), samples); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var last hott.Sample
	for n := 0; n < 4 && ctx.Err() == nil; {
		select {
		case last = <-samples:
			n++
		case <-ctx.Done():
		}
	}
	g.Stop()

	if v, p := ft.count(hott.SensorVario), ft.count(hott.SensorGPS); v < 2 || p < 2 || v-p > 1 || p-v > 1 {
		t.Errorf("Expected vario and GPS to take turns, got %d and %d queries", v, p)
	}
	if ft.count(hott.SensorESC) != 0 {
		t.Errorf("Expected the ESC never to be queried, got %d", ft.count(hott.SensorESC))
	}
	if got := last.Points[hott.PointAltitude]; got != 300000 {
		t.Errorf("Expected vario altitude 300000, got %d", got)
	}
	if st := g.Stats().Session.Sensors[hott.SensorVario]; st.Accepted < 2 {
		t.Errorf("Expected accepted vario answers, got %+v", st)
	}
}
