package hott

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	text := block(0x89, 1, nil)
	text[6] = 0x01

	lowTx := block(0x89, 1, nil)
	lowTx[3] = 0

	lowRx := block(0x89, 1, nil)
	lowRx[4] = 0

	tests := []struct {
		name   string
		raw    []byte
		kind   FrameKind
		sensor SensorID
		gen    Generation
		known  bool
	}{
		{name: "vario 19200", raw: block(0x89, 1, nil), kind: FrameTelemetry, sensor: SensorVario, gen: Gen19200, known: true},
		{name: "gps 115200", raw: block(0x38, 2, nil), kind: FrameTelemetry, sensor: SensorGPS, gen: Gen115200, known: true},
		{name: "unknown id", raw: block(0x11, 0, nil), kind: FrameTelemetry},
		{name: "text mode", raw: text, kind: FrameText, sensor: SensorVario, known: true},
		{name: "index out of range", raw: block(0x89, 5, nil), kind: FrameIdle},
		{name: "zero tx", raw: lowTx, kind: FrameIdle},
		{name: "zero rx", raw: lowRx, kind: FrameIdle},
		{name: "empty block", raw: idleBlock(), kind: FrameIdle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Classify(tt.raw)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if f.Kind != tt.kind {
				t.Fatalf("Expected kind %s, got %s", tt.kind, f.Kind)
			}
			if tt.kind == FrameIdle {
				return
			}
			if f.KnownSensor != tt.known {
				t.Fatalf("Expected known %v, got %v", tt.known, f.KnownSensor)
			}
			if tt.known && (f.Sensor != tt.sensor || f.Generation != tt.gen) {
				t.Errorf("Expected %s/%s, got %s/%s", tt.sensor, tt.gen, f.Sensor, f.Generation)
			}
			if len(f.Payload) != PayloadSize {
				t.Errorf("Expected payload of %d bytes, got %d", PayloadSize, len(f.Payload))
			}
		})
	}
}

func TestClassifyInvalidSize(t *testing.T) {
	_, err := Classify(make([]byte, 23))
	if !errors.Is(err, ErrInvalidBlockSize) {
		t.Fatalf("Expected ErrInvalidBlockSize, got %v", err)
	}
}

func TestHasReceiverData(t *testing.T) {
	f, _ := Classify(block(0x80, 0, receiverPayload(50, 45, 100, 48, 3)))
	if !f.HasReceiverData() {
		t.Errorf("Expected receiver data in sub-block 0")
	}

	f, _ = Classify(block(0x80, 1, receiverPayload(50, 45, 100, 48, 3)))
	if f.HasReceiverData() {
		t.Errorf("Expected no receiver data in sub-block 1")
	}

	f, _ = Classify(block(0x80, 0, receiverPayload(50, 45, 0x80, 48, 3)))
	if f.HasReceiverData() {
		t.Errorf("Expected no receiver data with inactive RXSQ")
	}
}

func TestSensorCodes(t *testing.T) {
	for _, s := range AuxiliarySensors {
		for _, g := range []Generation{Gen19200, Gen115200} {
			got, gen, ok := SensorFromCode(s.Code(g))
			if !ok || got != s || gen != g {
				t.Errorf("Expected %s/%s round trip, got %s/%s (%v)", s, g, got, gen, ok)
			}
		}
	}
	if SensorChannel.Code(Gen19200) != 0 {
		t.Errorf("Expected channel sensor to have no bus id")
	}
}
