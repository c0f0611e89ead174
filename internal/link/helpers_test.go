package link

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
)

// fakeTransport answers queries from per-sensor functions. A sensor without
// a function times out.
type fakeTransport struct {
	mu      sync.Mutex
	answers map[hott.SensorID]func(n int) ([]byte, error)
	calls   map[hott.SensorID]int
}

func newFakeTransport(answers map[hott.SensorID]func(n int) ([]byte, error)) *fakeTransport {
	return &fakeTransport{answers: answers, calls: make(map[hott.SensorID]int)}
}

func (f *fakeTransport) Query(_ context.Context, sensor hott.SensorID) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := Telegram(sensor); err != nil {
		return nil, err
	}
	n := f.calls[sensor]
	f.calls[sensor]++
	answer, ok := f.answers[sensor]
	if !ok {
		return nil, ErrTimeout
	}
	return answer(n)
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) count(sensor hott.SensorID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[sensor]
}

// answer builds a zeroed live answer of a sensor, as sent by a sensor the
// receiver has not heard from.
func answer(sensor hott.SensorID) []byte {
	b := make([]byte, hott.AnswerSize(sensor))
	b[0] = sensor.Code(hott.Gen115200)
	return b
}

func putInt16(b []byte, i int, v int) {
	binary.LittleEndian.PutUint16(b[i:], uint16(int16(v)))
}

func receiverAnswer(int) ([]byte, error) {
	b := answer(hott.SensorReceiver)
	b[4] = 45           // Rx dBm
	b[5] = 40           // Tx dBm
	putInt16(b, 10, 25) // temperature
	putInt16(b, 12, 1)  // VPacks
	b[14] = 90          // strength
	b[15] = 52          // voltage
	b[17] = 100         // RXSQ
	b[18] = 48          // minimum voltage
	return b, nil
}

// varioAnswer builds a vario answer reporting a height in metres.
func varioAnswer(height int) []byte {
	b := answer(hott.SensorVario)
	putInt16(b, 10, height)
	return b
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.QueryGap = Duration(time.Millisecond)
	cfg.TimeStep = Duration(2 * time.Millisecond)
	return cfg
}
