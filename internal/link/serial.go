package link

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.bug.st/serial"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
)

// port is the part of serial.Port the transport uses.
type port interface {
	io.ReadWriteCloser
	ResetInputBuffer() error
}

// SerialTransport talks to the HoTT USB adapter. A read returning no data
// means the read timeout elapsed.
type SerialTransport struct {
	port   port
	name   string
	logger *slog.Logger
}

// OpenSerial opens the configured port at 8N1.
func OpenSerial(cfg Config, logger *slog.Logger) (*SerialTransport, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("link.Config: port must be set")
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Port, err)
	}
	if err := p.SetReadTimeout(time.Duration(cfg.ReadTimeout)); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("setting read timeout on %s: %w", cfg.Port, err)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With(slog.String("port", cfg.Port))
	logger.Info("serial port opened", slog.Int("baud", cfg.BaudRate))

	return newSerialTransport(p, cfg.Port, logger), nil
}

func newSerialTransport(p port, name string, logger *slog.Logger) *SerialTransport {
	return &SerialTransport{port: p, name: name, logger: logger}
}

// Query sends the sensor's telegram and reads its answer. The adapter sends
// the sensor data only; the sensor code is put in front of it.
func (t *SerialTransport) Query(ctx context.Context, sensor hott.SensorID) ([]byte, error) {
	telegram, err := Telegram(sensor)
	if err != nil {
		return nil, err
	}

	if err := t.port.ResetInputBuffer(); err != nil {
		return nil, fmt.Errorf("%s: reset input: %w", t.name, err)
	}
	if _, err := t.port.Write(telegram); err != nil {
		return nil, fmt.Errorf("%s: write %s query: %w", t.name, sensor, err)
	}

	answer := make([]byte, hott.AnswerSize(sensor))
	answer[0] = sensor.Code(hott.Gen115200)
	data := answer[1:]
	for n := 0; n < len(data); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := t.port.Read(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%s: read %s answer: %w", t.name, sensor, err)
		}
		if m == 0 {
			if n == 0 {
				return nil, ErrTimeout
			}
			return nil, fmt.Errorf("%w: %d of %d bytes", ErrShortAnswer, n, len(data))
		}
		n += m
	}
	return answer, nil
}

func (t *SerialTransport) Close() error {
	t.logger.Info("closing serial port")
	return t.port.Close()
}
