// Package link gathers telemetry from a HoTT receiver over a live serial
// adapter.
package link

import (
	"context"
	"errors"
	"fmt"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
)

var (
	// ErrTimeout is returned when a query is not answered within the read
	// timeout. It wraps hott.ErrNoAnswer so live detection skips the sensor.
	ErrTimeout = fmt.Errorf("read timeout: %w", hott.ErrNoAnswer)

	// ErrUnsupportedSensor is returned for sensors the adapter has no query
	// telegram for.
	ErrUnsupportedSensor = fmt.Errorf("sensor cannot be queried: %w", hott.ErrNoAnswer)

	// ErrTooManyTransferErrors ends a gathering session once the transfer error
	// limit is exceeded.
	ErrTooManyTransferErrors = errors.New("too many transfer errors")

	// ErrShortAnswer is returned when an answer ends before its full length.
	ErrShortAnswer = errors.New("short answer")
)

// Transport exchanges one query for one answer: the sensor code of the query
// followed by the sensor's data, hott.AnswerSize bytes in total.
type Transport interface {
	Query(ctx context.Context, sensor hott.SensorID) ([]byte, error)
	Close() error
}

// telegrams are the 115200 baud query telegrams: a fixed preamble, the
// sensor code and a CRC.
var telegrams = map[hott.SensorID][]byte{
	hott.SensorReceiver: {0x00, 0x03, 0xFC, 0x00, 0x00, 0x04, 0x34, 0x13, 0xBA},
	hott.SensorGAM:      {0x00, 0x03, 0xFC, 0x00, 0x00, 0x04, 0x35, 0x32, 0xAA},
	hott.SensorEAM:      {0x00, 0x03, 0xFC, 0x00, 0x00, 0x04, 0x36, 0x51, 0x9A},
	hott.SensorVario:    {0x00, 0x03, 0xFC, 0x00, 0x00, 0x04, 0x37, 0x70, 0x8A},
	hott.SensorGPS:      {0x00, 0x03, 0xFC, 0x00, 0x00, 0x04, 0x38, 0x9F, 0x7B},
}

// Telegram returns the query telegram of a sensor.
func Telegram(sensor hott.SensorID) ([]byte, error) {
	t, ok := telegrams[sensor]
	if !ok {
		return nil, fmt.Errorf("%s: %w", sensor, ErrUnsupportedSensor)
	}
	return t, nil
}
