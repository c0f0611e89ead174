package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roman-kulish/hott-telemetry/internal/flight"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && !errors.Is(cErr, sql.ErrTxDone) && *err == nil {
		*err = cErr
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*flight.Session, error) {
	var d sessionData
	err := row.Scan(
		&d.ID,
		&d.StartTime,
		&d.Kind,
		&d.Source,
		&d.Format,
		&d.Sensors,
		&d.Plan,
		&d.Channels,
		&d.Config,
		&d.Finished,
		&d.Blocks,
		&d.Lost,
		&d.LossPercent,
		&d.Emitted,
		&d.DurationMs,
		&d.LossRuns,
		&d.LossRunMin,
		&d.LossRunMax,
		&d.LossRunMean,
		&d.LossRunStdDev,
		&d.SampledReadings,
		&d.SampledSlots,
	)
	if err != nil {
		return nil, err
	}
	return toSession(&d), nil
}

func toSession(d *sessionData) *flight.Session {
	s := &flight.Session{
		ID:        d.ID,
		StartTime: d.StartTime,
		Kind:      flight.Kind(d.Kind),
		Source:    d.Source,
		Format:    d.Format,
		Sensors:   d.Sensors,
		Plan:      d.Plan,
		Channels:  d.Channels,
	}
	if d.Config.Valid {
		s.Config = &d.Config.String
	}
	if d.Finished {
		s.Summary = &flight.Summary{
			Sensors:         d.Sensors,
			Plan:            d.Plan,
			Blocks:          d.Blocks,
			Lost:            d.Lost,
			LossPercent:     d.LossPercent,
			Emitted:         d.Emitted,
			DurationMs:      d.DurationMs,
			LossRuns:        d.LossRuns,
			LossRunMin:      d.LossRunMin,
			LossRunMax:      d.LossRunMax,
			LossRunMean:     d.LossRunMean,
			LossRunStdDev:   d.LossRunStdDev,
			SampledReadings: d.SampledReadings,
			SampledSlots:    d.SampledSlots,
		}
	}
	return s
}

func toNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func encodePoints(points []int) (string, error) {
	p, err := json.Marshal(points)
	if err != nil {
		return "", fmt.Errorf("encoding points: %w", err)
	}
	return string(p), nil
}

func decodePoints(s string) ([]int, error) {
	var points []int
	if err := json.Unmarshal([]byte(s), &points); err != nil {
		return nil, fmt.Errorf("decoding points: %w", err)
	}
	return points, nil
}
