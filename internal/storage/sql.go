package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

//go:embed indexes.sql
var initIndexesSQL string

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      kind,
                      source,
                      format,
                      sensors,
                      plan,
                      channels,
                      config)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	finishSessionSQL = `
UPDATE sessions
SET finished         = 1,
    sensors          = COALESCE(NULLIF(?, ''), sensors),
    plan             = COALESCE(NULLIF(?, ''), plan),
    blocks           = ?,
    lost             = ?,
    loss_percent     = ?,
    emitted          = ?,
    duration_ms      = ?,
    loss_runs        = ?,
    loss_run_min     = ?,
    loss_run_max     = ?,
    loss_run_mean    = ?,
    loss_run_stddev  = ?,
    sampled_readings = ?,
    sampled_slots    = ?
WHERE
    id = ?`

	sessionColumns = `
    id,
    start_time,
    kind,
    source,
    format,
    sensors,
    plan,
    channels,
    config,
    finished,
    blocks,
    lost,
    loss_percent,
    emitted,
    duration_ms,
    loss_runs,
    loss_run_min,
    loss_run_max,
    loss_run_mean,
    loss_run_stddev,
    sampled_readings,
    sampled_slots`

	selectSessionSQL = `
SELECT ` + sessionColumns + `
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT ` + sessionColumns + `
FROM sessions
ORDER BY start_time, id`

	insertSampleSQL = `
INSERT INTO samples (
                     session_id,
                     time_ms,
                     points)
VALUES `

	insertSensorStatSQL = `
INSERT OR REPLACE INTO sensor_stats (
                                     session_id,
                                     sensor,
                                     accepted,
                                     rejected,
                                     migrations)
VALUES (?, ?, ?, ?, ?)`

	selectSensorStatsSQL = `
SELECT
    sensor,
    accepted,
    rejected,
    migrations
FROM sensor_stats
WHERE
    session_id = ?
ORDER BY sensor`

	insertLapSQL = `
INSERT INTO laps (
                  session_id,
                  number,
                  kind,
                  time_ms)
VALUES (?, ?, ?, ?)`

	selectLapsSQL = `
SELECT
    number,
    kind,
    time_ms
FROM laps
WHERE
    session_id = ?
ORDER BY rowid`

	selectSamplesSQL = `
SELECT
    time_ms,
    points
FROM samples
WHERE
    session_id = ?
    AND time_ms BETWEEN ? AND ?
ORDER BY id`

	selectSampleCountSQL = `
SELECT
    COUNT(*)
FROM samples
WHERE
    session_id = ?`
)
