// Package logging builds the command loggers.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 25
	defaultMaxAgeDays = 7
	defaultMaxBackups = 5
)

// Settings holds the logging section of a command configuration.
type Settings struct {
	LogLevel string `yaml:"logLevel"`

	// LogFile enables a rotated log file next to stderr output.
	LogFile    string `yaml:"logFile"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

func (s *Settings) Validate() error {
	if s.LogLevel == "" {
		s.LogLevel = slog.LevelInfo.String()
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return fmt.Errorf("logging.Settings: invalid log level %q", s.LogLevel)
	}
	if s.MaxSizeMB < 0 || s.MaxAgeDays < 0 || s.MaxBackups < 0 {
		return errors.New("logging.Settings: rotation limits must not be negative")
	}
	if s.MaxSizeMB == 0 {
		s.MaxSizeMB = defaultMaxSizeMB
	}
	if s.MaxAgeDays == 0 {
		s.MaxAgeDays = defaultMaxAgeDays
	}
	if s.MaxBackups == 0 {
		s.MaxBackups = defaultMaxBackups
	}
	return nil
}

// New returns a text logger writing to w at the level held by level.
func New(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Apply sets the level from the settings and, when a log file is configured,
// returns a logger writing to both stderr and the rotated file. The returned
// closer releases the file.
func Apply(s Settings, level *slog.LevelVar) (*slog.Logger, io.Closer, error) {
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return nil, nil, fmt.Errorf("setting log level: %w", err)
	}
	if s.LogFile == "" {
		return New(os.Stderr, level), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(s.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   s.LogFile,
		MaxSize:    s.MaxSizeMB,
		MaxAge:     s.MaxAgeDays,
		MaxBackups: s.MaxBackups,
		Compress:   s.Compress,
	}
	return New(io.MultiWriter(os.Stderr, rotator), level), rotator, nil
}
