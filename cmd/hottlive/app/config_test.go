package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
	"github.com/roman-kulish/hott-telemetry/internal/link"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "defaults",
			data: "link:\n  port: /dev/ttyUSB0\n",
			check: func(t *testing.T, c *Config) {
				if c.Link.BaudRate != link.DefaultBaudRate || time.Duration(c.Link.ReadTimeout) != link.DefaultReadTimeout {
					t.Errorf("Expected default link timings, got %+v", c.Link)
				}
				if time.Duration(c.ReportInterval) != defaultReportInterval {
					t.Errorf("Expected report interval %s, got %s", defaultReportInterval, c.ReportInterval)
				}
				if c.Sensors != nil {
					t.Error("Expected sensors to be probed")
				}
			},
		},
		{
			name: "fixed sensors",
			data: "link:\n  port: COM3\n  timeStep: 200ms\nsensors: \"[RECEIVER,GPS]\"\nreportInterval: 1s\n",
			check: func(t *testing.T, c *Config) {
				if c.Sensors == nil || !c.Sensors.Has(hott.SensorGPS) {
					t.Errorf("Expected GPS in fixed sensors, got %v", c.Sensors)
				}
				if time.Duration(c.Link.TimeStep) != 200*time.Millisecond {
					t.Errorf("Expected time step 200ms, got %s", c.Link.TimeStep)
				}
			},
		},
		{name: "no port", data: "reportInterval: 1s\n", wantErr: true},
		{name: "gap longer than step", data: "link:\n  port: COM3\n  queryGap: 1s\n", wantErr: true},
		{name: "bad duration", data: "link:\n  port: COM3\n  readTimeout: soon\n", wantErr: true},
		{name: "unknown sensor", data: "link:\n  port: COM3\nsensors: \"[RADAR]\"\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0o600); err != nil {
				t.Fatal(err)
			}
			c, err := LoadConfig(path)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig failed: %v", err)
			}
			tt.check(t, c)
		})
	}
}
