// Package telemetry converts decoded point vectors into physical units.
package telemetry

import (
	"time"

	"github.com/roman-kulish/hott-telemetry/internal/hott"
)

// Telemetry is one decoded sample in physical units. Fields of sensors that
// are not part of the session are nil.
type Telemetry struct {
	Timestamp   time.Time `json:"timestamp"`   // Wall clock of the sample
	TimeMs      int64     `json:"timeMs"`      // Session time of the sample
	LossPercent float64   `json:"lossPercent"` // Rolling package loss in percent

	// Receiver
	RXSQ            *float64 `json:"rxsq,omitempty"`            // Signal quality in percent
	Strength        *float64 `json:"strength,omitempty"`        // Signal strength in percent
	TxDBm           *float64 `json:"txDBm,omitempty"`           // Transmitter link margin in dBm
	RxDBm           *float64 `json:"rxDBm,omitempty"`           // Receiver link margin in dBm
	ReceiverVoltage *float64 `json:"receiverVoltage,omitempty"` // Receiver supply in volts
	ReceiverTemp    *float64 `json:"receiverTemp,omitempty"`    // Receiver temperature in °C

	// Shared by vario, GPS and the air modules
	Altitude *float64 `json:"altitude,omitempty"` // Altitude in meters
	Climb    *float64 `json:"climb,omitempty"`    // Climb rate in m/s

	// GPS
	Latitude     *float64 `json:"latitude,omitempty"`     // Latitude in degrees
	Longitude    *float64 `json:"longitude,omitempty"`    // Longitude in degrees
	GroundSpeed  *float64 `json:"groundSpeed,omitempty"`  // Ground speed in m/s
	GroundCourse *float64 `json:"groundCourse,omitempty"` // Direction in degrees
	Distance     *float64 `json:"distance,omitempty"`     // Distance from home in meters
	Satellites   *int64   `json:"satellites,omitempty"`

	// Battery, from the ESC or an air module
	BatteryVoltage *float64 `json:"batteryVoltage,omitempty"` // Volts
	Current        *float64 `json:"current,omitempty"`        // Amperes
	Capacity       *float64 `json:"capacity,omitempty"`       // Consumed mAh
}

// FromPoints converts a sample. start is the wall clock of session time zero.
func FromPoints(start time.Time, s hott.Sample, layout hott.Layout, d hott.Detection) *Telemetry {
	p := s.Points
	t := &Telemetry{
		Timestamp:   start.Add(time.Duration(s.TimeMs) * time.Millisecond),
		TimeMs:      s.TimeMs,
		LossPercent: scaled(p, hott.PointLoss, 1),
	}
	if len(p) < layout.Size() {
		return t
	}

	if d.Has(hott.SensorReceiver) {
		t.RXSQ = ptr(scaled(p, hott.PointRXSQ, 1))
		t.Strength = ptr(scaled(p, hott.PointStrength, 1))
		t.TxDBm = ptr(scaled(p, hott.PointTx, 1))
		t.RxDBm = ptr(scaled(p, hott.PointRx, 1))
		t.ReceiverVoltage = ptr(scaled(p, hott.PointVoltageRx, 0.1))
		t.ReceiverTemp = ptr(scaled(p, hott.PointTempRx, 1))
	}

	if d.Has(hott.SensorVario) || d.Has(hott.SensorGPS) || d.Has(hott.SensorGAM) || d.Has(hott.SensorEAM) {
		t.Altitude = ptr(scaled(p, hott.PointAltitude, 1))
		// Climb channels hold cm/s scaled by 10.
		t.Climb = ptr(scaled(p, hott.PointClimb1, 0.01))
	}

	if d.Has(hott.SensorGPS) {
		t.Latitude = ptr(Degrees(p[hott.PointLatitude]))
		t.Longitude = ptr(Degrees(p[hott.PointLongitude]))
		t.GroundSpeed = ptr(scaled(p, hott.PointVelocity, 1/3.6))
		t.GroundCourse = ptr(scaled(p, hott.PointDirection, 2))
		t.Distance = ptr(scaled(p, hott.PointDistance, 1))
		sats := int64(p[hott.PointSats] / 1000)
		t.Satellites = &sats
	}

	switch {
	case d.Has(hott.SensorESC):
		base := layout.ESCBase()
		t.BatteryVoltage = ptr(scaled(p, base+hott.ESCVoltage, 0.1))
		t.Current = ptr(scaled(p, base+hott.ESCCurrent, 0.1))
		t.Capacity = ptr(scaled(p, base+hott.ESCCapacity, 10))
	case d.Has(hott.SensorEAM):
		t.BatteryVoltage = ptr(scaled(p, hott.PointEAMVoltage, 0.1))
		t.Current = ptr(scaled(p, hott.PointEAMCurrent, 0.1))
		t.Capacity = ptr(scaled(p, hott.PointEAMCapacity, 10))
	case d.Has(hott.SensorGAM):
		t.BatteryVoltage = ptr(scaled(p, hott.PointGAMVoltage, 0.1))
		t.Current = ptr(scaled(p, hott.PointGAMCurrent, 0.1))
		t.Capacity = ptr(scaled(p, hott.PointGAMCapacity, 10))
	}

	return t
}

// Degrees converts a coordinate in the degree*1e6 + minute*1e4 encoding of
// the GPS module into decimal degrees.
func Degrees(v int) float64 {
	sign := 1.0
	if v < 0 {
		sign, v = -1, -v
	}
	deg := v / 1000000
	minutes := float64(v%1000000) / 10000
	return sign * (float64(deg) + minutes/60)
}

func scaled(p hott.Points, i int, unit float64) float64 {
	return float64(p[i]) / 1000 * unit
}

func ptr(v float64) *float64 {
	return &v
}
