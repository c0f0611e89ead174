package telemetry

import "log/slog"

// LogValue implements slog.LogValuer. Fields of absent sensors are omitted.
func (t *Telemetry) LogValue() slog.Value {
	if t == nil {
		return slog.GroupValue()
	}

	attrs := []slog.Attr{
		slog.Int64("timeMs", t.TimeMs),
		slog.Float64("loss", t.LossPercent),
	}
	add := func(key string, v *float64) {
		if v != nil {
			attrs = append(attrs, slog.Float64(key, *v))
		}
	}
	add("rxsq", t.RXSQ)
	add("strength", t.Strength)
	add("rxVoltage", t.ReceiverVoltage)
	add("altitude", t.Altitude)
	add("climb", t.Climb)
	add("latitude", t.Latitude)
	add("longitude", t.Longitude)
	add("groundSpeed", t.GroundSpeed)
	if t.Satellites != nil {
		attrs = append(attrs, slog.Int64("satellites", *t.Satellites))
	}
	add("voltage", t.BatteryVoltage)
	add("current", t.Current)
	add("capacity", t.Capacity)
	return slog.GroupValue(attrs...)
}
