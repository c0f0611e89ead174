package telemetry

// Provider returns the latest telemetry snapshot, or nil before the first one.
type Provider interface {
	Get() *Telemetry
}
