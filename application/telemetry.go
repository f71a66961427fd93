package application

// Telemetry is a narrow contract so session/reconnect/port-forward code
// has somewhere to report counters without reaching into a concrete
// metrics backend; see infrastructure/telemetry.NoOp and
// infrastructure/telemetry.CollectorTelemetry for the implementations
// this repo provides.
type Telemetry interface {
	IncSessionsStarted()
	IncReconnects()
	ObserveReplayBytes(n int)
}
