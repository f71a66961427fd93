package telemetry

import (
	"sync/atomic"

	"eternalterm/application"
	"eternalterm/infrastructure/telemetry/trafficstats"
)

// CollectorTelemetry is an application.Telemetry backed by a
// trafficstats.Collector: session/reconnect counts are tracked directly,
// and ObserveReplayBytes feeds the collector's TX throughput rate so an
// operator can see bytes/sec committed to the replay buffer, which
// roughly tracks session traffic even before per-direction RX/TX
// recorders are attached to a live BackedReader/BackedWriter pair.
type CollectorTelemetry struct {
	collector        *trafficstats.Collector
	sessionsStarted  atomic.Uint64
	reconnectedCount atomic.Uint64
}

// NewCollectorTelemetry wraps collector as an application.Telemetry.
func NewCollectorTelemetry(collector *trafficstats.Collector) *CollectorTelemetry {
	return &CollectorTelemetry{collector: collector}
}

func (t *CollectorTelemetry) IncSessionsStarted() { t.sessionsStarted.Add(1) }
func (t *CollectorTelemetry) IncReconnects()      { t.reconnectedCount.Add(1) }

func (t *CollectorTelemetry) ObserveReplayBytes(n int) {
	t.collector.AddTX(n)
}

// SessionsStarted and Reconnects expose the plain counters for a status
// line or health endpoint; trafficstats.Collector.Snapshot covers
// throughput.
func (t *CollectorTelemetry) SessionsStarted() uint64 { return t.sessionsStarted.Load() }
func (t *CollectorTelemetry) Reconnects() uint64      { return t.reconnectedCount.Load() }

var _ application.Telemetry = (*CollectorTelemetry)(nil)
