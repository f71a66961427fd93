package telemetry

import (
	"testing"
	"time"

	"eternalterm/infrastructure/telemetry/trafficstats"
)

func TestCollectorTelemetryCounters(t *testing.T) {
	c := trafficstats.NewCollector(time.Second, 0)
	tel := NewCollectorTelemetry(c)

	tel.IncSessionsStarted()
	tel.IncSessionsStarted()
	tel.IncReconnects()

	if got := tel.SessionsStarted(); got != 2 {
		t.Fatalf("SessionsStarted = %d, want 2", got)
	}
	if got := tel.Reconnects(); got != 1 {
		t.Fatalf("Reconnects = %d, want 1", got)
	}
}

func TestCollectorTelemetryObserveReplayBytesFeedsTXTotal(t *testing.T) {
	c := trafficstats.NewCollector(time.Second, 0)
	tel := NewCollectorTelemetry(c)

	tel.ObserveReplayBytes(128)
	tel.ObserveReplayBytes(256)

	snap := c.Snapshot()
	if snap.TXBytesTotal != 384 {
		t.Fatalf("TXBytesTotal = %d, want 384", snap.TXBytesTotal)
	}
}
