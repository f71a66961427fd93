// Package telemetry provides this repo's Telemetry implementations: a
// no-op, and CollectorTelemetry backed by the in-process trafficstats
// counters. See DESIGN.md for why no metrics backend is wired in.
package telemetry

import "eternalterm/application"

type noop struct{}

// NoOp returns a Telemetry that discards every observation.
func NoOp() application.Telemetry { return noop{} }

func (noop) IncSessionsStarted()    {}
func (noop) IncReconnects()         {}
func (noop) ObserveReplayBytes(int) {}
