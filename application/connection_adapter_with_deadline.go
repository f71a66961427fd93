package application

import "time"

// ConnectionAdapterWithDeadline is a ConnectionAdapter whose soft I/O
// timeouts (milliseconds to seconds for data, several seconds for control
// protos) are configurable per call.
type ConnectionAdapterWithDeadline interface {
	ConnectionAdapter
	SetDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}
