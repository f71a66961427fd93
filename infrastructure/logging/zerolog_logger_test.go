package logging

import "testing"

func TestNewReturnsNonNilLogger(t *testing.T) {
	l := New()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	// Should not panic regardless of formatting args.
	l.Infof("hello %s", "world")
	derived := l.WithField("client_id", "abc0123456789012")
	derived.Warnf("reconnect attempt %d", 1)
}
