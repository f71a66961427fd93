package eventloop

import "testing"

func TestNewlineRateLimiterAllowsUnderCap(t *testing.T) {
	l := newNewlineRateLimiter(10)
	if !l.Allow(5) {
		t.Fatalf("expected allow under cap")
	}
	if !l.Allow(5) {
		t.Fatalf("expected allow at cap")
	}
}

func TestNewlineRateLimiterBlocksOverCap(t *testing.T) {
	l := newNewlineRateLimiter(10)
	l.Allow(8)
	if l.Allow(5) {
		t.Fatalf("expected block over cap within same second")
	}
}
