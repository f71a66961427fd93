package eventloop

import (
	"sync"
	"time"
)

// newlineRateLimiter is the crude PTY-to-client backpressure spec.md
// §4.6 calls for: once more than maxNewlinesPerSecond newline bytes have
// been observed in the current wall-clock second, Allow reports false
// until the next second begins. Packet ordering is unaffected; this only
// pauses further reads from the PTY.
type newlineRateLimiter struct {
	max int

	mu     sync.Mutex
	second int64
	count  int
}

func newNewlineRateLimiter(maxNewlinesPerSecond int) *newlineRateLimiter {
	return &newlineRateLimiter{max: maxNewlinesPerSecond}
}

// Allow records newlineCount newlines from the most recent read and
// reports whether the caller may keep reading from the PTY this second.
func (l *newlineRateLimiter) Allow(newlineCount int) bool {
	now := time.Now().Unix()

	l.mu.Lock()
	defer l.mu.Unlock()
	if now != l.second {
		l.second = now
		l.count = 0
	}
	l.count += newlineCount
	return l.count <= l.max
}
