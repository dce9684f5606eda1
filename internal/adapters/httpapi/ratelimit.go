package httpapi

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxTrackedClients = 10000

// clientLimiter applies a token bucket per client address.
type clientLimiter struct {
	mu       sync.Mutex
	rps      float64
	burst    int
	limiters map[string]*rate.Limiter
}

// newClientLimiter returns nil when rps is not positive, which disables limiting.
func newClientLimiter(rps float64, burst int) *clientLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &clientLimiter{
		rps:      rps,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether client may proceed and, if not, how long to wait.
func (l *clientLimiter) Allow(client string) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}

	l.mu.Lock()
	lim, ok := l.limiters[client]
	if !ok {
		if len(l.limiters) >= maxTrackedClients {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.limiters[client] = lim
	}
	l.mu.Unlock()

	if lim.Allow() {
		return true, 0
	}
	return false, time.Duration(math.Ceil(float64(time.Second) / l.rps))
}
