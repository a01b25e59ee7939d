package retry

import (
	"golang.org/x/time/rate"
)

// ReconnectLimiter is a reconnect burst guard: a token bucket the Supervisor
// consults immediately before arming a reopen timer, bounding total reopen
// attempts per second regardless of what the configured Policy computes, so
// a pathological policy (e.g. Equal{0}) cannot spin the Supervisor in a
// tight reconnect loop. When no token is available the reopen is not
// deferred: the Supervisor settles Closed just as if the policy had refused.
type ReconnectLimiter struct {
	limiter *rate.Limiter
}

// NewReconnectLimiter builds a limiter allowing burst immediate reopens and
// refilling at ratePerSecond thereafter. ratePerSecond <= 0 disables the
// guard (Allow always succeeds).
func NewReconnectLimiter(ratePerSecond float64, burst int) *ReconnectLimiter {
	if ratePerSecond <= 0 {
		return &ReconnectLimiter{}
	}
	if burst < 1 {
		burst = 1
	}
	return &ReconnectLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// Allow reports whether a reopen may proceed now. A disabled limiter (zero
// value, or constructed with ratePerSecond<=0) always allows.
func (l *ReconnectLimiter) Allow() bool {
	if l == nil || l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}
