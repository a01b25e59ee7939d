// Package retry implements the RetryPolicy decision procedure: a pure
// function from (close code, close reason, attempt) to an optional backoff
// delay. Pacing the execution of an accepted decision is ReconnectLimiter's
// job (limiter.go), not the policy's.
package retry

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"

	"wsconnector/internal/proto"
)

// Policy computes the backoff delay for a given 1-indexed retry attempt.
// Implementations are pure and stateless; attempt numbering and limits are
// handled by RetryPolicy, not by the Policy itself.
type Policy interface {
	Delay(attempt uint32) time.Duration
}

// Linear grows the delay proportionally to the attempt number: scale*attempt.
type Linear struct {
	Scale time.Duration
}

func (p Linear) Delay(attempt uint32) time.Duration {
	return p.Scale * time.Duration(attempt)
}

// Equal returns the same fixed interval for every attempt.
type Equal struct {
	Interval time.Duration
}

func (p Equal) Delay(uint32) time.Duration { return p.Interval }

// Random returns a uniformly distributed delay in [Min, Max]. RandFn is
// optional and defaults to math/rand/v2's global source; tests inject a
// deterministic one.
type Random struct {
	Min, Max time.Duration
	RandFn   func() float64
}

func (p Random) Delay(uint32) time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	randFn := p.RandFn
	if randFn == nil {
		randFn = rand.Float64
	}
	span := p.Max - p.Min
	return p.Min + time.Duration(randFn()*float64(span))
}

// Exponential returns scale*base^attempt. The arithmetic is delegated to
// github.com/cenkalti/backoff/v4's ExponentialBackOff rather than
// reimplemented: configuring InitialInterval=scale*base, Multiplier=base and
// RandomizationFactor=0 makes the library's own growth curve compute exactly
// this recurrence (NextBackOff's n-th call returns
// InitialInterval*Multiplier^(n-1) = scale*base^n).
type Exponential struct {
	Base  float64
	Scale time.Duration
}

func (p Exponential) Delay(attempt uint32) time.Duration {
	if attempt == 0 {
		return 0
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     time.Duration(float64(p.Scale) * p.Base),
		RandomizationFactor: 0,
		Multiplier:          p.Base,
		MaxInterval:         time.Duration(math.MaxInt64),
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	var d time.Duration
	for i := uint32(0); i < attempt; i++ {
		d = b.NextBackOff()
	}
	return d
}

// Filter decides whether a close should never be retried regardless of
// attempt count, e.g. rejecting application-level closes above a threshold.
type Filter func(code proto.CloseCode, reason *proto.CloseReason) bool

// RetryPolicy is the full decision procedure: a Policy paired with an
// attempt ceiling and an optional Filter.
type RetryPolicy struct {
	Policy Policy
	Limits uint32
	Filter Filter
}

// Retry implements the three-step procedure:
//  1. Filter(code, reason) == true → refuse.
//  2. attempt > Limits → refuse.
//  3. Otherwise, Policy.Delay(attempt).
//
// attempt is 1-indexed: the first retry is attempt 1.
func (rp RetryPolicy) Retry(code proto.CloseCode, reason *proto.CloseReason, attempt uint32) (time.Duration, bool) {
	if rp.Policy == nil {
		return 0, false
	}
	if rp.Filter != nil && rp.Filter(code, reason) {
		return 0, false
	}
	if attempt > rp.Limits {
		return 0, false
	}
	d := rp.Policy.Delay(attempt)
	if d < 0 {
		d = 0
	}
	return d, true
}
