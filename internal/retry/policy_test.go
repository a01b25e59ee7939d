package retry_test

import (
	"testing"
	"time"

	"wsconnector/internal/proto"
	"wsconnector/internal/retry"
)

// TestLinearBackoffLimitExceeded covers
// RetryPolicy{Linear(scale=0.5), limits=3}, attempts 1..4 -> [0.5, 1.0, 1.5, None].
func TestLinearBackoffLimitExceeded(t *testing.T) {
	t.Parallel()

	rp := retry.RetryPolicy{
		Policy: retry.Linear{Scale: 500 * time.Millisecond},
		Limits: 3,
	}

	want := []time.Duration{
		500 * time.Millisecond,
		1000 * time.Millisecond,
		1500 * time.Millisecond,
	}
	for i, w := range want {
		attempt := uint32(i + 1)
		d, ok := rp.Retry(proto.CloseAbnormalClosure, proto.ReasonForMonitor(), attempt)
		if !ok {
			t.Fatalf("attempt %d: expected retry, got refused", attempt)
		}
		if d != w {
			t.Fatalf("attempt %d: delay = %v, want %v", attempt, d, w)
		}
	}

	if _, ok := rp.Retry(proto.CloseAbnormalClosure, proto.ReasonForMonitor(), 4); ok {
		t.Fatalf("attempt 4 exceeds limits=3, expected refusal")
	}
}

// TestExponentialBackoff covers
// {Exponential(base=2, scale=0.25), limits=5}, attempts 1..5 -> [0.5,1.0,2.0,4.0,8.0]s.
func TestExponentialBackoff(t *testing.T) {
	t.Parallel()

	rp := retry.RetryPolicy{
		Policy: retry.Exponential{Base: 2, Scale: 250 * time.Millisecond},
		Limits: 5,
	}

	want := []time.Duration{
		500 * time.Millisecond,
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
	}
	for i, w := range want {
		attempt := uint32(i + 1)
		d, ok := rp.Retry(proto.CloseAbnormalClosure, proto.ReasonForMonitor(), attempt)
		if !ok {
			t.Fatalf("attempt %d: expected retry, got refused", attempt)
		}
		if d != w {
			t.Fatalf("attempt %d: delay = %v, want %v", attempt, d, w)
		}
	}
}

// TestFilterRejectsApplicationClose covers a filter that rejects
// application-level close codes above a threshold regardless of attempt.
func TestFilterRejectsApplicationClose(t *testing.T) {
	t.Parallel()

	rp := retry.RetryPolicy{
		Policy: retry.Equal{Interval: time.Second},
		Limits: 10,
		Filter: func(code proto.CloseCode, _ *proto.CloseReason) bool {
			return code.Raw() > 4000
		},
	}

	reason := proto.ReasonForServer(nil)
	if _, ok := rp.Retry(proto.CloseCodeFromRaw(4500), reason, 1); ok {
		t.Fatalf("filter should have refused application close above 4000")
	}
}

func TestEqualPolicyConstantInterval(t *testing.T) {
	t.Parallel()

	p := retry.Equal{Interval: 2 * time.Second}
	if d := p.Delay(1); d != 2*time.Second {
		t.Fatalf("Delay(1) = %v, want 2s", d)
	}
	if d := p.Delay(50); d != 2*time.Second {
		t.Fatalf("Delay(50) = %v, want 2s", d)
	}
}

func TestRandomPolicyBounds(t *testing.T) {
	t.Parallel()

	calls := []float64{0, 0.5, 0.999}
	i := 0
	p := retry.Random{
		Min: time.Second,
		Max: 3 * time.Second,
		RandFn: func() float64 {
			v := calls[i]
			i++
			return v
		},
	}

	if d := p.Delay(1); d != time.Second {
		t.Fatalf("Delay() at rand=0 = %v, want 1s", d)
	}
	if d := p.Delay(1); d != 2*time.Second {
		t.Fatalf("Delay() at rand=0.5 = %v, want 2s", d)
	}
	if d := p.Delay(1); d < 2900*time.Millisecond || d > 3*time.Second {
		t.Fatalf("Delay() at rand=0.999 = %v, want close to 3s", d)
	}
}

func TestNoRetrierNeverRetries(t *testing.T) {
	t.Parallel()

	var rp retry.RetryPolicy // zero value: no Policy configured
	if _, ok := rp.Retry(proto.CloseAbnormalClosure, proto.ReasonForError(1, "net"), 1); ok {
		t.Fatalf("zero-value RetryPolicy must never retry")
	}
}

func TestReconnectLimiterDisabledAlwaysAllows(t *testing.T) {
	t.Parallel()

	l := retry.NewReconnectLimiter(0, 0)
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatalf("disabled limiter refused at iteration %d", i)
		}
	}
}

func TestReconnectLimiterBurstThenThrottles(t *testing.T) {
	t.Parallel()

	l := retry.NewReconnectLimiter(1, 2)
	if !l.Allow() {
		t.Fatalf("first token should be available")
	}
	if !l.Allow() {
		t.Fatalf("second token (burst=2) should be available")
	}
	if l.Allow() {
		t.Fatalf("third immediate call should be throttled")
	}
}
