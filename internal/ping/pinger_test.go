package ping_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wsconnector/internal/clock"
	"wsconnector/internal/ping"
	"wsconnector/internal/proto"
)

// fakeTimer and fakeClock give the test full control over when scheduled
// callbacks fire, avoiding real sleeps.
type fakeTimer struct {
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu    sync.Mutex
	timer *fakeTimer
	fn    func()
}

func (c *fakeClock) Now() time.Time { return time.Unix(0, 0) }

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timer = &fakeTimer{}
	c.fn = f
	return c.timer
}

// fire invokes the most recently scheduled callback, if it wasn't stopped.
func (c *fakeClock) fire() {
	c.mu.Lock()
	timer, fn := c.timer, c.fn
	c.mu.Unlock()
	if timer != nil && !timer.stopped && fn != nil {
		fn()
	}
}

type fakeSupervisor struct {
	mu         sync.Mutex
	pingErr    error
	closedCode proto.CloseCode
	closedReas *proto.CloseReason
	closed     bool
	sent       []proto.Message
}

func (s *fakeSupervisor) SendPing(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pingErr
}

func (s *fakeSupervisor) SendMessage(ctx context.Context, msg proto.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSupervisor) CloseLocal(code proto.CloseCode, reason *proto.CloseReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closedCode = code
	s.closedReas = reason
}

func (s *fakeSupervisor) wasClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

// TestPingTimeoutTriggersLocalClose covers standard mode when no pong
// arrives: the Pinger closes with (Invalid, Pinging).
func TestPingTimeoutTriggersLocalClose(t *testing.T) {
	t.Parallel()

	sup := &fakeSupervisor{pingErr: errors.New("no pong")}
	fc := &fakeClock{}
	p := ping.New(sup, fc, ping.Config{Mode: ping.ModeStandard, Timeout: time.Millisecond, Interval: time.Second})

	p.Resume()
	waitFor(t, func() bool { return fc.timer != nil })
	fc.fire()

	waitFor(t, sup.wasClosed)
	if sup.closedCode != proto.CloseInvalid {
		t.Fatalf("closedCode = %v, want CloseInvalid", sup.closedCode)
	}
	if sup.closedReas == nil || sup.closedReas.Kind != proto.ReasonPinging {
		t.Fatalf("closedReas = %v, want Pinging", sup.closedReas)
	}
}

// TestPingSuccessSchedulesNextCycle checks that a successful pong reschedules
// the cycle instead of closing.
func TestPingSuccessSchedulesNextCycle(t *testing.T) {
	t.Parallel()

	sup := &fakeSupervisor{pingErr: nil}
	fc := &fakeClock{}
	p := ping.New(sup, fc, ping.Config{Mode: ping.ModeStandard, Timeout: time.Millisecond, Interval: time.Millisecond})

	p.Resume()
	waitFor(t, func() bool { return fc.timer != nil })
	// The pong is recorded by a background goroutine once SendPing returns;
	// give it time to run before the deadline fires.
	time.Sleep(20 * time.Millisecond)
	fc.fire() // deadline: pong already received by the background SendPing call

	time.Sleep(20 * time.Millisecond)
	if sup.wasClosed() {
		t.Fatalf("should not close after a successful pong")
	}
}

func TestSuspendIdempotent(t *testing.T) {
	t.Parallel()

	sup := &fakeSupervisor{pingErr: nil}
	fc := &fakeClock{}
	p := ping.New(sup, fc, ping.Config{Mode: ping.ModeStandard, Timeout: time.Second, Interval: time.Second})

	p.Resume()
	p.Suspend()
	p.Suspend() // must not panic or double-free

	time.Sleep(10 * time.Millisecond)
	if sup.wasClosed() {
		t.Fatalf("suspended pinger must not close")
	}
}

func TestProviderModeSendsBuiltPingAndDetectsPongViaOnMessage(t *testing.T) {
	t.Parallel()

	provider := fakeProvider{pingText: "ping"}
	sup := &fakeSupervisor{}
	fc := &fakeClock{}
	p := ping.New(sup, fc, ping.Config{Mode: ping.ModeProvider, Provider: provider, Timeout: 50 * time.Millisecond, Interval: time.Second})

	p.Resume()
	waitFor(t, func() bool {
		sup.mu.Lock()
		defer sup.mu.Unlock()
		return len(sup.sent) == 1
	})

	p.OnMessage(proto.TextMessage("pong"))
	waitFor(t, func() bool { return fc.timer != nil })
	fc.fire()

	time.Sleep(10 * time.Millisecond)
	if sup.wasClosed() {
		t.Fatalf("provider mode should not close once CheckPong matched")
	}
}

type fakeProvider struct {
	pingText string
}

func (f fakeProvider) BuildPing() proto.Message  { return proto.TextMessage(f.pingText) }
func (f fakeProvider) CheckPong(m proto.Message) bool { return m.Text == "pong" }
