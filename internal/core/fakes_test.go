package core_test

import (
	"context"
	"sync"
	"time"

	"wsconnector/internal/clock"
	"wsconnector/internal/core"
	"wsconnector/internal/proto"
	"wsconnector/internal/transport"
)

// reachabilityT aliases core.Reachability so fakeMonitor's Watch signature
// matches core.Monitor exactly without repeating the import everywhere.
type reachabilityT = core.Reachability

// fakeClock is a manually-driven clock.Clock: AfterFunc registers the
// callback instead of scheduling a real timer, and the test fires it
// explicitly via fireAll/fireLatest.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *fakeClock) Now() time.Time { return time.Unix(0, 0) }

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: f}
	c.timers = append(c.timers, t)
	return t
}

// fireLatest runs the most recently armed, not-yet-stopped timer.
func (c *fakeClock) fireLatest() {
	c.mu.Lock()
	var t *fakeTimer
	for i := len(c.timers) - 1; i >= 0; i-- {
		if !c.timers[i].stopped {
			t = c.timers[i]
			break
		}
	}
	c.mu.Unlock()
	if t != nil {
		t.fn()
	}
}

func (c *fakeClock) armedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// fakeTransport hands out scripted connect outcomes in order. Each call to
// Connect pops the next scripted outcome; if the outcomes slice runs dry the
// last one repeats.
type fakeTransport struct {
	mu       sync.Mutex
	outcomes []connectOutcome
	calls    int
	handles  []*fakeHandle
}

type connectOutcome struct {
	err         error
	subprotocol string
}

func (t *fakeTransport) Connect(_ context.Context, _ transport.Target, _ []string, delegate transport.Delegate) (transport.Handle, error) {
	t.mu.Lock()
	idx := t.calls
	t.calls++
	outcome := connectOutcome{}
	if len(t.outcomes) > 0 {
		if idx < len(t.outcomes) {
			outcome = t.outcomes[idx]
		} else {
			outcome = t.outcomes[len(t.outcomes)-1]
		}
	}
	t.mu.Unlock()

	if outcome.err != nil {
		return nil, outcome.err
	}

	h := &fakeHandle{id: idFor(idx), delegate: delegate}
	t.mu.Lock()
	t.handles = append(t.handles, h)
	t.mu.Unlock()

	delegate.FireOpen(h, outcome.subprotocol)
	return h, nil
}

func idFor(i int) string {
	return "handle-" + string(rune('a'+i))
}

func (t *fakeTransport) connectCalls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

func (t *fakeTransport) lastHandle() *fakeHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.handles) == 0 {
		return nil
	}
	return t.handles[len(t.handles)-1]
}

// fakeHandle is a controllable transport.Handle: the test drives its
// delegate directly to simulate peer messages/closes/failures, and records
// what the Supervisor sent through it.
type fakeHandle struct {
	mu        sync.Mutex
	id        string
	delegate  transport.Delegate
	cancelled bool
	cancelArg proto.CloseCode
	sent      []proto.Message
	pings     int
	pingErr   error
}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Send(_ context.Context, msg proto.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, msg)
	return nil
}

func (h *fakeHandle) SendPing(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pings++
	return h.pingErr
}

func (h *fakeHandle) Cancel(code proto.CloseCode, _ []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cancelled = true
	h.cancelArg = code
	return nil
}

func (h *fakeHandle) simulateClose(code proto.CloseCode, data []byte) {
	h.delegate.FireClose(code, data)
}

func (h *fakeHandle) simulateFail(err error) {
	h.delegate.FireFail(err)
}

func (h *fakeHandle) simulateMessage(msg proto.Message) {
	h.delegate.FireMessage(msg)
}

func (h *fakeHandle) wasCancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

// fakeMonitor is a core.Monitor the test drives by calling push directly.
type fakeMonitor struct {
	mu       sync.Mutex
	onChange func(r reachabilityT)
	stopped  bool
}

func newFakeMonitor() *fakeMonitor { return &fakeMonitor{} }

func (m *fakeMonitor) Watch(onChange func(reachabilityT)) func() {
	m.mu.Lock()
	m.onChange = onChange
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()
	}
}

func (m *fakeMonitor) push(r reachabilityT) {
	m.mu.Lock()
	onChange := m.onChange
	m.mu.Unlock()
	if onChange != nil {
		onChange(r)
	}
}

func (m *fakeMonitor) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func waitUntil(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}
