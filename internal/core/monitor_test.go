package core_test

import (
	"testing"
	"time"

	"wsconnector/internal/core"
	"wsconnector/internal/dispatch"
	"wsconnector/internal/proto"
	"wsconnector/internal/retry"
	"wsconnector/internal/transport"
)

// TestMonitorGateBlocksRetryThenSatisfiedReopens covers: Monitor goes
// Unsatisfied, the transport then confirms the resulting local close, no
// reopen is scheduled while still Unsatisfied; once Monitor reports Satisfied, the
// Supervisor reopens because the stored close reason is non-nil.
func TestMonitorGateBlocksRetryThenSatisfiedReopens(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{outcomes: []connectOutcome{{subprotocol: ""}, {subprotocol: ""}}}
	fc := &fakeClock{}
	d := dispatch.NewSerialDispatcher(16)
	s := core.New(tr, transport.Target{URL: "wss://example.test"}, d, fc)
	s.UsingRetrier(retry.RetryPolicy{Policy: retry.Equal{Interval: time.Second}, Limits: 10})

	mon := newFakeMonitor()
	s.UsingMonitor(mon)

	s.Open()
	waitUntil(func() bool { return s.Status().Kind == proto.StatusOpened })

	mon.push(core.Unsatisfied)
	// Unsatisfied forces a local close request with (Invalid, Monitor); the
	// transition to Closed only settles once the transport confirms it.
	h := tr.lastHandle()
	waitUntil(h.wasCancelled)
	h.simulateClose(proto.CloseInvalid, nil)

	waitUntil(func() bool { return s.Status().Kind == proto.StatusClosed })
	if fc.armedCount() != 0 {
		t.Fatalf("monitor-forced close scheduled a reopen before Satisfied, want none")
	}
	if got := s.Status().Reason; got == nil || got.Kind != proto.ReasonMonitor {
		t.Fatalf("settled reason = %v, want Monitor", got)
	}

	mon.push(core.Satisfied)
	if !waitUntil(func() bool { return s.Status().Kind == proto.StatusOpened }) {
		t.Fatalf("Satisfied edge did not reopen, status=%v", s.Status())
	}
}

func TestMonitorDuplicateEdgesAreFiltered(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{outcomes: []connectOutcome{{subprotocol: ""}}}
	fc := &fakeClock{}
	d := dispatch.NewSerialDispatcher(16)
	s := core.New(tr, transport.Target{URL: "wss://example.test"}, d, fc)

	mon := newFakeMonitor()
	s.UsingMonitor(mon)

	s.Open()
	waitUntil(func() bool { return s.Status().Kind == proto.StatusOpened })

	mon.push(core.Unsatisfied)
	h := tr.lastHandle()
	waitUntil(h.wasCancelled)
	h.simulateClose(proto.CloseInvalid, nil)
	waitUntil(func() bool { return s.Status().Kind == proto.StatusClosed })
	closedAt := s.Status()

	mon.push(core.Unsatisfied) // duplicate edge, must be a no-op
	time.Sleep(10 * time.Millisecond)
	if !s.Status().Equal(closedAt) {
		t.Fatalf("duplicate Unsatisfied edge changed status: %v -> %v", closedAt, s.Status())
	}
}

func TestUsingMonitorNilStopsPreviousWatch(t *testing.T) {
	t.Parallel()

	tr := &fakeTransport{}
	fc := &fakeClock{}
	d := dispatch.NewSerialDispatcher(16)
	s := core.New(tr, transport.Target{URL: "wss://example.test"}, d, fc)

	mon := newFakeMonitor()
	s.UsingMonitor(mon)
	s.UsingMonitor(nil)

	if !mon.isStopped() {
		t.Fatalf("replacing the Monitor with nil did not stop the previous one")
	}
}
