// Package core implements the Supervisor connection state machine: the
// component that owns connection status and coordinates the Transport,
// RetryPolicy, Pinger, Monitor and event dispatch described by the rest of
// this module. It is the largest single piece of the connector, generalized
// from one hardcoded protocol connection to an arbitrary Transport, and from
// a boolean online/offline flag to a full four-state status type.
package core

import (
	"context"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"wsconnector/internal/clock"
	"wsconnector/internal/dispatch"
	"wsconnector/internal/ping"
	"wsconnector/internal/proto"
	"wsconnector/internal/retry"
	"wsconnector/internal/transport"
)

// Supervisor owns a single logical WebSocket connection across its whole
// reconnecting lifetime. The zero value is not usable; construct with New.
type Supervisor struct {
	mu sync.Mutex

	transport    transport.Transport
	target       transport.Target
	subprotocols []string
	dispatcher   dispatch.Dispatcher
	clock        clock.Clock

	onStatus  func(old, new proto.Status)
	onMessage func(proto.Message)
	onError   func(error)

	status proto.Status

	// generation identifies the current connection attempt. Delegate
	// callbacks close over the generation they were built for; a mismatch
	// at call time means a stale Transport produced the event, and it is
	// dropped.
	generation    uint64
	handle        transport.Handle
	dialCancelled bool

	// pendingClose* remember why a close currently in flight was requested
	// locally (manual, Pinging, Monitor), so that the eventual confirmation
	// from the transport settles with that reason rather than the generic
	// one onTransportClose would otherwise derive from the peer's payload.
	pendingCloseSet    bool
	pendingCloseCode   proto.CloseCode
	pendingCloseReason *proto.CloseReason

	// closedCh is closed whenever status becomes Closed and replaced with a
	// fresh channel on any transition away from Closed, letting Shutdown
	// block on "reached Closed" without polling.
	closedCh chan struct{}
	// lastCancelErr is the error (if any) the transport returned from the
	// Handle.Cancel that requested the most recent close, surfaced by
	// Shutdown alongside a context deadline rather than silently discarded.
	lastCancelErr error

	retryTimes       uint32
	retrying         bool
	retryPolicy      retry.RetryPolicy
	reconnectLimiter *retry.ReconnectLimiter
	pendingTimer     clock.Timer

	pinger      *ping.Pinger
	pingingMode ping.Mode

	monitor           Monitor
	monitorStop       func()
	reachabilityKnown bool
	reachability      Reachability

	challengeBridge *ChallengeBridge
}

// New builds a Supervisor targeting target over tr, dispatching host
// callbacks through dispatcher. Pass dispatch.MainLane() to use the
// process-global default lane.
func New(tr transport.Transport, target transport.Target, dispatcher dispatch.Dispatcher, clk clock.Clock) *Supervisor {
	if clk == nil {
		clk = clock.New()
	}
	closedCh := make(chan struct{})
	close(closedCh)
	return &Supervisor{
		transport:  tr,
		target:     target,
		dispatcher: dispatcher,
		clock:      clk,
		status:     proto.InitialStatus(),
		closedCh:   closedCh,
	}
}

// UsingCallbacks installs the host-facing event callbacks. Any of the three
// may be nil. Should be called before Open or between closes.
func (s *Supervisor) UsingCallbacks(onStatus func(old, new proto.Status), onMessage func(proto.Message), onError func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStatus = onStatus
	s.onMessage = onMessage
	s.onError = onError
}

// UsingSubprotocols sets the ordered subprotocol list offered on handshake.
func (s *Supervisor) UsingSubprotocols(subprotocols []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subprotocols = subprotocols
}

// UsingPinging configures the liveness subsystem: ping mode, pong timeout
// and ping interval.
func (s *Supervisor) UsingPinging(cfg ping.Config) {
	s.mu.Lock()
	clk := s.clock
	s.pingingMode = cfg.Mode
	s.mu.Unlock()

	p := ping.New(s, clk, cfg)

	s.mu.Lock()
	s.pinger = p
	s.mu.Unlock()
}

// UsingRetrier configures the retry engine: policy, attempt limits and
// filter. The zero value means never retry.
func (s *Supervisor) UsingRetrier(rp retry.RetryPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryPolicy = rp
}

// UsingReconnectLimiter attaches the reconnect burst guard. Passing nil
// disables the guard.
func (s *Supervisor) UsingReconnectLimiter(l *retry.ReconnectLimiter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnectLimiter = l
}

// UsingChallengeHandler installs the host's asynchronous TLS-challenge
// resolver.
func (s *Supervisor) UsingChallengeHandler(h ChallengeHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challengeBridge = &ChallengeBridge{Handler: h}
}

// Status returns the current status under the supervisor lock.
func (s *Supervisor) Status() proto.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Open transitions Closed to Opening and begins a handshake. A no-op while
// already Opening or Opened.
func (s *Supervisor) Open() {
	s.mu.Lock()
	switch s.status.Kind {
	case proto.StatusOpening, proto.StatusOpened:
		s.mu.Unlock()
		return
	}
	s.cancelPendingRetryLocked()
	gen := s.nextGenerationLocked()
	actions := s.setStatusLocked(proto.Opening())
	target, subprotocols, tr := s.target, s.subprotocols, s.transport
	s.mu.Unlock()

	for _, a := range actions {
		a()
	}
	go s.doConnect(gen, target, subprotocols, tr)
}

// Close initiates a graceful, user-requested close. A nil reason marks it
// manual: the retry engine will never schedule a reopen for it.
func (s *Supervisor) Close(code proto.CloseCode) {
	s.closeInternal(code, nil)
}

// CloseLocal requests a close originating from inside the connector itself
// (pinger timeout, monitor loss, transport error) rather than the host. It
// satisfies ping.Supervisor and is also called directly by monitor.go.
func (s *Supervisor) CloseLocal(code proto.CloseCode, reason *proto.CloseReason) {
	s.closeInternal(code, reason)
}

func (s *Supervisor) closeInternal(code proto.CloseCode, reason *proto.CloseReason) {
	s.mu.Lock()
	switch s.status.Kind {
	case proto.StatusClosing, proto.StatusClosed:
		s.mu.Unlock()
		return
	}
	s.cancelPendingRetryLocked()
	gen := s.generation
	handle := s.handle
	s.pendingCloseSet = true
	s.pendingCloseCode = code
	s.pendingCloseReason = reason
	actions := s.setStatusLocked(proto.Closing())
	if handle == nil {
		// No live Handle yet (still dialing, or already torn down): mark
		// the in-flight attempt as superseded so a late-arriving connect
		// result is discarded instead of resurrecting the connection.
		s.dialCancelled = true
	}
	s.mu.Unlock()

	for _, a := range actions {
		a()
	}

	if handle != nil {
		cancelErr := handle.Cancel(code.ForSend(), nil)
		s.mu.Lock()
		s.lastCancelErr = cancelErr
		s.mu.Unlock()
		// The terminal Closed transition arrives via the transport's own
		// close/fail callback, which echoes the confirmed close.
		return
	}

	s.tryClose(gen, code, reason)
}

// Send forwards msg to the transport.
func (s *Supervisor) Send(ctx context.Context, msg proto.Message) error {
	s.mu.Lock()
	if s.status.Kind != proto.StatusOpened || s.handle == nil {
		s.mu.Unlock()
		return ErrNotOpened
	}
	handle := s.handle
	s.mu.Unlock()
	return handle.Send(ctx, msg)
}

// SendMessage satisfies ping.Supervisor; it is Send under another name so
// Provider-mode pings reuse the same NotOpened gating as host sends.
func (s *Supervisor) SendMessage(ctx context.Context, msg proto.Message) error {
	return s.Send(ctx, msg)
}

// SendPing issues a protocol-level ping and satisfies ping.Supervisor for
// Standard-mode liveness checks.
func (s *Supervisor) SendPing(ctx context.Context) error {
	s.mu.Lock()
	if s.status.Kind != proto.StatusOpened || s.handle == nil {
		s.mu.Unlock()
		return ErrNotOpened
	}
	handle := s.handle
	s.mu.Unlock()
	return handle.SendPing(ctx)
}

// Shutdown requests a manual close and blocks until the transport confirms
// it or ctx expires. Provider-mode Pinger and the Monitor subscription are
// not torn down by the status transition alone, only Standard mode
// auto-suspends, so Shutdown stops both explicitly, concurrently with the
// confirmation wait via errgroup. The returned error combines, via
// multierr, the wait's error (ctx expiry) with any error the transport
// returned from the Cancel that requested the close.
func (s *Supervisor) Shutdown(ctx context.Context, code proto.CloseCode) error {
	s.Close(code)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.waitClosed(gctx) })
	g.Go(func() error {
		s.mu.Lock()
		pinger := s.pinger
		s.mu.Unlock()
		if pinger != nil {
			pinger.Suspend()
		}
		return nil
	})
	g.Go(func() error {
		s.UsingMonitor(nil)
		return nil
	})
	waitErr := g.Wait()

	s.mu.Lock()
	cancelErr := s.lastCancelErr
	s.mu.Unlock()

	return multierr.Append(waitErr, cancelErr)
}

// waitClosed blocks until status reaches Closed or ctx expires.
func (s *Supervisor) waitClosed(ctx context.Context) error {
	s.mu.Lock()
	ch := s.closedCh
	s.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cancelPendingRetryLocked stops any armed reopen timer and clears the
// pending-retry flag. Must be called with s.mu held.
func (s *Supervisor) cancelPendingRetryLocked() {
	if s.pendingTimer != nil {
		s.pendingTimer.Stop()
		s.pendingTimer = nil
	}
	s.retrying = false
}

// nextGenerationLocked starts a brand new connection attempt: bumps the
// generation counter, drops any stale handle and clears dialCancelled.
// Must be called with s.mu held.
func (s *Supervisor) nextGenerationLocked() uint64 {
	s.generation++
	s.handle = nil
	s.dialCancelled = false
	s.pendingCloseSet = false
	return s.generation
}

// setStatusLocked is the sole producer of status side effects: it updates
// status, suppressing no-op self-transitions, and returns the actions to
// run once the lock is released (Standard-mode pinger resume/suspend, host
// notification). Must be called with s.mu held.
func (s *Supervisor) setStatusLocked(new proto.Status) []func() {
	old := s.status
	if old.Equal(new) {
		return nil
	}
	s.status = new

	if new.Kind == proto.StatusClosed {
		select {
		case <-s.closedCh:
		default:
			close(s.closedCh)
		}
	} else {
		select {
		case <-s.closedCh:
			s.closedCh = make(chan struct{})
		default:
		}
	}

	var actions []func()
	if s.pinger != nil && s.pingingMode == ping.ModeStandard {
		pinger := s.pinger
		if new.Kind == proto.StatusOpened {
			actions = append(actions, pinger.Resume)
		} else {
			actions = append(actions, pinger.Suspend)
		}
	}
	if s.dispatcher != nil && s.onStatus != nil {
		dispatcher, onStatus := s.dispatcher, s.onStatus
		actions = append(actions, func() {
			dispatcher.Dispatch(func() { onStatus(old, new) })
		})
	}
	return actions
}

func (s *Supervisor) notifyMessage(msg proto.Message) {
	s.mu.Lock()
	dispatcher, onMessage := s.dispatcher, s.onMessage
	s.mu.Unlock()
	if dispatcher != nil && onMessage != nil {
		dispatcher.Dispatch(func() { onMessage(msg) })
	}
}

func (s *Supervisor) notifyError(err error) {
	s.mu.Lock()
	dispatcher, onError := s.dispatcher, s.onError
	s.mu.Unlock()
	if dispatcher != nil && onError != nil {
		dispatcher.Dispatch(func() { onError(err) })
	}
}

// delegateFor builds the transport.Delegate for connection attempt gen; its
// closures capture gen so late callbacks from a superseded attempt can be
// recognized and dropped.
func (s *Supervisor) delegateFor(gen uint64) transport.Delegate {
	return transport.Delegate{
		OnOpen:      func(h transport.Handle, subprotocol string) { s.onTransportOpen(gen, h, subprotocol) },
		OnMessage:   func(m proto.Message) { s.onTransportMessage(gen, m) },
		OnClose:     func(code proto.CloseCode, data []byte) { s.onTransportClose(gen, code, data) },
		OnFail:      func(err error) { s.onTransportFail(gen, err) },
		OnChallenge: func(c proto.Challenge) proto.Disposition { return s.resolveChallenge(gen, c) },
	}
}

// doConnect runs the (possibly blocking) handshake for gen and adopts the
// resulting Handle if gen is still current.
func (s *Supervisor) doConnect(gen uint64, target transport.Target, subprotocols []string, tr transport.Transport) {
	delegate := s.delegateFor(gen)
	handle, err := tr.Connect(context.Background(), target, subprotocols, delegate)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		if handle != nil {
			_ = handle.Cancel(proto.CloseInvalid, nil)
		}
		return
	}
	if err != nil {
		s.mu.Unlock()
		s.notifyError(err)
		s.tryClose(gen, proto.CloseInvalid, proto.ReasonForError(0, "connect"))
		return
	}
	s.handle = handle
	cancelled := s.dialCancelled
	s.mu.Unlock()

	if cancelled {
		_ = handle.Cancel(proto.CloseInvalid, nil)
	}
}

// onTransportOpen handles Opening to Opened: resets the retry counter,
// adopts the handle, and resumes a Standard-mode pinger.
func (s *Supervisor) onTransportOpen(gen uint64, h transport.Handle, subprotocol string) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.handle = h
	s.retryTimes = 0
	actions := s.setStatusLocked(proto.Opened(subprotocol))
	s.mu.Unlock()

	for _, a := range actions {
		a()
	}
}

func (s *Supervisor) onTransportMessage(gen uint64, msg proto.Message) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	pinger := s.pinger
	s.mu.Unlock()

	if pinger != nil {
		pinger.OnMessage(msg)
	}
	s.notifyMessage(msg)
}

// onTransportClose handles a close confirmed by the transport. Close codes
// originating from the peer are preserved verbatim, but if this confirms a
// close the Supervisor itself requested (manual, Pinging, Monitor), that
// originating reason is what settles, not a reason rebuilt from the
// confirmation payload.
func (s *Supervisor) onTransportClose(gen uint64, code proto.CloseCode, data []byte) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	finalCode, finalReason := code, proto.ReasonForServer(data)
	if s.pendingCloseSet {
		finalCode, finalReason = s.pendingCloseCode, s.pendingCloseReason
		s.pendingCloseSet = false
	}
	s.mu.Unlock()
	s.tryClose(gen, finalCode, finalReason)
}

func (s *Supervisor) onTransportFail(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.notifyError(err)
	s.tryClose(gen, proto.CloseInvalid, proto.ReasonForError(0, "transport"))
}

func (s *Supervisor) resolveChallenge(gen uint64, c proto.Challenge) proto.Disposition {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return proto.Disposition{Kind: proto.UseDefault}
	}
	bridge := s.challengeBridge
	s.mu.Unlock()
	return bridge.Resolve(c)
}

// tryClose is the retry decision function: in strict order, each guard
// short-circuits to a terminal Closed(code, reason).
func (s *Supervisor) tryClose(gen uint64, code proto.CloseCode, reason *proto.CloseReason) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if s.retrying {
		// Step 1: a retry attempt is already pending.
		s.mu.Unlock()
		return
	}
	pinger := s.pinger
	pingingMode := s.pingingMode
	s.mu.Unlock()

	if pinger != nil && pingingMode == ping.ModeStandard {
		pinger.Suspend()
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}

	// Step 2: Monitor currently Unsatisfied.
	monitorBlocks := s.monitor != nil && s.reachabilityKnown && s.reachability == Unsatisfied
	// Step 3: manual (nil-reason) user close.
	manual := proto.IsManual(reason)
	// Step 4: no RetryPolicy configured.
	hasPolicy := s.retryPolicy.Policy != nil

	if monitorBlocks || manual || !hasPolicy {
		actions := s.settleClosedLocked(code, reason)
		s.mu.Unlock()
		for _, a := range actions {
			a()
		}
		return
	}

	// Step 5: consult the policy.
	s.retryTimes++
	attempt := s.retryTimes
	delay, ok := s.retryPolicy.Retry(code, reason, attempt)
	if !ok {
		actions := s.settleClosedLocked(code, reason)
		s.mu.Unlock()
		for _, a := range actions {
			a()
		}
		return
	}

	limiter := s.reconnectLimiter
	if limiter != nil && !limiter.Allow() {
		actions := s.settleClosedLocked(code, reason)
		s.mu.Unlock()
		for _, a := range actions {
			a()
		}
		return
	}

	// Step 6: schedule the reopen.
	s.retrying = true
	newGen := s.nextGenerationLocked()
	actions := s.setStatusLocked(proto.Opening())
	target, subprotocols, tr, clk := s.target, s.subprotocols, s.transport, s.clock
	s.mu.Unlock()

	for _, a := range actions {
		a()
	}

	timer := clk.AfterFunc(delay, func() {
		s.mu.Lock()
		s.retrying = false
		s.pendingTimer = nil
		stillCurrent := newGen == s.generation
		s.mu.Unlock()
		if stillCurrent {
			s.doConnect(newGen, target, subprotocols, tr)
		}
	})

	s.mu.Lock()
	if newGen == s.generation {
		s.pendingTimer = timer
	} else {
		timer.Stop()
	}
	s.mu.Unlock()
}

// settleClosedLocked transitions to the terminal Closed(code, reason) state
// and returns the side-effect actions to run once the lock is released.
// Must be called with s.mu held.
func (s *Supervisor) settleClosedLocked(code proto.CloseCode, reason *proto.CloseReason) []func() {
	s.handle = nil
	s.pendingCloseSet = false
	return s.setStatusLocked(proto.Closed(code, reason))
}
