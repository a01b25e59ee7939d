// Package ping implements the connector's liveness subsystem: a ping/pong
// cycle that, on silence past a deadline, asks the Supervisor to close the
// connection with (Invalid, Pinging). Two modes share one cycle algorithm,
// differing only in how a ping is emitted and a pong detected. Concurrency
// is serialised behind a single mutex per Pinger, generalizing an
// idle-timer run loop (ping-resets-timer, timeout-triggers-transition) into
// a resumable/suspendable object instead of one background goroutine.
package ping

import (
	"context"
	"sync"
	"time"

	"wsconnector/internal/clock"
	"wsconnector/internal/proto"
)

// Provider builds application-level ping messages and recognizes their pong
// counterpart, for hosts that can't rely on protocol-level ping/pong frames.
type Provider interface {
	BuildPing() proto.Message
	CheckPong(proto.Message) bool
}

// Mode selects how the Pinger emits pings and how its lifecycle is driven.
// Standard is resumed/suspended automatically by the Supervisor on status
// changes; Provider is manual, the host drives Resume/Suspend itself.
type Mode int

const (
	ModeStandard Mode = iota
	ModeProvider
)

// Config configures a Pinger.
type Config struct {
	Mode     Mode
	Provider Provider
	Timeout  time.Duration
	Interval time.Duration
}

// Supervisor is the minimal, non-owning back-reference the Pinger needs. It
// must tolerate the Supervisor going away or having no live connection: all
// three methods are expected to no-op/error harmlessly in that case rather
// than panic.
type Supervisor interface {
	// SendPing issues a protocol-level ping over the current connection and
	// blocks until the matching pong arrives or ctx expires. A nil error is
	// the "pong received" signal.
	SendPing(ctx context.Context) error
	// SendMessage sends an application message over the current connection,
	// used by Provider mode to transmit Provider.BuildPing()'s output.
	SendMessage(ctx context.Context, msg proto.Message) error
	// CloseLocal requests a local close with the given code/reason.
	CloseLocal(code proto.CloseCode, reason *proto.CloseReason)
}

// Pinger drives the ping/pong liveness cycle.
type Pinger struct {
	cfg   Config
	sup   Supervisor
	clock clock.Clock

	mu           sync.Mutex
	active       bool
	pongReceived bool
	generation   uint64
	timer        clock.Timer
}

// New builds a Pinger bound to sup (its non-owning back-reference) and cfg.
func New(sup Supervisor, clk clock.Clock, cfg Config) *Pinger {
	if clk == nil {
		clk = clock.New()
	}
	return &Pinger{cfg: cfg, sup: sup, clock: clk}
}

// Resume starts a cycle if none is active. Idempotent.
func (p *Pinger) Resume() {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return
	}
	p.active = true
	p.generation++
	gen := p.generation
	p.mu.Unlock()

	p.startCycle(gen)
}

// Suspend cancels any pending scheduled step and marks the Pinger inactive.
// No further pings are emitted until the next Resume. Idempotent.
func (p *Pinger) Suspend() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.suspendLocked()
}

func (p *Pinger) suspendLocked() {
	p.active = false
	p.generation++ // invalidates any in-flight goroutine/timer from the old cycle
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// OnMessage offers an incoming application message to the Provider's pong
// matcher. A no-op in Standard mode, where pong detection rides on
// SendPing's own completion instead.
func (p *Pinger) OnMessage(msg proto.Message) {
	if p.cfg.Mode != ModeProvider || p.cfg.Provider == nil {
		return
	}
	if !p.cfg.Provider.CheckPong(msg) {
		return
	}
	p.mu.Lock()
	p.pongReceived = true
	p.mu.Unlock()
}

// startCycle runs one ping cycle for generation gen: reset pongReceived,
// emit the ping, arm the deadline timer.
func (p *Pinger) startCycle(gen uint64) {
	p.mu.Lock()
	if !p.active || gen != p.generation {
		p.mu.Unlock()
		return
	}
	p.pongReceived = false
	timeout := p.cfg.Timeout
	p.mu.Unlock()

	p.emitPing(gen)

	p.mu.Lock()
	if !p.active || gen != p.generation {
		p.mu.Unlock()
		return
	}
	p.timer = p.clock.AfterFunc(timeout, func() { p.onDeadline(gen) })
	p.mu.Unlock()
}

// emitPing sends the ping for the given generation. Standard mode blocks in
// a background goroutine on the protocol ping/pong round trip (bounded by
// Timeout) and treats its nil-error completion as pongReceived. Provider
// mode fires the application ping message; its pong arrives later via
// OnMessage.
func (p *Pinger) emitPing(gen uint64) {
	switch p.cfg.Mode {
	case ModeProvider:
		if p.cfg.Provider == nil {
			return
		}
		msg := p.cfg.Provider.BuildPing()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
			defer cancel()
			_ = p.sup.SendMessage(ctx, msg)
		}()
	default:
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), p.cfg.Timeout)
			defer cancel()
			if err := p.sup.SendPing(ctx); err != nil {
				return
			}
			p.mu.Lock()
			if p.active && gen == p.generation {
				p.pongReceived = true
			}
			p.mu.Unlock()
		}()
	}
}

// onDeadline fires when the pong deadline elapses: if pongReceived is
// false, request a local close and do not re-arm; otherwise schedule the
// next cycle after Interval.
func (p *Pinger) onDeadline(gen uint64) {
	p.mu.Lock()
	if !p.active || gen != p.generation {
		p.mu.Unlock()
		return
	}
	ok := p.pongReceived
	p.mu.Unlock()

	if !ok {
		p.mu.Lock()
		p.suspendLocked()
		p.mu.Unlock()
		p.sup.CloseLocal(proto.CloseInvalid, proto.ReasonForPinging())
		return
	}

	p.mu.Lock()
	if !p.active || gen != p.generation {
		p.mu.Unlock()
		return
	}
	interval := p.cfg.Interval
	p.timer = p.clock.AfterFunc(interval, func() { p.startCycle(gen) })
	p.mu.Unlock()
}
