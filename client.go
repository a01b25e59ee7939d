package wsconnector

import (
	"context"

	"wsconnector/internal/core"
)

// Client is the public, host-facing handle on one logical WebSocket
// connection and its whole reconnecting lifetime. It is a thin wrapper over
// internal/core.Supervisor: every method here forwards straight through,
// and the interesting behavior lives in that package.
type Client struct {
	sup *core.Supervisor
}

// New builds a Client targeting target, applying opts in order. The
// connection is not opened until Open is called.
func New(target Target, opts ...Option) *Client {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	tr := buildTransport(cfg)
	dispatcher := buildDispatcher(cfg)

	sup := core.New(tr, target, dispatcher, cfg.clock)
	sup.UsingCallbacks(cfg.onStatus, cfg.onMessage, cfg.onError)

	if cfg.subprotocols != nil {
		sup.UsingSubprotocols(cfg.subprotocols)
	}
	if cfg.pinging != nil {
		sup.UsingPinging(*cfg.pinging)
	}
	if cfg.retrier != nil {
		sup.UsingRetrier(*cfg.retrier)
	}
	if cfg.reconnectLimiter != nil {
		sup.UsingReconnectLimiter(cfg.reconnectLimiter)
	}
	if cfg.challengeHandler != nil {
		sup.UsingChallengeHandler(cfg.challengeHandler)
	}
	if cfg.monitor != nil {
		sup.UsingMonitor(cfg.monitor)
	}

	return &Client{sup: sup}
}

// Open transitions Closed to Opening and begins a handshake. A no-op while
// already Opening or Opened.
func (c *Client) Open() { c.sup.Open() }

// Close initiates a graceful, host-requested close. It never schedules a
// reopen, regardless of any configured retrier.
func (c *Client) Close(code CloseCode) { c.sup.Close(code) }

// Shutdown requests a close and blocks until the transport confirms it, the
// Pinger and Monitor have been torn down, or ctx expires, whichever first.
// Use this over Close when the caller needs to know teardown actually
// finished, e.g. before process exit.
func (c *Client) Shutdown(ctx context.Context, code CloseCode) error {
	return c.sup.Shutdown(ctx, code)
}

// Send transmits an application message over the current connection.
// Returns ErrNotOpened if status is not Opened.
func (c *Client) Send(ctx context.Context, msg Message) error {
	return c.sup.Send(ctx, msg)
}

// SendPing issues a protocol-level ping and blocks until the matching pong
// arrives or ctx expires. Returns ErrNotOpened if status is not Opened.
func (c *Client) SendPing(ctx context.Context) error {
	return c.sup.SendPing(ctx)
}

// Status returns the current connection status.
func (c *Client) Status() Status { return c.sup.Status() }
