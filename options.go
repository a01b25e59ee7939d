package wsconnector

import (
	"wsconnector/internal/clock"
	"wsconnector/internal/core"
	"wsconnector/internal/dispatch"
	"wsconnector/internal/ping"
	"wsconnector/internal/retry"
	"wsconnector/internal/transport"
	"wsconnector/internal/transport/coderws"
)

// config collects every Option's effect before a Client is built: a plain
// struct assembled by Option closures ahead of construction, rather than
// dozens of constructor parameters.
type config struct {
	transport        transport.Transport
	dispatcher       dispatch.Dispatcher
	clock            clock.Clock
	subprotocols     []string
	onStatus         func(old, new Status)
	onMessage        func(Message)
	onError          func(error)
	pinging          *ping.Config
	retrier          *retry.RetryPolicy
	reconnectLimiter *retry.ReconnectLimiter
	challengeHandler ChallengeHandler
	monitor          Monitor
}

// Option configures a Client at construction time. The core reads no
// environment variables, files or persistent state; configuration is
// exclusively functional options.
type Option func(*config)

// WithTransport overrides the default github.com/coder/websocket transport,
// e.g. with a fake for tests or an alternative implementation.
func WithTransport(tr transport.Transport) Option {
	return func(c *config) { c.transport = tr }
}

// WithDispatchQueue overrides the process-global main lane with a
// host-owned dispatch.Dispatcher. The Client does not close a host-supplied
// dispatcher on Shutdown.
func WithDispatchQueue(d dispatch.Dispatcher) Option {
	return func(c *config) { c.dispatcher = d }
}

// WithSubprotocols sets the ordered subprotocol list offered on handshake.
func WithSubprotocols(subprotocols ...string) Option {
	return func(c *config) { c.subprotocols = subprotocols }
}

// WithCallbacks installs the host-facing event callbacks. Any argument may
// be nil.
func WithCallbacks(onStatus func(old, new Status), onMessage func(Message), onError func(error)) Option {
	return func(c *config) {
		c.onStatus = onStatus
		c.onMessage = onMessage
		c.onError = onError
	}
}

// WithPinging configures the liveness subsystem: ping mode, pong timeout
// and ping interval.
func WithPinging(cfg ping.Config) Option {
	return func(c *config) { c.pinging = &cfg }
}

// WithRetrier configures the retry engine: policy, attempt limits and
// filter.
func WithRetrier(rp retry.RetryPolicy) Option {
	return func(c *config) { c.retrier = &rp }
}

// WithReconnectLimiter attaches the reconnect burst guard.
func WithReconnectLimiter(l *retry.ReconnectLimiter) Option {
	return func(c *config) { c.reconnectLimiter = l }
}

// WithChallengeHandler installs the host's asynchronous TLS-challenge
// resolver.
func WithChallengeHandler(h ChallengeHandler) Option {
	return func(c *config) { c.challengeHandler = h }
}

// WithMonitor attaches the external reachability Monitor.
func WithMonitor(m Monitor) Option {
	return func(c *config) { c.monitor = m }
}

// WithClock overrides the production clock.Clock, used by tests.
func WithClock(clk clock.Clock) Option {
	return func(c *config) { c.clock = clk }
}

func defaultConfig() *config {
	return &config{}
}

func buildDispatcher(c *config) dispatch.Dispatcher {
	if c.dispatcher != nil {
		return c.dispatcher
	}
	return dispatch.MainLane()
}

func buildTransport(c *config) transport.Transport {
	if c.transport != nil {
		return c.transport
	}
	return coderws.New()
}
