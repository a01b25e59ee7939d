// Package transport declares the capability the supervisory core consumes
// from an actual WebSocket implementation. The core never imports a
// concrete websocket library directly; it only knows this interface and the
// Delegate callback struct, a capability struct of optional callbacks
// rather than an inheritance hierarchy. internal/transport/coderws provides
// the default implementation over github.com/coder/websocket.
package transport

import (
	"context"
	"net/http"
	"time"

	"wsconnector/internal/proto"
)

// Target names the connect destination: a URL, optionally with extra
// request headers and a dial timeout applied to the same dial.
type Target struct {
	URL     string
	Header  http.Header
	Timeout time.Duration
}

// Delegate is the set of callbacks a Handle drives back into the Supervisor.
// Every field is optional; a nil field behaves as a no-op default.
type Delegate struct {
	// OnOpen receives the just-connected Handle alongside the negotiated
	// subprotocol. Handing back the Handle here (rather than only via
	// Connect's own return value) lets the Supervisor adopt it before any
	// message callback that the same handshake can trigger synchronously.
	OnOpen      func(h Handle, subprotocol string)
	OnMessage   func(proto.Message)
	OnClose     func(code proto.CloseCode, data []byte)
	OnFail      func(err error)
	OnChallenge func(proto.Challenge) proto.Disposition
}

// FireOpen, FireMessage, FireClose and FireFail invoke the matching callback
// if set, and are no-ops otherwise.
func (d Delegate) FireOpen(h Handle, subprotocol string) {
	if d.OnOpen != nil {
		d.OnOpen(h, subprotocol)
	}
}

func (d Delegate) FireMessage(m proto.Message) {
	if d.OnMessage != nil {
		d.OnMessage(m)
	}
}

func (d Delegate) FireClose(code proto.CloseCode, data []byte) {
	if d.OnClose != nil {
		d.OnClose(code, data)
	}
}

func (d Delegate) FireFail(err error) {
	if d.OnFail != nil {
		d.OnFail(err)
	}
}

// FireChallenge resolves a Challenge through the delegate's handler, falling
// back to UseDefault when none is configured.
func (d Delegate) FireChallenge(c proto.Challenge) proto.Disposition {
	if d.OnChallenge == nil {
		return proto.Disposition{Kind: proto.UseDefault}
	}
	return d.OnChallenge(c)
}

// Handle is one live connection instance. The Supervisor holds exactly one
// Handle at a time and replaces it atomically on every reopen.
type Handle interface {
	// Send transmits an application message. Implementations deliver the
	// completion synchronously via an ordinary error return.
	Send(ctx context.Context, msg proto.Message) error

	// SendPing issues a protocol-level ping frame.
	SendPing(ctx context.Context) error

	// Cancel force-closes the connection with the given close code/reason
	// payload. Implementations must accept proto.CloseInvalid as "close
	// without a wire code".
	Cancel(code proto.CloseCode, reasonBytes []byte) error

	// ID uniquely identifies this connection attempt. The Supervisor does
	// not use it to drop events from a stale Handle; it tracks its own
	// generation counter for that.
	ID() string
}

// Transport opens new connections. Connect blocks until the handshake either
// succeeds (and the delegate's OnOpen has been scheduled) or fails.
type Transport interface {
	Connect(ctx context.Context, target Target, subprotocols []string, delegate Delegate) (Handle, error)
}
