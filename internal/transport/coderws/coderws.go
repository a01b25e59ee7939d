// Package coderws is the default transport.Transport implementation, built
// on github.com/coder/websocket. It owns actual frame I/O, handshake and
// TLS; everything above this package only ever sees the
// transport.Handle/Delegate capability.
package coderws

import (
	"context"
	"errors"
	"net/http"

	ws "github.com/coder/websocket"
	"github.com/google/uuid"

	"wsconnector/internal/proto"
	"wsconnector/internal/transport"
)

// Transport dials real WebSocket connections via github.com/coder/websocket.
type Transport struct {
	// HTTPClient is optional; nil uses the library's default.
	HTTPClient *http.Client
}

// New returns the default Transport.
func New() *Transport { return &Transport{} }

// Connect dials target, starts a background receive loop and returns a
// Handle for it. The handshake itself is synchronous; everything after is
// delivered through delegate.
func (t *Transport) Connect(ctx context.Context, target transport.Target, subprotocols []string, delegate transport.Delegate) (transport.Handle, error) {
	dialCtx := ctx
	var cancel context.CancelFunc
	if target.Timeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, target.Timeout)
		defer cancel()
	}

	opts := &ws.DialOptions{
		HTTPClient:   t.HTTPClient,
		HTTPHeader:   target.Header,
		Subprotocols: subprotocols,
	}

	conn, _, err := ws.Dial(dialCtx, target.URL, opts)
	if err != nil {
		return nil, err
	}

	h := &handle{
		id:       uuid.NewString(),
		conn:     conn,
		delegate: delegate,
		done:     make(chan struct{}),
	}
	delegate.FireOpen(h, conn.Subprotocol())
	go h.receiveLoop()
	return h, nil
}

// handle adapts a single *ws.Conn to transport.Handle, running its own
// receive loop goroutine until the connection ends or is cancelled.
type handle struct {
	id       string
	conn     *ws.Conn
	delegate transport.Delegate
	done     chan struct{}
}

func (h *handle) ID() string { return h.id }

func (h *handle) Send(ctx context.Context, msg proto.Message) error {
	switch msg.Kind {
	case proto.MessageText:
		return h.conn.Write(ctx, ws.MessageText, []byte(msg.Text))
	case proto.MessageBinary:
		return h.conn.Write(ctx, ws.MessageBinary, msg.Data)
	default:
		return errors.New("coderws: Send only supports text/binary messages, use SendPing for liveness frames")
	}
}

func (h *handle) SendPing(ctx context.Context) error {
	return h.conn.Ping(ctx)
}

func (h *handle) Cancel(code proto.CloseCode, reasonBytes []byte) error {
	return h.conn.Close(ws.StatusCode(code.ForSend().Raw()), string(reasonBytes))
}

// receiveLoop is a plain loop that awaits one message, dispatches it, and
// continues until the transport signals end. It halts implicitly once Read
// returns an error, which happens exactly when the conn is closed locally
// or remotely.
func (h *handle) receiveLoop() {
	defer close(h.done)

	for {
		typ, data, err := h.conn.Read(context.Background())
		if err != nil {
			h.handleReadError(err)
			return
		}

		switch typ {
		case ws.MessageText:
			h.delegate.FireMessage(proto.TextMessage(string(data)))
		case ws.MessageBinary:
			h.delegate.FireMessage(proto.BinaryMessage(data))
		}
	}
}

func (h *handle) handleReadError(err error) {
	if code := ws.CloseStatus(err); code != -1 {
		h.delegate.FireClose(proto.CloseCodeFromRaw(uint16(code)), nil)
		return
	}
	h.delegate.FireFail(err)
}
