package wsconnector

import (
	"errors"
	"fmt"

	"wsconnector/internal/core"
)

// ErrNotOpened is returned by Send/SendPing when status is not Opened.
var ErrNotOpened = core.ErrNotOpened

// ErrPingTimeout reports that the liveness subsystem requested a local close
// after a ping deadline passed with no pong.
var ErrPingTimeout = errors.New("wsconnector: ping timeout, no pong received")

// ErrMonitorLoss reports that the reachability Monitor reported Unsatisfied,
// which forced a local close regardless of any configured retrier.
var ErrMonitorLoss = errors.New("wsconnector: reachability monitor reported loss")

// TransportFailureError wraps an error the Transport itself raised (a failed
// dial, a read/write error) rather than a clean protocol close.
type TransportFailureError struct {
	Err error
}

func (e *TransportFailureError) Error() string {
	return fmt.Sprintf("wsconnector: transport failure: %v", e.Err)
}

func (e *TransportFailureError) Unwrap() error { return e.Err }

// ProtocolCloseError reports a close whose code/reason came from the peer or
// from the connector itself, for hosts that want the close detail as an
// error rather than inspecting Status directly.
type ProtocolCloseError struct {
	Code   CloseCode
	Reason *CloseReason
}

func (e *ProtocolCloseError) Error() string {
	return fmt.Sprintf("wsconnector: closed with code %s, reason %s", e.Code, e.Reason)
}

// ErrorForClose builds an error describing a given Closed status, classifying
// by CloseReason.Kind; a manual (nil) reason yields nil. The Client does not
// call it: its onError callback receives the transport's own errors.
func ErrorForClose(code CloseCode, reason *CloseReason) error {
	switch {
	case IsManual(reason):
		return nil
	case reason.Kind == ReasonPinging:
		return ErrPingTimeout
	case reason.Kind == ReasonMonitor:
		return ErrMonitorLoss
	case reason.Kind == ReasonError:
		return &TransportFailureError{Err: fmt.Errorf("code=%d domain=%s", reason.ErrCode, reason.ErrDomain)}
	default:
		return &ProtocolCloseError{Code: code, Reason: reason}
	}
}
