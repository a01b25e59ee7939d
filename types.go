package wsconnector

import (
	"wsconnector/internal/core"
	"wsconnector/internal/proto"
	"wsconnector/internal/transport"
)

// Target names the connect destination: either a bare URL, or a URL plus
// extra request headers and a dial timeout.
type Target = transport.Target

// Status is the connector's four-state status (Opening/Opened/Closing/Closed).
type Status = proto.Status

// StatusKind discriminates Status.
type StatusKind = proto.StatusKind

const (
	StatusOpening = proto.StatusOpening
	StatusOpened  = proto.StatusOpened
	StatusClosing = proto.StatusClosing
	StatusClosed  = proto.StatusClosed
)

// CloseCode is a tagged RFC 6455 close status.
type CloseCode = proto.CloseCode

const (
	CloseInvalid             = proto.CloseInvalid
	CloseNormalClosure       = proto.CloseNormalClosure
	CloseGoingAway           = proto.CloseGoingAway
	CloseProtocolError       = proto.CloseProtocolError
	CloseUnsupportedData     = proto.CloseUnsupportedData
	CloseNoStatusReceived    = proto.CloseNoStatusReceived
	CloseAbnormalClosure     = proto.CloseAbnormalClosure
	CloseInvalidFramePayload = proto.CloseInvalidFramePayload
	ClosePolicyViolation     = proto.ClosePolicyViolation
	CloseMessageTooBig       = proto.CloseMessageTooBig
	CloseMandatoryExtension  = proto.CloseMandatoryExtension
	CloseInternalServerError = proto.CloseInternalServerError
	CloseTLSHandshakeFailure = proto.CloseTLSHandshakeFailure
)

// CloseCodeFromRaw wraps a raw close status.
func CloseCodeFromRaw(raw uint16) CloseCode { return proto.CloseCodeFromRaw(raw) }

// CloseReason classifies why a close happened. A nil *CloseReason always
// means a manual, host-requested close.
type CloseReason = proto.CloseReason

// CloseReasonKind enumerates CloseReason.Kind.
type CloseReasonKind = proto.CloseReasonKind

const (
	ReasonNone    = proto.ReasonNone
	ReasonPinging = proto.ReasonPinging
	ReasonMonitor = proto.ReasonMonitor
	ReasonError   = proto.ReasonError
	ReasonServer  = proto.ReasonServer
)

// IsManual reports whether r denotes a manual, host-initiated close.
func IsManual(r *CloseReason) bool { return proto.IsManual(r) }

// Message is the envelope surfaced by the transport: application payload
// (text/binary) or a liveness frame (ping/pong).
type Message = proto.Message

// MessageKind discriminates Message.
type MessageKind = proto.MessageKind

const (
	MessageText   = proto.MessageText
	MessageBinary = proto.MessageBinary
	MessagePing   = proto.MessagePing
	MessagePong   = proto.MessagePong
)

func TextMessage(s string) Message   { return proto.TextMessage(s) }
func BinaryMessage(b []byte) Message { return proto.BinaryMessage(b) }

// Challenge is a TLS server-trust challenge relayed from the transport.
type Challenge = proto.Challenge

// Disposition is the host's answer to a Challenge.
type Disposition = proto.Disposition

// DispositionKind enumerates Disposition.Kind.
type DispositionKind = proto.DispositionKind

const (
	UseDefault    = proto.UseDefault
	Reject        = proto.Reject
	Cancel        = proto.Cancel
	UseCredential = proto.UseCredential
)

// Credential carries host-supplied credentials for UseCredential.
type Credential = proto.Credential

// Reachability is the two-state signal a Monitor pushes.
type Reachability = core.Reachability

const (
	Unsatisfied = core.Unsatisfied
	Satisfied   = core.Satisfied
)

// Monitor is the external reachability collaborator the connector consumes.
type Monitor = core.Monitor

// ChallengeHandler lets the host resolve a Challenge asynchronously.
type ChallengeHandler = core.ChallengeHandler
