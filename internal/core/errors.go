package core

import "errors"

// ErrNotOpened is returned by Send/SendPing when status is not Opened. It is
// never retried; the caller decides what to do.
var ErrNotOpened = errors.New("wsconnector: connection is not opened")
