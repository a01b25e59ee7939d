// Package wsconnector is a resilient client-side WebSocket connector: a
// supervisory layer around an arbitrary WebSocket transport that owns
// connection status, reconnect backoff, ping/pong liveness and
// reachability-driven suspension, so a host only ever sees a four-state
// status and a handful of events.
//
// A Client is built with New and configured through Options before the
// first Open:
//
//	c := wsconnector.New(wsconnector.Target{URL: "wss://example.com/ws"},
//		wsconnector.WithRetrier(retry.RetryPolicy{
//			Policy: retry.Exponential{Base: 1.5, Scale: time.Second},
//			Limits: 10,
//		}),
//		wsconnector.WithPinging(ping.Config{
//			Mode:     ping.ModeStandard,
//			Timeout:  5 * time.Second,
//			Interval: 30 * time.Second,
//		}),
//		wsconnector.WithCallbacks(onStatus, onMessage, onError),
//	)
//	c.Open()
//
// The connector never retries a host-initiated Close, never retries without
// a configured retrier, and drops events from a superseded connection
// attempt.
package wsconnector
