// Package autostop starts an optional auto-shutdown timer, useful for
// cmd/wsdemo runs bounded to a fixed duration (smoke tests, demos) instead
// of running until a signal arrives.
package autostop

import (
	"context"
	"time"

	"go.uber.org/zap"

	"wsconnector/internal/logging"
)

// Start spawns a goroutine that calls cancel once timeout elapses, unless
// ctx is cancelled first. A non-positive timeout or a nil cancel is a no-op.
func Start(ctx context.Context, timeout time.Duration, cancel context.CancelFunc) {
	if timeout <= 0 || cancel == nil {
		return
	}

	log := logging.Named("autostop")

	go func() {
		log.Info("auto-shutdown timer started", zap.Duration("timeout", timeout))

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-timer.C:
			log.Info("auto-shutdown timeout reached, initiating graceful shutdown")
			cancel()
		case <-ctx.Done():
			log.Debug("auto-shutdown timer cancelled, context already done")
		}
	}()
}
