// Command wsdemo is a small host application exercising wsconnector end to
// end: it dials a target WebSocket URL, reconnects through the configured
// retry policy, pings the connection to detect silent drops and shuts down
// cleanly on Ctrl+C/SIGTERM. Grounded on cmd/userbot/main.go's bootstrap
// order (env → config → logger → signals → app), adapted from a single
// fixed Telegram client to a generic, policy-configurable connector demo.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	ws "wsconnector"
	"wsconnector/internal/autostop"
	"wsconnector/internal/dispatch"
	"wsconnector/internal/lifecycle"
	"wsconnector/internal/logging"
	"wsconnector/internal/retry"
	"wsconnector/internal/support/debug"
)

func main() {
	envPath := flag.String("env", ".env", "path to .env file")
	policyPath := flag.String("policy", "", "path to an optional YAML retry/pinger policy file")
	debugFlag := flag.Bool("debug", false, "pretty-print status/message transitions")
	flag.Parse()

	debug.DEBUG = *debugFlag

	if err := godotenv.Load(*envPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("wsdemo: failed to load .env: %v", err)
	}

	cfg, err := loadPolicy(*policyPath)
	if err != nil {
		log.Fatalf("wsdemo: %v", err)
	}

	logLevel := cfg.Log.Level
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Init(logLevel, cfg.Log.File, 10, 3, 28)
	logger := logging.Named("wsdemo")

	url := strings.TrimSpace(os.Getenv("WS_URL"))
	if url == "" {
		url = "wss://echo.websocket.org"
	}
	var subprotocols []string
	if raw := strings.TrimSpace(os.Getenv("WS_SUBPROTOCOLS")); raw != "" {
		subprotocols = strings.Split(raw, ",")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if raw := strings.TrimSpace(os.Getenv("WS_MAX_RUNTIME")); raw != "" {
		if d, parseErr := time.ParseDuration(raw); parseErr == nil {
			cfg.MaxRuntime = d
		}
	}
	autostop.Start(ctx, cfg.MaxRuntime, stop)

	mgr := lifecycle.New(ctx)
	laneName, clientName := "dispatch-lane", "client"

	var lane *dispatch.SerialDispatcher
	var client *ws.Client

	if regErr := mgr.Register(laneName, "", nil,
		func(ctx context.Context) (context.Context, error) {
			lane = dispatch.NewSerialDispatcher(64)
			return nil, nil
		},
		func(ctx context.Context) error {
			lane.Close()
			return nil
		},
	); regErr != nil {
		log.Fatalf("wsdemo: %v", regErr)
	}

	if regErr := mgr.Register(clientName, "", []string{laneName},
		func(ctx context.Context) (context.Context, error) {
			opts := []ws.Option{
				ws.WithDispatchQueue(lane),
				ws.WithSubprotocols(subprotocols...),
				ws.WithRetrier(cfg.Retry.build()),
				ws.WithCallbacks(
					func(old, new ws.Status) { logger.Sugar().Infof("status: %s -> %s", old, new) },
					func(m ws.Message) { debug.Message(m) },
					func(err error) { logger.Sugar().Warnf("connector error: %v", err) },
				),
			}
			if pc, ok := cfg.Pinging.build(); ok {
				opts = append(opts, ws.WithPinging(pc))
			}
			if cfg.ReconnectLimiter.RatePerSecond > 0 {
				opts = append(opts, ws.WithReconnectLimiter(
					retry.NewReconnectLimiter(cfg.ReconnectLimiter.RatePerSecond, cfg.ReconnectLimiter.Burst)))
			}

			client = ws.New(ws.Target{URL: url, Timeout: 15 * time.Second}, opts...)
			client.Open()
			return nil, nil
		},
		func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Shutdown(shutdownCtx, ws.CloseNormalClosure)
		},
	); regErr != nil {
		log.Fatalf("wsdemo: %v", regErr)
	}

	if startErr := mgr.StartAll(); startErr != nil {
		log.Fatalf("wsdemo: startup failed: %v", startErr)
	}
	logger.Sugar().Infof("connecting to %s", url)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if shutErr := mgr.Shutdown(); shutErr != nil {
		logger.Sugar().Errorf("shutdown completed with errors: %v", shutErr)
	}
	logger.Info("graceful shutdown complete")
}
