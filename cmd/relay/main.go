package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk/internal/config"
	"github.com/helpdeskhq/helpdesk/internal/observability"
	"github.com/helpdeskhq/helpdesk/internal/relay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, "registry-relay")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	upstream := relay.NewUpstream(relay.UpstreamOptions{
		BaseURL: cfg.Relay.UpstreamURL,
		Token:   cfg.Relay.UpstreamToken,
		Rate:    cfg.Relay.UpstreamRate,
		Burst:   cfg.Relay.UpstreamBurst,
		Timeout: cfg.Relay.UpstreamTimeout,
	})
	handler := relay.NewHandler(upstream, logger)

	srv := &http.Server{
		Addr:              cfg.Relay.Addr(),
		Handler:           handler.Router(cfg.Relay.RequestsPerIP),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Relay.UpstreamTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("relay listening", zap.String("addr", srv.Addr), zap.String("upstream", cfg.Relay.UpstreamURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("relay listen", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("relay forced to shutdown", zap.Error(err))
	}
}
