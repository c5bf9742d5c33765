package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/ent0n29/folio/internal/app"
	"github.com/ent0n29/folio/internal/config"
	"github.com/ent0n29/folio/internal/observability"
)

func main() {
	boot := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("config error")
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		boot.Fatal().Err(err).Msg("logger error")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, nil, nil); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

// run serves until ctx is done, then shuts down within cfg.ShutdownTimeout.
// A nil listener binds cfg.BindAddr.
func run(ctx context.Context, cfg config.Config, logger zerolog.Logger, metrics *observability.Metrics, ln net.Listener) error {
	built, err := app.Build(ctx, cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			logger.Error().Err(err).Msg("cleanup failed")
		}
	}()

	if ln == nil {
		ln, err = net.Listen("tcp", cfg.BindAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.BindAddr, err)
		}
	}

	httpServer := &http.Server{Handler: built.API.Router()}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", ln.Addr().String()).
			Str("generator", built.Generator).
			Str("log_store", built.LogStore).
			Msg("server listening")
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
		_ = httpServer.Close()
	}

	logger.Info().Msg("shutdown complete")
	return nil
}
