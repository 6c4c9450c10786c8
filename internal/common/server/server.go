package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/microblog-go/microblog/internal/common/constants"
	"github.com/microblog-go/microblog/internal/common/logger"
)

// ShutdownHook runs after the listener stops accepting keep-alive work and
// before in-flight requests are waited on.
type ShutdownHook func(ctx context.Context) error

// Run serves on srv until ctx is cancelled, then shuts down gracefully. It
// returns the listener error if serving fails before that.
func Run(ctx context.Context, srv *http.Server, cfg Config, log *logger.Logger, hooks ...ShutdownHook) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", srv.Addr, err)
	}
	return Serve(ctx, srv, ln, cfg, log, hooks...)
}

func Serve(ctx context.Context, srv *http.Server, ln net.Listener, cfg Config, log *logger.Logger, hooks ...ShutdownHook) error {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = constants.ShutdownTimeout
	}
	if cfg.DrainTimeout <= 0 || cfg.DrainTimeout > cfg.ShutdownTimeout {
		cfg.DrainTimeout = cfg.ShutdownTimeout
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("microblog listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	srv.SetKeepAlivesEnabled(false)

	drainCtx, drainCancel := context.WithTimeout(shutdownCtx, cfg.DrainTimeout)
	for i, hook := range hooks {
		if err := hook(drainCtx); err != nil {
			log.Errorf("shutdown hook %d failed: %v", i, err)
		}
	}
	drainCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	log.Info("stopped gracefully")
	return nil
}
