package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/courier/internal/httpapi"
)

// serve runs the HTTP server until SIGINT or SIGTERM, then shuts it down
// and runs the hooks in order.
func serve(cfg httpapi.Config, handler http.Handler, log *slog.Logger, hooks []func(context.Context) error) error {
	server := httpapi.NewServer(cfg, handler)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return errors.Join(err, closeAll(hooks, log))
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	errs := []error{serveErr}
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, runHooks(shutdownCtx, hooks, log))

	if err := errors.Join(errs...); err != nil {
		log.Error("shutdown completed with errors")
		return err
	}
	log.Info("shutdown completed")
	return nil
}

// closeAll releases resources when startup fails before serving.
func closeAll(hooks []func(context.Context) error, log *slog.Logger) error {
	return runHooks(context.Background(), hooks, log)
}

func runHooks(ctx context.Context, hooks []func(context.Context) error, log *slog.Logger) error {
	var errs []error
	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			errs = append(errs, err)
			log.Error("shutdown hook failed", slog.Any("error", err))
		}
	}
	return errors.Join(errs...)
}
