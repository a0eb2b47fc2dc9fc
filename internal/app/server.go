package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Start binds the configured address and serves until SIGINT, SIGTERM or
// SIGHUP arrives or the server fails. The returned channel is closed then;
// call Stop afterwards to release resources.
func (a *App) Start() <-chan struct{} {
	done := make(chan struct{})

	l, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		slog.Error("failed to bind http listener", "address", a.httpServer.Addr, "error", err)
		os.Exit(1)
	}
	slog.Info("http server listening", "address", l.Addr().String())
	serveErr := a.Serve(l)

	go func() {
		defer close(done)

		sigCtx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		select {
		case <-sigCtx.Done():
			slog.Info("shutdown signal received")
		case err := <-serveErr:
			slog.Error("http server stopped unexpectedly", "error", err)
		}
		a.cancel()
	}()

	return done
}

// Serve runs the HTTP server on l. The channel yields the serve error, if
// any, once the server stops.
func (a *App) Serve(l net.Listener) <-chan error {
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		if err := a.httpServer.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	return errc
}

// Stop drains in-flight requests, waits for background workers such as the
// OTP janitor and broker consumers, then runs the closers in order.
func (a *App) Stop(ctx context.Context) {
	a.cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to shut down http server", "error", err)
	}

	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background worker failed", "error", err)
	}

	for _, c := range a.closers {
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "name", c.name, "error", err)
		}
	}
	slog.InfoContext(ctx, "application stopped")
}
