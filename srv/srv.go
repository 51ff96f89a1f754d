// Package srv provides HTTP server utilities with middleware support and graceful shutdown.
//
// It offers logging, recovery, CORS and locale negotiation middlewares, a way
// to chain them, and a server runner that shuts down gracefully on signals or
// when its context ends.
//
// Example usage:
//
//	mux := http.NewServeMux()
//	mux.Handle("/bundles/", preview.Handler(svc, sets...))
//
//	handler := srv.MiddlewareChain(
//		srv.Logging,
//		srv.Recover,
//		srv.Locale(locale.MustParse("en"), locale.MustParse("fr")),
//	)(mux)
//
//	err := srv.RunServer(ctx, handler, "localhost", "8080", func() error {
//		return db.Close()
//	})
package srv

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// ShutdownTimeout bounds how long RunServer waits for in-flight requests.
const ShutdownTimeout = 10 * time.Second

// RunServer starts an HTTP server and shuts it down gracefully when ctx ends
// or the process receives SIGINT or SIGTERM.
//
// host defaults to "0.0.0.0" and port to "8000". cleanup, when not nil, runs
// after a graceful shutdown; it is not called when the server fails to start.
func RunServer(ctx context.Context, handler http.Handler, host string, port string, cleanup func() error) error {
	if host == "" {
		host = "0.0.0.0"
	}
	if port == "" {
		port = "8000"
	}

	server := &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log := slog.With(slog.String("name", "srv.RunServer"), slog.String("addr", server.Addr))

	serverErrCh := make(chan error, 1)
	go func() {
		log.Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		close(serverErrCh)
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serverErrCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cleanup != nil {
		if err := cleanup(); err != nil {
			return err
		}
	}
	log.Info("server stopped")
	return nil
}
