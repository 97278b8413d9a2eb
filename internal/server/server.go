// Package server assembles the HTTP surface: the three service handlers
// behind shared middleware, plus a liveness probe.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"libradesk/internal/catalog"
	"libradesk/internal/circulation"
	"libradesk/internal/library"
	"libradesk/internal/membership"
	"libradesk/internal/web"
)

// Services are the handlers' collaborators.
type Services struct {
	Catalog     catalog.Service
	Membership  membership.Service
	Circulation circulation.Service
}

// NewServices builds every service over one store.
func NewServices(store library.Store, logger *slog.Logger, opts ...circulation.Option) (Services, error) {
	circ, err := circulation.NewService(store, logger, opts...)
	if err != nil {
		return Services{}, fmt.Errorf("failed to create circulation service: %w", err)
	}
	return Services{
		Catalog:     catalog.NewService(store, logger),
		Membership:  membership.NewService(store, logger),
		Circulation: circ,
	}, nil
}

// Options tune the middleware stack.
type Options struct {
	Logger         *slog.Logger
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter mounts /books, /members and /borrowing plus /ping.
func NewRouter(store library.Store, svc Services, opts Options) http.Handler {
	logger := opts.Logger

	r := chi.NewRouter()
	r.Use(web.RequestID)
	r.Use(web.Trace)
	r.Use(web.AccessLog(logger))
	r.Use(middleware.Recoverer)
	r.Use(web.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			logger.ErrorContext(r.Context(), "store ping failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Mount("/books", catalog.NewHandler(svc.Catalog, logger).Routes())
	r.Mount("/members", membership.NewHandler(svc.Membership, logger).Routes())
	r.Mount("/borrowing", circulation.NewHandler(svc.Circulation, logger).Routes())
	return r
}

// Run serves handler on addr until ctx is cancelled, then drains in-flight
// requests for at most shutdownTimeout.
func Run(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return Serve(ctx, ln, handler, shutdownTimeout, logger)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, shutdownTimeout time.Duration, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down http server", slog.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	return nil
}
