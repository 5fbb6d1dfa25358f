// Package exporters serves the Prometheus metrics over HTTP.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/smazurov/dcam/internal/guard"
)

// HTTPHandler returns the Prometheus metrics HTTP handler.
// This collects all promauto-registered metrics automatically.
func HTTPHandler() http.Handler {
	return promhttp.Handler()
}

// Listen serves /metrics on addr until the returned guard is released.
func Listen(ctx context.Context, addr string, logger *slog.Logger) (*guard.Guard, error) {
	return guard.Acquire(ctx, "metrics-listener", func(ctx context.Context) (string, guard.ReleaseFunc, error) {
		var lc net.ListenConfig
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			return "", nil, fmt.Errorf("listen on %s: %w", addr, err)
		}

		mux := http.NewServeMux()
		mux.Handle("/metrics", HTTPHandler())
		srv := &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server stopped", "error", err)
			}
		}()
		logger.Info("Serving metrics", "addr", ln.Addr().String())

		return ln.Addr().String(), func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		}, nil
	}, logger)
}
