package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Prefix names every collector this package registers.
const Prefix = "ir_"

// NewMux serves /metrics from g and, at /, a plain-text list of the engine's
// own metric families with their current sample counts.
func NewMux(g prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", Handler(g))
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		families, err := g.Gather()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		lines := make([]string, 0, len(families))
		for _, f := range families {
			if strings.HasPrefix(f.GetName(), Prefix) {
				lines = append(lines, fmt.Sprintf("%s %s samples=%d", f.GetName(), strings.ToLower(f.GetType().String()), len(f.GetMetric())))
			}
		}
		sort.Strings(lines)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "retrieval engine metrics (scrape /metrics)\n%s\n", strings.Join(lines, "\n"))
	})
	return mux
}

// StartServer serves NewMux(g) on port in the background and returns its
// Shutdown.
func StartServer(port int, g prometheus.Gatherer) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewMux(g),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	return server.Shutdown
}
