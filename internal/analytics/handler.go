package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/classic-ir/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/classic-ir/pkg/errors"
)

const maxTopN = 100

// Handler serves the aggregate over HTTP.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Register mounts the analytics routes.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/index", h.Index)
}

// Stats serves query totals. ?top=N (1-100) sizes the rankings and
// ?mode=ranked|boolean keeps a single mode's latency block.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	n := defaultTopN
	if raw := r.URL.Query().Get("top"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxTopN {
			h.writeError(w, apperrors.Invalid("top must be an integer in [1, %d], got %q", maxTopN, raw))
			return
		}
		n = v
	}

	stats := h.aggregator.StatsTop(n)
	if raw := r.URL.Query().Get("mode"); raw != "" {
		mode, err := parser.ParseMode(raw)
		if err != nil {
			h.writeError(w, err)
			return
		}
		name := mode.String()
		stats.Modes = map[string]ModeStats{name: stats.Modes[name]}
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// Index serves the index build history.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.aggregator.IndexReport())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	msg := http.StatusText(status)
	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		msg = appErr.Message
	}
	h.writeJSON(w, status, map[string]string{"error": msg})
}
