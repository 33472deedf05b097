package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler serves the aggregated usage view over HTTP. It reads only the
// aggregator's in-memory state; historical snapshots live in Postgres
// behind the aggregator store.
type Handler struct {
	agg *Aggregator
	log *slog.Logger
}

func NewHandler(agg *Aggregator) *Handler {
	return &Handler{
		agg: agg,
		log: slog.Default().With("component", "analytics-api"),
	}
}

// Stats handles GET /api/v1/analytics with the full aggregated view:
// search and recommendation volumes, cache ratios, latency percentiles,
// and the top queries.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.agg.Stats())
}

// TopQueries handles GET /api/v1/analytics/top-queries, a trimmed view
// for dashboards that only chart query popularity.
func (h *Handler) TopQueries(w http.ResponseWriter, r *http.Request) {
	stats := h.agg.Stats()
	h.writeJSON(w, struct {
		TopQueries        []QueryCount `json:"top_queries"`
		ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	}{
		TopQueries:        stats.TopQueries,
		ZeroResultQueries: stats.ZeroResultQueries,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("failed to write analytics response", "error", err)
	}
}
