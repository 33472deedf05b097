package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bookshelf-ai/recommender/internal/analytics"
	"github.com/bookshelf-ai/recommender/pkg/logger"
)

type suggestRequest struct {
	Description string `json:"description"`
}

type suggestResponse struct {
	Titles []string `json:"titles"`
}

// Suggest handles POST /api/v1/suggest with a book description body and
// returns similar titles from the generative collaborator.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "request body must be JSON with a 'description' field")
		return
	}
	if req.Description == "" {
		h.writeError(w, http.StatusBadRequest, "description is required")
		return
	}

	titles, err := h.suggester.SimilarTitles(r.Context(), req.Description)
	if err != nil {
		h.handleError(w, log, err, "suggestion failed")
		return
	}
	h.writeJSON(w, http.StatusOK, suggestResponse{Titles: titles})
}

// Statistics handles GET /api/v1/statistics.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Statistics())
}

// Refit handles POST /api/v1/refit: reloads the data source, rebuilds
// the index, and invalidates the query cache. Queries keep running
// against the old snapshot until the new one swaps in.
func (h *Handler) Refit(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())

	if h.refit == nil {
		h.writeError(w, http.StatusServiceUnavailable, "refit is not configured")
		return
	}
	if err := h.refit(r.Context()); err != nil {
		h.handleError(w, log, err, "refit failed")
		return
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(r.Context()); err != nil {
			log.Error("cache invalidation after refit failed", "error", err)
		}
	}
	stats := h.engine.Statistics()
	h.track(analytics.FitEvent{
		Type:        analytics.EventFit,
		Books:       stats.Books,
		Vocabulary:  stats.VocabularySize,
		WithRatings: stats.WithRatings,
		LatencyMs:   time.Since(start).Milliseconds(),
		Timestamp:   time.Now().UTC(),
	})
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "refitted"})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

// CacheInvalidate handles POST /api/v1/cache/invalidate.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}
