package server

import (
	"net/http"

	"github.com/bookshelf-ai/recommender/internal/analytics"
	"github.com/bookshelf-ai/recommender/pkg/health"
)

// Routes assembles the service mux. The analytics handler and health
// checker are optional; nil skips their routes.
func (h *Handler) Routes(analyticsH *analytics.Handler, checker *health.Checker) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/recommendations/similar", h.RecommendSimilar)
	mux.HandleFunc("GET /api/v1/recommendations/cluster", h.RecommendByCluster)
	mux.HandleFunc("GET /api/v1/recommendations/user/{id}", h.RecommendForUser)
	mux.HandleFunc("GET /api/v1/recommendations/item/{id}", h.RecommendForItem)
	mux.HandleFunc("POST /api/v1/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v1/statistics", h.Statistics)
	mux.HandleFunc("POST /api/v1/refit", h.Refit)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	if analyticsH != nil {
		mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
		mux.HandleFunc("GET /api/v1/analytics/top-queries", analyticsH.TopQueries)
	}
	if checker != nil {
		mux.HandleFunc("GET /health/live", checker.LiveHandler())
		mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	}
	return mux
}
