// Package server exposes the recommendation engine over HTTP: search,
// the four recommendation paths, title suggestions, statistics, refit,
// and cache administration.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bookshelf-ai/recommender/internal/analytics"
	"github.com/bookshelf-ai/recommender/internal/engine"
	"github.com/bookshelf-ai/recommender/internal/server/cache"
	"github.com/bookshelf-ai/recommender/internal/suggest"
	"github.com/bookshelf-ai/recommender/pkg/config"
	pkgerrors "github.com/bookshelf-ai/recommender/pkg/errors"
	"github.com/bookshelf-ai/recommender/pkg/logger"
	"github.com/bookshelf-ai/recommender/pkg/metrics"
)

// RefitFunc rebuilds the engine from the configured data source.
type RefitFunc func(ctx context.Context) error

// Tracker receives usage events for asynchronous analytics delivery.
// *analytics.Collector is the production implementation.
type Tracker interface {
	Track(event interface{})
}

type Handler struct {
	engine    *engine.Engine
	cache     *cache.QueryCache
	collector Tracker
	suggester suggest.Suggester
	refit     RefitFunc
	cfg       config.RecommendConfig
	m         *metrics.Metrics
	logger    *slog.Logger
}

func New(
	eng *engine.Engine,
	queryCache *cache.QueryCache,
	collector Tracker,
	suggester suggest.Suggester,
	refit RefitFunc,
	cfg config.RecommendConfig,
	m *metrics.Metrics,
) *Handler {
	return &Handler{
		engine:    eng,
		cache:     queryCache,
		collector: collector,
		suggester: suggester,
		refit:     refit,
		cfg:       cfg,
		m:         m,
		logger:    slog.Default().With("component", "server"),
	}
}

type searchResponse struct {
	Query   string              `json:"query"`
	Results []engine.ScoredBook `json:"results"`
}

// Search handles GET /api/v1/search?q=...&limit=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	payload, cacheHit, err := h.cached(ctx, "search", query, limit, func() ([]byte, error) {
		results, err := h.engine.Search(query, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(searchResponse{Query: query, Results: results})
	})
	if err != nil {
		h.handleError(w, log, err, "search failed")
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	returned := countResults(payload)
	log.Info("search completed",
		"query", query,
		"returned", returned,
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	h.observeSearch(start, cacheHit)
	h.track(analytics.SearchEvent{
		Type:      searchEventType(returned),
		Query:     query,
		Returned:  returned,
		LatencyMs: latencyMs,
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	})
	h.writeRaw(w, http.StatusOK, payload)
}

type recommendResponse struct {
	Query           string                  `json:"query"`
	Recommendations []engine.Recommendation `json:"recommendations"`
}

// RecommendSimilar handles GET /api/v1/recommendations/similar?title=...
func (h *Handler) RecommendSimilar(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, engine.MethodContent, r.URL.Query().Get("title"), h.engine.RecommendSimilar)
}

// RecommendByCluster handles GET /api/v1/recommendations/cluster?title=...
// Never cached: the result is a fresh random sample each call.
func (h *Handler) RecommendByCluster(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	log := logger.FromContext(r.Context())

	title := r.URL.Query().Get("title")
	if title == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'title' is required")
		return
	}
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	recs, err := h.engine.RecommendByCluster(title, limit)
	if err != nil {
		h.handleError(w, log, err, "cluster recommendation failed")
		return
	}
	h.finishRecommend(w, r, engine.MethodCluster, title, recs, false, start)
}

// RecommendForUser handles GET /api/v1/recommendations/user/{id}
func (h *Handler) RecommendForUser(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, engine.MethodCollaborativeUser, r.PathValue("id"), h.engine.RecommendForUser)
}

// RecommendForItem handles GET /api/v1/recommendations/item/{id}
func (h *Handler) RecommendForItem(w http.ResponseWriter, r *http.Request) {
	h.recommend(w, r, engine.MethodCollaborativeItem, r.PathValue("id"), h.engine.RecommendForItem)
}

func (h *Handler) recommend(
	w http.ResponseWriter,
	r *http.Request,
	method, query string,
	fn func(string, int) ([]engine.Recommendation, error),
) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if query == "" {
		h.writeError(w, http.StatusBadRequest, "a book title or identifier is required")
		return
	}
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	payload, cacheHit, err := h.cached(ctx, method, query, limit, func() ([]byte, error) {
		recs, err := fn(query, limit)
		if err != nil {
			return nil, err
		}
		return json.Marshal(recommendResponse{Query: query, Recommendations: recs})
	})
	if err != nil {
		h.handleError(w, log, err, "recommendation failed")
		return
	}

	latencyMs := time.Since(start).Milliseconds()
	returned := countResults(payload)
	log.Info("recommendation completed",
		"method", method,
		"query", query,
		"returned", returned,
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	h.track(analytics.RecommendEvent{
		Type:      analytics.EventRecommend,
		Method:    method,
		Query:     query,
		Returned:  returned,
		LatencyMs: latencyMs,
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	})
	h.writeRaw(w, http.StatusOK, payload)
}

func (h *Handler) finishRecommend(
	w http.ResponseWriter,
	r *http.Request,
	method, query string,
	recs []engine.Recommendation,
	cacheHit bool,
	start time.Time,
) {
	ctx := r.Context()
	latencyMs := time.Since(start).Milliseconds()
	logger.FromContext(ctx).Info("recommendation completed",
		"method", method,
		"query", query,
		"returned", len(recs),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	h.track(analytics.RecommendEvent{
		Type:      analytics.EventRecommend,
		Method:    method,
		Query:     query,
		Returned:  len(recs),
		LatencyMs: latencyMs,
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: logger.RequestID(ctx),
	})
	h.writeJSON(w, http.StatusOK, recommendResponse{Query: query, Recommendations: recs})
}

// cached routes a computation through the query cache when one is
// configured.
func (h *Handler) cached(
	ctx context.Context,
	op, query string,
	limit int,
	computeFn func() ([]byte, error),
) ([]byte, bool, error) {
	if h.cache == nil {
		payload, err := computeFn()
		return payload, false, err
	}
	return h.cache.GetOrCompute(ctx, op, query, limit, computeFn)
}

func (h *Handler) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := h.cfg.DefaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return 0, false
		}
		if h.cfg.MaxResults > 0 && parsed > h.cfg.MaxResults {
			parsed = h.cfg.MaxResults
		}
		limit = parsed
	}
	return limit, true
}

func (h *Handler) observeSearch(start time.Time, cacheHit bool) {
	if h.m == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	h.m.SearchLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
}

func (h *Handler) track(event interface{}) {
	if h.collector != nil {
		h.collector.Track(event)
	}
}

func (h *Handler) handleError(w http.ResponseWriter, log *slog.Logger, err error, message string) {
	status := pkgerrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Error(message, "error", err)
	} else {
		log.Warn(message, "error", err)
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func searchEventType(returned int) analytics.EventType {
	if returned == 0 {
		return analytics.EventZeroResult
	}
	return analytics.EventSearch
}

// countResults counts entries in a marshaled results/recommendations
// payload without a full decode of the books inside.
func countResults(payload []byte) int {
	var probe struct {
		Results         []json.RawMessage `json:"results"`
		Recommendations []json.RawMessage `json:"recommendations"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return 0
	}
	return len(probe.Results) + len(probe.Recommendations)
}
