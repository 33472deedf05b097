// Package engine ties the normalizer, vectorizer, similarity index, and
// cluster assigner together into the recommendation service. A fit builds
// an immutable snapshot of every derived artifact; queries read whichever
// snapshot is current and a refit swaps the whole snapshot atomically.
package engine

import (
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/bookshelf-ai/recommender/internal/catalog"
	"github.com/bookshelf-ai/recommender/internal/cluster"
	"github.com/bookshelf-ai/recommender/internal/feature"
	"github.com/bookshelf-ai/recommender/internal/ratings"
	"github.com/bookshelf-ai/recommender/internal/similarity"
	"github.com/bookshelf-ai/recommender/internal/textnorm"
	"github.com/bookshelf-ai/recommender/pkg/config"
	pkgerrors "github.com/bookshelf-ai/recommender/pkg/errors"
	"github.com/bookshelf-ai/recommender/pkg/metrics"
)

// Recommendation methods.
const (
	MethodContent           = "content"
	MethodCluster           = "cluster"
	MethodCollaborativeUser = "collaborative-user"
	MethodCollaborativeItem = "collaborative-item"
)

// clusterScore is the flat score attached to cluster-based picks; it
// signals coarse relevance, deliberately weaker than a computed cosine.
const clusterScore = 0.8

// Recommendation is a single ranked suggestion.
type Recommendation struct {
	Book   catalog.Book `json:"book"`
	Score  float64      `json:"score"`
	Method string       `json:"method"`
	Reason string       `json:"reason,omitempty"`
}

// ScoredBook is a search hit.
type ScoredBook struct {
	Book  catalog.Book `json:"book"`
	Score float64      `json:"score"`
}

// Statistics describes the current fitted state.
type Statistics struct {
	Fitted         bool                `json:"fitted"`
	Books          int                 `json:"books"`
	VocabularySize int                 `json:"vocabulary_size"`
	EmbeddingDims  int                 `json:"embedding_dims"`
	Clusters       int                 `json:"clusters"`
	WithRatings    bool                `json:"with_ratings"`
	FittedAt       time.Time           `json:"fitted_at,omitzero"`
	Ratings        *ratings.Statistics `json:"ratings,omitempty"`
}

// snapshot holds every fit-time artifact. Snapshots are immutable after
// construction; a refit builds a fresh one and swaps the pointer.
type snapshot struct {
	books       *catalog.Collection
	vectorizer  *feature.Vectorizer
	vectors     []feature.Vector
	similarity  [][]float64
	embedding   [][]float64
	labels      []int
	k           int
	withRatings bool
	fittedAt    time.Time
}

// Engine is the recommendation service. Safe for concurrent use: queries
// share a read lock, fits take the write lock only for the final swap.
type Engine struct {
	cfg config.EngineConfig
	rec config.RecommendConfig
	m   *metrics.Metrics
	log *slog.Logger

	mu      sync.RWMutex
	snap    *snapshot
	ratings *ratings.Repository

	rngMu sync.Mutex
	rng   *rand.Rand
}

// New constructs an engine. The metrics handle may be nil, in which case
// no instrumentation is recorded.
func New(cfg config.EngineConfig, rec config.RecommendConfig, m *metrics.Metrics) *Engine {
	return &Engine{
		cfg: cfg,
		rec: rec,
		m:   m,
		log: slog.Default().With("component", "engine"),
		rng: rand.New(rand.NewSource(cfg.ClusterSeed)),
	}
}

// Fit builds the index over the catalog without rating signal.
func (e *Engine) Fit(books *catalog.Collection) error {
	return e.fit(books, nil)
}

// FitWithRatings builds the index with rating-derived feature tags and
// makes repo available to the collaborative recommenders. The repository
// keeps its own lifecycle; it may be reloaded independently, but feature
// tags only reflect the ratings seen at fit time.
func (e *Engine) FitWithRatings(books *catalog.Collection, repo *ratings.Repository) error {
	return e.fit(books, repo)
}

func (e *Engine) fit(books *catalog.Collection, repo *ratings.Repository) error {
	start := time.Now()
	if books == nil || books.Len() == 0 {
		e.countFit("failure")
		return pkgerrors.ErrEmptyCatalog
	}

	docs := make([][]string, books.Len())
	for i, b := range books.Books() {
		tokens := textnorm.SearchTerms(b.Title, b.Author, b.Genre)
		if repo != nil && e.cfg.RatingFeatures {
			avg, ok := repo.AverageRating(b.ID)
			tokens = append(tokens, feature.RatingTags(avg, repo.RatingCount(b.ID), ok)...)
		}
		docs[i] = tokens
	}

	vectorizer := feature.New(feature.Config{
		MaxFeatures:    e.cfg.MaxFeatures,
		MinDocCount:    e.cfg.MinDocCount,
		MaxDocFraction: e.cfg.MaxDocFraction,
	})
	vectors, err := vectorizer.Fit(docs)
	if err != nil {
		e.countFit("failure")
		return err
	}

	embedding := similarity.Reduce(vectors, vectorizer.VocabularySize(), e.cfg.EmbeddingDims)
	k := cluster.ChooseK(books.Len())
	labels := cluster.Assign(embedding, k, e.cfg.ClusterSeed)

	snap := &snapshot{
		books:       books,
		vectorizer:  vectorizer,
		vectors:     vectors,
		similarity:  similarity.Matrix(vectors),
		embedding:   embedding,
		labels:      labels,
		k:           k,
		withRatings: repo != nil,
		fittedAt:    time.Now().UTC(),
	}

	e.mu.Lock()
	e.snap = snap
	if repo != nil {
		e.ratings = repo
	}
	e.mu.Unlock()

	e.countFit("success")
	if e.m != nil {
		e.m.FitDuration.Observe(time.Since(start).Seconds())
		e.m.CatalogSize.Set(float64(books.Len()))
		e.m.VocabularySize.Set(float64(vectorizer.VocabularySize()))
		if repo != nil {
			e.m.RatingsLoaded.Set(float64(repo.Len()))
		}
	}
	e.log.Info("engine fitted",
		"books", books.Len(),
		"vocabulary", vectorizer.VocabularySize(),
		"clusters", k,
		"with_ratings", repo != nil,
		"duration", time.Since(start),
	)
	return nil
}

// current returns the live snapshot, or ErrNotFitted before the first fit.
func (e *Engine) current() (*snapshot, *ratings.Repository, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.snap == nil {
		return nil, nil, pkgerrors.ErrNotFitted
	}
	return e.snap, e.ratings, nil
}

// Fitted reports whether the engine has completed a fit.
func (e *Engine) Fitted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap != nil
}

// Search ranks catalog items by cosine similarity between the query text
// and each fitted vector. Zero-similarity items are excluded.
func (e *Engine) Search(query string, limit int) ([]ScoredBook, error) {
	snap, _, err := e.current()
	if err != nil {
		return nil, err
	}
	limit = e.clampLimit(limit)

	queryVec := snap.vectorizer.Transform(textnorm.Normalize(query))
	scores := similarity.Against(queryVec, snap.vectors)

	order := rankDescending(scores)
	results := make([]ScoredBook, 0, limit)
	for _, idx := range order {
		if scores[idx] <= 0 {
			break
		}
		results = append(results, ScoredBook{
			Book:  *snap.books.At(idx),
			Score: similarity.RoundScore(scores[idx]),
		})
		if len(results) == limit {
			break
		}
	}
	if e.m != nil {
		e.m.SearchResultsCount.Observe(float64(len(results)))
	}
	return results, nil
}

// Statistics reports the fitted state plus rating aggregates when a
// repository is attached. An unfit engine reports Fitted=false rather
// than failing.
func (e *Engine) Statistics() Statistics {
	e.mu.RLock()
	snap, repo := e.snap, e.ratings
	e.mu.RUnlock()

	if snap == nil {
		return Statistics{}
	}
	stats := Statistics{
		Fitted:         true,
		Books:          snap.books.Len(),
		VocabularySize: snap.vectorizer.VocabularySize(),
		Clusters:       snap.k,
		WithRatings:    snap.withRatings,
		FittedAt:       snap.fittedAt,
	}
	if len(snap.embedding) > 0 {
		stats.EmbeddingDims = len(snap.embedding[0])
	}
	if repo != nil {
		rs := repo.Stats()
		stats.Ratings = &rs
	}
	return stats
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		limit = e.rec.DefaultLimit
	}
	if e.rec.MaxResults > 0 && limit > e.rec.MaxResults {
		limit = e.rec.MaxResults
	}
	if limit <= 0 {
		limit = 5
	}
	return limit
}

func (e *Engine) countFit(status string) {
	if e.m != nil {
		e.m.FitsTotal.WithLabelValues(status).Inc()
	}
}

func (e *Engine) countRecommendation(method string) {
	if e.m != nil {
		e.m.RecommendationsTotal.WithLabelValues(method).Inc()
	}
}

// rankDescending returns item indices sorted by score descending, ties
// kept in catalog order.
func rankDescending(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}
