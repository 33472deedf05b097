// Package ratings stores user rating history and answers the aggregate
// queries the collaborative recommenders are built on: per-item averages,
// user similarity, and popularity scores.
package ratings

import (
	"log/slog"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Raw ratings arrive on a 0-10 scale. A zero means the user interacted
// with the item without scoring it, so zeros are kept for counts but
// excluded from every average.
const (
	MinRaw = 0
	MaxRaw = 10

	// similarUserLimit caps how many neighbours a similarity query returns.
	similarUserLimit = 20
)

// Rating is a single user's score for a single item.
type Rating struct {
	UserID string
	ItemID string
	Raw    int
}

// Normalized maps the raw 0-10 score onto the 0-5 scale used by the
// recommenders.
func (r Rating) Normalized() float64 {
	return float64(r.Raw) / 2
}

// Explicit reports whether the rating carries an actual score.
func (r Rating) Explicit() bool {
	return r.Raw > 0
}

// LoadStats summarises a Load call.
type LoadStats struct {
	Loaded  int
	Skipped int
}

// UserSimilarity pairs a user with their Pearson correlation to the
// query user.
type UserSimilarity struct {
	UserID     string
	Similarity float64
}

// ItemPopularity pairs an item with its popularity score and explicit
// rating count.
type ItemPopularity struct {
	ItemID string
	Score  float64
	Count  int
}

// Statistics describes the stored rating matrix.
type Statistics struct {
	TotalRatings    int     `json:"total_ratings"`
	ExplicitRatings int     `json:"explicit_ratings"`
	ImplicitRatings int     `json:"implicit_ratings"`
	Users           int     `json:"users"`
	Items           int     `json:"items"`
	AverageRating   float64 `json:"average_rating"`
	Sparsity        float64 `json:"sparsity"`
}

// Repository holds the rating matrix. Load replaces the whole matrix
// atomically; readers always see either the old state or the new one.
type Repository struct {
	mu      sync.RWMutex
	byUser  map[string]map[string]Rating
	byItem  map[string]map[string]Rating
	ordered []Rating
	log     *slog.Logger
}

// NewRepository returns an empty repository.
func NewRepository() *Repository {
	return &Repository{
		byUser: make(map[string]map[string]Rating),
		byItem: make(map[string]map[string]Rating),
		log:    slog.Default().With("component", "ratings"),
	}
}

// Load replaces the stored ratings with records. Records with a raw
// score outside [0, 10] or with an empty user or item ID are skipped.
// When the same user rates the same item twice the later record wins.
func (r *Repository) Load(records []Rating) LoadStats {
	type ratingKey struct{ user, item string }

	byUser := make(map[string]map[string]Rating)
	byItem := make(map[string]map[string]Rating)
	ordered := make([]Rating, 0, len(records))
	position := make(map[ratingKey]int, len(records))
	skipped := 0

	for _, rec := range records {
		if rec.UserID == "" || rec.ItemID == "" || rec.Raw < MinRaw || rec.Raw > MaxRaw {
			skipped++
			continue
		}
		if byUser[rec.UserID] == nil {
			byUser[rec.UserID] = make(map[string]Rating)
		}
		if byItem[rec.ItemID] == nil {
			byItem[rec.ItemID] = make(map[string]Rating)
		}
		key := ratingKey{rec.UserID, rec.ItemID}
		if at, dup := position[key]; dup {
			ordered[at] = rec
		} else {
			position[key] = len(ordered)
			ordered = append(ordered, rec)
		}
		byUser[rec.UserID][rec.ItemID] = rec
		byItem[rec.ItemID][rec.UserID] = rec
	}

	r.mu.Lock()
	r.byUser = byUser
	r.byItem = byItem
	r.ordered = ordered
	r.mu.Unlock()

	stats := LoadStats{Loaded: len(ordered), Skipped: skipped}
	r.log.Info("ratings loaded", "loaded", stats.Loaded, "skipped", stats.Skipped)
	return stats
}

// Len returns the number of stored ratings, implicit ones included.
func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// AverageRating returns the mean normalized rating for an item over its
// explicit ratings. The second return value is false when the item has
// no explicit ratings at all.
func (r *Repository) AverageRating(itemID string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return averageOf(r.byItem[itemID])
}

// RatingCount returns how many explicit ratings the item has.
func (r *Repository) RatingCount(itemID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return explicitCount(r.byItem[itemID])
}

// UserRatings returns the user's explicit ratings keyed by item ID, on
// the normalized scale. The map is a copy and safe to retain.
func (r *Repository) UserRatings(userID string) map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]float64, len(r.byUser[userID]))
	for itemID, rec := range r.byUser[userID] {
		if rec.Explicit() {
			out[itemID] = rec.Normalized()
		}
	}
	return out
}

// UserAverageRating returns the user's mean normalized rating over their
// explicit ratings, false when they have none.
func (r *Repository) UserAverageRating(userID string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return averageOf(r.byUser[userID])
}

// ItemRaters returns the users who gave the item an explicit normalized
// rating of at least minRating, with their scores.
func (r *Repository) ItemRaters(itemID string, minRating float64) map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]float64)
	for userID, rec := range r.byItem[itemID] {
		if rec.Explicit() && rec.Normalized() >= minRating {
			out[userID] = rec.Normalized()
		}
	}
	return out
}

// SimilarUsers ranks other users by Pearson correlation over co-rated
// items. Users sharing fewer than minCommon explicit ratings with the
// query user are skipped, as are degenerate correlations. At most 20
// users are returned, most similar first.
func (r *Repository) SimilarUsers(userID string, minCommon int) []UserSimilarity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	base := r.byUser[userID]
	if len(base) == 0 {
		return nil
	}

	var result []UserSimilarity
	for otherID, other := range r.byUser {
		if otherID == userID {
			continue
		}
		var xs, ys []float64
		for itemID, rec := range base {
			if !rec.Explicit() {
				continue
			}
			if otherRec, ok := other[itemID]; ok && otherRec.Explicit() {
				xs = append(xs, rec.Normalized())
				ys = append(ys, otherRec.Normalized())
			}
		}
		if len(xs) < minCommon {
			continue
		}
		corr := stat.Correlation(xs, ys, nil)
		if corr != corr { // NaN when either side has zero variance
			continue
		}
		result = append(result, UserSimilarity{UserID: otherID, Similarity: corr})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Similarity != result[j].Similarity {
			return result[i].Similarity > result[j].Similarity
		}
		return result[i].UserID < result[j].UserID
	})
	if len(result) > similarUserLimit {
		result = result[:similarUserLimit]
	}
	return result
}

// PopularItems ranks items with at least minRatings explicit ratings by
// average explicit rating boosted by volume:
// score = avg * (1 + min(count/100, 0.5)). The boost caps at 50% so
// volume never dominates quality. At most limit items are returned.
func (r *Repository) PopularItems(minRatings, limit int) []ItemPopularity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []ItemPopularity
	for itemID, recs := range r.byItem {
		count := explicitCount(recs)
		if count < minRatings {
			continue
		}
		avg, ok := averageOf(recs)
		if !ok {
			continue
		}
		boost := float64(count) / 100
		if boost > 0.5 {
			boost = 0.5
		}
		result = append(result, ItemPopularity{
			ItemID: itemID,
			Score:  avg * (1 + boost),
			Count:  count,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].ItemID < result[j].ItemID
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Stats summarises the rating matrix. Sparsity is the fraction of the
// user-by-item grid with no rating; an empty grid reports zero.
func (r *Repository) Stats() Statistics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Statistics{
		TotalRatings: len(r.ordered),
		Users:        len(r.byUser),
		Items:        len(r.byItem),
	}
	sum := 0.0
	for _, rec := range r.ordered {
		if rec.Explicit() {
			s.ExplicitRatings++
			sum += rec.Normalized()
		} else {
			s.ImplicitRatings++
		}
	}
	if s.ExplicitRatings > 0 {
		s.AverageRating = sum / float64(s.ExplicitRatings)
	}
	if cells := s.Users * s.Items; cells > 0 {
		s.Sparsity = 1 - float64(s.ExplicitRatings)/float64(cells)
	}
	return s
}

func explicitCount(recs map[string]Rating) int {
	n := 0
	for _, rec := range recs {
		if rec.Explicit() {
			n++
		}
	}
	return n
}

func averageOf(recs map[string]Rating) (float64, bool) {
	sum, n := 0.0, 0
	for _, rec := range recs {
		if rec.Explicit() {
			sum += rec.Normalized()
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
