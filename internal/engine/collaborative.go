package engine

import (
	"fmt"
	"sort"

	"github.com/bookshelf-ai/recommender/internal/ratings"
)

// minNormalizedRating is the "liked it" floor on the 0-5 scale.
const minNormalizedRating = 4.0

// similarUserCount caps how many neighbours contribute to a user-based
// recommendation.
const similarUserCount = 5

// RecommendForUser recommends books via the user's most similar raters.
// A user with no rating history falls back to globally popular books.
// Candidates the user has already rated are excluded; each candidate is
// scored as the sum over contributing neighbours of similarity times
// their normalized rating.
func (e *Engine) RecommendForUser(userID string, n int) ([]Recommendation, error) {
	snap, repo, err := e.current()
	if err != nil {
		return nil, err
	}
	n = e.clampLimit(n)
	if repo == nil {
		return []Recommendation{}, nil
	}

	rated := repo.UserRatings(userID)
	if len(rated) == 0 {
		return e.popularFallback(snap, repo, n), nil
	}

	neighbours := repo.SimilarUsers(userID, e.rec.MinCommonItems)
	if len(neighbours) > similarUserCount {
		neighbours = neighbours[:similarUserCount]
	}

	scores := make(map[string]float64)
	for _, nb := range neighbours {
		for itemID, rating := range repo.UserRatings(nb.UserID) {
			if rating < minNormalizedRating {
				continue
			}
			if _, seen := rated[itemID]; seen {
				continue
			}
			scores[itemID] += nb.Similarity * rating
		}
	}

	results := make([]Recommendation, 0, n)
	for _, c := range rankCandidates(scores, snap) {
		results = append(results, Recommendation{
			Book:   *snap.books.At(c.index),
			Score:  c.score,
			Method: MethodCollaborativeUser,
			Reason: "Highly rated by readers with similar taste",
		})
		if len(results) == n {
			break
		}
	}
	e.countRecommendation(MethodCollaborativeUser)
	return results, nil
}

// RecommendForItem recommends books via co-rating: users who liked the
// seed book vote with their other highly-rated books. A candidate needs
// at least two distinct contributors; its score blends average rating
// (70%) with capped popularity (30%).
func (e *Engine) RecommendForItem(itemID string, n int) ([]Recommendation, error) {
	snap, repo, err := e.current()
	if err != nil {
		return nil, err
	}
	n = e.clampLimit(n)
	if repo == nil {
		return []Recommendation{}, nil
	}

	raters := repo.ItemRaters(itemID, minNormalizedRating)
	if len(raters) == 0 {
		return []Recommendation{}, nil
	}

	counts := make(map[string]int)
	totals := make(map[string]float64)
	for userID := range raters {
		for candidate, rating := range repo.UserRatings(userID) {
			if candidate == itemID || rating < minNormalizedRating {
				continue
			}
			counts[candidate]++
			totals[candidate] += rating
		}
	}

	scores := make(map[string]float64)
	for candidate, count := range counts {
		if count < 2 {
			continue
		}
		avg := totals[candidate] / float64(count)
		popularity := float64(count) / 10
		if popularity > 1 {
			popularity = 1
		}
		scores[candidate] = avg * (0.7 + 0.3*popularity)
	}

	seedTitle := itemID
	if seedBook := snap.books.ByID(itemID); seedBook != nil {
		seedTitle = seedBook.Title
	}

	results := make([]Recommendation, 0, n)
	for _, c := range rankCandidates(scores, snap) {
		results = append(results, Recommendation{
			Book:   *snap.books.At(c.index),
			Score:  c.score,
			Method: MethodCollaborativeItem,
			Reason: fmt.Sprintf("Readers who liked %q also enjoyed this book", seedTitle),
		})
		if len(results) == n {
			break
		}
	}
	e.countRecommendation(MethodCollaborativeItem)
	return results, nil
}

func (e *Engine) popularFallback(snap *snapshot, repo *ratings.Repository, n int) []Recommendation {
	popular := repo.PopularItems(e.rec.MinRatings, n)
	results := make([]Recommendation, 0, len(popular))
	for _, p := range popular {
		book := snap.books.ByID(p.ItemID)
		if book == nil {
			continue
		}
		results = append(results, Recommendation{
			Book:   *book,
			Score:  p.Score,
			Method: MethodCollaborativeUser,
			Reason: fmt.Sprintf("Popular with readers (%d ratings)", p.Count),
		})
	}
	e.countRecommendation(MethodCollaborativeUser)
	return results
}

type candidate struct {
	index int
	score float64
}

// rankCandidates maps item IDs to catalog indices and orders them by
// score descending, ties broken by catalog order. Items not in the
// catalog are dropped.
func rankCandidates(scores map[string]float64, snap *snapshot) []candidate {
	candidates := make([]candidate, 0, len(scores))
	for itemID, score := range scores {
		idx := snap.books.IndexOf(itemID)
		if idx < 0 {
			continue
		}
		candidates = append(candidates, candidate{index: idx, score: score})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].index < candidates[j].index
	})
	return candidates
}
