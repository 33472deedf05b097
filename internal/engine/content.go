package engine

import (
	"fmt"

	"github.com/bookshelf-ai/recommender/internal/similarity"
)

// RecommendSimilar returns the books closest to the query book by cosine
// similarity. The query may be an exact book ID or a case-insensitive
// title substring; the first catalog-order match wins. An unknown book
// yields an empty result, not an error.
func (e *Engine) RecommendSimilar(titleOrID string, n int) ([]Recommendation, error) {
	snap, _, err := e.current()
	if err != nil {
		return nil, err
	}
	n = e.clampLimit(n)

	seed := resolveBook(snap, titleOrID)
	if seed < 0 {
		return []Recommendation{}, nil
	}

	scores := snap.similarity[seed]
	order := rankDescending(scores)
	seedTitle := snap.books.At(seed).Title

	results := make([]Recommendation, 0, n)
	for _, idx := range order {
		if idx == seed {
			continue
		}
		results = append(results, Recommendation{
			Book:   *snap.books.At(idx),
			Score:  similarity.RoundScore(scores[idx]),
			Method: MethodContent,
			Reason: fmt.Sprintf("Similar content and themes to %q", seedTitle),
		})
		if len(results) == n {
			break
		}
	}
	e.countRecommendation(MethodContent)
	return results, nil
}

// RecommendByCluster returns a random sample of other books sharing the
// query book's cluster, with a flat weak-signal score. Coarser and
// cheaper than content similarity.
func (e *Engine) RecommendByCluster(titleOrID string, n int) ([]Recommendation, error) {
	snap, _, err := e.current()
	if err != nil {
		return nil, err
	}
	n = e.clampLimit(n)

	seed := resolveBook(snap, titleOrID)
	if seed < 0 {
		return []Recommendation{}, nil
	}

	label := snap.labels[seed]
	var members []int
	for idx, l := range snap.labels {
		if l == label && idx != seed {
			members = append(members, idx)
		}
	}
	if len(members) > n {
		e.rngMu.Lock()
		e.rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		e.rngMu.Unlock()
		members = members[:n]
	}

	seedTitle := snap.books.At(seed).Title
	results := make([]Recommendation, 0, len(members))
	for _, idx := range members {
		results = append(results, Recommendation{
			Book:   *snap.books.At(idx),
			Score:  clusterScore,
			Method: MethodCluster,
			Reason: fmt.Sprintf("Grouped with %q by theme", seedTitle),
		})
	}
	e.countRecommendation(MethodCluster)
	return results, nil
}

// resolveBook maps a query to a catalog index: exact ID first, then the
// first case-insensitive title substring match. Returns -1 on no match.
func resolveBook(snap *snapshot, titleOrID string) int {
	if idx := snap.books.IndexOf(titleOrID); idx >= 0 {
		return idx
	}
	return snap.books.FindByTitle(titleOrID)
}
