// Package cluster partitions embedded items into k groups with Lloyd
// k-means, used for coarse same-general-category recommendations.
package cluster

import (
	"math"
	"math/rand"

	"github.com/bookshelf-ai/recommender/internal/similarity"
)

const maxIterations = 100

// ChooseK returns the cluster count heuristic max(2, min(10, items/5)),
// further clamped so k never exceeds the item count.
func ChooseK(items int) int {
	k := items / 5
	if k > 10 {
		k = 10
	}
	if k < 2 {
		k = 2
	}
	if k > items {
		k = items
	}
	return k
}

// Assign partitions the embedding rows into k clusters and returns one
// label in [0, k) per row. The seed fixes centroid initialization, so the
// same embedding and seed always produce the same labels. Labels are only
// stable within one fit cycle.
func Assign(embedding [][]float64, k int, seed int64) []int {
	n := len(embedding)
	if n == 0 {
		return nil
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	rng := rand.New(rand.NewSource(seed))
	centroids := initialCentroids(embedding, k, rng)
	labels := make([]int, n)

	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, row := range embedding {
			best := nearestCentroid(row, centroids)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		recomputeCentroids(embedding, labels, centroids, rng)
	}
	return labels
}

// initialCentroids picks k distinct rows as starting centroids using a
// seeded permutation.
func initialCentroids(embedding [][]float64, k int, rng *rand.Rand) [][]float64 {
	perm := rng.Perm(len(embedding))
	centroids := make([][]float64, k)
	for i := 0; i < k; i++ {
		centroids[i] = append([]float64(nil), embedding[perm[i]]...)
	}
	return centroids
}

func nearestCentroid(row []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for c, centroid := range centroids {
		if d := similarity.Distance(row, centroid); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

// recomputeCentroids averages the members of each cluster. An emptied
// cluster is reseeded with a random row so k partitions survive.
func recomputeCentroids(embedding [][]float64, labels []int, centroids [][]float64, rng *rand.Rand) {
	dims := len(embedding[0])
	counts := make([]int, len(centroids))
	sums := make([][]float64, len(centroids))
	for c := range sums {
		sums[c] = make([]float64, dims)
	}
	for i, row := range embedding {
		c := labels[i]
		counts[c]++
		for j, v := range row {
			sums[c][j] += v
		}
	}
	for c := range centroids {
		if counts[c] == 0 {
			centroids[c] = append([]float64(nil), embedding[rng.Intn(len(embedding))]...)
			continue
		}
		for j := range centroids[c] {
			centroids[c][j] = sums[c][j] / float64(counts[c])
		}
	}
}
