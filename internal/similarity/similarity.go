// Package similarity computes the pairwise cosine matrix over fitted term
// vectors and a reduced dense embedding via truncated SVD.
package similarity

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/bookshelf-ai/recommender/internal/feature"
)

// MaxEmbeddingDims caps the dimensionality of the reduced embedding.
const MaxEmbeddingDims = 100

// Matrix computes the full pairwise cosine similarity matrix. Vectors are
// L2-normalized at fit time, so cosine reduces to a sparse dot product.
// The result is symmetric with a unit diagonal.
func Matrix(vectors []feature.Vector) [][]float64 {
	n := len(vectors)
	sim := make([][]float64, n)
	for i := range sim {
		sim[i] = make([]float64, n)
		sim[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := vectors[i].Dot(vectors[j])
			sim[i][j] = s
			sim[j][i] = s
		}
	}
	return sim
}

// Against compares a single query vector with every fitted vector,
// returning one cosine score per row. A zero query vector yields all
// zeros.
func Against(query feature.Vector, vectors []feature.Vector) []float64 {
	scores := make([]float64, len(vectors))
	if len(query) == 0 {
		return scores
	}
	for i, vec := range vectors {
		scores[i] = query.Dot(vec)
	}
	return scores
}

// Reduce projects the sparse term-vector space onto a dense low-rank
// embedding via truncated SVD. The number of dimensions is
// min(maxDims, min(docs, vocabSize) - 1), clamped to at least 1. The
// embedding is lossy and only relative-distance-consistent; ranking always
// uses the cosine matrix.
func Reduce(vectors []feature.Vector, vocabSize, maxDims int) [][]float64 {
	n := len(vectors)
	if n == 0 || vocabSize == 0 {
		return nil
	}
	if maxDims <= 0 || maxDims > MaxEmbeddingDims {
		maxDims = MaxEmbeddingDims
	}
	dims := min(maxDims, min(n, vocabSize)-1)
	if dims < 1 {
		dims = 1
	}

	dense := mat.NewDense(n, vocabSize, nil)
	for row, vec := range vectors {
		for col, w := range vec {
			dense.Set(row, col, w)
		}
	}

	var svd mat.SVD
	if !svd.Factorize(dense, mat.SVDThin) {
		return fallbackEmbedding(n, dims)
	}

	var u mat.Dense
	svd.UTo(&u)
	values := svd.Values(nil)
	if dims > len(values) {
		dims = len(values)
	}

	// Embedding rows are U_k scaled by the singular values, matching the
	// document-space projection of a truncated factorization.
	embedding := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, dims)
		for j := 0; j < dims; j++ {
			row[j] = u.At(i, j) * values[j]
		}
		embedding[i] = row
	}
	return embedding
}

// fallbackEmbedding returns a zero embedding when factorization fails on a
// degenerate matrix, keeping clustering total rather than failing fit.
func fallbackEmbedding(n, dims int) [][]float64 {
	embedding := make([][]float64, n)
	for i := range embedding {
		embedding[i] = make([]float64, dims)
	}
	return embedding
}

// Distance returns the squared Euclidean distance between two embedding
// rows.
func Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// RoundScore rounds a similarity score to four decimal places for stable
// payloads.
func RoundScore(s float64) float64 {
	return math.Round(s*10000) / 10000
}
