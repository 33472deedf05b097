package benchmark

import (
	"fmt"
	"testing"

	"github.com/bookshelf-ai/recommender/internal/feature"
	"github.com/bookshelf-ai/recommender/internal/similarity"
	"github.com/bookshelf-ai/recommender/internal/textnorm"
)

// corpus builds n token documents with overlapping vocabulary, roughly
// shaped like normalized title+author+genre streams.
func corpus(n int) [][]string {
	titles := []string{
		"the haunted library midnight chronicle",
		"desert planet rebellion saga",
		"victorian romance country estate",
		"space station murder mystery",
		"dragon kingdom lost heir legend",
		"wartime letters resistance network",
		"deep sea expedition lost city",
		"robot uprising machine consciousness",
	}
	docs := make([][]string, n)
	for i := 0; i < n; i++ {
		text := fmt.Sprintf("%s author%d genre%d", titles[i%len(titles)], i%50, i%10)
		docs[i] = textnorm.Normalize(text)
	}
	return docs
}

func BenchmarkVectorizerFit(b *testing.B) {
	sizes := []int{100, 1000, 10000}
	for _, n := range sizes {
		docs := corpus(n)
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				v := feature.New(feature.Config{MaxFeatures: 5000, MinDocCount: 2, MaxDocFraction: 0.95})
				vectors, err := v.Fit(docs)
				if err != nil {
					b.Fatal(err)
				}
				_ = vectors
			}
		})
	}
}

func BenchmarkVectorizerTransform(b *testing.B) {
	docs := corpus(1000)
	v := feature.New(feature.Config{MaxFeatures: 5000, MinDocCount: 2, MaxDocFraction: 0.95})
	if _, err := v.Fit(docs); err != nil {
		b.Fatal(err)
	}
	query := textnorm.Normalize("desert planet rebellion legend")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		vec := v.Transform(query)
		_ = vec
	}
}

func BenchmarkSimilarityMatrix(b *testing.B) {
	sizes := []int{100, 500, 1000}
	for _, n := range sizes {
		docs := corpus(n)
		v := feature.New(feature.Config{MaxFeatures: 5000, MinDocCount: 2, MaxDocFraction: 0.95})
		vectors, err := v.Fit(docs)
		if err != nil {
			b.Fatal(err)
		}
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				m := similarity.Matrix(vectors)
				_ = m
			}
		})
	}
}

func BenchmarkReduceDimensions(b *testing.B) {
	docs := corpus(500)
	v := feature.New(feature.Config{MaxFeatures: 5000, MinDocCount: 2, MaxDocFraction: 0.95})
	vectors, err := v.Fit(docs)
	if err != nil {
		b.Fatal(err)
	}
	vocab := v.VocabularySize()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		embedding := similarity.Reduce(vectors, vocab, 100)
		_ = embedding
	}
}
