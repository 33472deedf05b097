// Package benchmark contains Go benchmarks for the text normalizer, the
// TF-IDF vectorizer, and the recommendation engine, measuring throughput
// and allocation behaviour.
package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/bookshelf-ai/recommender/internal/textnorm"
)

var sampleTexts = map[string]string{
	"short": "The Left Hand of Darkness Ursula K Le Guin",
	"medium": `A sweeping family saga following three generations of booksellers
        through war and reconstruction. The narrator collects forgotten manuscripts
        from estate sales and slowly reconstructs the catalogue of a library burned
        decades earlier. Critics praised the novel for its meditation on memory,
        inheritance, and the physical life of books themselves.`,
	"long": strings.Repeat(`Recommendation systems for reading combine content analysis
        with collaborative signals. Titles, authors, and genres are normalized into
        searchable terms; stories become story, running becomes run, and stop words
        vanish entirely. The remaining vocabulary is weighted by inverse document
        frequency so that rare descriptive terms dominate similarity. Readers who
        rate books highly contribute a second signal that surfaces titles their
        taste neighbours enjoyed. `, 20),
}

func BenchmarkNormalize(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := textnorm.Normalize(text)
				_ = tokens
			}
		})
	}
}

func BenchmarkNormalizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens := textnorm.Normalize(text)
			_ = tokens
		}
	})
}

func BenchmarkLemmatize(b *testing.B) {
	words := []string{
		"stories", "running", "libraries", "children",
		"wolves", "churches", "wanted", "classes",
		"recommendation", "collaborative",
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			stem := textnorm.Lemmatize(w)
			_ = stem
		}
	}
}

func BenchmarkNormalizeVaryingSize(b *testing.B) {
	sizes := []int{10, 100, 500, 1000, 5000}
	baseWord := "historical fiction family saga bookseller library "
	for _, size := range sizes {
		text := strings.Repeat(baseWord, size/len(baseWord)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens := textnorm.Normalize(text)
				_ = tokens
			}
		})
	}
}
