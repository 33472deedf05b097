// Package feature builds sparse TF-IDF term vectors over a vocabulary of
// unigrams and bigrams fitted on the catalog's normalized documents.
package feature

import (
	"fmt"
	"math"
	"sort"

	pkgerrors "github.com/bookshelf-ai/recommender/pkg/errors"
)

// Vector is a sparse L2-normalized term vector keyed by vocabulary column.
type Vector map[int]float64

// Columns returns the occupied columns in ascending order.
func (v Vector) Columns() []int {
	cols := make([]int, 0, len(v))
	for col := range v {
		cols = append(cols, col)
	}
	sort.Ints(cols)
	return cols
}

// Dot returns the dot product of two vectors. For L2-normalized vectors
// this is their cosine similarity. Accumulation runs in ascending column
// order so repeated fits on identical input produce bit-identical scores.
func (v Vector) Dot(other Vector) float64 {
	if len(other) < len(v) {
		v, other = other, v
	}
	var sum float64
	for _, col := range v.Columns() {
		if ow, ok := other[col]; ok {
			sum += v[col] * ow
		}
	}
	return sum
}

// Norm returns the Euclidean norm of the vector, accumulated in ascending
// column order.
func (v Vector) Norm() float64 {
	var sum float64
	for _, col := range v.Columns() {
		sum += v[col] * v[col]
	}
	return math.Sqrt(sum)
}

// Config controls vocabulary construction thresholds.
type Config struct {
	// MaxFeatures caps the vocabulary size, keeping the terms with the
	// highest aggregate TF-IDF weight.
	MaxFeatures int
	// MinDocCount excludes terms appearing in fewer documents.
	MinDocCount int
	// MaxDocFraction excludes near-universal terms appearing in more than
	// this fraction of documents.
	MaxDocFraction float64
}

func (c Config) withDefaults() Config {
	if c.MaxFeatures <= 0 {
		c.MaxFeatures = 5000
	}
	if c.MinDocCount <= 0 {
		c.MinDocCount = 2
	}
	if c.MaxDocFraction <= 0 || c.MaxDocFraction > 1 {
		c.MaxDocFraction = 0.95
	}
	return c
}

// Vectorizer converts token streams into sparse TF-IDF vectors over a
// vocabulary fixed at fit time. A Vectorizer is immutable after Fit and
// safe for concurrent Transform calls.
type Vectorizer struct {
	cfg        Config
	vocabulary map[string]int
	idf        []float64
	fitted     bool
}

// New creates an unfitted Vectorizer with the given config, filling in
// defaults for zero values.
func New(cfg Config) *Vectorizer {
	return &Vectorizer{cfg: cfg.withDefaults()}
}

// Restore rebuilds a fitted Vectorizer from a persisted vocabulary and IDF
// table, resuming identical Transform behavior.
func Restore(vocabulary map[string]int, idf []float64) (*Vectorizer, error) {
	if len(vocabulary) == 0 || len(vocabulary) != len(idf) {
		return nil, fmt.Errorf("restoring vectorizer: vocabulary size %d does not match idf size %d", len(vocabulary), len(idf))
	}
	return &Vectorizer{
		cfg:        Config{}.withDefaults(),
		vocabulary: vocabulary,
		idf:        idf,
		fitted:     true,
	}, nil
}

// Fit builds the vocabulary and IDF table from the given documents and
// returns one vector per document, aligned with the input ordering. It
// fails with ErrEmptyVocabulary when no term survives the thresholds.
func (v *Vectorizer) Fit(docs [][]string) ([]Vector, error) {
	n := len(docs)
	if n == 0 {
		return nil, pkgerrors.ErrEmptyVocabulary
	}

	termFreqs := make([]map[string]float64, n)
	docFreq := make(map[string]int)
	for i, doc := range docs {
		tf := make(map[string]float64)
		for _, term := range Ngrams(doc) {
			tf[term]++
		}
		termFreqs[i] = tf
		for term := range tf {
			docFreq[term]++
		}
	}

	maxDocs := v.cfg.MaxDocFraction * float64(n)
	kept := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		if df < v.cfg.MinDocCount || float64(df) > maxDocs {
			continue
		}
		kept = append(kept, term)
	}
	if len(kept) == 0 {
		return nil, pkgerrors.ErrEmptyVocabulary
	}

	idfOf := func(term string) float64 {
		return math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
	}

	if len(kept) > v.cfg.MaxFeatures {
		type termWeight struct {
			term   string
			weight float64
		}
		weights := make([]termWeight, 0, len(kept))
		for _, term := range kept {
			var totalTF float64
			for _, tf := range termFreqs {
				totalTF += tf[term]
			}
			weights = append(weights, termWeight{term, totalTF * idfOf(term)})
		}
		sort.Slice(weights, func(i, j int) bool {
			if weights[i].weight != weights[j].weight {
				return weights[i].weight > weights[j].weight
			}
			return weights[i].term < weights[j].term
		})
		kept = kept[:0]
		for _, tw := range weights[:v.cfg.MaxFeatures] {
			kept = append(kept, tw.term)
		}
	}

	// Alphabetical column assignment keeps the index deterministic across
	// refits on identical input.
	sort.Strings(kept)
	v.vocabulary = make(map[string]int, len(kept))
	v.idf = make([]float64, len(kept))
	for col, term := range kept {
		v.vocabulary[term] = col
		v.idf[col] = idfOf(term)
	}
	v.fitted = true

	vectors := make([]Vector, n)
	for i, tf := range termFreqs {
		vectors[i] = v.weigh(tf)
	}
	return vectors, nil
}

// Transform converts an out-of-sample token stream into a vector over the
// fitted vocabulary. Unknown terms are dropped silently; an unfitted
// vectorizer or a document with no known terms yields an empty vector.
func (v *Vectorizer) Transform(tokens []string) Vector {
	if !v.fitted {
		return Vector{}
	}
	tf := make(map[string]float64)
	for _, term := range Ngrams(tokens) {
		tf[term]++
	}
	return v.weigh(tf)
}

// Fitted reports whether Fit has completed successfully.
func (v *Vectorizer) Fitted() bool {
	return v.fitted
}

// Vocabulary returns the fitted term-to-column mapping.
func (v *Vectorizer) Vocabulary() map[string]int {
	return v.vocabulary
}

// IDF returns the fitted inverse-document-frequency table, indexed by
// vocabulary column.
func (v *Vectorizer) IDF() []float64 {
	return v.idf
}

// VocabularySize returns the number of fitted terms.
func (v *Vectorizer) VocabularySize() int {
	return len(v.vocabulary)
}

func (v *Vectorizer) weigh(tf map[string]float64) Vector {
	vec := make(Vector)
	for term, count := range tf {
		col, ok := v.vocabulary[term]
		if !ok {
			continue
		}
		vec[col] = count * v.idf[col]
	}
	if norm := vec.Norm(); norm > 0 {
		for col := range vec {
			vec[col] /= norm
		}
	}
	return vec
}

// Ngrams expands a token stream into its unigrams plus adjacent bigrams
// (space-joined), the term space the vocabulary is built over.
func Ngrams(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	terms := make([]string, 0, 2*len(tokens)-1)
	terms = append(terms, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		terms = append(terms, tokens[i]+" "+tokens[i+1])
	}
	return terms
}

// RatingTags derives categorical feature tags from a book's aggregate
// rating signal. The tags enter the same term space as ordinary words so
// that popularity deliberately influences content similarity.
func RatingTags(avg float64, count int, hasAvg bool) []string {
	var tags []string
	if hasAvg {
		switch {
		case avg > 4:
			tags = append(tags, "highly_rated", "excellent_book")
		case avg > 3:
			tags = append(tags, "well_rated", "good_book")
		}
	}
	switch {
	case count > 100:
		tags = append(tags, "popular", "widely_read")
	case count > 20:
		tags = append(tags, "moderately_popular")
	}
	return tags
}
