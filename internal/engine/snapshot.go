package engine

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bookshelf-ai/recommender/internal/catalog"
	"github.com/bookshelf-ai/recommender/internal/feature"
	pkgerrors "github.com/bookshelf-ai/recommender/pkg/errors"
)

// snapshotFile is the on-disk form of a fitted snapshot. The format is
// internal: the only contract is that a saved snapshot loads back into
// identical query behavior.
type snapshotFile struct {
	Books       []catalog.Book
	Vocabulary  map[string]int
	IDF         []float64
	Vectors     []feature.Vector
	Similarity  [][]float64
	Embedding   [][]float64
	Labels      []int
	K           int
	WithRatings bool
	FittedAt    time.Time
}

// SaveSnapshot writes the current fitted state to path. Fails with
// ErrNotFitted before the first fit. The write goes through a temp file
// and rename so a crash never leaves a truncated snapshot behind.
func (e *Engine) SaveSnapshot(path string) error {
	snap, _, err := e.current()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating snapshot directory: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("creating snapshot temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	file := snapshotFile{
		Books:       snap.books.Books(),
		Vocabulary:  snap.vectorizer.Vocabulary(),
		IDF:         snap.vectorizer.IDF(),
		Vectors:     snap.vectors,
		Similarity:  snap.similarity,
		Embedding:   snap.embedding,
		Labels:      snap.labels,
		K:           snap.k,
		WithRatings: snap.withRatings,
		FittedAt:    snap.fittedAt,
	}
	if err := gob.NewEncoder(tmp).Encode(file); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming snapshot into place: %w", err)
	}
	e.log.Info("snapshot saved", "path", path, "books", len(file.Books))
	return nil
}

// LoadSnapshot replaces the current fitted state with one previously
// written by SaveSnapshot. Rating repositories are not part of the
// snapshot; attach one with a later FitWithRatings if collaborative
// queries are needed.
func (e *Engine) LoadSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer f.Close()

	var file snapshotFile
	if err := gob.NewDecoder(f).Decode(&file); err != nil {
		return fmt.Errorf("decoding snapshot: %w", err)
	}
	if len(file.Books) == 0 {
		return pkgerrors.ErrEmptyCatalog
	}
	vectorizer, err := feature.Restore(file.Vocabulary, file.IDF)
	if err != nil {
		return fmt.Errorf("restoring vectorizer: %w", err)
	}

	snap := &snapshot{
		books:       catalog.NewCollection(file.Books),
		vectorizer:  vectorizer,
		vectors:     file.Vectors,
		similarity:  file.Similarity,
		embedding:   file.Embedding,
		labels:      file.Labels,
		k:           file.K,
		withRatings: file.WithRatings,
		fittedAt:    file.FittedAt,
	}

	e.mu.Lock()
	e.snap = snap
	e.mu.Unlock()

	if e.m != nil {
		e.m.CatalogSize.Set(float64(len(file.Books)))
		e.m.VocabularySize.Set(float64(vectorizer.VocabularySize()))
	}
	e.log.Info("snapshot loaded", "path", path, "books", len(file.Books))
	return nil
}
