package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/bookshelf-ai/recommender/internal/ratings"
)

// LoadBooksCSV reads a book catalog from a CSV file with the columns
// id,title,author,year,publisher,genre,description (header row required).
// Malformed rows are skipped, not fatal; the skip count is logged.
func LoadBooksCSV(path string) (*Collection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening books file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("reading books header: %w", err)
	}

	var books []Book
	skipped := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		book, ok := bookFromRow(row)
		if !ok {
			skipped++
			continue
		}
		books = append(books, book)
	}
	slog.Default().With("component", "catalog-loader").Info("books loaded",
		"path", path,
		"books", len(books),
		"skipped", skipped,
	)
	return NewCollection(books), nil
}

func bookFromRow(row []string) (Book, bool) {
	if len(row) < 3 {
		return Book{}, false
	}
	id := strings.TrimSpace(row[0])
	title := strings.TrimSpace(row[1])
	author := strings.TrimSpace(row[2])
	if id == "" || title == "" {
		return Book{}, false
	}
	book := Book{ID: id, Title: title, Author: author}
	if len(row) > 3 {
		if year, err := strconv.Atoi(strings.TrimSpace(row[3])); err == nil {
			book.Year = year
		}
	}
	if len(row) > 4 {
		book.Publisher = strings.TrimSpace(row[4])
	}
	if len(row) > 5 {
		book.Genre = strings.TrimSpace(row[5])
	}
	if len(row) > 6 {
		book.Description = strings.TrimSpace(row[6])
	}
	return book, true
}

// LoadRatingsCSV reads rating triples from a CSV file with the columns
// user_id,item_id,rating (header row required). Rows that fail to parse
// are returned to the caller only as a count; they never abort the load.
func LoadRatingsCSV(path string) ([]ratings.Rating, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening ratings file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	if _, err := r.Read(); err != nil {
		return nil, 0, fmt.Errorf("reading ratings header: %w", err)
	}

	var records []ratings.Rating
	malformed := 0
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(row) < 3 {
			malformed++
			continue
		}
		raw, convErr := strconv.Atoi(strings.TrimSpace(row[2]))
		userID := strings.TrimSpace(row[0])
		itemID := strings.TrimSpace(row[1])
		if convErr != nil || userID == "" || itemID == "" {
			malformed++
			continue
		}
		records = append(records, ratings.Rating{
			UserID: userID,
			ItemID: itemID,
			Raw:    raw,
		})
	}
	return records, malformed, nil
}
