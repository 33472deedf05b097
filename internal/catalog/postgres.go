package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bookshelf-ai/recommender/internal/ratings"
	"github.com/bookshelf-ai/recommender/pkg/postgres"
)

const booksQuery = `
SELECT id, title, author,
       COALESCE(year, 0),
       COALESCE(publisher, ''),
       COALESCE(genre, ''),
       rating,
       COALESCE(description, '')
FROM books
ORDER BY id`

const ratingsQuery = `
SELECT user_id, item_id, rating
FROM ratings
ORDER BY user_id, item_id`

// LoadBooksPostgres loads the book catalog from the books table.
func LoadBooksPostgres(ctx context.Context, client *postgres.Client) (*Collection, error) {
	rows, err := client.DB.QueryContext(ctx, booksQuery)
	if err != nil {
		return nil, fmt.Errorf("querying books: %w", err)
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		var rating sql.NullFloat64
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.Year, &b.Publisher, &b.Genre, &rating, &b.Description); err != nil {
			return nil, fmt.Errorf("scanning book row: %w", err)
		}
		if rating.Valid {
			v := rating.Float64
			b.Rating = &v
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating book rows: %w", err)
	}
	return NewCollection(books), nil
}

// LoadRatingsPostgres loads rating triples from the ratings table.
func LoadRatingsPostgres(ctx context.Context, client *postgres.Client) ([]ratings.Rating, error) {
	rows, err := client.DB.QueryContext(ctx, ratingsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying ratings: %w", err)
	}
	defer rows.Close()

	var records []ratings.Rating
	for rows.Next() {
		var r ratings.Rating
		if err := rows.Scan(&r.UserID, &r.ItemID, &r.Raw); err != nil {
			return nil, fmt.Errorf("scanning rating row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rating rows: %w", err)
	}
	return records, nil
}
