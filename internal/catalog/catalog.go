// Package catalog holds the in-memory book catalog: the Book record, the
// Collection lookup structure, and loaders for CSV and Postgres sources.
package catalog

import "strings"

// Book is a single catalog record. Books are immutable once a fit begins;
// engine outputs reference them rather than copying.
type Book struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Year        int      `json:"year,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	Genre       string   `json:"genre,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Collection is an ordered set of books with identifier and title lookup.
// Iteration order is the load order and defines the tie-break ordering for
// every ranked engine output.
type Collection struct {
	books []Book
	byID  map[string]int
}

// NewCollection indexes the given books, preserving their order. A later
// duplicate identifier silently loses to the first occurrence.
func NewCollection(books []Book) *Collection {
	c := &Collection{
		books: books,
		byID:  make(map[string]int, len(books)),
	}
	for i, b := range books {
		if _, exists := c.byID[b.ID]; !exists {
			c.byID[b.ID] = i
		}
	}
	return c
}

// Len returns the number of books.
func (c *Collection) Len() int {
	return len(c.books)
}

// Books returns the underlying slice in catalog order. Callers must not
// mutate it.
func (c *Collection) Books() []Book {
	return c.books
}

// At returns a reference to the book at the given catalog position.
func (c *Collection) At(i int) *Book {
	return &c.books[i]
}

// ByID returns the book with the given identifier, or nil.
func (c *Collection) ByID(id string) *Book {
	if i, ok := c.byID[id]; ok {
		return &c.books[i]
	}
	return nil
}

// IndexOf returns the catalog position of the given identifier, or -1.
func (c *Collection) IndexOf(id string) int {
	if i, ok := c.byID[id]; ok {
		return i
	}
	return -1
}

// FindByTitle returns the position of the first book whose title contains
// the query (case-insensitive substring), or -1 when no title matches.
func (c *Collection) FindByTitle(query string) int {
	q := strings.ToLower(query)
	for i, b := range c.books {
		if strings.Contains(strings.ToLower(b.Title), q) {
			return i
		}
	}
	return -1
}

// SearchByAuthor returns every book whose author contains the query
// (case-insensitive substring), in catalog order.
func (c *Collection) SearchByAuthor(query string) []*Book {
	q := strings.ToLower(query)
	var matches []*Book
	for i, b := range c.books {
		if strings.Contains(strings.ToLower(b.Author), q) {
			matches = append(matches, &c.books[i])
		}
	}
	return matches
}
