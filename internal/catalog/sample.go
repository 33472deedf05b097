package catalog

import "github.com/bookshelf-ai/recommender/internal/ratings"

// SampleBooks returns a small built-in catalog so the server can start
// without an external data source. Useful in development and demos.
func SampleBooks() *Collection {
	return NewCollection([]Book{
		{
			ID:          "1",
			Title:       "The Hitchhiker's Guide to the Galaxy",
			Author:      "Douglas Adams",
			Year:        1979,
			Genre:       "science fiction",
			Description: "A comedic science fiction series following the adventures of an unwitting Englishman and his alien friend.",
		},
		{
			ID:          "2",
			Title:       "Pride and Prejudice",
			Author:      "Jane Austen",
			Year:        1813,
			Genre:       "classic romance",
			Description: "A classic novel of manners, love, and social class in early 19th-century England.",
		},
		{
			ID:          "3",
			Title:       "1984",
			Author:      "George Orwell",
			Year:        1949,
			Genre:       "dystopian science fiction",
			Description: "A dystopian social science fiction novel and cautionary tale by English writer George Orwell.",
		},
		{
			ID:          "4",
			Title:       "To Kill a Mockingbird",
			Author:      "Harper Lee",
			Year:        1960,
			Genre:       "classic fiction",
			Description: "A novel about the serious issues of rape and racial inequality, seen through the eyes of a young girl.",
		},
		{
			ID:          "5",
			Title:       "The Great Gatsby",
			Author:      "F. Scott Fitzgerald",
			Year:        1925,
			Genre:       "classic fiction",
			Description: "A novel illustrating the Jazz Age in New York and the American Dream.",
		},
	})
}

// SampleRatings returns a small rating history matching SampleBooks,
// enough to exercise the collaborative recommendation paths.
func SampleRatings() []ratings.Rating {
	return []ratings.Rating{
		{UserID: "u1", ItemID: "1", Raw: 9},
		{UserID: "u1", ItemID: "3", Raw: 8},
		{UserID: "u1", ItemID: "5", Raw: 6},
		{UserID: "u2", ItemID: "1", Raw: 10},
		{UserID: "u2", ItemID: "3", Raw: 9},
		{UserID: "u2", ItemID: "4", Raw: 8},
		{UserID: "u3", ItemID: "2", Raw: 9},
		{UserID: "u3", ItemID: "4", Raw: 9},
		{UserID: "u3", ItemID: "5", Raw: 7},
		{UserID: "u4", ItemID: "2", Raw: 8},
		{UserID: "u4", ItemID: "5", Raw: 8},
		{UserID: "u4", ItemID: "3", Raw: 4},
		{UserID: "u5", ItemID: "1", Raw: 7},
		{UserID: "u5", ItemID: "2", Raw: 0},
		{UserID: "u5", ItemID: "4", Raw: 10},
	}
}
