package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func handle(t *testing.T, agg *Aggregator, event any) {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshaling event: %v", err)
	}
	if err := HandleEvent(agg)(context.Background(), []byte("analytics"), payload); err != nil {
		t.Fatalf("handling event: %v", err)
	}
}

func TestHandleSearchEvents(t *testing.T) {
	agg := NewAggregator(nil)

	handle(t, agg, SearchEvent{
		Type:      EventSearch,
		Query:     "dune",
		Returned:  3,
		LatencyMs: 10,
		CacheHit:  true,
		Timestamp: time.Now().UTC(),
	})
	handle(t, agg, SearchEvent{
		Type:      EventSearch,
		Query:     "dune",
		Returned:  3,
		LatencyMs: 30,
		Timestamp: time.Now().UTC(),
	})
	handle(t, agg, SearchEvent{
		Type:      EventZeroResult,
		Query:     "cookbook",
		Returned:  0,
		LatencyMs: 20,
		Timestamp: time.Now().UTC(),
	})

	stats := agg.Stats()
	if stats.TotalSearches != 3 {
		t.Errorf("TotalSearches = %d, want 3", stats.TotalSearches)
	}
	if stats.CacheHits != 1 || stats.CacheMisses != 2 {
		t.Errorf("cache counts = %d/%d, want 1/2", stats.CacheHits, stats.CacheMisses)
	}
	if stats.ZeroResultCount != 1 {
		t.Errorf("ZeroResultCount = %d, want 1", stats.ZeroResultCount)
	}
	if stats.AvgLatencyMs != 20 {
		t.Errorf("AvgLatencyMs = %v, want 20", stats.AvgLatencyMs)
	}
	if len(stats.TopQueries) == 0 || stats.TopQueries[0].Query != "dune" || stats.TopQueries[0].Count != 2 {
		t.Errorf("TopQueries = %v", stats.TopQueries)
	}
	if len(stats.ZeroResultQueries) != 1 || stats.ZeroResultQueries[0].Query != "cookbook" {
		t.Errorf("ZeroResultQueries = %v", stats.ZeroResultQueries)
	}
	if stats.QueriesPerMinute <= 0 {
		t.Errorf("QueriesPerMinute = %v, want positive", stats.QueriesPerMinute)
	}
}

func TestHandleRecommendAndFitEvents(t *testing.T) {
	agg := NewAggregator(nil)

	handle(t, agg, RecommendEvent{
		Type:      EventRecommend,
		Method:    "content",
		Query:     "Dune",
		Returned:  5,
		LatencyMs: 12,
		Timestamp: time.Now().UTC(),
	})
	handle(t, agg, RecommendEvent{
		Type:      EventRecommend,
		Method:    "content",
		Query:     "Dune",
		Returned:  5,
		LatencyMs: 8,
		Timestamp: time.Now().UTC(),
	})
	handle(t, agg, RecommendEvent{
		Type:      EventRecommend,
		Method:    "collaborative-user",
		Query:     "u1",
		Returned:  0,
		LatencyMs: 5,
		Timestamp: time.Now().UTC(),
	})
	handle(t, agg, FitEvent{
		Type:       EventFit,
		Books:      1000,
		Vocabulary: 5000,
		LatencyMs:  900,
		Timestamp:  time.Now().UTC(),
	})

	stats := agg.Stats()
	if stats.TotalRecommends != 3 {
		t.Errorf("TotalRecommends = %d, want 3", stats.TotalRecommends)
	}
	if stats.TotalFits != 1 {
		t.Errorf("TotalFits = %d, want 1", stats.TotalFits)
	}
	if stats.ByMethod["content"] != 2 || stats.ByMethod["collaborative-user"] != 1 {
		t.Errorf("ByMethod = %v", stats.ByMethod)
	}
	if stats.ZeroResultCount != 1 {
		t.Errorf("ZeroResultCount = %d, want 1", stats.ZeroResultCount)
	}
}

func TestHandleMalformedEvents(t *testing.T) {
	agg := NewAggregator(nil)
	handler := HandleEvent(agg)

	// Undecodable and unknown events are dropped, never returned as
	// errors that would trigger a redelivery.
	if err := handler(context.Background(), nil, []byte("not json")); err != nil {
		t.Errorf("malformed payload returned error: %v", err)
	}
	if err := handler(context.Background(), nil, []byte(`{"type":"mystery"}`)); err != nil {
		t.Errorf("unknown type returned error: %v", err)
	}
	stats := agg.Stats()
	if stats.TotalSearches != 0 || stats.TotalRecommends != 0 || stats.TotalFits != 0 {
		t.Errorf("malformed events were counted: %+v", stats)
	}
}

func TestLatencyPercentiles(t *testing.T) {
	agg := NewAggregator(nil)
	for i := int64(1); i <= 100; i++ {
		handle(t, agg, SearchEvent{
			Type:      EventSearch,
			Query:     "q",
			Returned:  1,
			LatencyMs: i,
			Timestamp: time.Now().UTC(),
		})
	}

	stats := agg.Stats()
	if stats.P50LatencyMs != 51 {
		t.Errorf("P50 = %d, want 51", stats.P50LatencyMs)
	}
	if stats.P95LatencyMs != 96 {
		t.Errorf("P95 = %d, want 96", stats.P95LatencyMs)
	}
	if stats.P99LatencyMs != 100 {
		t.Errorf("P99 = %d, want 100", stats.P99LatencyMs)
	}
	if stats.AvgLatencyMs != 50.5 {
		t.Errorf("Avg = %v, want 50.5", stats.AvgLatencyMs)
	}
}

func TestTopQueriesOrdering(t *testing.T) {
	agg := NewAggregator(nil)
	record := func(query string, times int) {
		for i := 0; i < times; i++ {
			handle(t, agg, SearchEvent{
				Type:      EventSearch,
				Query:     query,
				Returned:  1,
				Timestamp: time.Now().UTC(),
			})
		}
	}
	record("dune", 3)
	record("hobbit", 1)
	record("austen", 3) // ties with dune, alphabetical first

	top := agg.Stats().TopQueries
	if len(top) != 3 {
		t.Fatalf("TopQueries has %d entries, want 3", len(top))
	}
	if top[0].Query != "austen" || top[1].Query != "dune" || top[2].Query != "hobbit" {
		t.Errorf("order = %s, %s, %s", top[0].Query, top[1].Query, top[2].Query)
	}
}
