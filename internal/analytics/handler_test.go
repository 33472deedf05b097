package analytics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator(nil)
	handle(t, agg, SearchEvent{
		Type:      EventSearch,
		Query:     "dune",
		Returned:  2,
		LatencyMs: 12,
		Timestamp: time.Now().UTC(),
	})

	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	var stats AggregatedStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if stats.TotalSearches != 1 {
		t.Errorf("TotalSearches = %d, want 1", stats.TotalSearches)
	}
}

func TestHandlerTopQueries(t *testing.T) {
	agg := NewAggregator(nil)
	for i := 0; i < 3; i++ {
		handle(t, agg, SearchEvent{Type: EventSearch, Query: "dune", Returned: 2, Timestamp: time.Now().UTC()})
	}
	handle(t, agg, SearchEvent{Type: EventZeroResult, Query: "cookbook", Returned: 0, Timestamp: time.Now().UTC()})

	rec := httptest.NewRecorder()
	NewHandler(agg).TopQueries(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/top-queries", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out struct {
		TopQueries        []QueryCount `json:"top_queries"`
		ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(out.TopQueries) == 0 || out.TopQueries[0].Query != "dune" || out.TopQueries[0].Count != 3 {
		t.Errorf("top queries = %+v, want dune with count 3 first", out.TopQueries)
	}
	if len(out.ZeroResultQueries) != 1 || out.ZeroResultQueries[0].Query != "cookbook" {
		t.Errorf("zero-result queries = %+v, want [cookbook]", out.ZeroResultQueries)
	}
}
