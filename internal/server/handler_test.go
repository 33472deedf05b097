package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bookshelf-ai/recommender/internal/analytics"
	"github.com/bookshelf-ai/recommender/internal/catalog"
	"github.com/bookshelf-ai/recommender/internal/engine"
	"github.com/bookshelf-ai/recommender/internal/ratings"
	"github.com/bookshelf-ai/recommender/internal/suggest"
	"github.com/bookshelf-ai/recommender/pkg/config"
)

func testEngine(t *testing.T, fit bool) *engine.Engine {
	t.Helper()
	eng := engine.New(config.EngineConfig{
		MaxFeatures:    1000,
		MinDocCount:    1,
		MaxDocFraction: 1.0,
		EmbeddingDims:  2,
		ClusterSeed:    42,
		RatingFeatures: true,
	}, testRecommendConfig(), nil)
	if !fit {
		return eng
	}

	books := catalog.NewCollection([]catalog.Book{
		{ID: "1", Title: "Dune", Author: "Frank Herbert"},
		{ID: "2", Title: "Children of Dune", Author: "Frank Herbert"},
		{ID: "3", Title: "Pride and Prejudice", Author: "Jane Austen"},
	})
	repo := ratings.NewRepository()
	repo.Load([]ratings.Rating{
		{UserID: "u1", ItemID: "1", Raw: 10},
		{UserID: "u1", ItemID: "2", Raw: 9},
		{UserID: "u2", ItemID: "1", Raw: 9},
		{UserID: "u2", ItemID: "2", Raw: 10},
	})
	if err := eng.FitWithRatings(books, repo); err != nil {
		t.Fatalf("fit failed: %v", err)
	}
	return eng
}

func testRecommendConfig() config.RecommendConfig {
	return config.RecommendConfig{
		DefaultLimit:   5,
		MaxResults:     50,
		MinCommonItems: 2,
		MinRatings:     1,
	}
}

func newTestServer(t *testing.T, eng *engine.Engine, refit RefitFunc) *httptest.Server {
	t.Helper()
	h := New(eng, nil, nil, suggest.Static{}, refit, testRecommendConfig(), nil)
	srv := httptest.NewServer(h.Routes(nil, nil))
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response from %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestSearchEndpoint(t *testing.T) {
	srv := newTestServer(t, testEngine(t, true), nil)

	var body struct {
		Query   string `json:"query"`
		Results []struct {
			Book  catalog.Book `json:"book"`
			Score float64      `json:"score"`
		} `json:"results"`
	}
	status := getJSON(t, srv.URL+"/api/v1/search?q=dune", &body)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if body.Query != "dune" {
		t.Errorf("query echoed as %q", body.Query)
	}
	if len(body.Results) == 0 {
		t.Fatal("no search results")
	}
	if body.Results[0].Book.Title != "Dune" {
		t.Errorf("top hit = %q, want Dune", body.Results[0].Book.Title)
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	srv := newTestServer(t, testEngine(t, true), nil)

	tests := []struct {
		path string
		want int
	}{
		{"/api/v1/search", http.StatusBadRequest},               // missing q
		{"/api/v1/search?q=dune&limit=0", http.StatusBadRequest},
		{"/api/v1/search?q=dune&limit=abc", http.StatusBadRequest},
		{"/api/v1/search?q=dune&limit=2", http.StatusOK},
	}
	for _, tt := range tests {
		var errBody struct {
			Error string `json:"error"`
		}
		if status := getJSON(t, srv.URL+tt.path, &errBody); status != tt.want {
			t.Errorf("GET %s = %d, want %d", tt.path, status, tt.want)
		}
	}
}

func TestSearchBeforeFit(t *testing.T) {
	srv := newTestServer(t, testEngine(t, false), nil)

	var errBody struct {
		Error string `json:"error"`
	}
	status := getJSON(t, srv.URL+"/api/v1/search?q=dune", &errBody)
	if status != http.StatusConflict {
		t.Errorf("status = %d, want 409 for unfit engine", status)
	}
	if errBody.Error == "" {
		t.Error("error message missing")
	}
}

func TestRecommendationEndpoints(t *testing.T) {
	srv := newTestServer(t, testEngine(t, true), nil)

	paths := []string{
		"/api/v1/recommendations/similar?title=Dune",
		"/api/v1/recommendations/cluster?title=Dune",
		"/api/v1/recommendations/user/u1",
		"/api/v1/recommendations/item/1",
	}
	for _, path := range paths {
		var body struct {
			Query           string            `json:"query"`
			Recommendations []json.RawMessage `json:"recommendations"`
		}
		if status := getJSON(t, srv.URL+path, &body); status != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, status)
		}
	}
}

func TestRecommendSimilarEndpoint(t *testing.T) {
	srv := newTestServer(t, testEngine(t, true), nil)

	var body struct {
		Recommendations []struct {
			Book   catalog.Book `json:"book"`
			Score  float64      `json:"score"`
			Method string       `json:"method"`
			Reason string       `json:"reason"`
		} `json:"recommendations"`
	}
	status := getJSON(t, srv.URL+"/api/v1/recommendations/similar?title=Dune&limit=1", &body)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if len(body.Recommendations) != 1 {
		t.Fatalf("returned %d recommendations, want 1", len(body.Recommendations))
	}
	rec := body.Recommendations[0]
	if rec.Book.Title != "Children of Dune" {
		t.Errorf("recommendation = %q, want Children of Dune", rec.Book.Title)
	}
	if rec.Method != "content" || rec.Reason == "" {
		t.Errorf("method/reason = %q/%q", rec.Method, rec.Reason)
	}
}

func TestRecommendMissingTitle(t *testing.T) {
	srv := newTestServer(t, testEngine(t, true), nil)

	status := getJSON(t, srv.URL+"/api/v1/recommendations/similar", nil)
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing title", status)
	}
}

func TestSuggestEndpoint(t *testing.T) {
	srv := newTestServer(t, testEngine(t, true), nil)

	resp, err := http.Post(srv.URL+"/api/v1/suggest", "application/json",
		strings.NewReader(`{"description": "a space opera about a desert planet"}`))
	if err != nil {
		t.Fatalf("POST /suggest: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Titles []string `json:"titles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(body.Titles) == 0 {
		t.Error("no suggested titles")
	}
}

func TestSuggestEndpointValidation(t *testing.T) {
	srv := newTestServer(t, testEngine(t, true), nil)

	for _, payload := range []string{`not json`, `{}`, `{"description": ""}`} {
		resp, err := http.Post(srv.URL+"/api/v1/suggest", "application/json",
			strings.NewReader(payload))
		if err != nil {
			t.Fatalf("POST /suggest: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("POST %q = %d, want 400", payload, resp.StatusCode)
		}
	}
}

func TestStatisticsEndpoint(t *testing.T) {
	srv := newTestServer(t, testEngine(t, true), nil)

	var body struct {
		Fitted bool `json:"fitted"`
		Books  int  `json:"books"`
	}
	if status := getJSON(t, srv.URL+"/api/v1/statistics", &body); status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if !body.Fitted || body.Books != 3 {
		t.Errorf("statistics = %+v", body)
	}
}

func TestRefitEndpoint(t *testing.T) {
	called := false
	refit := func(ctx context.Context) error {
		called = true
		return nil
	}
	srv := newTestServer(t, testEngine(t, true), refit)

	resp, err := http.Post(srv.URL+"/api/v1/refit", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /refit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if !called {
		t.Error("refit function not invoked")
	}
}

type recordingTracker struct {
	events []interface{}
}

func (r *recordingTracker) Track(event interface{}) {
	r.events = append(r.events, event)
}

func TestRefitEndpointEmitsFitEvent(t *testing.T) {
	tracker := &recordingTracker{}
	eng := testEngine(t, true)
	refit := func(ctx context.Context) error { return nil }
	h := New(eng, nil, tracker, suggest.Static{}, refit, testRecommendConfig(), nil)
	srv := httptest.NewServer(h.Routes(nil, nil))
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/api/v1/refit", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /refit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if len(tracker.events) != 1 {
		t.Fatalf("tracked %d events, want 1", len(tracker.events))
	}
	event, ok := tracker.events[0].(analytics.FitEvent)
	if !ok {
		t.Fatalf("tracked event is %T, want analytics.FitEvent", tracker.events[0])
	}
	if event.Type != analytics.EventFit {
		t.Errorf("event type = %q, want %q", event.Type, analytics.EventFit)
	}
	stats := eng.Statistics()
	if event.Books != stats.Books {
		t.Errorf("event books = %d, want %d", event.Books, stats.Books)
	}
	if event.Vocabulary != stats.VocabularySize {
		t.Errorf("event vocabulary = %d, want %d", event.Vocabulary, stats.VocabularySize)
	}
	if !event.WithRatings {
		t.Error("event should report a ratings-aware fit")
	}
	if event.Timestamp.IsZero() {
		t.Error("event timestamp not set")
	}
}

func TestRefitEndpointErrors(t *testing.T) {
	srv := newTestServer(t, testEngine(t, true), nil)
	resp, err := http.Post(srv.URL+"/api/v1/refit", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /refit: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("unconfigured refit = %d, want 503", resp.StatusCode)
	}

	failing := func(ctx context.Context) error { return errors.New("source unavailable") }
	srv2 := newTestServer(t, testEngine(t, true), failing)
	resp2, err := http.Post(srv2.URL+"/api/v1/refit", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /refit: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusInternalServerError {
		t.Errorf("failing refit = %d, want 500", resp2.StatusCode)
	}
}

func TestCacheEndpointsDisabled(t *testing.T) {
	srv := newTestServer(t, testEngine(t, true), nil)

	var stats map[string]string
	if status := getJSON(t, srv.URL+"/api/v1/cache/stats", &stats); status != http.StatusOK {
		t.Errorf("cache stats status = %d, want 200", status)
	}
	if stats["status"] != "disabled" {
		t.Errorf("cache stats = %v, want disabled marker", stats)
	}

	resp, err := http.Post(srv.URL+"/api/v1/cache/invalidate", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /cache/invalidate: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("invalidate without cache = %d, want 503", resp.StatusCode)
	}
}
