package suggest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/bookshelf-ai/recommender/pkg/config"
)

func TestSimilarTitlesFromEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q, want application/json", got)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Dune, Hyperion, Foundation"}]}}]}`))
	}))
	defer srv.Close()

	client := NewClient(config.SuggestConfig{Endpoint: srv.URL}, nil)
	titles, err := client.SimilarTitles(context.Background(), "epic space opera")
	if err != nil {
		t.Fatalf("SimilarTitles: %v", err)
	}
	want := []string{"Dune", "Hyperion", "Foundation"}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("titles = %v, want %v", titles, want)
	}
}

func TestSimilarTitlesFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(config.SuggestConfig{Endpoint: srv.URL}, nil)
	titles, err := client.SimilarTitles(context.Background(), "anything")
	if err != nil {
		t.Fatalf("SimilarTitles: %v", err)
	}
	if !reflect.DeepEqual(titles, FallbackTitles) {
		t.Errorf("titles = %v, want fallback list", titles)
	}
}

func TestSimilarTitlesWithoutEndpoint(t *testing.T) {
	client := NewClient(config.SuggestConfig{}, nil)
	titles, err := client.SimilarTitles(context.Background(), "anything")
	if err != nil {
		t.Fatalf("SimilarTitles: %v", err)
	}
	if !reflect.DeepEqual(titles, FallbackTitles) {
		t.Errorf("titles = %v, want fallback list", titles)
	}
}

func TestParseTitles(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"comma separated", "Dune, Hyperion, Foundation", []string{"Dune", "Hyperion", "Foundation"}},
		{"extra whitespace", "  Dune ,Hyperion  ", []string{"Dune", "Hyperion"}},
		{"empty segments", "Dune,,  ,Hyperion", []string{"Dune", "Hyperion"}},
		{"empty text", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp completionResponse
			resp.Candidates = []struct {
				Content completionContent `json:"content"`
			}{{Content: completionContent{Parts: []completionPart{{Text: tt.text}}}}}
			got := parseTitles(resp)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseTitles(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestParseTitlesNoCandidates(t *testing.T) {
	if got := parseTitles(completionResponse{}); got != nil {
		t.Errorf("parseTitles(empty) = %v, want nil", got)
	}
}

func TestStaticSuggester(t *testing.T) {
	titles, err := Static{}.SimilarTitles(context.Background(), "anything")
	if err != nil {
		t.Fatalf("SimilarTitles: %v", err)
	}
	if !reflect.DeepEqual(titles, FallbackTitles) {
		t.Errorf("titles = %v, want fallback list", titles)
	}
}
