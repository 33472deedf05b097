// Package suggest asks an external generative-text service for similar
// book titles. The collaborator sits behind an interface so the server
// layer never depends on the concrete transport, and the HTTP client is
// wrapped in a circuit breaker with retry so a flaky upstream degrades
// to static fallback titles instead of failing requests.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bookshelf-ai/recommender/pkg/config"
	"github.com/bookshelf-ai/recommender/pkg/metrics"
	"github.com/bookshelf-ai/recommender/pkg/resilience"
)

// Suggester produces similar-title suggestions for a book description.
type Suggester interface {
	SimilarTitles(ctx context.Context, description string) ([]string, error)
}

// FallbackTitles are served when the upstream is unavailable or
// misconfigured. Callers always get something to show.
var FallbackTitles = []string{
	"The Name of the Wind",
	"The Left Hand of Darkness",
	"A Wizard of Earthsea",
	"The Remains of the Day",
}

// Client calls a text-completion endpoint over HTTP.
type Client struct {
	cfg     config.SuggestConfig
	http    *http.Client
	breaker *resilience.CircuitBreaker
	retry   resilience.RetryConfig
	m       *metrics.Metrics
	log     *slog.Logger
}

// NewClient builds a suggestion client. The metrics handle may be nil.
func NewClient(cfg config.SuggestConfig, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
		breaker: resilience.NewCircuitBreaker("suggest", resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     30 * time.Second,
		}),
		retry: resilience.RetryConfig{
			MaxAttempts:  2,
			InitialDelay: 200 * time.Millisecond,
		},
		m:   m,
		log: slog.Default().With("component", "suggest"),
	}
}

type completionPart struct {
	Text string `json:"text"`
}

type completionContent struct {
	Role  string           `json:"role,omitempty"`
	Parts []completionPart `json:"parts"`
}

type completionRequest struct {
	Contents []completionContent `json:"contents"`
}

type completionResponse struct {
	Candidates []struct {
		Content completionContent `json:"content"`
	} `json:"candidates"`
}

// SimilarTitles returns 3-4 titles similar to the described book. When
// the endpoint is unset, the circuit is open, or every attempt fails,
// the static fallback list is returned with a nil error; the outcome is
// still visible through metrics and logs.
func (c *Client) SimilarTitles(ctx context.Context, description string) ([]string, error) {
	if c.cfg.Endpoint == "" {
		c.countCall("disabled")
		return FallbackTitles, nil
	}

	prompt := fmt.Sprintf(
		"Given the book description: %q. Suggest 3-4 similar book titles. Provide only the titles, separated by commas.",
		description,
	)

	var titles []string
	err := c.breaker.Execute(func() error {
		return resilience.Retry(ctx, "suggest", c.retry, func() error {
			got, callErr := c.call(ctx, prompt)
			if callErr != nil {
				return callErr
			}
			titles = got
			return nil
		})
	})
	if err != nil {
		c.countCall("fallback")
		c.log.Warn("suggestion call failed, serving fallback", "error", err)
		return FallbackTitles, nil
	}
	c.countCall("success")
	return titles, nil
}

func (c *Client) call(ctx context.Context, prompt string) ([]string, error) {
	body, err := json.Marshal(completionRequest{
		Contents: []completionContent{{
			Role:  "user",
			Parts: []completionPart{{Text: prompt}},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding suggestion request: %w", err)
	}

	url := c.cfg.Endpoint
	if c.cfg.APIKey != "" {
		url += "?key=" + c.cfg.APIKey
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building suggestion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling suggestion endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("suggestion endpoint returned status %d", resp.StatusCode)
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding suggestion response: %w", err)
	}
	titles := parseTitles(out)
	if len(titles) == 0 {
		return nil, fmt.Errorf("suggestion response contained no titles")
	}
	return titles, nil
}

func parseTitles(resp completionResponse) []string {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil
	}
	var titles []string
	for _, part := range strings.Split(resp.Candidates[0].Content.Parts[0].Text, ",") {
		if title := strings.TrimSpace(part); title != "" {
			titles = append(titles, title)
		}
	}
	return titles
}

func (c *Client) countCall(outcome string) {
	if c.m != nil {
		c.m.SuggestCallsTotal.WithLabelValues(outcome).Inc()
	}
}

// Static is a Suggester that always returns the fallback titles. Used
// when no endpoint is configured and in tests.
type Static struct{}

// SimilarTitles returns the static fallback list.
func (Static) SimilarTitles(context.Context, string) ([]string, error) {
	return FallbackTitles, nil
}
