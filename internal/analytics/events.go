package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventRecommend  EventType = "recommend"
	EventFit        EventType = "fit"
	EventZeroResult EventType = "zero_result"
)

type SearchEvent struct {
	Type      EventType `json:"type"`
	Query     string    `json:"query"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

type RecommendEvent struct {
	Type      EventType `json:"type"`
	Method    string    `json:"method"`
	Query     string    `json:"query"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

type FitEvent struct {
	Type        EventType `json:"type"`
	Books       int       `json:"books"`
	Vocabulary  int       `json:"vocabulary"`
	WithRatings bool      `json:"with_ratings"`
	LatencyMs   int64     `json:"latency_ms"`
	Timestamp   time.Time `json:"timestamp"`
}
