package aggregate

import (
	"time"

	"tifo/internal/domain/sentiment"
)

// Scope names what a rollup covers.
type Scope string

const (
	ScopeClub     Scope = "club"
	ScopeMatch    Scope = "match"
	ScopePlatform Scope = "platform"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	switch s {
	case ScopeClub, ScopeMatch, ScopePlatform:
		return true
	}
	return false
}

// Window is the half-bounded time span a rollup is computed over.
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// TopicCount is one ranked entry of the top-topics list.
type TopicCount struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
}

// Stats is the per-scope rollup. It is recomputed from scratch on each
// aggregation pass, never incrementally patched, so repeated computation
// over the same result set is bit-identical.
type Stats struct {
	Scope             Scope                      `json:"scope"`
	ScopeID           string                     `json:"scope_id"`
	Window            Window                     `json:"window"`
	TotalPosts        int                        `json:"total_posts"`
	AverageScore      float64                    `json:"average_score"`
	CategoryBreakdown map[sentiment.Category]int `json:"category_breakdown"`
	DominantCategory  sentiment.Category         `json:"dominant_category"`
	TopTopics         []TopicCount               `json:"top_topics"`
	SarcasmCount      int                        `json:"sarcasm_count"`
	ComputedAt        time.Time                  `json:"computed_at"`
}

// TrendDirection reports how a scope's average moved between two windows.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// Trend is the diff of average scores across two disjoint windows.
// Stable is reported when the absolute delta is under the threshold,
// so noise is not surfaced as a trend.
type Trend struct {
	Direction TrendDirection `json:"direction"`
	Delta     float64        `json:"delta"`
}
