package aggregation

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tifo/internal/domain/aggregate"
	"tifo/internal/domain/sentiment"
)

// topTopicsLimit caps the ranked topic list on each rollup.
const topTopicsLimit = 5

// trendStabilityThreshold is the minimum absolute average-score delta
// between two windows before a direction is reported. Smaller moves are
// noise and come back as stable.
const trendStabilityThreshold = 3.0

// Compute builds the rollup for one scope over one result set. The
// computation is deterministic: the same results in any order produce a
// bit-identical Stats value (except ComputedAt, supplied by the caller).
func Compute(scope aggregate.Scope, scopeID string, window aggregate.Window, results []sentiment.Result, computedAt time.Time) aggregate.Stats {
	stats := aggregate.Stats{
		Scope:             scope,
		ScopeID:           scopeID,
		Window:            window,
		TotalPosts:        len(results),
		CategoryBreakdown: make(map[sentiment.Category]int, len(sentiment.Categories)),
		ComputedAt:        computedAt,
	}

	// Every category appears in the breakdown, zero-filled, so
	// consumers never branch on missing keys.
	for _, cat := range sentiment.Categories {
		stats.CategoryBreakdown[cat] = 0
	}

	if len(results) == 0 {
		stats.DominantCategory = sentiment.CategoryNeutral
		stats.TopTopics = []aggregate.TopicCount{}
		return stats
	}

	sum := decimal.Zero
	topicCounts := make(map[string]int)
	for _, r := range results {
		sum = sum.Add(decimal.NewFromInt(int64(r.Score)))
		stats.CategoryBreakdown[r.Category]++
		if r.SarcasmDetected {
			stats.SarcasmCount++
		}
		for _, topic := range r.Topics {
			topicCounts[topic]++
		}
	}

	// Decimal division with fixed rounding keeps the average identical
	// across runs and architectures.
	avg := sum.Div(decimal.NewFromInt(int64(len(results)))).Round(2)
	stats.AverageScore, _ = avg.Float64()

	stats.DominantCategory = dominantCategory(stats.CategoryBreakdown)
	stats.TopTopics = topTopics(topicCounts)

	return stats
}

// dominantCategory picks the category with the highest count. Ties go to
// the more positive category.
func dominantCategory(breakdown map[sentiment.Category]int) sentiment.Category {
	dominant := sentiment.CategoryNeutral
	best := -1
	for _, cat := range sentiment.Categories {
		if breakdown[cat] > best {
			dominant = cat
			best = breakdown[cat]
		}
	}
	return dominant
}

// topTopics ranks topics by count descending, lexicographic on ties,
// capped at topTopicsLimit.
func topTopics(counts map[string]int) []aggregate.TopicCount {
	ranked := make([]aggregate.TopicCount, 0, len(counts))
	for topic, count := range counts {
		ranked = append(ranked, aggregate.TopicCount{Topic: topic, Count: count})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Topic < ranked[j].Topic
	})

	if len(ranked) > topTopicsLimit {
		ranked = ranked[:topTopicsLimit]
	}
	return ranked
}

// ComputeTrend diffs the average scores of two windows for the same
// scope. previous is the older window.
func ComputeTrend(previous, current aggregate.Stats) aggregate.Trend {
	delta := current.AverageScore - previous.AverageScore

	trend := aggregate.Trend{Delta: delta}
	switch {
	case delta >= trendStabilityThreshold:
		trend.Direction = aggregate.TrendUp
	case delta <= -trendStabilityThreshold:
		trend.Direction = aggregate.TrendDown
	default:
		trend.Direction = aggregate.TrendStable
	}
	return trend
}
