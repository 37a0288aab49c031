package kafka

// Topic definitions for event streaming
const (
	// Pipeline events
	TopicPostsIngested       = "posts.ingested"
	TopicSentimentClassified = "sentiment.classified"
	TopicAggregatesRefreshed = "aggregates.refreshed"

	// Inbound signals
	TopicMatchStatus = "matches.status"
)
