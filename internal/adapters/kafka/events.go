package kafka

import (
	"time"

	"tifo/internal/domain/aggregate"
	"tifo/internal/domain/post"
	"tifo/internal/domain/sentiment"
)

// PostIngestedEvent is published to TopicPostsIngested for every post
// that passed moderation and the uniqueness boundary.
type PostIngestedEvent struct {
	RunID      string       `json:"run_id"`
	Post       post.RawPost `json:"post"`
	IngestedAt time.Time    `json:"ingested_at"`
}

// SentimentClassifiedEvent is published to TopicSentimentClassified for
// every stored classification result.
type SentimentClassifiedEvent struct {
	RunID  string           `json:"run_id"`
	Result sentiment.Result `json:"result"`
}

// AggregateRefreshedEvent is published to TopicAggregatesRefreshed after
// a rollup is recomputed.
type AggregateRefreshedEvent struct {
	Stats aggregate.Stats `json:"stats"`
}

// Match lifecycle states carried on TopicMatchStatus.
const (
	MatchStatusLive     = "live"
	MatchStatusFinished = "finished"
)

// MatchStatusEvent is an inbound signal from the fixtures system. A
// live match forces boosted refresh for the clubs involved.
type MatchStatusEvent struct {
	MatchID   string    `json:"match_id"`
	Status    string    `json:"status"`
	ClubIDs   []string  `json:"club_ids"`
	KickoffAt time.Time `json:"kickoff_at,omitempty"`
}
