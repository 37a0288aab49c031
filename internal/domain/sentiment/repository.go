package sentiment

import (
	"context"
	"time"

	"tifo/internal/domain/post"
)

// Repository defines the interface for classified-result access (ClickHouse)
type Repository interface {
	// InsertResults appends a batch of classified results
	InsertResults(ctx context.Context, results []Result) error

	// ResultsForClub returns results mentioning the club inside the window
	ResultsForClub(ctx context.Context, clubID string, from, to time.Time) ([]Result, error)

	// ResultsForMatch returns results tied to the match inside the window
	ResultsForMatch(ctx context.Context, matchID string, from, to time.Time) ([]Result, error)

	// ResultsForPlatform returns results from the platform inside the window
	ResultsForPlatform(ctx context.Context, platform post.Platform, from, to time.Time) ([]Result, error)
}
