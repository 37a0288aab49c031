package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"tifo/internal/domain/post"
	"tifo/internal/domain/sentiment"
	"tifo/pkg/errors"
)

// Compile-time check
var _ sentiment.Repository = (*ResultRepository)(nil)

// ResultRepository implements sentiment.Repository using ClickHouse.
// Results are append-only; the table is ordered by (classified_at,
// platform, external_id).
type ResultRepository struct {
	conn driver.Conn
}

// NewResultRepository creates a new classified-result repository
func NewResultRepository(conn driver.Conn) *ResultRepository {
	return &ResultRepository{conn: conn}
}

// resultRow mirrors the sentiment_results table.
type resultRow struct {
	Platform        string    `ch:"platform"`
	ExternalID      string    `ch:"external_id"`
	Category        string    `ch:"category"`
	Score           int32     `ch:"score"`
	Intensity       string    `ch:"intensity"`
	SarcasmDetected bool      `ch:"sarcasm_detected"`
	Topics          []string  `ch:"topics"`
	EmotionKeywords []string  `ch:"emotion_keywords"`
	Language        string    `ch:"language"`
	MentionedClubID string    `ch:"mentioned_club_id"`
	MatchID         string    `ch:"match_id"`
	Provenance      string    `ch:"provenance"`
	ClassifiedAt    time.Time `ch:"classified_at"`
}

func toRow(r sentiment.Result) resultRow {
	return resultRow{
		Platform:        string(r.Platform),
		ExternalID:      r.ExternalID,
		Category:        string(r.Category),
		Score:           int32(r.Score),
		Intensity:       string(r.Intensity),
		SarcasmDetected: r.SarcasmDetected,
		Topics:          r.Topics,
		EmotionKeywords: r.EmotionKeywords,
		Language:        r.Language,
		MentionedClubID: r.MentionedClubID,
		MatchID:         r.MatchID,
		Provenance:      r.Provenance,
		ClassifiedAt:    r.ClassifiedAt,
	}
}

func fromRow(row resultRow) sentiment.Result {
	return sentiment.Result{
		Platform:        post.Platform(row.Platform),
		ExternalID:      row.ExternalID,
		Category:        sentiment.Category(row.Category),
		Score:           int(row.Score),
		Intensity:       sentiment.Intensity(row.Intensity),
		SarcasmDetected: row.SarcasmDetected,
		Topics:          row.Topics,
		EmotionKeywords: row.EmotionKeywords,
		Language:        row.Language,
		MentionedClubID: row.MentionedClubID,
		MatchID:         row.MatchID,
		Provenance:      row.Provenance,
		ClassifiedAt:    row.ClassifiedAt,
	}
}

const selectColumns = `
	platform, external_id, category, score, intensity, sarcasm_detected,
	topics, emotion_keywords, language, mentioned_club_id, match_id,
	provenance, classified_at`

// InsertResults appends a batch of classified results
func (r *ResultRepository) InsertResults(ctx context.Context, results []sentiment.Result) error {
	if len(results) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO sentiment_results")
	if err != nil {
		return errors.Wrap(err, "prepare results batch")
	}

	for _, res := range results {
		if err := batch.AppendStruct(toRow(res)); err != nil {
			return errors.Wrap(err, "append result")
		}
	}

	if err := batch.Send(); err != nil {
		return errors.Wrap(err, "send results batch")
	}
	return nil
}

// ResultsForClub returns results mentioning the club inside the window
func (r *ResultRepository) ResultsForClub(ctx context.Context, clubID string, from, to time.Time) ([]sentiment.Result, error) {
	query := `
		SELECT` + selectColumns + `
		FROM sentiment_results
		WHERE mentioned_club_id = $1
		  AND classified_at >= $2 AND classified_at < $3
		ORDER BY classified_at, platform, external_id`

	return r.selectResults(ctx, query, clubID, from, to)
}

// ResultsForMatch returns results tied to the match inside the window
func (r *ResultRepository) ResultsForMatch(ctx context.Context, matchID string, from, to time.Time) ([]sentiment.Result, error) {
	query := `
		SELECT` + selectColumns + `
		FROM sentiment_results
		WHERE match_id = $1
		  AND classified_at >= $2 AND classified_at < $3
		ORDER BY classified_at, platform, external_id`

	return r.selectResults(ctx, query, matchID, from, to)
}

// ResultsForPlatform returns results from the platform inside the window
func (r *ResultRepository) ResultsForPlatform(ctx context.Context, platform post.Platform, from, to time.Time) ([]sentiment.Result, error) {
	query := `
		SELECT` + selectColumns + `
		FROM sentiment_results
		WHERE platform = $1
		  AND classified_at >= $2 AND classified_at < $3
		ORDER BY classified_at, platform, external_id`

	return r.selectResults(ctx, query, string(platform), from, to)
}

func (r *ResultRepository) selectResults(ctx context.Context, query string, args ...interface{}) ([]sentiment.Result, error) {
	var rows []resultRow
	if err := r.conn.Select(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select results")
	}

	results := make([]sentiment.Result, len(rows))
	for i, row := range rows {
		results[i] = fromRow(row)
	}
	return results, nil
}
