package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tifo/internal/domain/post"
	"tifo/pkg/errors"
)

// Compile-time check
var _ post.Store = (*PostRepository)(nil)

// PostRepository implements post.Store using sqlx. The unique index on
// (platform, external_id) is the idempotency boundary for concurrent
// ingestion; duplicates are absorbed by ON CONFLICT DO NOTHING.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// postRow mirrors the posts table.
type postRow struct {
	Platform     string    `db:"platform"`
	ExternalID   string    `db:"external_id"`
	AuthorHandle string    `db:"author_handle"`
	Content      string    `db:"content"`
	PostedAt     time.Time `db:"posted_at"`
	Engagement   []byte    `db:"engagement"`
	MatchID      string    `db:"match_id"`
	ClubID       string    `db:"club_id"`
	IngestedAt   time.Time `db:"ingested_at"`
	Classified   bool      `db:"classified"`
}

// InsertPost stores the post if its identity key is new.
func (r *PostRepository) InsertPost(ctx context.Context, p post.RawPost) (bool, error) {
	engagement, err := json.Marshal(p.Engagement)
	if err != nil {
		return false, errors.Wrap(err, "marshal engagement")
	}

	query := `
		INSERT INTO posts (
			platform, external_id, author_handle, content,
			posted_at, engagement, match_id, club_id, ingested_at, classified
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, now(), false
		)
		ON CONFLICT (platform, external_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		string(p.Platform), p.ExternalID, p.AuthorHandle, p.Content,
		p.PostedAt, engagement, p.MatchID, p.ClubID,
	)
	if err != nil {
		return false, errors.Wrap(err, "insert post")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "rows affected")
	}

	return affected == 1, nil
}

// Unclassified returns up to limit posts with no stored sentiment
// result, oldest first.
func (r *PostRepository) Unclassified(ctx context.Context, limit int) ([]post.RawPost, error) {
	var rows []postRow

	query := `
		SELECT platform, external_id, author_handle, content,
		       posted_at, engagement, match_id, club_id, ingested_at, classified
		FROM posts
		WHERE NOT classified
		ORDER BY ingested_at
		LIMIT $1`

	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, errors.Wrap(err, "select unclassified posts")
	}

	posts := make([]post.RawPost, 0, len(rows))
	for _, row := range rows {
		mapped, err := fromPostRow(row)
		if err != nil {
			return nil, err
		}
		posts = append(posts, mapped)
	}
	return posts, nil
}

// MarkClassified flags the given keys as having stored results.
func (r *PostRepository) MarkClassified(ctx context.Context, keys []post.Key) error {
	if len(keys) == 0 {
		return nil
	}

	platforms := make([]string, len(keys))
	externalIDs := make([]string, len(keys))
	for i, k := range keys {
		platforms[i] = string(k.Platform)
		externalIDs[i] = k.ExternalID
	}

	query := `
		UPDATE posts SET classified = true
		FROM unnest($1::text[], $2::text[]) AS k(platform, external_id)
		WHERE posts.platform = k.platform AND posts.external_id = k.external_id`

	if _, err := r.db.ExecContext(ctx, query, pq.Array(platforms), pq.Array(externalIDs)); err != nil {
		return errors.Wrap(err, "mark posts classified")
	}
	return nil
}

func fromPostRow(row postRow) (post.RawPost, error) {
	var engagement map[string]int64
	if len(row.Engagement) > 0 {
		if err := json.Unmarshal(row.Engagement, &engagement); err != nil {
			return post.RawPost{}, errors.Wrap(err, "unmarshal engagement")
		}
	}

	return post.RawPost{
		Platform:     post.Platform(row.Platform),
		ExternalID:   row.ExternalID,
		AuthorHandle: row.AuthorHandle,
		Content:      row.Content,
		PostedAt:     row.PostedAt,
		Engagement:   engagement,
		MatchID:      row.MatchID,
		ClubID:       row.ClubID,
	}, nil
}
