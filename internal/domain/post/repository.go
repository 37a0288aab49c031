package post

import (
	"context"
)

// Store persists admitted posts. InsertPost is the system-wide
// idempotency boundary: a post whose (platform, external_id) key was
// already admitted is reported as not inserted, never duplicated.
// Posts start out unclassified; MarkClassified records that a
// sentiment result has been durably stored for them, so a classifier
// outage never strands an admitted post without a result.
type Store interface {
	// InsertPost stores the post if its identity key is new.
	// Returns false when the key already existed.
	InsertPost(ctx context.Context, p RawPost) (bool, error)

	// Unclassified returns up to limit stored posts that have no
	// sentiment result yet, oldest first.
	Unclassified(ctx context.Context, limit int) ([]RawPost, error)

	// MarkClassified records that results were stored for the given
	// identity keys.
	MarkClassified(ctx context.Context, keys []Key) error
}
