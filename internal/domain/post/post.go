package post

import "time"

// Platform identifies the source platform of a post.
type Platform string

const (
	// PlatformTwitterlike is the short-form social network.
	PlatformTwitterlike Platform = "twitterlike"

	// PlatformForum is the link-aggregator fan forum.
	// It has its own enum value; posts from it are never stored
	// under another platform's slot.
	PlatformForum Platform = "forum"
)

// Valid reports whether p is a known platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTwitterlike, PlatformForum:
		return true
	}
	return false
}

// RawPost is one fetched item before classification.
// Immutable once filtered and deduplicated; a re-fetch of the same
// external id is a no-op.
type RawPost struct {
	Platform     Platform         `db:"platform" json:"platform"`
	ExternalID   string           `db:"external_id" json:"external_id"`
	AuthorHandle string           `db:"author_handle" json:"author_handle,omitempty"`
	Content      string           `db:"content" json:"content"`
	PostedAt     time.Time        `db:"posted_at" json:"posted_at"`
	Engagement   map[string]int64 `db:"-" json:"engagement,omitempty"`
	MatchID      string           `db:"match_id" json:"match_id,omitempty"`
	ClubID       string           `db:"club_id" json:"club_id,omitempty"`
}

// Key returns the canonical identity of the post.
func (p RawPost) Key() Key {
	return Key{Platform: p.Platform, ExternalID: p.ExternalID}
}

// Key uniquely identifies a post across all platforms.
type Key struct {
	Platform   Platform
	ExternalID string
}

func (k Key) String() string {
	return string(k.Platform) + ":" + k.ExternalID
}

// MaxContentLength bounds stored post content. Longer content is
// truncated by adapters before it enters the pipeline.
const MaxContentLength = 2000
