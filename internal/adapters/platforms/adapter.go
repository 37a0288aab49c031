package platforms

import (
	"context"
	"unicode/utf8"

	"tifo/internal/domain/post"
)

// Page is one fetched batch plus the cursor for the next call. An empty
// NextCursor means the source has no further pages for now.
type Page struct {
	Posts      []post.RawPost
	NextCursor string
}

// Adapter fetches raw posts from one external platform. Implementations
// normalize vendor payloads into post.RawPost and report failures as
// *post.AdapterError so the pipeline can react per failure kind.
//
// FetchBatch is safe for concurrent use; calls against the same platform
// are serialized and paced internally.
type Adapter interface {
	Platform() post.Platform
	FetchBatch(ctx context.Context, query, cursor string) (Page, error)
}

// truncateContent caps content at post.MaxContentLength bytes without
// splitting a multi-byte rune at the cut point.
func truncateContent(content string) string {
	if len(content) <= post.MaxContentLength {
		return content
	}
	cut := post.MaxContentLength
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}
