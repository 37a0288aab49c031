package sentiment

import (
	"time"

	"tifo/internal/domain/post"
	"tifo/pkg/errors"
)

// Intensity grades how strongly the sentiment is expressed.
type Intensity string

const (
	IntensityWeak     Intensity = "Weak"
	IntensityModerate Intensity = "Moderate"
	IntensityStrong   Intensity = "Strong"
	IntensityExtreme  Intensity = "Extreme"
)

// ParseIntensity maps a provider label to an Intensity, defaulting to
// Moderate for anything unrecognized.
func ParseIntensity(s string) Intensity {
	switch Intensity(s) {
	case IntensityWeak, IntensityModerate, IntensityStrong, IntensityExtreme:
		return Intensity(s)
	}
	return IntensityModerate
}

// Provenance markers recorded on each result.
const (
	ProvenanceFallbackParseFailure = "fallback:parse_failure"
)

// ProviderProvenance marks a result as produced by the named provider.
func ProviderProvenance(name string) string {
	return "provider:" + name
}

// Result is the canonical, provider-agnostic classification of one post.
// Exactly one result exists per admitted post.
type Result struct {
	Platform        post.Platform `json:"platform"`
	ExternalID      string        `json:"external_id"`
	Category        Category      `json:"category"`
	Score           int           `json:"score"`
	Intensity       Intensity     `json:"intensity"`
	SarcasmDetected bool          `json:"sarcasm_detected"`
	Topics          []string      `json:"topics,omitempty"`
	EmotionKeywords []string      `json:"emotion_keywords,omitempty"`
	Language        string        `json:"language,omitempty"`
	MentionedClubID string        `json:"mentioned_club_id,omitempty"`
	MatchID         string        `json:"match_id,omitempty"`
	Provenance      string        `json:"provenance"`
	ClassifiedAt    time.Time     `json:"classified_at"`
}

// Validate checks the category/score invariant: the score must lie inside
// the closed range owned by the category. A violation is a data-quality
// error for callers that bypass Normalize.
func (r Result) Validate() error {
	if !r.Category.Valid() {
		return errors.Wrapf(errors.ErrUnknownCategory, "category %q", r.Category)
	}
	if !r.Category.Contains(r.Score) {
		min, max := r.Category.Range()
		return errors.Wrapf(errors.ErrOutOfRangeScore,
			"score %d outside %s range [%d,%d]", r.Score, r.Category, min, max)
	}
	return nil
}

// FallbackResult builds the documented fallback classification for a post
// whose provider response could not be recovered: Neutral, score 50,
// Moderate, no sarcasm, marked with the parse-failure provenance.
func FallbackResult(p post.RawPost, now time.Time) Result {
	return Result{
		Platform:        p.Platform,
		ExternalID:      p.ExternalID,
		Category:        CategoryNeutral,
		Score:           50,
		Intensity:       IntensityModerate,
		SarcasmDetected: false,
		Language:        "",
		MentionedClubID: p.ClubID,
		MatchID:         p.MatchID,
		Provenance:      ProvenanceFallbackParseFailure,
		ClassifiedAt:    now,
	}
}
