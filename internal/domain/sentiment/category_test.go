package sentiment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tifo/internal/domain/post"
)

func TestCategoryRanges_PartitionFullScale(t *testing.T) {
	// Every score in [0,100] must belong to exactly one category.
	for score := 0; score <= 100; score++ {
		owners := 0
		for _, c := range Categories {
			if c.Contains(score) {
				owners++
			}
		}
		assert.Equal(t, 1, owners, "score %d must have exactly one owner", score)
	}
}

func TestCategoryRanges_Boundaries(t *testing.T) {
	assert.Equal(t, CategoryEuphoric, CategoryForScore(100))
	assert.Equal(t, CategoryEuphoric, CategoryForScore(90))
	assert.Equal(t, CategoryOptimistic, CategoryForScore(89))
	assert.Equal(t, CategoryNeutral, CategoryForScore(50))
	assert.Equal(t, CategoryAngry, CategoryForScore(8))
	assert.Equal(t, CategoryOutraged, CategoryForScore(3))
	assert.Equal(t, CategoryDevastated, CategoryForScore(2))
	assert.Equal(t, CategoryDevastated, CategoryForScore(0))
}

func TestNormalize_ClampsOutOfRangeScore(t *testing.T) {
	// Provider returned {score: 150, category: "Euphoric"}.
	cat, score := Normalize("Euphoric", 150)
	assert.Equal(t, CategoryEuphoric, cat)
	assert.Equal(t, 100, score)

	cat, score = Normalize("Devastated", -20)
	assert.Equal(t, CategoryDevastated, cat)
	assert.Equal(t, 0, score)
}

func TestNormalize_ShiftsCategoryToMatchScore(t *testing.T) {
	// Category disagrees with the score: category follows the score.
	cat, score := Normalize("Euphoric", 10)
	assert.Equal(t, CategoryAngry, cat)
	assert.Equal(t, 10, score)
}

func TestNormalize_UnknownCategoryDerivedFromScore(t *testing.T) {
	cat, score := Normalize("ecstatic", 95)
	assert.Equal(t, CategoryEuphoric, cat)
	assert.Equal(t, 95, score)
}

func TestNormalize_AgreementPreserved(t *testing.T) {
	cat, score := Normalize("Pleased", 70)
	assert.Equal(t, CategoryPleased, cat)
	assert.Equal(t, 70, score)
}

func TestPositiveRank_Ordering(t *testing.T) {
	assert.Less(t, CategoryEuphoric.PositiveRank(), CategoryDevastated.PositiveRank())
	assert.Less(t, CategoryPleased.PositiveRank(), CategoryConcerned.PositiveRank())
}

func TestResult_Validate(t *testing.T) {
	ok := Result{Category: CategoryPleased, Score: 65}
	assert.NoError(t, ok.Validate())

	bad := Result{Category: CategoryPleased, Score: 90}
	assert.Error(t, bad.Validate())

	unknown := Result{Category: Category("Smug"), Score: 50}
	assert.Error(t, unknown.Validate())
}

func TestFallbackResult_Shape(t *testing.T) {
	p := post.RawPost{
		Platform:   post.PlatformTwitterlike,
		ExternalID: "abc",
		MatchID:    "m1",
		ClubID:     "arsenal",
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r := FallbackResult(p, now)
	require.NoError(t, r.Validate())
	assert.Equal(t, CategoryNeutral, r.Category)
	assert.Equal(t, 50, r.Score)
	assert.Equal(t, IntensityModerate, r.Intensity)
	assert.False(t, r.SarcasmDetected)
	assert.Equal(t, ProvenanceFallbackParseFailure, r.Provenance)
	assert.Equal(t, "m1", r.MatchID)
	assert.Equal(t, "arsenal", r.MentionedClubID)
}

func TestParseIntensity_DefaultsToModerate(t *testing.T) {
	assert.Equal(t, IntensityStrong, ParseIntensity("Strong"))
	assert.Equal(t, IntensityModerate, ParseIntensity("volcanic"))
	assert.Equal(t, IntensityModerate, ParseIntensity(""))
}
