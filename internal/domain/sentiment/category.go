package sentiment

// Category is one of the 10 ordered sentiment levels. Each category
// owns a closed sub-range of the 0-100 score scale; the ten ranges
// partition [0,100] with no gaps or overlaps.
type Category string

const (
	CategoryEuphoric   Category = "Euphoric"   // 90-100
	CategoryOptimistic Category = "Optimistic" // 75-89
	CategoryPleased    Category = "Pleased"    // 60-74
	CategoryNeutral    Category = "Neutral"    // 45-59
	CategoryConcerned  Category = "Concerned"  // 35-44
	CategoryNervous    Category = "Nervous"    // 25-34
	CategoryFrustrated Category = "Frustrated" // 15-24
	CategoryAngry      Category = "Angry"      // 8-14
	CategoryOutraged   Category = "Outraged"   // 3-7
	CategoryDevastated Category = "Devastated" // 0-2
)

// Categories lists all categories ordered most positive first.
// Iteration over this slice keeps aggregation output deterministic.
var Categories = []Category{
	CategoryEuphoric,
	CategoryOptimistic,
	CategoryPleased,
	CategoryNeutral,
	CategoryConcerned,
	CategoryNervous,
	CategoryFrustrated,
	CategoryAngry,
	CategoryOutraged,
	CategoryDevastated,
}

// scoreRange is a closed interval [Min, Max].
type scoreRange struct {
	Min int
	Max int
}

var categoryRanges = map[Category]scoreRange{
	CategoryEuphoric:   {90, 100},
	CategoryOptimistic: {75, 89},
	CategoryPleased:    {60, 74},
	CategoryNeutral:    {45, 59},
	CategoryConcerned:  {35, 44},
	CategoryNervous:    {25, 34},
	CategoryFrustrated: {15, 24},
	CategoryAngry:      {8, 14},
	CategoryOutraged:   {3, 7},
	CategoryDevastated: {0, 2},
}

// Range returns the closed score interval owned by the category.
func (c Category) Range() (min, max int) {
	r := categoryRanges[c]
	return r.Min, r.Max
}

// Contains reports whether score falls inside the category's range.
func (c Category) Contains(score int) bool {
	r, ok := categoryRanges[c]
	return ok && score >= r.Min && score <= r.Max
}

// Valid reports whether c is one of the ten fixed categories.
func (c Category) Valid() bool {
	_, ok := categoryRanges[c]
	return ok
}

// PositiveRank returns the category's position with 0 = most positive.
// Lower rank wins dominant-category ties.
func (c Category) PositiveRank() int {
	for i, cat := range Categories {
		if cat == c {
			return i
		}
	}
	return len(Categories)
}

// ParseCategory maps a provider-supplied label onto the fixed taxonomy.
func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	if c.Valid() {
		return c, true
	}
	return "", false
}

// CategoryForScore returns the category owning the given score.
// The score must already be inside [0,100].
func CategoryForScore(score int) Category {
	for _, c := range Categories {
		if c.Contains(score) {
			return c
		}
	}
	// Unreachable for scores in [0,100]; clamp defensively.
	if score > 100 {
		return CategoryEuphoric
	}
	return CategoryDevastated
}

// ClampScore forces a score into the valid [0,100] scale.
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Normalize reconciles a provider-supplied category label and score into
// a consistent pair. The score is clamped into [0,100]; if the label is
// unknown or disagrees with the clamped score, the category shifts to the
// one whose range the score falls into. This is clamping, not rejection:
// availability matters more than strict validation here.
func Normalize(label string, score int) (Category, int) {
	clamped := ClampScore(score)
	if c, ok := ParseCategory(label); ok && c.Contains(clamped) {
		return c, clamped
	}
	return CategoryForScore(clamped), clamped
}

// Midpoint returns the middle score of the category's range, used when a
// provider supplies a category but no score.
func (c Category) Midpoint() int {
	min, max := c.Range()
	return (min + max) / 2
}
