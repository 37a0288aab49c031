package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_AllowsCleanText(t *testing.T) {
	f := NewFilter()

	assert.True(t, f.IsAllowed("What a goal from Saka, unbelievable scenes"))
	assert.True(t, f.IsAllowed(""))
	assert.True(t, f.IsAllowed("we lost again, typical"))
}

func TestFilter_BlocksDenylistedTokens(t *testing.T) {
	f := NewFilter()

	assert.False(t, f.IsAllowed("the ref should kys"))
	assert.False(t, f.IsAllowed("KILL YOURSELF ref"))
}

func TestFilter_SubstringMatchOverBlocks(t *testing.T) {
	f := NewFilter("scum")

	// Substring matching is intentional: over-blocking beats under-blocking.
	assert.False(t, f.IsAllowed("that tackle was scummy"))
}

func TestFilter_ExtraEntries(t *testing.T) {
	f := NewFilter("Bellend")

	assert.False(t, f.IsAllowed("what a bellend that defender is"))
	assert.True(t, f.IsAllowed("what a defender"))
}

func TestFilter_CaseInsensitive(t *testing.T) {
	f := NewFilter()

	assert.False(t, f.IsAllowed("NaZi salute in the stands"))
}
