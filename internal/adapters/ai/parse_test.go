package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClassifications_BareArray(t *testing.T) {
	raw := `[{"index":0,"category":"Pleased","score":70},{"index":1,"category":"Angry","score":10}]`

	out, err := parseClassifications(raw)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Pleased", out[0].Category)
	assert.Equal(t, 70, *out[0].Score)
}

func TestParseClassifications_WrapperObject(t *testing.T) {
	raw := `{"results":[{"index":0,"category":"Neutral","score":50}]}`

	out, err := parseClassifications(raw)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Neutral", out[0].Category)
}

func TestParseClassifications_EmbeddedInProse(t *testing.T) {
	raw := "Here are the classifications you asked for:\n" +
		`[{"index":0,"category":"Euphoric","score":95}]` +
		"\nLet me know if you need anything else."

	out, err := parseClassifications(raw)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Euphoric", out[0].Category)
}

func TestParseClassifications_CodeFence(t *testing.T) {
	raw := "```json\n[{\"index\":0,\"category\":\"Nervous\",\"score\":30}]\n```"

	out, err := parseClassifications(raw)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Nervous", out[0].Category)
}

func TestParseClassifications_MissingScoreIsNil(t *testing.T) {
	raw := `[{"index":0,"category":"Pleased"}]`

	out, err := parseClassifications(raw)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Score)
}

func TestParseClassifications_Unrecoverable(t *testing.T) {
	for _, raw := range []string{"", "   ", "total nonsense", "{broken", "[1,2,{]"} {
		_, err := parseClassifications(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}
