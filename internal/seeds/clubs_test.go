package seeds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tifo/internal/domain/club"
)

func TestPremierLeagueClubsBuildValidRegistry(t *testing.T) {
	registry, err := club.NewRegistry(PremierLeagueClubs())
	require.NoError(t, err)
	assert.Equal(t, 20, registry.Len())
}

func TestPremierLeagueAliasResolution(t *testing.T) {
	registry, err := club.NewRegistry(PremierLeagueClubs())
	require.NoError(t, err)

	cases := map[string]string{
		"Spurs":      "tottenham",
		"man utd":    "manchester-united",
		"MCFC":       "manchester-city",
		"The Toon":   "newcastle",
		"wolves":     "wolves",
		"Black Cats": "sunderland",
	}
	for alias, wantID := range cases {
		profile, ok := registry.Resolve(alias)
		require.True(t, ok, "alias %q should resolve", alias)
		assert.Equal(t, wantID, profile.ID)
	}

	_, ok := registry.Resolve("real madrid")
	assert.False(t, ok)
}
