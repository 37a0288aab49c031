package seeds

import "tifo/internal/domain/club"

// PremierLeagueClubs returns the reference dataset the club registry is
// built from at startup. Aliases are kept distinctive so the registry's
// non-overlap validation holds; generic words like "united" or "city"
// are deliberately absent.
func PremierLeagueClubs() []club.Profile {
	return []club.Profile{
		{
			ID:        "arsenal",
			Name:      "Arsenal",
			ShortName: "ARS",
			Aliases:   []string{"the gunners", "gunners", "afc"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "aston-villa",
			Name:      "Aston Villa",
			ShortName: "AVL",
			Aliases:   []string{"villa", "avfc", "the villans"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "bournemouth",
			Name:      "AFC Bournemouth",
			ShortName: "BOU",
			Aliases:   []string{"bournemouth", "the cherries", "afcb"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "brentford",
			Name:      "Brentford",
			ShortName: "BRE",
			Aliases:   []string{"the bees", "bees"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "brighton",
			Name:      "Brighton & Hove Albion",
			ShortName: "BHA",
			Aliases:   []string{"brighton", "the seagulls", "seagulls", "bhafc"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "chelsea",
			Name:      "Chelsea",
			ShortName: "CHE",
			Aliases:   []string{"cfc", "the blues"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "crystal-palace",
			Name:      "Crystal Palace",
			ShortName: "CRY",
			Aliases:   []string{"palace", "the eagles", "cpfc"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "everton",
			Name:      "Everton",
			ShortName: "EVE",
			Aliases:   []string{"the toffees", "toffees", "efc"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "fulham",
			Name:      "Fulham",
			ShortName: "FUL",
			Aliases:   []string{"the cottagers", "cottagers", "ffc"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "liverpool",
			Name:      "Liverpool",
			ShortName: "LIV",
			Aliases:   []string{"lfc", "the reds"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "manchester-city",
			Name:      "Manchester City",
			ShortName: "MCI",
			Aliases:   []string{"man city", "mcfc", "the citizens", "citizens"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "manchester-united",
			Name:      "Manchester United",
			ShortName: "MUN",
			Aliases:   []string{"man utd", "man united", "mufc", "the red devils", "red devils"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "newcastle",
			Name:      "Newcastle United",
			ShortName: "NEW",
			Aliases:   []string{"newcastle", "nufc", "the magpies", "magpies", "the toon", "toon army"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "nottingham-forest",
			Name:      "Nottingham Forest",
			ShortName: "NFO",
			Aliases:   []string{"forest", "nffc", "the tricky trees"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "tottenham",
			Name:      "Tottenham Hotspur",
			ShortName: "TOT",
			Aliases:   []string{"tottenham", "spurs", "thfc", "the lilywhites"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "west-ham",
			Name:      "West Ham United",
			ShortName: "WHU",
			Aliases:   []string{"west ham", "whufc", "the hammers", "hammers", "the irons"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "wolves",
			Name:      "Wolverhampton Wanderers",
			ShortName: "WOL",
			Aliases:   []string{"wolves", "wwfc", "wanderers"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "leeds",
			Name:      "Leeds United",
			ShortName: "LEE",
			Aliases:   []string{"leeds", "lufc", "the whites"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "burnley",
			Name:      "Burnley",
			ShortName: "BUR",
			Aliases:   []string{"the clarets", "clarets", "bfc"},
			League:    "Premier League",
			Country:   "England",
		},
		{
			ID:        "sunderland",
			Name:      "Sunderland",
			ShortName: "SUN",
			Aliases:   []string{"safc", "the black cats", "black cats"},
			League:    "Premier League",
			Country:   "England",
		},
	}
}
