package club

// Profile is the static reference entity for one club.
type Profile struct {
	ID        string
	Name      string
	ShortName string
	Aliases   []string
	League    string
	Country   string
}
