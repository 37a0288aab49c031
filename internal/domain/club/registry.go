package club

import (
	"strings"

	"tifo/pkg/errors"
)

// Registry is an immutable lookup over club profiles. It is constructed
// once from a reference dataset and injected into the components that
// resolve team names, keeping alias resolution testable in isolation.
type Registry struct {
	profiles []Profile
	byAlias  map[string]*Profile
	byID     map[string]*Profile
}

// NewRegistry builds a registry and validates that normalized alias sets
// across clubs are non-overlapping.
func NewRegistry(profiles []Profile) (*Registry, error) {
	r := &Registry{
		profiles: make([]Profile, len(profiles)),
		byAlias:  make(map[string]*Profile),
		byID:     make(map[string]*Profile),
	}
	copy(r.profiles, profiles)

	for i := range r.profiles {
		p := &r.profiles[i]
		if p.ID == "" {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "club %q has no id", p.Name)
		}
		if _, dup := r.byID[p.ID]; dup {
			return nil, errors.Wrapf(errors.ErrAlreadyExists, "duplicate club id %q", p.ID)
		}
		r.byID[p.ID] = p

		for _, alias := range aliasKeys(p) {
			if owner, dup := r.byAlias[alias]; dup && owner.ID != p.ID {
				return nil, errors.Wrapf(errors.ErrAlreadyExists,
					"alias %q claimed by both %q and %q", alias, owner.ID, p.ID)
			}
			r.byAlias[alias] = p
		}
	}

	return r, nil
}

// aliasKeys returns every normalized name the profile answers to.
func aliasKeys(p *Profile) []string {
	keys := make([]string, 0, len(p.Aliases)+2)
	if k := normalize(p.Name); k != "" {
		keys = append(keys, k)
	}
	if k := normalize(p.ShortName); k != "" {
		keys = append(keys, k)
	}
	for _, a := range p.Aliases {
		if k := normalize(a); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Resolve maps a free-form team name to a club profile via
// case-insensitive alias lookup.
func (r *Registry) Resolve(name string) (Profile, bool) {
	p, ok := r.byAlias[normalize(name)]
	if !ok {
		return Profile{}, false
	}
	return *p, true
}

// ByID returns the profile for a club id.
func (r *Registry) ByID(id string) (Profile, bool) {
	p, ok := r.byID[id]
	if !ok {
		return Profile{}, false
	}
	return *p, true
}

// FindInText returns the first club whose alias appears in the text,
// scanning clubs in registry order for determinism.
func (r *Registry) FindInText(text string) (Profile, bool) {
	lower := strings.ToLower(text)
	for i := range r.profiles {
		p := &r.profiles[i]
		for _, alias := range aliasKeys(p) {
			if strings.Contains(lower, alias) {
				return *p, true
			}
		}
	}
	return Profile{}, false
}

// Names returns the canonical names of all registered clubs, in
// registry order. Used to build classification domain context.
func (r *Registry) Names() []string {
	names := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		names[i] = p.Name
	}
	return names
}

// Len returns the number of registered clubs.
func (r *Registry) Len() int {
	return len(r.profiles)
}
