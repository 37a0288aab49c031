package moderation

import "strings"

// Filter rejects posts containing disallowed content before they enter
// the pipeline. Matching is lower-cased substring, not word-boundary:
// over-blocking is preferred to under-blocking.
type Filter struct {
	denylist []string
}

// defaultDenylist covers the offensive tokens blocked out of the box.
// Entries are matched as substrings of the lower-cased text.
var defaultDenylist = []string{
	"kys",
	"kill yourself",
	"neck yourself",
	"rape",
	"nazi",
	"terrorist",
	"paedo",
	"pedo",
	"slur",
	"monkey chant",
	"gas the",
	"lynch",
}

// NewFilter builds a filter from the built-in denylist plus any extra
// entries. The denylist is fixed after construction.
func NewFilter(extra ...string) *Filter {
	list := make([]string, 0, len(defaultDenylist)+len(extra))
	for _, e := range defaultDenylist {
		list = append(list, strings.ToLower(e))
	}
	for _, e := range extra {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			list = append(list, e)
		}
	}
	return &Filter{denylist: list}
}

// IsAllowed reports whether the text may enter the pipeline.
// Pure function: no side effects, no external calls, total over all input.
func (f *Filter) IsAllowed(text string) bool {
	lower := strings.ToLower(text)
	for _, token := range f.denylist {
		if strings.Contains(lower, token) {
			return false
		}
	}
	return true
}
