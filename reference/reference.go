// Package reference finds the prompt identifiers that consumer code looks up.
package reference

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/c360studio/promptcheck/registry"
	"github.com/c360studio/promptcheck/source"
)

// ErrNoVerbs is returned when a scanner is configured without any verb.
var ErrNoVerbs = errors.New("no reference verbs configured")

var verbRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Form is the syntactic shape through which an identifier is referenced.
type Form string

const (
	// FormAccumulate is a call whose sole argument is the identifier, e.g.
	// push('LOGIN_PAGE').
	FormAccumulate Form = "accumulate"

	// FormLookup is a call whose first argument is the identifier, e.g.
	// getPrompt('LOGIN_PAGE', vars).
	FormLookup Form = "lookup"

	// FormCompanion is a key of a companion map that must mirror the registry.
	FormCompanion Form = "companion"
)

// Site is one observed reference.
type Site struct {
	ID   registry.Identifier `json:"id"`
	Form Form                `json:"form"`
	Path string              `json:"path"`
	Line int                 `json:"line"`
}

// String formats the site as path:line (form).
func (s Site) String() string {
	return fmt.Sprintf("%s:%d (%s)", s.Path, s.Line, s.Form)
}

// Verbs names the calls that reference prompts.
type Verbs struct {
	Accumulate []string `yaml:"accumulate" json:"accumulate"`
	Lookup     []string `yaml:"lookup" json:"lookup"`
}

// DefaultVerbs returns push for accumulation and getPrompt for lookup.
func DefaultVerbs() Verbs {
	return Verbs{
		Accumulate: []string{"push"},
		Lookup:     []string{"getPrompt"},
	}
}

// Validate checks that at least one verb is set and all are plain identifiers.
func (v Verbs) Validate() error {
	if len(v.Accumulate)+len(v.Lookup) == 0 {
		return ErrNoVerbs
	}
	for _, verb := range append(append([]string(nil), v.Accumulate...), v.Lookup...) {
		if !verbRe.MatchString(verb) {
			return fmt.Errorf("invalid reference verb %q", verb)
		}
	}
	return nil
}

// Scanner finds reference sites with regular expressions. It is safe for
// concurrent use.
type Scanner struct {
	accumulate *regexp.Regexp
	lookup     *regexp.Regexp
}

// NewScanner compiles the patterns for verbs.
func NewScanner(verbs Verbs) (*Scanner, error) {
	if err := verbs.Validate(); err != nil {
		return nil, err
	}

	s := &Scanner{}
	if len(verbs.Accumulate) > 0 {
		s.accumulate = regexp.MustCompile(`\b(?:` + alternation(verbs.Accumulate) + `)\(\s*['"]([A-Z0-9_]+)['"]\s*\)`)
	}
	if len(verbs.Lookup) > 0 {
		s.lookup = regexp.MustCompile(`\b(?:` + alternation(verbs.Lookup) + `)\(\s*['"]([A-Z0-9_]+)['"]`)
	}
	return s, nil
}

// Scan returns the reference sites in text ordered by position.
func (s *Scanner) Scan(path, text string) []Site {
	type hit struct {
		offset int
		site   Site
	}

	var hits []hit
	collect := func(re *regexp.Regexp, form Form) {
		if re == nil {
			return
		}
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			hits = append(hits, hit{
				offset: m[2],
				site: Site{
					ID:   registry.Identifier(text[m[2]:m[3]]),
					Form: form,
					Path: path,
				},
			})
		}
	}
	collect(s.accumulate, FormAccumulate)
	collect(s.lookup, FormLookup)

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].offset < hits[j].offset
	})

	lines := source.NewLineIndex(text)
	sites := make([]Site, 0, len(hits))
	for _, h := range hits {
		h.site.Line = lines.Line(h.offset)
		sites = append(sites, h.site)
	}
	return sites
}

// Unique returns the distinct identifiers of sites in first-seen order.
func Unique(sites []Site) []registry.Identifier {
	seen := make(map[registry.Identifier]bool, len(sites))
	var ids []registry.Identifier
	for _, s := range sites {
		if !seen[s.ID] {
			seen[s.ID] = true
			ids = append(ids, s.ID)
		}
	}
	return ids
}

func alternation(verbs []string) string {
	quoted := make([]string, len(verbs))
	for i, v := range verbs {
		quoted[i] = regexp.QuoteMeta(v)
	}
	return strings.Join(quoted, "|")
}
