// Package registry parses a prompt registry declared as an object literal in
// JavaScript source and serves its templates.
//
// A Registry is an immutable value built by Parse (from source text) or New
// (from templates). There is no package-level registry: callers load one and
// pass it to whatever needs lookups.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/promptcheck/source"
)

// ErrTemplateNotFound is returned by Render for identifiers the registry does
// not declare.
var ErrTemplateNotFound = errors.New("prompt not found")

// DefaultAnchor is the declaration marker of the prompt registry.
const DefaultAnchor = "export const DEFAULT_PROMPTS"

// Identifier names one template, e.g. "SELENIUM_JAVA_PAGE_ONLY".
type Identifier string

// Template is one declared prompt.
type Template struct {
	ID   Identifier `json:"id"`
	Body string     `json:"-"`
	// Line is the 1-based line of the declaration in its source (0 if unknown).
	Line int `json:"line,omitempty"`
}

// Duplicate records a repeated declaration of the same identifier.
type Duplicate struct {
	ID        Identifier `json:"id"`
	Line      int        `json:"line,omitempty"`
	FirstLine int        `json:"first_line,omitempty"`
}

// Registry is an immutable, ordered set of templates. The first declaration
// of an identifier wins; later ones are kept as Duplicates. A nil *Registry
// behaves as an empty registry.
type Registry struct {
	order      []Identifier
	templates  map[Identifier]Template
	duplicates []Duplicate
}

// New builds a registry from templates in declaration order.
func New(templates ...Template) *Registry {
	r := &Registry{
		order:     make([]Identifier, 0, len(templates)),
		templates: make(map[Identifier]Template, len(templates)),
	}
	for _, t := range templates {
		if first, exists := r.templates[t.ID]; exists {
			r.duplicates = append(r.duplicates, Duplicate{
				ID:        t.ID,
				Line:      t.Line,
				FirstLine: first.Line,
			})
			continue
		}
		r.templates[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	return r
}

// ParseOptions controls how Parse finds the registry declaration.
type ParseOptions struct {
	// Anchor is the text that precedes the object literal (DefaultAnchor if empty).
	Anchor string

	// Mode selects brace counting (ScanNaive if empty).
	Mode ScanMode
}

// Parse locates the registry object literal in src and collects its
// templates. When the declaration cannot be located Parse returns an empty,
// usable registry together with an error wrapping ErrMalformedDeclaration,
// so callers can continue with zero declarations.
func Parse(src string, opts ParseOptions) (*Registry, error) {
	anchor := opts.Anchor
	if anchor == "" {
		anchor = DefaultAnchor
	}
	mode := opts.Mode
	if mode == "" {
		mode = ScanNaive
	}

	span, err := LocateBody(src, anchor, mode)
	if err != nil {
		return New(), err
	}

	lines := source.NewLineIndex(src)
	decls := ExtractDeclarations(span.Text(src))
	templates := make([]Template, 0, len(decls))
	for _, d := range decls {
		templates = append(templates, Template{
			ID:   d.ID,
			Body: d.Body,
			Line: lines.Line(span.Start + d.Offset),
		})
	}
	return New(templates...), nil
}

// Len returns the number of distinct identifiers.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// IDs returns the declared identifiers in declaration order.
func (r *Registry) IDs() []Identifier {
	if r == nil {
		return nil
	}
	return append([]Identifier(nil), r.order...)
}

// Has reports whether id is declared.
func (r *Registry) Has(id Identifier) bool {
	if r == nil {
		return false
	}
	_, ok := r.templates[id]
	return ok
}

// Get returns the template declared for id.
func (r *Registry) Get(id Identifier) (Template, bool) {
	if r == nil {
		return Template{}, false
	}
	t, ok := r.templates[id]
	return t, ok
}

// Duplicates returns repeated declarations in source order.
func (r *Registry) Duplicates() []Duplicate {
	if r == nil {
		return nil
	}
	return append([]Duplicate(nil), r.duplicates...)
}

// Render returns the template for id with every ${name} placeholder replaced
// by vars[name], trimmed of surrounding whitespace. All placeholders are
// replaced in a single pass, so substituted values are never rescanned and
// the result does not depend on map iteration order. Placeholders without a
// value are left as they are.
func (r *Registry) Render(id Identifier, vars map[string]string) (string, error) {
	t, ok := r.Get(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return strings.TrimSpace(Substitute(t.Body, vars)), nil
}

// Substitute replaces ${name} placeholders in text.
func Substitute(text string, vars map[string]string) string {
	if len(vars) == 0 {
		return text
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, "${"+name+"}", vars[name])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
