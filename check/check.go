// Package check computes which referenced prompt identifiers the registry
// does not declare.
package check

import (
	"github.com/c360studio/promptcheck/reference"
	"github.com/c360studio/promptcheck/registry"
	"github.com/c360studio/promptcheck/source"
)

// Report is the outcome of one consistency check. It is built once per run
// and not modified afterwards.
type Report struct {
	// Registry is the display path of the registry module.
	Registry string `json:"registry,omitempty"`

	// DeclaredCount is the number of distinct declared identifiers.
	DeclaredCount int `json:"declared_count"`

	// ReferencedCount is the number of distinct referenced identifiers.
	ReferencedCount int `json:"referenced_count"`

	// Missing lists referenced identifiers that are not declared, in the
	// order they were first referenced.
	Missing []registry.Identifier `json:"missing"`

	// MissingSites are the reference sites of the missing identifiers.
	MissingSites []reference.Site `json:"missing_sites,omitempty"`

	// Referenced holds every reference site in scan order.
	Referenced []reference.Site `json:"-"`

	Duplicates []registry.Duplicate `json:"duplicates,omitempty"`

	// Malformed describes why the registry declaration could not be read.
	// When set the declared set is empty.
	Malformed string `json:"malformed,omitempty"`

	// Sources are the inputs the report was derived from.
	Sources []source.Text `json:"sources,omitempty"`
}

// Check compares the declared registry with the reference sites.
func Check(decl *registry.Registry, sites []reference.Site) *Report {
	referenced := reference.Unique(sites)

	missing := make([]registry.Identifier, 0)
	for _, id := range referenced {
		if !decl.Has(id) {
			missing = append(missing, id)
		}
	}

	var missingSites []reference.Site
	for _, s := range sites {
		if !decl.Has(s.ID) {
			missingSites = append(missingSites, s)
		}
	}

	return &Report{
		DeclaredCount:   decl.Len(),
		ReferencedCount: len(referenced),
		Missing:         missing,
		MissingSites:    missingSites,
		Referenced:      sites,
		Duplicates:      decl.Duplicates(),
	}
}

// SitesOf returns the reference sites of id in scan order.
func (r *Report) SitesOf(id registry.Identifier) []reference.Site {
	var out []reference.Site
	for _, s := range r.Referenced {
		if s.ID == id {
			out = append(out, s)
		}
	}
	return out
}
