// Package extract selects how declarations and references are pulled out of
// source text. Backends register themselves by name; "lexical" is built in
// and the syntax-tree backend registers from package syntax.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/c360studio/promptcheck/reference"
	"github.com/c360studio/promptcheck/registry"
	"github.com/c360studio/promptcheck/source"
)

// Backend names understood by DefaultBackends. Auto picks a backend per file
// extension and falls back to Lexical.
const (
	Lexical = "lexical"
	Auto    = "auto"
)

// Extractor pulls declarations and references out of one source text.
type Extractor interface {
	// Declarations parses the registry declared in text. On a malformed
	// declaration it returns an empty registry and an error wrapping
	// registry.ErrMalformedDeclaration.
	Declarations(ctx context.Context, text source.Text, opts registry.ParseOptions) (*registry.Registry, error)

	// References returns the reference sites in text in source order.
	References(ctx context.Context, text source.Text, verbs reference.Verbs) ([]reference.Site, error)
}

// Factory creates an Extractor.
type Factory func() Extractor

// BackendRegistry maintains the known extraction backends.
// Backends are registered by name with the file extensions they understand.
// Thread-safe for concurrent access.
type BackendRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory // name → factory
	extMap    map[string]string  // extension → backend name
}

// NewBackendRegistry creates a new empty backend registry.
func NewBackendRegistry() *BackendRegistry {
	return &BackendRegistry{
		factories: make(map[string]Factory),
		extMap:    make(map[string]string),
	}
}

// Register adds a backend factory for the given extensions.
// The first registration wins if there's an extension conflict.
// Extensions should include the leading dot (e.g., ".js", ".ts").
func (r *BackendRegistry) Register(name string, extensions []string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = factory
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if _, exists := r.extMap[ext]; !exists {
			r.extMap[ext] = name
		}
	}
}

// Create instantiates a backend by name.
func (r *BackendRegistry) Create(name string) (Extractor, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("extraction backend not registered: %s", name)
	}
	return factory(), nil
}

// ForFile returns the backend to use for path. A concrete name is used as
// is; Auto resolves by extension and falls back to Lexical.
func (r *BackendRegistry) ForFile(name, path string) (Extractor, error) {
	if name != Auto {
		return r.Create(name)
	}

	r.mu.RLock()
	byExt, ok := r.extMap[strings.ToLower(filepath.Ext(path))]
	r.mu.RUnlock()

	if !ok {
		byExt = Lexical
	}
	return r.Create(byExt)
}

// Names returns all registered backend names, sorted.
func (r *BackendRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether a backend name is registered (Auto always is).
func (r *BackendRegistry) Has(name string) bool {
	if name == Auto {
		return true
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[name]
	return ok
}

// DefaultBackends is the global backend registry.
// Backends register themselves via init() functions.
var DefaultBackends = NewBackendRegistry()

func init() {
	DefaultBackends.Register(Lexical, nil, func() Extractor { return LexicalExtractor{} })
}
