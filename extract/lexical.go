package extract

import (
	"context"

	"github.com/c360studio/promptcheck/reference"
	"github.com/c360studio/promptcheck/registry"
	"github.com/c360studio/promptcheck/source"
)

// LexicalExtractor finds declarations with the brace-depth scan and
// references with call patterns. It works on any text, not just JavaScript.
type LexicalExtractor struct{}

// Declarations implements Extractor.
func (LexicalExtractor) Declarations(ctx context.Context, text source.Text, opts registry.ParseOptions) (*registry.Registry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return registry.Parse(text.Content, opts)
}

// References implements Extractor.
func (LexicalExtractor) References(ctx context.Context, text source.Text, verbs reference.Verbs) ([]reference.Site, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scanner, err := reference.NewScanner(verbs)
	if err != nil {
		return nil, err
	}
	return scanner.Scan(text.Path, text.Content), nil
}
