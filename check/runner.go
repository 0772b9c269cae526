package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/c360studio/promptcheck/config"
	"github.com/c360studio/promptcheck/extract"
	"github.com/c360studio/promptcheck/reference"
	"github.com/c360studio/promptcheck/registry"
	"github.com/c360studio/promptcheck/source"
)

// ErrSetup marks failures to obtain the inputs of a check: an unreadable
// registry module, a consumer pattern without matches, an unknown backend.
var ErrSetup = errors.New("setup failure")

// Runner drives a check from configuration: it loads the inputs, extracts
// declarations and references with the configured backend and builds the
// report.
type Runner struct {
	cfg      *config.Config
	backends *extract.BackendRegistry
	logger   *slog.Logger
}

// NewRunner creates a runner. backends defaults to extract.DefaultBackends
// and logger to slog.Default().
func NewRunner(cfg *config.Config, backends *extract.BackendRegistry, logger *slog.Logger) *Runner {
	if backends == nil {
		backends = extract.DefaultBackends
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, backends: backends, logger: logger}
}

// Config returns the configuration the runner was created with.
func (r *Runner) Config() *config.Config {
	return r.cfg
}

// LoadRegistry reads and parses the registry module. A malformed declaration
// is not a setup failure: the returned registry is empty and the error wraps
// registry.ErrMalformedDeclaration.
func (r *Runner) LoadRegistry(ctx context.Context) (*registry.Registry, source.Text, error) {
	text, err := r.read(r.cfg.ResolvePath(r.cfg.Registry.Path))
	if err != nil {
		return nil, source.Text{}, err
	}

	ex, err := r.backends.ForFile(r.cfg.Parser, text.Path)
	if err != nil {
		return nil, text, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	reg, err := ex.Declarations(ctx, text, r.parseOptions(r.cfg.Registry.Anchor))
	if err != nil {
		if errors.Is(err, registry.ErrMalformedDeclaration) {
			return registry.New(), text, err
		}
		return nil, text, err
	}

	r.logger.Debug("Parsed registry",
		slog.String("path", text.Path),
		slog.Int("declared", reg.Len()),
		slog.Int("duplicates", len(reg.Duplicates())))
	return reg, text, nil
}

// Run performs one full check. Setup failures are returned wrapping
// ErrSetup; every other outcome, including a malformed declaration, is
// described by the report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	reg, regText, err := r.LoadRegistry(ctx)
	malformed := ""
	if err != nil {
		if !errors.Is(err, registry.ErrMalformedDeclaration) {
			return nil, err
		}
		malformed = err.Error()
		r.logger.Warn("Registry declaration not found", slog.String("path", regText.Path), slog.String("error", malformed))
	}

	var sites []reference.Site
	if malformed == "" {
		companions, err := r.companionSites(ctx, regText)
		if err != nil {
			return nil, err
		}
		sites = append(sites, companions...)
	}

	files, err := source.ResolveFiles(r.cfg.Root, r.cfg.Consumers.Paths, r.cfg.Consumers.Exclude)
	if err != nil {
		return nil, fmt.Errorf("%w: consumers: %w", ErrSetup, err)
	}

	texts, err := source.ReadAll(files)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	sources := []source.Text{regText}
	for _, text := range texts {
		text.Path = source.Rel(r.cfg.Root, text.Path)

		ex, err := r.backends.ForFile(r.cfg.Parser, text.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSetup, err)
		}
		found, err := ex.References(ctx, text, r.cfg.References)
		if err != nil {
			return nil, fmt.Errorf("references in %s: %w", text.Path, err)
		}
		r.logger.Debug("Scanned consumer", slog.String("path", text.Path), slog.Int("sites", len(found)))

		sites = append(sites, found...)
		sources = append(sources, text)
	}

	rep := Check(reg, sites)
	rep.Registry = regText.Path
	rep.Malformed = malformed
	rep.Sources = sources
	return rep, nil
}

// companionSites turns the keys of every configured companion map into
// reference sites.
func (r *Runner) companionSites(ctx context.Context, text source.Text) ([]reference.Site, error) {
	if len(r.cfg.Registry.Companions) == 0 {
		return nil, nil
	}

	ex, err := r.backends.ForFile(r.cfg.Parser, text.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSetup, err)
	}

	var sites []reference.Site
	for _, anchor := range r.cfg.Registry.Companions {
		keys, err := ex.Declarations(ctx, text, r.parseOptions(anchor))
		if err != nil {
			return nil, fmt.Errorf("%w: companion map %q: %w", ErrSetup, anchor, err)
		}
		for _, id := range keys.IDs() {
			tpl, _ := keys.Get(id)
			sites = append(sites, reference.Site{
				ID:   id,
				Form: reference.FormCompanion,
				Path: text.Path,
				Line: tpl.Line,
			})
		}
	}
	return sites, nil
}

func (r *Runner) parseOptions(anchor string) registry.ParseOptions {
	return registry.ParseOptions{
		Anchor: anchor,
		Mode:   r.cfg.Registry.ScanMode,
	}
}

// read loads path and labels it with its root-relative display path.
func (r *Runner) read(path string) (source.Text, error) {
	text, err := source.Read(path)
	if err != nil {
		return source.Text{}, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	text.Path = source.Rel(r.cfg.Root, path)
	return text, nil
}
