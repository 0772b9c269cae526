// Package watch reports changes to the registry and consumer files so that
// the check can be re-run while they are edited.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/c360studio/promptcheck/source"
)

// Config configures the file watcher
type Config struct {
	// Root is the root directory to watch
	Root string

	// Match reports whether a change to the absolute path matters.
	// Nil matches every file.
	Match func(path string) bool

	// DebounceDelay is how long the tree must be quiet before changes are
	// flushed
	DebounceDelay time.Duration

	// Logger for logging events
	Logger *slog.Logger
}

// Operation indicates the type of file operation
type Operation string

const (
	OpCreate Operation = "create"
	OpModify Operation = "modify"
	OpDelete Operation = "delete"
)

// FileChange is one changed file.
type FileChange struct {
	// Path is the file path relative to Root, with forward slashes
	Path string

	Operation Operation
}

// Change is one debounced batch of file changes.
type Change struct {
	// RunID identifies the check triggered by this batch in logs
	RunID string

	// Files are the changed files, sorted by path
	Files []FileChange
}

// Paths returns the changed paths.
func (c Change) Paths() []string {
	paths := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		paths = append(paths, f.Path)
	}
	return paths
}

// Watcher watches the files selected by Config.Match and emits batches of
// effective changes. A write that leaves the content hash unchanged is not a
// change.
type Watcher struct {
	config  Config
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	// Debouncing: collect changes before processing
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op // path → accumulated operations
	lastEvent time.Time

	// State tracking for change detection
	hashMu sync.RWMutex
	hashes map[string]string // path → content hash

	// Output channel
	events chan Change
}

// NewWatcher creates a new file watcher
func NewWatcher(config Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = 100 * time.Millisecond
	}
	if config.Match == nil {
		config.Match = func(string) bool { return true }
	}

	return &Watcher{
		config:  config,
		watcher: fsw,
		logger:  config.Logger,
		pending: make(map[string]fsnotify.Op),
		hashes:  make(map[string]string),
		events:  make(chan Change, 16),
	}, nil
}

// Events returns the channel of change batches. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan Change {
	return w.events
}

// Start begins watching the root directory for changes
func (w *Watcher) Start(ctx context.Context) error {
	// Add watches recursively
	if err := w.addWatchesRecursive(w.config.Root); err != nil {
		return err
	}

	// Start the event processing goroutine
	go w.processEvents(ctx)

	w.logger.Info("File watcher started",
		"root", w.config.Root,
		"debounce", w.config.DebounceDelay)

	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

// Seed records the current content hashes of paths so that the first write
// that does not change them is ignored.
func (w *Watcher) Seed(texts []source.Text) {
	for _, t := range texts {
		w.SetHash(t.Path, t.Hash)
	}
}

// SetHash records the hash for a root-relative file path
func (w *Watcher) SetHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

// GetHash returns the recorded hash for a file
func (w *Watcher) GetHash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	hash, ok := w.hashes[path]
	return hash, ok
}

// skipDir reports whether a directory is never watched.
func skipDir(path, root string) bool {
	if path == root {
		return false
	}
	base := filepath.Base(path)
	return base == "node_modules" || base == "vendor" || strings.HasPrefix(base, ".")
}

// addWatchesRecursive adds watches to all directories
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Only watch directories
		if !info.IsDir() {
			return nil
		}

		if skipDir(path, root) {
			return filepath.SkipDir
		}

		// Add watch
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}

		return nil
	})
}

// processEvents handles fsnotify events with debouncing
func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.events)

	ticker := time.NewTicker(max(w.config.DebounceDelay/2, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending(ctx)
		}
	}
}

// handleFSEvent processes a single fsnotify event
func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	// Handle directory creation (for new watches)
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
	}

	if !w.config.Match(path) {
		return
	}

	// Accumulate pending changes
	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.lastEvent = time.Now()
	w.pendingMu.Unlock()

	w.logger.Debug("File change detected",
		"path", w.rel(path),
		"op", event.Op.String())
}

// handleNewDirectory adds a watch to a newly created directory
func (w *Watcher) handleNewDirectory(path string) {
	if skipDir(path, w.config.Root) {
		return
	}

	if err := w.addWatchesRecursive(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
	} else {
		w.logger.Debug("Added watch for new directory", "path", path)
	}
}

// flushPending emits accumulated changes once the tree has been quiet for
// the debounce delay.
func (w *Watcher) flushPending(ctx context.Context) {
	w.pendingMu.Lock()
	if len(w.pending) == 0 || time.Since(w.lastEvent) < w.config.DebounceDelay {
		w.pendingMu.Unlock()
		return
	}

	// Copy and clear pending
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	paths := make([]string, 0, len(toProcess))
	for path := range toProcess {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var files []FileChange
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		if change, ok := w.classify(path); ok {
			files = append(files, change)
		}
	}
	if len(files) == 0 {
		return
	}

	w.sendEvent(Change{RunID: uuid.NewString(), Files: files})
}

// classify compares the file's current content with the recorded hash.
func (w *Watcher) classify(path string) (FileChange, bool) {
	relPath := w.rel(path)
	change := FileChange{Path: relPath}

	content, err := os.ReadFile(path)
	if err != nil {
		// File deleted or renamed away
		w.hashMu.Lock()
		_, known := w.hashes[relPath]
		delete(w.hashes, relPath)
		w.hashMu.Unlock()

		change.Operation = OpDelete
		return change, known
	}

	// Check if content actually changed
	hash := source.ComputeHash(content)
	oldHash, hadHash := w.GetHash(relPath)
	if hadHash && oldHash == hash {
		return change, false
	}
	w.SetHash(relPath, hash)

	change.Operation = OpModify
	if !hadHash {
		change.Operation = OpCreate
	}
	return change, true
}

// sendEvent sends a batch to the output channel
func (w *Watcher) sendEvent(change Change) {
	select {
	case w.events <- change:
		w.logger.Debug("Sent watch event",
			"run_id", change.RunID,
			"files", len(change.Files))
	default:
		w.logger.Warn("Event channel full, dropping change",
			"run_id", change.RunID,
			"paths", strings.Join(change.Paths(), ","))
	}
}

func (w *Watcher) rel(path string) string {
	return source.Rel(w.config.Root, path)
}
