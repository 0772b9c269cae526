// Package source loads the text inputs of a consistency check: the module that
// declares the prompt registry and the consumer modules that reference it.
package source

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// ErrUnreadable is returned when an input cannot be located or read.
var ErrUnreadable = errors.New("input not readable")

// Text is one loaded input.
type Text struct {
	// Path is the path the text was read from, or a label for in-memory input.
	Path string `json:"path"`

	// Content is the full source text.
	Content string `json:"-"`

	// Hash is a short content hash used for change detection.
	Hash string `json:"hash"`
}

// NewText wraps in-memory content as a Text.
func NewText(path, content string) Text {
	return Text{
		Path:    path,
		Content: content,
		Hash:    ComputeHash([]byte(content)),
	}
}

// Read loads a single file.
func Read(path string) (Text, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Text{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if info.IsDir() {
		return Text{}, fmt.Errorf("%w: %s is a directory", ErrUnreadable, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Text{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	return NewText(path, string(content)), nil
}

// ReadAll loads every path in order, stopping at the first failure.
func ReadAll(paths []string) ([]Text, error) {
	texts := make([]Text, 0, len(paths))
	for _, p := range paths {
		t, err := Read(p)
		if err != nil {
			return nil, err
		}
		texts = append(texts, t)
	}
	return texts, nil
}

// ComputeHash computes a SHA256 hash of the given content
func ComputeHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:8]) // First 8 bytes for brevity
}
