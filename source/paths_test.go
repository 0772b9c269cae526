package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("// "+f), 0644))
	}
}

func TestResolveFiles_NonGlob(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "src/chat.js")

	paths, err := ResolveFiles(root, []string{"src/chat.js"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "src", "chat.js")}, paths)
}

func TestResolveFiles_MissingFile(t *testing.T) {
	root := t.TempDir()

	_, err := ResolveFiles(root, []string{"chat.js"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestResolveFiles_Directory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "src"), 0755))

	_, err := ResolveFiles(root, []string{"src"}, nil)
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestResolveFiles_RecursiveGlob(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"src/b.js",
		"src/a.js",
		"src/nested/c.js",
		"src/nested/readme.md",
		"node_modules/lib/index.js",
	)

	paths, err := ResolveFiles(root, []string{"**/*.js"}, []string{"node_modules/**"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "src", "a.js"),
		filepath.Join(root, "src", "b.js"),
		filepath.Join(root, "src", "nested", "c.js"),
	}, paths)
}

func TestResolveFiles_Deduplicates(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "src/a.js", "src/b.js")

	paths, err := ResolveFiles(root, []string{"src/b.js", "src/*.js"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "src", "b.js"),
		filepath.Join(root, "src", "a.js"),
	}, paths)
}

func TestResolveFiles_GlobWithoutMatches(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "src/a.ts")

	_, err := ResolveFiles(root, []string{"src/*.js"}, nil)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestResolveFiles_EverythingExcluded(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "dist/a.js")

	_, err := ResolveFiles(root, []string{"dist/*.js"}, []string{"dist/**"})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestMatch(t *testing.T) {
	root := t.TempDir()
	patterns := []string{"src/**/*.js"}
	exclude := []string{"src/vendor/**"}

	assert.True(t, Match(root, filepath.Join(root, "src", "chat.js"), patterns, exclude))
	assert.True(t, Match(root, filepath.Join(root, "src", "ui", "panel.js"), patterns, exclude))
	assert.False(t, Match(root, filepath.Join(root, "src", "vendor", "x.js"), patterns, exclude))
	assert.False(t, Match(root, filepath.Join(root, "src", "chat.ts"), patterns, exclude))
}

func TestRel(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "app")

	assert.Equal(t, "src/chat.js", Rel(root, filepath.Join(root, "src", "chat.js")))
	assert.Equal(t, filepath.ToSlash(filepath.Join(string(filepath.Separator), "other", "x.js")),
		Rel(root, filepath.Join(string(filepath.Separator), "other", "x.js")))
	assert.Equal(t, "chat.js", Rel("", "chat.js"))
}
