package check

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/c360studio/promptcheck/config"
	"github.com/c360studio/promptcheck/reference"
	"github.com/c360studio/promptcheck/registry"
	"github.com/c360studio/promptcheck/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/c360studio/promptcheck/syntax"
)

const promptsJS = "export const DEFAULT_PROMPTS = {\n" +
	"  LOGIN_PAGE: `\n" +
	"    Example:\n" +
	"    \\`\\`\\`java\n" +
	"    class LoginPage { void open() { if (ready) { go(); } } }\n" +
	"    \\`\\`\\`\n" +
	"  `,\n" +
	"  LOGOUT_PAGE: `Log out of \\${pageUrl}`,\n" +
	"};\n" +
	"\n" +
	"export const CODE_GENERATOR_TYPES = {\n" +
	"  LOGIN_PAGE: 'Login-Page',\n" +
	"  SETTINGS_PAGE: 'Settings-Page'\n" +
	"};\n"

const chatJS = `const queue = [];
queue.push('LOGIN_PAGE');
const prompt = getPrompt("LOGIN_PAGE", vars);
const next = getPrompt(
  'SIGNUP_PAGE'
);
`

func setupProject(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	cfg := config.DefaultConfig()
	cfg.Root = root
	return cfg
}

func TestRunner_Run(t *testing.T) {
	cfg := setupProject(t, map[string]string{
		"prompts.js": promptsJS,
		"chat.js":    chatJS,
	})

	rep, err := NewRunner(cfg, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, rep.DeclaredCount)
	assert.Equal(t, 2, rep.ReferencedCount)
	assert.Equal(t, []registry.Identifier{"SIGNUP_PAGE"}, rep.Missing)
	assert.Equal(t, []reference.Site{
		{ID: "SIGNUP_PAGE", Form: reference.FormLookup, Path: "chat.js", Line: 5},
	}, rep.MissingSites)
	assert.Empty(t, rep.Malformed)

	require.Len(t, rep.Sources, 2)
	assert.Equal(t, "prompts.js", rep.Sources[0].Path)
	assert.Equal(t, "chat.js", rep.Sources[1].Path)
	assert.Equal(t, source.ComputeHash([]byte(chatJS)), rep.Sources[1].Hash)
}

func TestRunner_SyntaxBackendAgrees(t *testing.T) {
	files := map[string]string{
		"prompts.js": promptsJS,
		"chat.js":    chatJS,
	}

	lexicalCfg := setupProject(t, files)
	lexical, err := NewRunner(lexicalCfg, nil, nil).Run(context.Background())
	require.NoError(t, err)

	for _, parser := range []string{"syntax", "auto"} {
		t.Run(parser, func(t *testing.T) {
			cfg := setupProject(t, files)
			cfg.Parser = parser
			rep, err := NewRunner(cfg, nil, nil).Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, lexical.DeclaredCount, rep.DeclaredCount)
			assert.Equal(t, lexical.ReferencedCount, rep.ReferencedCount)
			assert.Equal(t, lexical.Missing, rep.Missing)
			assert.Equal(t, lexical.MissingSites, rep.MissingSites)
		})
	}
}

func TestRunner_Companions(t *testing.T) {
	cfg := setupProject(t, map[string]string{
		"prompts.js": promptsJS,
		"chat.js":    "queue.push('LOGIN_PAGE');\n",
	})
	cfg.Registry.Companions = []string{"export const CODE_GENERATOR_TYPES"}

	rep, err := NewRunner(cfg, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []registry.Identifier{"SETTINGS_PAGE"}, rep.Missing)
	assert.Equal(t, []reference.Site{
		{ID: "SETTINGS_PAGE", Form: reference.FormCompanion, Path: "prompts.js", Line: 13},
	}, rep.MissingSites)
}

func TestRunner_CompanionNotFound(t *testing.T) {
	cfg := setupProject(t, map[string]string{
		"prompts.js": promptsJS,
		"chat.js":    "",
	})
	cfg.Registry.Companions = []string{"export const NOWHERE"}

	_, err := NewRunner(cfg, nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrSetup)
}

func TestRunner_MalformedDeclaration(t *testing.T) {
	cfg := setupProject(t, map[string]string{
		"prompts.js": "export const DEFAULT_PROMPTS = {\n  LOGIN_PAGE: `unfinished {`,\n",
		"chat.js":    chatJS,
	})

	rep, err := NewRunner(cfg, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, rep.Malformed, registry.ErrMalformedDeclaration.Error())
	assert.Equal(t, 0, rep.DeclaredCount)
	assert.Equal(t, []registry.Identifier{"LOGIN_PAGE", "SIGNUP_PAGE"}, rep.Missing)
}

func TestRunner_SetupFailures(t *testing.T) {
	tests := []struct {
		name   string
		files  map[string]string
		modify func(*config.Config)
	}{
		{
			name:  "registry module missing",
			files: map[string]string{"chat.js": chatJS},
		},
		{
			name:  "consumer missing",
			files: map[string]string{"prompts.js": promptsJS},
		},
		{
			name:   "consumer glob without matches",
			files:  map[string]string{"prompts.js": promptsJS},
			modify: func(c *config.Config) { c.Consumers.Paths = []string{"src/**/*.js"} },
		},
		{
			name:   "unknown backend",
			files:  map[string]string{"prompts.js": promptsJS, "chat.js": chatJS},
			modify: func(c *config.Config) { c.Parser = "quantum" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := setupProject(t, tt.files)
			if tt.modify != nil {
				tt.modify(cfg)
			}

			_, err := NewRunner(cfg, nil, nil).Run(context.Background())
			assert.ErrorIs(t, err, ErrSetup)
		})
	}
}

func TestRunner_UnreadableConsumer(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	cfg := setupProject(t, map[string]string{
		"prompts.js": promptsJS,
		"src/a.js":   "queue.push('LOGIN_PAGE');\n",
		"src/b.js":   "getPrompt('LOGOUT_PAGE');\n",
	})
	cfg.Consumers.Paths = []string{"src/*.js"}
	locked := filepath.Join(cfg.Root, "src", "b.js")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0644) })

	_, err := NewRunner(cfg, nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrSetup)
	assert.ErrorIs(t, err, source.ErrUnreadable)
}

func TestRunner_GlobbedConsumers(t *testing.T) {
	cfg := setupProject(t, map[string]string{
		"prompts.js":          promptsJS,
		"src/b.js":            "getPrompt('B_PAGE');\n",
		"src/ui/a.js":         "queue.push('LOGIN_PAGE');\n",
		"src/vendor/skip.js":  "getPrompt('VENDOR_PAGE');\n",
		"src/notes/readme.md": "getPrompt('DOC_PAGE')\n",
	})
	cfg.Consumers.Paths = []string{"src/**/*.js"}
	cfg.Consumers.Exclude = []string{"src/vendor/**"}

	rep, err := NewRunner(cfg, nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []registry.Identifier{"B_PAGE"}, rep.Missing)
	assert.Equal(t, 2, rep.ReferencedCount)
	require.Len(t, rep.Sources, 3)
	assert.Equal(t, "src/b.js", rep.Sources[1].Path)
	assert.Equal(t, "src/ui/a.js", rep.Sources[2].Path)
}

func TestRunner_LoadRegistry(t *testing.T) {
	cfg := setupProject(t, map[string]string{"prompts.js": promptsJS})

	reg, text, err := NewRunner(cfg, nil, nil).LoadRegistry(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "prompts.js", text.Path)
	assert.Equal(t, []registry.Identifier{"LOGIN_PAGE", "LOGOUT_PAGE"}, reg.IDs())

	out, err := reg.Render("LOGOUT_PAGE", map[string]string{"pageUrl": "/bye"})
	require.NoError(t, err)
	assert.Equal(t, "Log out of /bye", out)
}

func TestRunner_Cancelled(t *testing.T) {
	cfg := setupProject(t, map[string]string{
		"prompts.js": promptsJS,
		"chat.js":    chatJS,
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(cfg, nil, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
