package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "promptcheck.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/promptcheck"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/promptcheck/config.yaml)
// 3. explicit, or else the project config (promptcheck.yaml in current or
// parent directories)
//
// An explicit path must exist. Relative paths in the result resolve against
// Root: the project config's directory, else the git root, else the
// current directory.
func (l *Loader) Load(explicit string) (*Config, error) {
	// Start with defaults
	config := DefaultConfig()

	// Load user config
	userConfigPath := l.userConfigPath()
	if userConfigPath != "" {
		if err := l.mergeLayer(config, userConfigPath); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	// Load project config
	projectConfigPath := explicit
	if projectConfigPath == "" {
		projectConfigPath = l.findProjectConfig()
	}
	if projectConfigPath != "" {
		abs, err := filepath.Abs(projectConfigPath)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		if err := l.mergeLayer(config, abs); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded project config", slog.String("path", abs))

		switch {
		case config.Root == "":
			config.Root = filepath.Dir(abs)
		case !filepath.IsAbs(config.Root):
			config.Root = filepath.Join(filepath.Dir(abs), config.Root)
		}
	} else {
		l.logger.Debug("No project config found")
	}

	// Auto-detect root if not set
	if config.Root == "" {
		if gitRoot := l.detectGitRoot(); gitRoot != "" {
			config.Root = gitRoot
			l.logger.Debug("Auto-detected git root", slog.String("path", gitRoot))
		} else if cwd, err := os.Getwd(); err == nil {
			// Fall back to current directory
			config.Root = cwd
			l.logger.Debug("Using current directory as root", slog.String("path", cwd))
		}
	}

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// mergeLayer decodes path on its own and merges the values it sets, so that
// a layer never resets what an earlier layer configured.
func (l *Loader) mergeLayer(config *Config, path string) error {
	layer := &Config{}
	if err := decodeFile(path, layer); err != nil {
		return err
	}
	config.Merge(layer)
	return nil
}

// WriteProjectConfig writes the default config to promptcheck.yaml in dir.
// It refuses to overwrite an existing file unless force is set.
func (l *Loader) WriteProjectConfig(dir string, force bool) (string, error) {
	path := filepath.Join(dir, ProjectConfigFile)

	if _, err := os.Stat(path); err == nil && !force {
		return "", fmt.Errorf("%s already exists", path)
	}

	config := DefaultConfig()
	if err := config.SaveToFile(path); err != nil {
		return "", err
	}

	l.logger.Info("Created project config", slog.String("path", path))
	return path, nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for promptcheck.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// detectGitRoot finds the git repository root from current directory
func (l *Loader) detectGitRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(output))
}
