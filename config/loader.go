package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is searched for in the working directory and its parents.
	ProjectConfigFile = "veriyield.yaml"
	// UserConfigDir is the directory for user-level config, relative to $HOME.
	UserConfigDir = ".config/veriyield"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Loader handles configuration loading with layered precedence.
type Loader struct {
	logger  *slog.Logger
	homeDir string
	workDir string
}

// NewLoader creates a new configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{logger: logger}
	l.homeDir, _ = os.UserHomeDir()
	l.workDir, _ = os.Getwd()
	return l
}

// Load loads configuration with layered precedence:
//  1. defaults
//  2. user config (~/.config/veriyield/config.yaml)
//  3. project config (veriyield.yaml in the working directory or a parent)
//  4. explicitPath, when non-empty; a missing explicit file is an error
func (l *Loader) Load(explicitPath string) (*Config, error) {
	cfg := DefaultConfig()

	if path := l.userConfigPath(); path != "" {
		l.mergeFile(cfg, path, false)
	}

	if path := l.findProjectConfig(); path != "" {
		l.mergeFile(cfg, path, true)
	} else {
		l.logger.Debug("No project config found")
	}

	if explicitPath != "" {
		other, err := LoadFromFile(explicitPath)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config", slog.String("path", explicitPath))
		cfg.Merge(other)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) mergeFile(cfg *Config, path string, mustExist bool) {
	other, err := LoadFromFile(path)
	switch {
	case err == nil:
		l.logger.Debug("Loaded config", slog.String("path", path))
		cfg.Merge(other)
	case errors.Is(err, os.ErrNotExist) && !mustExist:
	default:
		l.logger.Warn("Failed to load config", slog.String("path", path), slog.String("error", err.Error()))
	}
}

// EnsureUserConfig writes the defaults to the user config file if it does not exist.
func (l *Loader) EnsureUserConfig() (string, error) {
	path := l.userConfigPath()
	if path == "" {
		return "", errors.New("cannot determine home directory")
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := DefaultConfig().SaveToFile(path); err != nil {
		return "", err
	}
	l.logger.Info("Created default user config", slog.String("path", path))
	return path, nil
}

func (l *Loader) userConfigPath() string {
	if l.homeDir == "" {
		return ""
	}
	return filepath.Join(l.homeDir, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for veriyield.yaml in the working directory and its parents.
func (l *Loader) findProjectConfig() string {
	if l.workDir == "" {
		return ""
	}
	dir := l.workDir
	for {
		path := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
