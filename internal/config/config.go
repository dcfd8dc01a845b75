// Package config provides configuration loading for the samply server,
// following the same env-override-then-home-dir pattern the rest of this
// codebase uses for its own global config.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	dirName    = ".samply"
	configFile = "config.yaml"
	envDirVar  = "SAMPLY_CONFIG_DIR"
)

// Config holds the server-side settings that are not inherent to a single
// profile file: listen address, CORS policy, and default query limits.
type Config struct {
	Host           string  `yaml:"host"`
	Port           int     `yaml:"port"`
	CORSOrigin     string  `yaml:"cors_origin"`
	DefaultLimit   int     `yaml:"default_limit"`
	DefaultDepth   int     `yaml:"default_depth"`
	DrilldownDepth int     `yaml:"drilldown_depth"`
	Threshold      float64 `yaml:"threshold"`
	LogLevel       string  `yaml:"log_level"`
}

// Default returns the configuration samply falls back to when no config
// file is present.
func Default() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           0, // 0 means "let the OS choose".
		CORSOrigin:     "*",
		DefaultLimit:   20,
		DefaultDepth:   5,
		DrilldownDepth: 10,
		Threshold:      5.0,
		LogLevel:       "info",
	}
}

// Loader resolves ~/.samply, honoring SAMPLY_CONFIG_DIR as an override so
// the same binary can run config-less in minimal/containerized
// environments.
type Loader struct {
	baseDir string
}

// NewLoader resolves the base directory in order: SAMPLY_CONFIG_DIR env
// var, the user's home directory, then /tmp/samply-fallback.
func NewLoader() *Loader {
	if dir := os.Getenv(envDirVar); dir != "" {
		return &Loader{baseDir: dir}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return &Loader{baseDir: home}
	}
	return &Loader{baseDir: "/tmp/samply-fallback"}
}

// ConfigPath returns the path to the config file.
func (l *Loader) ConfigPath() string {
	return filepath.Join(l.baseDir, dirName, configFile)
}

// SessionPath returns the path to the session discovery file (§6).
func (l *Loader) SessionPath() string {
	return filepath.Join(l.baseDir, dirName, "session.json")
}

// Load reads the config file, falling back to Default() when absent.
func (l *Loader) Load() (Config, error) {
	path := l.ConfigPath()
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to the config file, creating ~/.samply if needed.
func (l *Loader) Save(cfg Config) error {
	path := l.ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}
