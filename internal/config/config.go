// Package config provides configuration types and defaults for gitk-core.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	BackendCLI    = "cli"
	BackendNative = "native"

	EnvPrefix = "GITK_CORE"
)

// Config holds all configuration options for gitk-core.
type Config struct {
	// Backend selects the git implementation: "cli" runs the git binary,
	// "native" uses go-git in process.
	Backend        string        `mapstructure:"backend" yaml:"backend"`
	Workers        int           `mapstructure:"workers" yaml:"workers"` // 0 picks one per CPU, at most 8
	LogPageSize    int           `mapstructure:"log_page_size" yaml:"log_page_size"`
	Watch          bool          `mapstructure:"watch" yaml:"watch"`
	WatchDebounce  time.Duration `mapstructure:"watch_debounce" yaml:"watch_debounce"`
	LogLevel       string        `mapstructure:"log_level" yaml:"log_level"`
	CommitCacheTTL time.Duration `mapstructure:"commit_cache_ttl" yaml:"commit_cache_ttl"`
	Trace          bool          `mapstructure:"trace" yaml:"trace"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Backend:        BackendCLI,
		Workers:        0,
		LogPageSize:    200,
		Watch:          true,
		WatchDebounce:  350 * time.Millisecond,
		LogLevel:       "info",
		CommitCacheTTL: 10 * time.Minute,
		Trace:          false,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	var errs []error
	switch c.Backend {
	case BackendCLI, BackendNative:
	default:
		errs = append(errs, fmt.Errorf("backend: unknown backend %q (want %s or %s)", c.Backend, BackendCLI, BackendNative))
	}
	if c.Workers < 0 || c.Workers > 64 {
		errs = append(errs, fmt.Errorf("workers: %d out of range [0, 64]", c.Workers))
	}
	if c.LogPageSize <= 0 {
		errs = append(errs, fmt.Errorf("log_page_size: must be positive, got %d", c.LogPageSize))
	}
	if c.WatchDebounce < 0 {
		errs = append(errs, fmt.Errorf("watch_debounce: must not be negative, got %s", c.WatchDebounce))
	}
	if c.CommitCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("commit_cache_ttl: must be positive, got %s", c.CommitCacheTTL))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured log level. Invalid levels fall back to
// info; Validate reports them.
func (c Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown level %q", s)
	}
	return level, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/gitk-core/config.yaml or its
// platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "gitk-core.yaml")
	}
	return filepath.Join(dir, "gitk-core", "config.yaml")
}

// SetDefaults registers every default value with v so that environment
// variables bind to known keys.
func SetDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("log_page_size", d.LogPageSize)
	v.SetDefault("watch", d.Watch)
	v.SetDefault("watch_debounce", d.WatchDebounce)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("commit_cache_ttl", d.CommitCacheTTL)
	v.SetDefault("trace", d.Trace)
}

// Load reads path into v, layered over the defaults and under GITK_CORE_*
// environment variables. A missing file is only an error when required is
// set.
func Load(v *viper.Viper, path string, required bool) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if required || !missing(err) {
				return Config{}, fmt.Errorf("reading config %s: %w", path, err)
			}
			slog.Debug("no config file", slog.String("path", path))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func missing(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// YAML renders the effective configuration.
func (c Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return string(out), nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# gitk-core configuration
# Every key can also be set with a GITK_CORE_ environment variable,
# e.g. GITK_CORE_BACKEND=native.

# Git implementation: cli (git binary) or native (go-git, read-mostly)
backend: cli

# Background workers for git operations (0 = one per CPU, at most 8)
workers: 0

# Commits loaded per history page
log_page_size: 200

# Reload automatically when the repository changes on disk
watch: true
watch_debounce: 350ms

# debug, info, warn or error
log_level: info

# How long loaded commit details are kept in memory
commit_cache_ttl: 10m

# Print a span per git operation to stderr
trace: false
`
}

// WriteDefaultConfig creates a config file at the given path with default
// settings and comments. Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
