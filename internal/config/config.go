// Package config resolves guardrail settings. Highest priority first:
// 1. Command-line flags
// 2. Environment variables (GUARDRAIL_*)
// 3. Project config (.guardrail.yaml in cwd, or GUARDRAIL_CONFIG)
// 4. Home config (~/.config/guardrail/config.yaml)
// 5. Defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all guardrail settings.
type Config struct {
	// Root is the configuration tree being governed.
	Root string `yaml:"root" json:"root"`

	// Patterns is the pattern schema path. Default: <root>/security/patterns.json
	Patterns string `yaml:"patterns" json:"patterns"`

	// Checklist is an optional verification checklist; empty uses the built-in one.
	Checklist string `yaml:"checklist" json:"checklist"`

	GitTimeout   Duration `yaml:"git_timeout" json:"git_timeout"`
	CheckTimeout Duration `yaml:"check_timeout" json:"check_timeout"`

	// Headless disables colour. It never disables a check.
	Headless bool `yaml:"headless" json:"headless"`
}

// Duration accepts Go duration strings such as "5s"
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, s)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

const (
	defaultGitTimeout   = 5 * time.Second
	defaultCheckTimeout = 10 * time.Second
)

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Root:         filepath.Join(homeDir, ".claude"),
		GitTimeout:   Duration(defaultGitTimeout),
		CheckTimeout: Duration(defaultCheckTimeout),
	}
}

// Load loads configuration with proper precedence.
// A config file that exists but cannot be parsed is an error.
func Load(flagOverrides *Config) (*Config, error) {
	cfg := Default()

	for _, path := range []string{homeConfigPath(), projectConfigPath()} {
		fileConfig, err := loadFromPath(path)
		if err != nil {
			return nil, err
		}
		if fileConfig != nil {
			cfg = merge(cfg, fileConfig)
		}
	}

	cfg, err := applyEnv(cfg)
	if err != nil {
		return nil, err
	}

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	cfg.Root = expandHome(cfg.Root)
	if cfg.Patterns == "" {
		cfg.Patterns = filepath.Join(cfg.Root, "security", "patterns.json")
	}
	cfg.Patterns = expandHome(cfg.Patterns)
	cfg.Checklist = expandHome(cfg.Checklist)

	if cfg.GitTimeout <= 0 || cfg.CheckTimeout <= 0 {
		return nil, errors.New("config: timeouts must be positive")
	}

	return cfg, nil
}

func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "guardrail", "config.yaml")
}

func projectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("GUARDRAIL_CONFIG")); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".guardrail.yaml")
}

// loadFromPath returns nil, nil when the file does not exist.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) (*Config, error) {
	if v := os.Getenv("GUARDRAIL_ROOT"); v != "" {
		cfg.Root = v
	}
	if v := os.Getenv("GUARDRAIL_PATTERNS"); v != "" {
		cfg.Patterns = v
	}
	if v := os.Getenv("GUARDRAIL_CHECKLIST"); v != "" {
		cfg.Checklist = v
	}
	if v := os.Getenv("GUARDRAIL_GIT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("GUARDRAIL_GIT_TIMEOUT: invalid duration %q", v)
		}
		cfg.GitTimeout = Duration(d)
	}
	if isTrue(os.Getenv("GUARDRAIL_HEADLESS")) || os.Getenv("CLAUDE_HEADLESS") == "1" || os.Getenv("CI") == "true" {
		cfg.Headless = true
	}
	return cfg, nil
}

func isTrue(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func mergeDuration(dst *Duration, src Duration) {
	if src != 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
// Headless only ever turns on.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Root, src.Root)
	mergeStr(&dst.Patterns, src.Patterns)
	mergeStr(&dst.Checklist, src.Checklist)
	mergeDuration(&dst.GitTimeout, src.GitTimeout)
	mergeDuration(&dst.CheckTimeout, src.CheckTimeout)
	if src.Headless {
		dst.Headless = true
	}
	return dst
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
