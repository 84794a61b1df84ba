// Package config holds the global user config (~/.threadshelf/config.yaml)
// and the flag > env > file > default resolution used by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvConfigDir    = "THREADSHELF_CONFIG_DIR"
	EnvDataDir      = "THREADSHELF_DIR"
	EnvBackend      = "THREADSHELF_BACKEND"
	EnvLogLevel     = "THREADSHELF_LOG_LEVEL"
	EnvGeminiKey    = "GEMINI_API_KEY"
	EnvGeminiKeyAlt = "THREADSHELF_GEMINI_API_KEY"
	EnvGeminiModel  = "THREADSHELF_GEMINI_MODEL"
)

type Config struct {
	DataDir  string       `yaml:"dataDir,omitempty"`
	Backend  string       `yaml:"backend,omitempty"`
	LogLevel string       `yaml:"logLevel,omitempty"`
	Gemini   GeminiConfig `yaml:"gemini,omitempty"`
	TUI      TUIConfig    `yaml:"tui,omitempty"`
}

type GeminiConfig struct {
	APIKey string `yaml:"apiKey,omitempty"`
	Model  string `yaml:"model,omitempty"`
}

type TUIConfig struct {
	// Theme is "auto", "dark", "light" or "notty"; it selects the glamour style.
	Theme string `yaml:"theme,omitempty"`
}

// Keys accepted by Set/Get, in display order.
var Keys = []string{"dataDir", "backend", "logLevel", "gemini.apiKey", "gemini.model", "tui.theme"}

func ConfigDir() (string, error) {
	// Test override; keeps unit tests away from ~/.threadshelf.
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".threadshelf"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultDataDir is <config dir>/data.
func DefaultDataDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// Load returns an empty config when the file does not exist.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

func Save(cfg *Config) error {
	if cfg == nil {
		return errors.New("missing config")
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	// The file may hold an API key.
	return atomicWriteFile(dir, "config.yaml.*.tmp", path, b, 0o600)
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "dataDir":
		c.DataDir = value
	case "backend":
		c.Backend = value
	case "logLevel":
		c.LogLevel = value
	case "gemini.apiKey":
		c.Gemini.APIKey = value
	case "gemini.model":
		c.Gemini.Model = value
	case "tui.theme":
		if value != "" && !slices.Contains([]string{"auto", "dark", "light", "notty"}, value) {
			return fmt.Errorf("invalid tui.theme: %q (expected auto|dark|light|notty)", value)
		}
		c.TUI.Theme = value
	default:
		return fmt.Errorf("unknown config key: %q (expected one of %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}

func (c *Config) Get(key string) (string, error) {
	switch key {
	case "dataDir":
		return c.DataDir, nil
	case "backend":
		return c.Backend, nil
	case "logLevel":
		return c.LogLevel, nil
	case "gemini.apiKey":
		return c.Gemini.APIKey, nil
	case "gemini.model":
		return c.Gemini.Model, nil
	case "tui.theme":
		return c.TUI.Theme, nil
	}
	return "", fmt.Errorf("unknown config key: %q (expected one of %s)", key, strings.Join(Keys, ", "))
}

// LoadDotEnv loads .env from the working directory if present. Variables
// already in the environment win.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func envOr(key string, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// Resolved is the effective configuration after env and file fallbacks.
// Flags are applied by the CLI on top of it.
type Resolved struct {
	DataDir      string `json:"dataDir"`
	Backend      string `json:"backend"`
	LogLevel     string `json:"logLevel"`
	GeminiModel  string `json:"geminiModel"`
	GeminiKeySet bool   `json:"geminiKeySet"`
	Theme        string `json:"theme"`
	ConfigPath   string `json:"configPath"`

	geminiKey string
}

func (r Resolved) GeminiKey() string { return r.geminiKey }

// Resolve applies env > file > default for every setting.
func Resolve(cfg *Config) (Resolved, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	path, err := ConfigPath()
	if err != nil {
		return Resolved{}, err
	}
	defDir, err := DefaultDataDir()
	if err != nil {
		return Resolved{}, err
	}

	key := envOr(EnvGeminiKey, envOr(EnvGeminiKeyAlt, cfg.Gemini.APIKey))
	r := Resolved{
		DataDir:     envOr(EnvDataDir, firstNonEmpty(cfg.DataDir, defDir)),
		Backend:     envOr(EnvBackend, firstNonEmpty(cfg.Backend, "sqlite")),
		LogLevel:    envOr(EnvLogLevel, firstNonEmpty(cfg.LogLevel, "warn")),
		GeminiModel: envOr(EnvGeminiModel, cfg.Gemini.Model),
		Theme:       firstNonEmpty(cfg.TUI.Theme, "auto"),
		ConfigPath:  path,
		geminiKey:   key,
	}
	r.GeminiKeySet = key != ""
	return r, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
