// Package config holds the shadow configuration: a YAML file under
// ~/.shadow, optional .env files, then SHADOW_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/v0xg/shadow/internal/compressor"
	"github.com/v0xg/shadow/internal/render"
)

// Config is the full shadow configuration.
type Config struct {
	Bridge      BridgeConfig      `yaml:"bridge"`
	Browser     BrowserConfig     `yaml:"browser"`
	Search      SearchConfig      `yaml:"search"`
	Aliases     map[string]string `yaml:"aliases"`
	History     HistoryConfig     `yaml:"history"`
	Compression CompressionConfig `yaml:"compression"`
	AI          AIConfig          `yaml:"ai"`
}

type BridgeConfig struct {
	Addr            string `yaml:"addr"`
	ScreenshotWidth uint   `yaml:"screenshot_width"`
}

type BrowserConfig struct {
	Bin          string `yaml:"bin"`
	Headless     bool   `yaml:"headless"`
	ProfileDir   string `yaml:"profile_dir"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	LoadTimeout  string `yaml:"load_timeout"`
	SettleDelay  string `yaml:"settle_delay"`
	ActionSettle string `yaml:"action_settle"`
}

type SearchConfig struct {
	Engine string `yaml:"engine"` // duckduckgo or google
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type CompressionConfig struct {
	MaxElements        int  `yaml:"max_elements"`
	PrioritizeByIntent bool `yaml:"prioritize_by_intent"`
}

type AIConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	MaxSteps int    `yaml:"max_steps"`
}

// Dir is the per-user shadow directory (~/.shadow).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".shadow"
	}
	return filepath.Join(home, ".shadow")
}

// DefaultPath is where Load looks when no --config is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := Dir()
	return &Config{
		Bridge: BridgeConfig{
			Addr:            "127.0.0.1:3030",
			ScreenshotWidth: 800,
		},
		Browser: BrowserConfig{
			Headless:     true,
			Width:        1280,
			Height:       720,
			LoadTimeout:  "30s",
			SettleDelay:  "3s",
			ActionSettle: "2s",
		},
		Search: SearchConfig{Engine: "duckduckgo"},
		Aliases: map[string]string{
			render.DefaultAlias: filepath.Join(dir, "cornerstone", "index.html"),
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "history.db"),
		},
		Compression: CompressionConfig{MaxElements: compressor.MaxElements},
		AI: AIConfig{
			Provider: "claude",
			MaxSteps: 20,
		},
	}
}

// LoadEnv loads .env files into the process environment. Missing files
// are ignored; with no arguments ./.env is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads the YAML file at path over the defaults and applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("SHADOW_BRIDGE_ADDR"); addr != "" {
		c.Bridge.Addr = addr
	}
	if bin := os.Getenv("SHADOW_BROWSER_BIN"); bin != "" {
		c.Browser.Bin = bin
	}
	if path := os.Getenv("SHADOW_HISTORY_DB"); path != "" {
		c.History.Path = path
	}
	if p := os.Getenv("SHADOW_AI_PROVIDER"); p != "" {
		c.AI.Provider = p
	}
}

var validEngines = []string{"duckduckgo", "google"}

// Validate checks enumerations and durations.
func (c *Config) Validate() error {
	if c.Bridge.Addr == "" {
		return errors.New("bridge.addr must be set")
	}
	if !contains(validEngines, c.Search.Engine) {
		return fmt.Errorf("search.engine %q invalid (supported: %s)", c.Search.Engine, strings.Join(validEngines, ", "))
	}
	if err := checkDuration("browser.load_timeout", c.Browser.LoadTimeout, false); err != nil {
		return err
	}
	if err := checkDuration("browser.settle_delay", c.Browser.SettleDelay, true); err != nil {
		return err
	}
	if err := checkDuration("browser.action_settle", c.Browser.ActionSettle, true); err != nil {
		return err
	}
	if m := c.Compression.MaxElements; m < 1 || m > compressor.MaxElements {
		return fmt.Errorf("compression.max_elements %d out of range 1..%d", m, compressor.MaxElements)
	}
	return nil
}

// checkDuration accepts an empty value (the default applies). Zero is
// allowed only when allowZero is set; negative values never are.
func checkDuration(name, v string, allowZero bool) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return fmt.Errorf("%s must be positive, got %s", name, v)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// GetLoadTimeout returns the page load bound as a duration.
func (c *Config) GetLoadTimeout() time.Duration {
	return parseDuration(c.Browser.LoadTimeout, 30*time.Second)
}

// GetSettleDelay returns the post-load settle delay as a duration.
func (c *Config) GetSettleDelay() time.Duration {
	return parseDuration(c.Browser.SettleDelay, 3*time.Second)
}

// GetActionSettle returns the post-action wait as a duration.
func (c *Config) GetActionSettle() time.Duration {
	return parseDuration(c.Browser.ActionSettle, 2*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// RenderOptions maps the browser section onto render.Options.
func (c *Config) RenderOptions() render.Options {
	opts := render.DefaultOptions()
	opts.Bin = c.Browser.Bin
	opts.Headless = c.Browser.Headless
	opts.ProfileDir = c.Browser.ProfileDir
	if c.Browser.Width > 0 {
		opts.Width = c.Browser.Width
	}
	if c.Browser.Height > 0 {
		opts.Height = c.Browser.Height
	}
	opts.LoadTimeout = c.GetLoadTimeout()
	opts.SettleDelay = c.GetSettleDelay()
	return opts
}

// CompressionOptions maps the compression section onto compressor.Options.
func (c *Config) CompressionOptions() compressor.Options {
	return compressor.Options{
		MaxElements:        c.Compression.MaxElements,
		PrioritizeByIntent: c.Compression.PrioritizeByIntent,
	}
}
