package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when Load is given no path. A missing default file is
// not an error.
const DefaultPath = "llmbatch.toml"

type Config struct {
	Provider ProviderConfig `toml:"provider" yaml:"provider"`
	Observer ObserverConfig `toml:"observer" yaml:"observer"`
	Poll     PollConfig     `toml:"poll" yaml:"poll"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

type ProviderConfig struct {
	Name        string   `toml:"name" yaml:"name"`
	Model       string   `toml:"model" yaml:"model"`
	APIKey      string   `toml:"api_key" yaml:"api_key"`
	BaseURL     string   `toml:"base_url" yaml:"base_url"`
	MaxTokens   int      `toml:"max_tokens" yaml:"max_tokens"`
	Temperature *float64 `toml:"temperature" yaml:"temperature"`
}

type ObserverConfig struct {
	Enabled     bool                       `toml:"enabled" yaml:"enabled"`
	ServiceName string                     `toml:"service_name" yaml:"service_name"`
	Pricing     map[string]ObserverPricing `toml:"pricing" yaml:"pricing"`
}

type ObserverPricing struct {
	Input  float64 `toml:"input" yaml:"input"`
	Output float64 `toml:"output" yaml:"output"`
}

type PollConfig struct {
	Interval time.Duration `toml:"interval" yaml:"interval"`
	Timeout  time.Duration `toml:"timeout" yaml:"timeout"` // 0 = wait until terminal
}

type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // text or json
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider: ProviderConfig{Name: "openai", Model: "gpt-4o-mini"},
		Observer: ObserverConfig{ServiceName: "llmbatch"},
		Poll:     PollConfig{Interval: 30 * time.Second},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads config: defaults -> file -> env vars (env wins). Files ending in
// .yaml or .yml are YAML; everything else is TOML.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(path, data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("config: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return toml.Unmarshal(data, cfg)
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("LLMBATCH_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("LLMBATCH_MODEL"); v != "" {
		cfg.Provider.Model = v
	}
	if v := os.Getenv("LLMBATCH_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("LLMBATCH_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("LLMBATCH_MAX_TOKENS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: LLMBATCH_MAX_TOKENS: %w", err)
		}
		cfg.Provider.MaxTokens = n
	}
	if v := os.Getenv("LLMBATCH_OBSERVER_ENABLED"); v != "" {
		cfg.Observer.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("LLMBATCH_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: LLMBATCH_POLL_INTERVAL: %w", err)
		}
		cfg.Poll.Interval = d
	}
	if v := os.Getenv("LLMBATCH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if c.Provider.Name == "" {
		return errors.New("config: provider.name is required")
	}
	if c.Provider.Model == "" {
		return errors.New("config: provider.model is required")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("config: poll.interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Provider.MaxTokens < 0 {
		return fmt.Errorf("config: provider.max_tokens must not be negative, got %d", c.Provider.MaxTokens)
	}
	return nil
}
