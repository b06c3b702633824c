// Package resolve builds an llmbatch.Model from provider-agnostic
// configuration.
package resolve

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nevindra/llmbatch"
	"github.com/nevindra/llmbatch/provider/anthropic"
	"github.com/nevindra/llmbatch/provider/gemini"
	"github.com/nevindra/llmbatch/provider/openai"
)

// Providers lists the names Model accepts.
var Providers = []string{"openai", "anthropic", "gemini", "groq", "together"}

// Config holds provider-agnostic configuration for creating a batch Model.
type Config struct {
	Provider string // "openai", "anthropic", "gemini", "groq", "together"
	Model    string
	APIKey   string // fallback when the provider's environment variable is unset
	BaseURL  string // optional; auto-filled for known providers

	// Common cross-provider options (zero = provider default).
	MaxTokens   int
	Temperature *float64

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Model creates an llmbatch.Model from a provider-agnostic Config.
// groq and together expose the OpenAI batch API and use the openai adapter
// with their own base URL and key variable.
func Model(cfg Config) (llmbatch.Model, error) {
	var (
		m   llmbatch.Model
		err error
	)
	switch cfg.Provider {
	case "openai", "groq", "together":
		m, err = openaiModel(cfg)
	case "anthropic":
		m, err = anthropicModel(cfg)
	case "gemini":
		m, err = geminiModel(cfg)
	default:
		return nil, &llmbatch.ConfigError{
			Provider: cfg.Provider,
			Message:  fmt.Sprintf("unknown provider %q (want one of %v)", cfg.Provider, Providers),
		}
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func openaiModel(cfg Config) (llmbatch.Model, error) {
	opts := []openai.Option{
		openai.WithName(cfg.Provider),
		openai.WithAPIKeyEnv(apiKeyEnv(cfg.Provider)),
		openai.WithAPIKey(cfg.APIKey),
	}
	if u := baseURL(cfg); u != "" {
		opts = append(opts, openai.WithBaseURL(u))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, openai.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		opts = append(opts, openai.WithTemperature(*cfg.Temperature))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, openai.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.Logger != nil {
		opts = append(opts, openai.WithLogger(cfg.Logger))
	}
	m, err := openai.New(cfg.Model, opts...)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func anthropicModel(cfg Config) (llmbatch.Model, error) {
	opts := []anthropic.Option{anthropic.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, anthropic.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		opts = append(opts, anthropic.WithTemperature(*cfg.Temperature))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, anthropic.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.Logger != nil {
		opts = append(opts, anthropic.WithLogger(cfg.Logger))
	}
	m, err := anthropic.New(cfg.Model, opts...)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func geminiModel(cfg Config) (llmbatch.Model, error) {
	opts := []gemini.Option{gemini.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, gemini.WithMaxTokens(cfg.MaxTokens))
	}
	if cfg.Temperature != nil {
		opts = append(opts, gemini.WithTemperature(*cfg.Temperature))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, gemini.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.Logger != nil {
		opts = append(opts, gemini.WithLogger(cfg.Logger))
	}
	m, err := gemini.New(cfg.Model, opts...)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func baseURL(cfg Config) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return defaultBaseURL(cfg.Provider)
}

func defaultBaseURL(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com/v1"
	case "groq":
		return "https://api.groq.com/openai/v1"
	case "together":
		return "https://api.together.xyz/v1"
	default:
		return ""
	}
}

func apiKeyEnv(provider string) string {
	switch provider {
	case "groq":
		return "GROQ_API_KEY"
	case "together":
		return "TOGETHER_API_KEY"
	default:
		return openai.EnvAPIKey
	}
}
