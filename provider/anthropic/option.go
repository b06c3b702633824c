package anthropic

import (
	"log/slog"
	"net/http"
)

// Option configures an Anthropic batch model.
type Option func(*Model)

// WithAPIKey sets the API key used when ANTHROPIC_API_KEY is not set.
func WithAPIKey(key string) Option {
	return func(m *Model) { m.apiKey = key }
}

// WithBaseURL overrides the API base (default "https://api.anthropic.com").
func WithBaseURL(u string) Option {
	return func(m *Model) { m.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client (e.g. for timeouts or proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(m *Model) { m.httpClient = c }
}

// WithMaxTokens sets max_tokens for every request (default 4096).
func WithMaxTokens(n int) Option {
	return func(m *Model) { m.maxTokens = n }
}

// WithTemperature sets the sampling temperature. Only sent when set.
func WithTemperature(t float64) Option {
	return func(m *Model) { m.temperature = &t }
}

// WithVersion overrides the anthropic-version header (default "2023-06-01").
func WithVersion(v string) Option {
	return func(m *Model) { m.version = v }
}

// WithLogger sets a structured logger. Without one the model is silent.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}
