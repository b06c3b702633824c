package gemini

import (
	"log/slog"
	"net/http"
)

// Option configures a Gemini batch model.
type Option func(*Model)

// WithAPIKey sets the API key used when neither GEMINI_API_KEY nor
// GOOGLE_API_KEY is set.
func WithAPIKey(key string) Option {
	return func(m *Model) { m.apiKey = key }
}

// WithBaseURL overrides the API base
// (default "https://generativelanguage.googleapis.com/v1beta").
func WithBaseURL(u string) Option {
	return func(m *Model) { m.baseURL = u }
}

// WithHTTPClient sets a custom HTTP client (e.g. for timeouts or proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(m *Model) { m.httpClient = c }
}

// WithMaxTokens sets generationConfig.maxOutputTokens. Zero (default)
// leaves it out.
func WithMaxTokens(n int) Option {
	return func(m *Model) { m.maxTokens = n }
}

// WithTemperature sets the sampling temperature. Only sent when set.
func WithTemperature(t float64) Option {
	return func(m *Model) { m.temperature = &t }
}

// WithDisplayName sets the display name given to created batches
// (default "llmbatch").
func WithDisplayName(name string) Option {
	return func(m *Model) { m.displayName = name }
}

// WithLogger sets a structured logger. Without one the model is silent.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}
