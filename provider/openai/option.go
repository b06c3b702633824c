package openai

import (
	"log/slog"
	"net/http"
)

// Option configures an OpenAI batch model.
type Option func(*Model)

// WithAPIKey sets the API key used when OPENAI_API_KEY is not set.
func WithAPIKey(key string) Option {
	return func(m *Model) { m.apiKey = key }
}

// WithName overrides the provider name reported by Name (default "openai").
func WithName(name string) Option {
	return func(m *Model) { m.name = name }
}

// WithAPIKeyEnv replaces OPENAI_API_KEY as the environment variable
// consulted first. Use it with WithBaseURL for OpenAI-compatible batch
// vendors, e.g. WithAPIKeyEnv("GROQ_API_KEY").
func WithAPIKeyEnv(name string) Option {
	return func(m *Model) { m.apiKeyEnv = name }
}

// WithBaseURL overrides the API base (default "https://api.openai.com/v1").
// Use it for Azure-style gateways or OpenAI-compatible batch servers.
func WithBaseURL(u string) Option {
	return func(m *Model) { m.baseURL = u }
}

// WithOrganization sets the OpenAI-Organization header.
func WithOrganization(org string) Option {
	return func(m *Model) { m.orgID = org }
}

// WithHTTPClient sets a custom HTTP client (e.g. for timeouts or proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(m *Model) { m.httpClient = c }
}

// WithTempDir sets the directory for the transient NDJSON upload file
// (default os.TempDir()).
func WithTempDir(dir string) Option {
	return func(m *Model) { m.tempDir = dir }
}

// WithCompletionWindow sets the batch completion window (default "24h").
func WithCompletionWindow(w string) Option {
	return func(m *Model) { m.completionWindow = w }
}

// WithStrict toggles strict schema adherence in the response_format
// directive (default true).
func WithStrict(strict bool) Option {
	return func(m *Model) { m.strict = strict }
}

// WithMaxTokens caps completion tokens per request. Zero (default) leaves the
// field out and the vendor default applies.
func WithMaxTokens(n int) Option {
	return func(m *Model) { m.maxTokens = n }
}

// WithTemperature sets the sampling temperature. Only sent when set; an
// explicit 0 is indistinguishable from unset on the wire and falls back to
// the vendor default.
func WithTemperature(t float64) Option {
	return func(m *Model) { m.temperature = &t }
}

// WithLogger sets a structured logger. Without one the model is silent.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) { m.logger = l }
}
