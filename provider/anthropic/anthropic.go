// Package anthropic implements llmbatch.Model for the Anthropic Message
// Batches API.
//
// Requests are sent inline with the batch creation call. Structured output
// is obtained by forcing a single tool call whose input schema wraps the
// caller's schema; results are streamed from the batch's results URL.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nevindra/llmbatch"
)

// EnvAPIKey is the environment variable that takes precedence over WithAPIKey.
const EnvAPIKey = "ANTHROPIC_API_KEY"

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultVersion   = "2023-06-01"
	defaultMaxTokens = 4096
	providerName     = "anthropic"
	batchesPath      = "/v1/messages/batches"
)

// Model submits structured-output message batches to Anthropic.
type Model struct {
	apiKey      string
	model       string
	baseURL     string
	version     string
	maxTokens   int
	temperature *float64
	httpClient  *http.Client
	logger      *slog.Logger
}

// New creates an Anthropic batch model. The API key comes from
// ANTHROPIC_API_KEY when set, else from WithAPIKey; with neither New fails.
func New(model string, opts ...Option) (*Model, error) {
	m := &Model{
		model:     model,
		baseURL:   defaultBaseURL,
		version:   defaultVersion,
		maxTokens: defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(m)
	}
	if model == "" {
		return nil, &llmbatch.ConfigError{Provider: providerName, Message: "model is required"}
	}
	if m.maxTokens <= 0 {
		return nil, &llmbatch.ConfigError{Provider: providerName, Message: fmt.Sprintf("max tokens must be positive, got %d", m.maxTokens)}
	}

	key, err := llmbatch.ResolveAPIKey(providerName, m.apiKey, EnvAPIKey)
	if err != nil {
		return nil, err
	}
	m.apiKey = key
	m.baseURL = strings.TrimRight(m.baseURL, "/")
	if m.httpClient == nil {
		m.httpClient = &http.Client{}
	}
	if m.logger == nil {
		m.logger = llmbatch.NopLogger
	}
	return m, nil
}

// Name returns "anthropic".
func (m *Model) Name() string { return providerName }

// ModelID returns the Claude model every request in a batch is sent to.
func (m *Model) ModelID() string { return m.model }

// newRequest builds an authenticated request. url may be absolute (the
// results URL) or a path relative to the base URL.
func (m *Model) newRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	if strings.HasPrefix(url, "/") {
		url = m.baseURL + url
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", m.apiKey)
	req.Header.Set("anthropic-version", m.version)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// doJSON sends a request and decodes a 2xx JSON response into out.
func (m *Model) doJSON(ctx context.Context, method, path string, payload, out any) error {
	req, err := m.newRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpErr(resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// openStream sends a GET and returns the response body unread. The caller
// closes it.
func (m *Model) openStream(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := m.newRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, httpErr(resp.StatusCode, b)
	}
	return resp.Body, nil
}

// httpErr builds an ErrHTTP, preferring the vendor's error message over the
// raw body when the body is an Anthropic error envelope.
func httpErr(status int, body []byte) *llmbatch.ErrHTTP {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return &llmbatch.ErrHTTP{Status: status, Body: env.Error.Type + ": " + env.Error.Message}
	}
	return &llmbatch.ErrHTTP{Status: status, Body: string(body)}
}

// Compile-time interface assertions.
var (
	_ llmbatch.Model     = (*Model)(nil)
	_ llmbatch.Canceller = (*Model)(nil)
)
