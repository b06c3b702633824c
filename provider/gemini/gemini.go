// Package gemini implements llmbatch.Model for Gemini inline batch jobs
// (models/{model}:batchGenerateContent).
//
// Requests are embedded in the batch creation call, each tagged with its
// custom id as metadata key. Structured output uses responseJsonSchema.
// Results are read from the responses inlined in the batch record.
package gemini

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

// Environment variables that take precedence over WithAPIKey, in order.
const (
	EnvAPIKey       = "GEMINI_API_KEY"
	EnvGoogleAPIKey = "GOOGLE_API_KEY"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultDisplayName = "llmbatch"
	providerName       = "gemini"
)

// Model submits structured-output inline batch jobs to Gemini.
type Model struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	maxTokens   int
	temperature *float64
	displayName string
}

// New creates a Gemini batch model. The API key comes from GEMINI_API_KEY or
// GOOGLE_API_KEY when set, else from WithAPIKey; with none New fails.
func New(model string, opts ...Option) (*Model, error) {
	m := &Model{
		model:       strings.TrimPrefix(model, "models/"),
		baseURL:     defaultBaseURL,
		displayName: defaultDisplayName,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.model == "" {
		return nil, &llmbatch.ConfigError{Provider: providerName, Message: "model is required"}
	}

	key, err := llmbatch.ResolveAPIKey(providerName, m.apiKey, EnvAPIKey, EnvGoogleAPIKey)
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

// Name returns "gemini".
func (m *Model) Name() string { return providerName }

// ModelID returns the model every request in a batch is sent to.
func (m *Model) ModelID() string { return m.model }

// doJSON sends payload (if any) to path under the base URL and decodes a 2xx
// JSON response into out.
func (m *Model) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, m.baseURL+"/"+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", m.apiKey)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.httpClient.Do(httpReq)
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
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// httpErr builds an ErrHTTP, preferring the google.rpc.Status message over
// the raw body.
func httpErr(status int, body []byte) *llmbatch.ErrHTTP {
	var envelope struct {
		Error *rpcStatus `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil && envelope.Error.Message != "" {
		return &llmbatch.ErrHTTP{Status: status, Body: envelope.Error.Status + ": " + envelope.Error.Message}
	}
	return &llmbatch.ErrHTTP{Status: status, Body: string(body)}
}

// Compile-time interface assertions.
var (
	_ llmbatch.Model     = (*Model)(nil)
	_ llmbatch.Canceller = (*Model)(nil)
)
