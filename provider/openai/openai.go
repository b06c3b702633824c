// Package openai implements llmbatch.Model for the OpenAI Batch API.
//
// Requests are written to a newline-delimited JSON file, uploaded through the
// Files API and registered as a batch against /v1/chat/completions. Structured
// output uses the json_schema response_format directive. Results are read
// from the batch's output and error files.
package openai

import (
	"log/slog"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nevindra/llmbatch"
)

// EnvAPIKey is the environment variable that takes precedence over WithAPIKey.
const EnvAPIKey = "OPENAI_API_KEY"

const (
	defaultBaseURL          = "https://api.openai.com/v1"
	defaultCompletionWindow = "24h"
	providerName            = "openai"
)

// Model submits structured-output chat completion batches to OpenAI.
type Model struct {
	client *goopenai.Client
	name   string
	model  string

	apiKey     string
	apiKeyEnv  string
	baseURL    string
	orgID      string
	httpClient *http.Client

	tempDir          string
	completionWindow string
	strict           bool
	maxTokens        int
	temperature      *float64
	logger           *slog.Logger
}

// New creates an OpenAI batch model. The API key comes from OPENAI_API_KEY
// (or the variable named by WithAPIKeyEnv) when set, else from WithAPIKey;
// with neither New fails.
func New(model string, opts ...Option) (*Model, error) {
	m := &Model{
		name:             providerName,
		model:            model,
		apiKeyEnv:        EnvAPIKey,
		baseURL:          defaultBaseURL,
		completionWindow: defaultCompletionWindow,
		strict:           true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if model == "" {
		return nil, &llmbatch.ConfigError{Provider: m.name, Message: "model is required"}
	}

	key, err := llmbatch.ResolveAPIKey(m.name, m.apiKey, m.apiKeyEnv)
	if err != nil {
		return nil, err
	}
	m.apiKey = key
	if m.logger == nil {
		m.logger = llmbatch.NopLogger
	}

	cfg := goopenai.DefaultConfig(key)
	cfg.BaseURL = m.baseURL
	cfg.OrgID = m.orgID
	if m.httpClient != nil {
		cfg.HTTPClient = m.httpClient
	}
	m.client = goopenai.NewClientWithConfig(cfg)
	return m, nil
}

// Name returns "openai" unless overridden with WithName.
func (m *Model) Name() string { return m.name }

// ModelID returns the chat model every request in a batch is sent to.
func (m *Model) ModelID() string { return m.model }

// Compile-time interface assertions.
var (
	_ llmbatch.Model     = (*Model)(nil)
	_ llmbatch.Canceller = (*Model)(nil)
)
