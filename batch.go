package llmbatch

import (
	"context"
	"encoding/json"
	"time"
)

// --- Batch lifecycle ---

// Status is the canonical lifecycle state of a batch. Every adapter maps its
// vendor's status vocabulary onto exactly one of these values; unknown vendor
// values map to StatusFailed.
type Status string

const (
	StatusValidating Status = "validating"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusExpired    Status = "expired"
	StatusCancelling Status = "cancelling"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists all canonical statuses in lifecycle order.
var Statuses = []Status{
	StatusValidating,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
	StatusExpired,
	StatusCancelling,
	StatusCancelled,
}

// Valid reports whether s is one of the seven canonical statuses.
func (s Status) Valid() bool {
	for _, c := range Statuses {
		if s == c {
			return true
		}
	}
	return false
}

// Terminal reports whether the batch will not progress any further.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// RequestCounts holds per-category request counts for a batch.
// Categories a vendor does not report are zero.
type RequestCounts struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Processing int `json:"processing,omitempty"`
	Cancelled  int `json:"cancelled,omitempty"`
	Expired    int `json:"expired,omitempty"`
}

// Sum returns the sum of all category counts. Adapters whose vendor has no
// native total use it to fill Total.
func (c RequestCounts) Sum() int {
	return c.Completed + c.Failed + c.Processing + c.Cancelled + c.Expired
}

// Batch is a snapshot of a vendor-tracked batch, fetched fresh on every status
// query. ID is assigned by the vendor and never changes.
type Batch struct {
	ID            string        `json:"id"`
	Status        Status        `json:"status"`
	RequestCounts RequestCounts `json:"request_counts"`
	CreatedAt     time.Time     `json:"created_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
}

// --- Requests and responses ---

// BatchRequest is one labeled input of a batch. CustomID is the only
// correlation key between a request and its response; it must be unique within
// the batch and is echoed back unmodified.
type BatchRequest struct {
	CustomID     string `json:"custom_id"`
	Input        string `json:"input"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// BatchResponse is the normalized result for one request. On a terminal
// result exactly one of Output and Error is set.
type BatchResponse[T any] struct {
	CustomID string         `json:"custom_id"`
	Output   *T             `json:"output,omitempty"`
	Error    *ResponseError `json:"error,omitempty"`
	Usage    *Usage         `json:"usage,omitempty"`
}

// RawResponse is the response shape adapters return: the structured output is
// left as raw JSON for the caller (or GetObjectBatch) to decode.
type RawResponse = BatchResponse[json.RawMessage]

// ResponseError describes why an individual request produced no output.
// Code carries the vendor's outcome tag, not a generic placeholder.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DefaultErrorMessage is used when a vendor reports a failed request without a message.
const DefaultErrorMessage = "Request failed"

// NewResponseError builds a ResponseError, falling back to DefaultErrorMessage
// when message is empty.
func NewResponseError(code, message string) *ResponseError {
	if message == "" {
		message = DefaultErrorMessage
	}
	return &ResponseError{Code: code, Message: message}
}

// Usage holds normalized token counts for one request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage normalizes vendor token counts. A non-positive total is replaced
// by prompt+completion.
func NewUsage(prompt, completion, total int) *Usage {
	if total <= 0 {
		total = prompt + completion
	}
	return &Usage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: total}
}

// --- Provider contract ---

// Model submits and tracks batches against one vendor's batch API.
// Implementations hold no mutable state after construction and are safe for
// concurrent use. All state is fetched live from the vendor.
type Model interface {
	// Name returns the provider name (e.g. "openai", "anthropic").
	Name() string

	// ModelID returns the vendor model identifier requests are sent to.
	ModelID() string

	// Submit registers all requests as one vendor batch and returns the
	// vendor-assigned batch ID. Each item's output is constrained to schema.
	Submit(ctx context.Context, requests []BatchRequest, schema Schema) (string, error)

	// Status returns a fresh snapshot of the batch.
	Status(ctx context.Context, batchID string) (Batch, error)

	// Results returns one response per finished request. Returns a
	// results_not_ready BatchError while the vendor has no results yet.
	Results(ctx context.Context, batchID string) ([]RawResponse, error)
}

// Canceller is implemented by models whose vendor supports cancellation.
// Cancelling a batch that is already terminal is rejected by the vendor and
// surfaced as a batch_cancellation_failed BatchError.
type Canceller interface {
	Cancel(ctx context.Context, batchID string) error
}
