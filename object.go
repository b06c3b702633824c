package llmbatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// CreateObjectBatchParams are the inputs of CreateObjectBatch.
type CreateObjectBatchParams struct {
	Model    Model
	Requests []BatchRequest
	Schema   Schema
}

// CreateObjectBatchResult names the submitted batch.
type CreateObjectBatchResult struct {
	BatchID string `json:"batch_id"`
}

// CreateObjectBatch submits requests as one batch whose per-item outputs are
// constrained to p.Schema. It is a pass-through to p.Model.Submit.
func CreateObjectBatch(ctx context.Context, p CreateObjectBatchParams) (CreateObjectBatchResult, error) {
	id, err := p.Model.Submit(ctx, p.Requests, p.Schema)
	if err != nil {
		return CreateObjectBatchResult{}, err
	}
	return CreateObjectBatchResult{BatchID: id}, nil
}

// GetObjectBatchParams are the inputs of GetObjectBatch.
type GetObjectBatchParams struct {
	Model   Model
	BatchID string
}

// GetObjectBatchResult is a status snapshot plus, once the batch completed,
// one typed response per finished request. Results is nil unless
// Batch.Status is StatusCompleted.
type GetObjectBatchResult[T any] struct {
	Batch   Batch              `json:"batch"`
	Results []BatchResponse[T] `json:"results,omitempty"`
}

// OutputDecodeFailed is the per-item error code used when a raw output does
// not decode into the caller's type.
const OutputDecodeFailed = "output_decode_failed"

// GetObjectBatch fetches the batch status and, if and only if the status is
// completed, its results decoded into T. Results are never fetched for
// in-progress, failed, cancelled or expired batches.
func GetObjectBatch[T any](ctx context.Context, p GetObjectBatchParams) (GetObjectBatchResult[T], error) {
	b, err := p.Model.Status(ctx, p.BatchID)
	if err != nil {
		return GetObjectBatchResult[T]{}, err
	}
	out := GetObjectBatchResult[T]{Batch: b}
	if b.Status != StatusCompleted {
		return out, nil
	}

	raw, err := p.Model.Results(ctx, p.BatchID)
	if err != nil {
		return GetObjectBatchResult[T]{}, err
	}
	out.Results = DecodeResponses[T](raw)
	return out, nil
}

// DecodeResponses converts raw responses into typed ones. An output that does
// not decode into T becomes an OutputDecodeFailed error on that item; unknown
// object fields are rejected.
func DecodeResponses[T any](raw []RawResponse) []BatchResponse[T] {
	out := make([]BatchResponse[T], 0, len(raw))
	for _, r := range raw {
		typed := BatchResponse[T]{CustomID: r.CustomID, Error: r.Error, Usage: r.Usage}
		if r.Output != nil {
			if IsNullJSON(*r.Output) {
				typed.Error = NewResponseError(OutputDecodeFailed, "output is null")
				out = append(out, typed)
				continue
			}
			v, err := decodeStrict[T](*r.Output)
			if err != nil {
				typed.Error = NewResponseError(OutputDecodeFailed, err.Error())
			} else {
				typed.Output = &v
			}
		}
		out = append(out, typed)
	}
	return out
}

// IsNullJSON reports whether raw is the JSON literal null, ignoring
// surrounding whitespace. A null structured output carries no answer.
func IsNullJSON(raw []byte) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeStrict[T any](data json.RawMessage) (T, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("decode output: %w", err)
	}
	return v, nil
}

// CancelBatch asks the vendor to cancel a batch. Models that do not implement
// Canceller fail with a batch_cancellation_failed error wrapping
// ErrCancelUnsupported.
func CancelBatch(ctx context.Context, m Model, batchID string) error {
	c, ok := m.(Canceller)
	if !ok {
		return NewBatchError(CodeBatchCancellationFailed, batchID, m.Name()+" cannot cancel batches", ErrCancelUnsupported)
	}
	return c.Cancel(ctx, batchID)
}

// ValidateRequests checks a request list before submission: it must be
// non-empty and every CustomID must be set and unique.
func ValidateRequests(requests []BatchRequest) error {
	if len(requests) == 0 {
		return fmt.Errorf("%w: no requests", ErrInvalidRequests)
	}
	seen := make(map[string]int, len(requests))
	for i, r := range requests {
		if r.CustomID == "" {
			return fmt.Errorf("%w: request %d has no custom id", ErrInvalidRequests, i)
		}
		if j, dup := seen[r.CustomID]; dup {
			return fmt.Errorf("%w: custom id %q used by requests %d and %d", ErrInvalidRequests, r.CustomID, j, i)
		}
		seen[r.CustomID] = i
	}
	return nil
}
