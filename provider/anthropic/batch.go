package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/nevindra/llmbatch"
)

// Submit sends every request inline in one batch creation call.
func (m *Model) Submit(ctx context.Context, requests []llmbatch.BatchRequest, schema llmbatch.Schema) (string, error) {
	if err := llmbatch.ValidateRequests(requests); err != nil {
		return "", creationErr("validate requests", err)
	}
	payload, err := m.buildRequest(requests, schema)
	if err != nil {
		return "", creationErr("build request", err)
	}

	var b messageBatch
	if err := m.doJSON(ctx, http.MethodPost, batchesPath, payload, &b); err != nil {
		return "", creationErr("create batch", err)
	}
	m.logger.Debug("batch created", "batch_id", b.ID, "requests", len(requests), "status", b.ProcessingStatus)
	return b.ID, nil
}

// Status returns the current batch snapshot.
func (m *Model) Status(ctx context.Context, batchID string) (llmbatch.Batch, error) {
	b, err := m.retrieve(ctx, batchID)
	if err != nil {
		return llmbatch.Batch{}, llmbatch.NewBatchError(llmbatch.CodeBatchRetrievalFailed, batchID, "retrieve batch", err)
	}
	return toBatch(b), nil
}

// Results streams the batch's results file line by line. Until the vendor
// publishes a results URL it fails with results_not_ready.
func (m *Model) Results(ctx context.Context, batchID string) ([]llmbatch.RawResponse, error) {
	b, err := m.retrieve(ctx, batchID)
	if err != nil {
		return nil, resultsErr(batchID, "retrieve batch", err)
	}
	if b.ResultsURL == nil || *b.ResultsURL == "" {
		return nil, llmbatch.NewBatchError(llmbatch.CodeResultsNotReady, batchID,
			fmt.Sprintf("no results url yet (status %s)", b.ProcessingStatus), nil)
	}

	body, err := m.openStream(ctx, *b.ResultsURL)
	if err != nil {
		return nil, resultsErr(batchID, "download results", err)
	}
	defer body.Close()

	out, err := llmbatch.DecodeRecords(body, decodeLine)
	if err != nil {
		return nil, resultsErr(batchID, "decode results", err)
	}
	m.logger.Debug("batch results read", "batch_id", batchID, "results", len(out))
	return out, nil
}

// Cancel asks Anthropic to cancel the batch. Ended batches are rejected by
// the vendor; the rejection is returned.
func (m *Model) Cancel(ctx context.Context, batchID string) error {
	var b messageBatch
	if err := m.doJSON(ctx, http.MethodPost, batchPath(batchID)+"/cancel", nil, &b); err != nil {
		return llmbatch.NewBatchError(llmbatch.CodeBatchCancellationFailed, batchID, "cancel batch", err)
	}
	m.logger.Debug("batch cancel requested", "batch_id", batchID, "status", b.ProcessingStatus)
	return nil
}

func (m *Model) retrieve(ctx context.Context, batchID string) (messageBatch, error) {
	var b messageBatch
	err := m.doJSON(ctx, http.MethodGet, batchPath(batchID), nil, &b)
	return b, err
}

func batchPath(batchID string) string {
	return batchesPath + "/" + url.PathEscape(batchID)
}

func creationErr(msg string, err error) error {
	return llmbatch.NewBatchError(llmbatch.CodeBatchCreationFailed, "", msg, err)
}

func resultsErr(batchID, msg string, err error) error {
	return llmbatch.NewBatchError(llmbatch.CodeResultsRetrievalFailed, batchID, msg, err)
}

// toBatch converts an Anthropic message batch into a canonical snapshot.
// Anthropic has no native total, so Total is the sum of its categories.
func toBatch(b messageBatch) llmbatch.Batch {
	counts := llmbatch.RequestCounts{
		Completed:  b.RequestCounts.Succeeded,
		Failed:     b.RequestCounts.Errored,
		Processing: b.RequestCounts.Processing,
		Cancelled:  b.RequestCounts.Canceled,
		Expired:    b.RequestCounts.Expired,
	}
	counts.Total = counts.Sum()

	return llmbatch.Batch{
		ID:            b.ID,
		Status:        mapStatus(b.ProcessingStatus),
		RequestCounts: counts,
		CreatedAt:     parseTime(b.CreatedAt),
		CompletedAt:   parseTimePtr(b.EndedAt),
		ExpiresAt:     parseTimePtr(b.ExpiresAt),
	}
}

// mapStatus converts an Anthropic processing status to the canonical
// status. ended covers every terminal outcome; per-item results carry the
// detail.
func mapStatus(status string) llmbatch.Status {
	switch status {
	case "in_progress":
		return llmbatch.StatusInProgress
	case "canceling":
		return llmbatch.StatusCancelling
	case "ended":
		return llmbatch.StatusCompleted
	default:
		return llmbatch.StatusFailed
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil
	}
	return &t
}
