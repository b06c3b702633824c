package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nevindra/llmbatch"
)

// Submit writes requests to a temporary NDJSON file, uploads it and registers
// a batch referencing the uploaded file. The temporary file is removed on
// every exit path.
func (m *Model) Submit(ctx context.Context, requests []llmbatch.BatchRequest, schema llmbatch.Schema) (string, error) {
	if err := llmbatch.ValidateRequests(requests); err != nil {
		return "", creationErr("validate requests", err)
	}
	lines, err := m.buildLines(requests, schema)
	if err != nil {
		return "", creationErr("build request lines", err)
	}

	path, err := m.writeInputFile(lines)
	if err != nil {
		return "", creationErr("write input file", err)
	}
	defer m.removeInputFile(path)

	file, err := m.client.CreateFile(ctx, goopenai.FileRequest{
		FileName: filepath.Base(path),
		FilePath: path,
		Purpose:  "batch",
	})
	if err != nil {
		return "", creationErr("upload input file", err)
	}
	m.logger.Debug("batch input uploaded", "file_id", file.ID, "requests", len(lines))

	resp, err := m.client.CreateBatch(ctx, goopenai.CreateBatchRequest{
		InputFileID:      file.ID,
		Endpoint:         goopenai.BatchEndpointChatCompletions,
		CompletionWindow: m.completionWindow,
	})
	if err != nil {
		return "", creationErr("create batch", err)
	}
	m.logger.Debug("batch created", "batch_id", resp.ID, "status", resp.Status)
	return resp.ID, nil
}

// writeInputFile writes lines to a new temporary file and returns its path.
func (m *Model) writeInputFile(lines []batchLine) (path string, err error) {
	f, err := os.CreateTemp(m.tempDir, "llmbatch-*.jsonl")
	if err != nil {
		return "", err
	}
	path = f.Name()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			m.removeInputFile(path)
			path = ""
		}
	}()
	return path, llmbatch.EncodeRecords(f, lines)
}

func (m *Model) removeInputFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("remove batch input file", "path", path, "error", err)
	}
}

// Status returns the current batch snapshot.
func (m *Model) Status(ctx context.Context, batchID string) (llmbatch.Batch, error) {
	resp, err := m.client.RetrieveBatch(ctx, batchID)
	if err != nil {
		return llmbatch.Batch{}, llmbatch.NewBatchError(llmbatch.CodeBatchRetrievalFailed, batchID, "retrieve batch", err)
	}
	return toBatch(resp.Batch), nil
}

// Results downloads the batch's output file, then its error file when
// present, and decodes every non-blank line. Until the vendor has produced
// either file it fails with results_not_ready.
func (m *Model) Results(ctx context.Context, batchID string) ([]llmbatch.RawResponse, error) {
	resp, err := m.client.RetrieveBatch(ctx, batchID)
	if err != nil {
		return nil, resultsErr(batchID, "retrieve batch", err)
	}

	var fileIDs []string
	for _, id := range []*string{resp.OutputFileID, resp.ErrorFileID} {
		if id != nil && *id != "" {
			fileIDs = append(fileIDs, *id)
		}
	}
	if len(fileIDs) == 0 {
		return nil, llmbatch.NewBatchError(llmbatch.CodeResultsNotReady, batchID,
			fmt.Sprintf("no output file yet (status %s)", resp.Status), nil)
	}

	var out []llmbatch.RawResponse
	for _, fileID := range fileIDs {
		got, err := m.readResultFile(ctx, fileID)
		if err != nil {
			return nil, resultsErr(batchID, "read file "+fileID, err)
		}
		out = append(out, got...)
	}
	m.logger.Debug("batch results read", "batch_id", batchID, "files", len(fileIDs), "results", len(out))
	return out, nil
}

func (m *Model) readResultFile(ctx context.Context, fileID string) ([]llmbatch.RawResponse, error) {
	content, err := m.client.GetFileContent(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer content.Close()
	return llmbatch.DecodeRecords(content, decodeLine)
}

// Cancel asks OpenAI to cancel the batch. Terminal batches are rejected by
// the vendor; the rejection is returned.
func (m *Model) Cancel(ctx context.Context, batchID string) error {
	resp, err := m.client.CancelBatch(ctx, batchID)
	if err != nil {
		return llmbatch.NewBatchError(llmbatch.CodeBatchCancellationFailed, batchID, "cancel batch", err)
	}
	m.logger.Debug("batch cancel requested", "batch_id", batchID, "status", resp.Status)
	return nil
}

func creationErr(msg string, err error) error {
	return llmbatch.NewBatchError(llmbatch.CodeBatchCreationFailed, "", msg, err)
}

func resultsErr(batchID, msg string, err error) error {
	return llmbatch.NewBatchError(llmbatch.CodeResultsRetrievalFailed, batchID, msg, err)
}

// toBatch converts an OpenAI batch object into a canonical snapshot.
func toBatch(b goopenai.Batch) llmbatch.Batch {
	status := mapStatus(b.Status)
	counts := llmbatch.RequestCounts{
		Total:     b.RequestCounts.Total,
		Completed: b.RequestCounts.Completed,
		Failed:    b.RequestCounts.Failed,
	}
	if !status.Terminal() {
		counts.Processing = max(counts.Total-counts.Completed-counts.Failed, 0)
	}

	out := llmbatch.Batch{
		ID:            b.ID,
		Status:        status,
		RequestCounts: counts,
		CreatedAt:     unixTime(b.CreatedAt),
		ExpiresAt:     unixTimePtr(b.ExpiresAt),
	}
	switch status {
	case llmbatch.StatusCompleted:
		out.CompletedAt = unixTimePtr(b.CompletedAt)
	case llmbatch.StatusFailed:
		out.CompletedAt = unixTimePtr(b.FailedAt)
	case llmbatch.StatusExpired:
		out.CompletedAt = unixTimePtr(b.ExpiredAt)
	case llmbatch.StatusCancelled:
		out.CompletedAt = unixTimePtr(b.CancelledAt)
	}
	return out
}

// mapStatus converts an OpenAI batch status to the canonical status.
// finalizing is still in progress from the caller's point of view.
func mapStatus(status string) llmbatch.Status {
	switch status {
	case "validating":
		return llmbatch.StatusValidating
	case "in_progress", "finalizing":
		return llmbatch.StatusInProgress
	case "completed":
		return llmbatch.StatusCompleted
	case "failed":
		return llmbatch.StatusFailed
	case "expired":
		return llmbatch.StatusExpired
	case "cancelling":
		return llmbatch.StatusCancelling
	case "cancelled":
		return llmbatch.StatusCancelled
	default:
		return llmbatch.StatusFailed
	}
}

type unixSeconds interface {
	~int | ~int32 | ~int64
}

func unixTime[T unixSeconds](sec T) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}

func unixTimePtr[T unixSeconds](sec *T) *time.Time {
	if sec == nil || *sec == 0 {
		return nil
	}
	t := unixTime(*sec)
	return &t
}
