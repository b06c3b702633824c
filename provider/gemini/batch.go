package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nevindra/llmbatch"
)

// batchOperation is the top-level JSON returned by both the create and get
// batch endpoints. The batch itself lives in Metadata; once done, the
// inlined results are in Response (older API revisions put them in
// Metadata.Output).
type batchOperation struct {
	Name     string        `json:"name"`
	Metadata batchMetadata `json:"metadata"`
	Done     bool          `json:"done"`
	Response *batchOutput  `json:"response"`
	Error    *rpcStatus    `json:"error"`
}

type batchMetadata struct {
	State       string          `json:"state"`
	DisplayName string          `json:"displayName"`
	CreateTime  string          `json:"createTime"`
	UpdateTime  string          `json:"updateTime"`
	EndTime     string          `json:"endTime"`
	BatchStats  *batchStatsJSON `json:"batchStats"`
	Output      *batchOutput    `json:"output"`
}

type batchStatsJSON struct {
	RequestCount          stringInt `json:"requestCount"`
	SucceededRequestCount stringInt `json:"successfulRequestCount"`
	FailedRequestCount    stringInt `json:"failedRequestCount"`
	PendingRequestCount   stringInt `json:"pendingRequestCount"`
}

// stringInt handles JSON numbers encoded as strings (int64 fields in
// proto3 JSON, e.g. "10" instead of 10).
type stringInt int

func (s *stringInt) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = stringInt(n)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	if str == "" {
		*s = 0
		return nil
	}
	_, err := fmt.Sscanf(str, "%d", &n)
	*s = stringInt(n)
	return err
}

type batchOutput struct {
	InlinedResponses *inlinedResponseList `json:"inlinedResponses"`
}

type inlinedResponseList struct {
	InlinedResponses []inlinedResponse `json:"inlinedResponses"`
}

type inlinedResponse struct {
	Response *generateResponse `json:"response"`
	Error    *rpcStatus        `json:"error"`
	Metadata *requestMetadata  `json:"metadata"`
}

type requestMetadata struct {
	Key string `json:"key"`
}

// rpcStatus is google.rpc.Status.
type rpcStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// inlined returns the inlined results of a finished batch, or nil.
func (op batchOperation) inlined() []inlinedResponse {
	for _, out := range []*batchOutput{op.Response, op.Metadata.Output} {
		if out != nil && out.InlinedResponses != nil && len(out.InlinedResponses.InlinedResponses) > 0 {
			return out.InlinedResponses.InlinedResponses
		}
	}
	return nil
}

// Submit sends every request inline in one batchGenerateContent call.
func (m *Model) Submit(ctx context.Context, requests []llmbatch.BatchRequest, schema llmbatch.Schema) (string, error) {
	if err := llmbatch.ValidateRequests(requests); err != nil {
		return "", creationErr("validate requests", err)
	}
	payload, err := m.buildPayload(requests, schema)
	if err != nil {
		return "", creationErr("build request", err)
	}

	var op batchOperation
	if err := m.doJSON(ctx, http.MethodPost, "models/"+m.model+":batchGenerateContent", payload, &op); err != nil {
		return "", creationErr("create batch", err)
	}
	if op.Name == "" {
		return "", creationErr("create batch", fmt.Errorf("response has no batch name"))
	}
	m.logger.Debug("batch created", "batch_id", op.Name, "requests", len(requests), "state", op.Metadata.State)
	return op.Name, nil
}

// Status returns the current batch snapshot.
func (m *Model) Status(ctx context.Context, batchID string) (llmbatch.Batch, error) {
	op, err := m.retrieve(ctx, batchID)
	if err != nil {
		return llmbatch.Batch{}, llmbatch.NewBatchError(llmbatch.CodeBatchRetrievalFailed, batchID, "retrieve batch", err)
	}
	return toBatch(op), nil
}

// Results decodes the responses inlined in the batch record. Until the
// batch is done and carries them it fails with results_not_ready.
func (m *Model) Results(ctx context.Context, batchID string) ([]llmbatch.RawResponse, error) {
	op, err := m.retrieve(ctx, batchID)
	if err != nil {
		return nil, llmbatch.NewBatchError(llmbatch.CodeResultsRetrievalFailed, batchID, "retrieve batch", err)
	}
	items := op.inlined()
	if len(items) == 0 {
		return nil, llmbatch.NewBatchError(llmbatch.CodeResultsNotReady, batchID,
			fmt.Sprintf("no inlined responses yet (state %s)", op.Metadata.State), nil)
	}

	out := make([]llmbatch.RawResponse, 0, len(items))
	for i, item := range items {
		r, err := decodeInlined(item)
		if err != nil {
			return nil, llmbatch.NewBatchError(llmbatch.CodeResultsRetrievalFailed, batchID,
				fmt.Sprintf("decode response %d", i), err)
		}
		out = append(out, r)
	}
	m.logger.Debug("batch results read", "batch_id", batchID, "results", len(out))
	return out, nil
}

// Cancel requests cancellation of a pending or running batch. Finished
// batches are rejected by the vendor; the rejection is returned.
func (m *Model) Cancel(ctx context.Context, batchID string) error {
	path, err := batchPath(batchID)
	if err != nil {
		return llmbatch.NewBatchError(llmbatch.CodeBatchCancellationFailed, batchID, "cancel batch", err)
	}
	if err := m.doJSON(ctx, http.MethodPost, path+":cancel", nil, nil); err != nil {
		return llmbatch.NewBatchError(llmbatch.CodeBatchCancellationFailed, batchID, "cancel batch", err)
	}
	m.logger.Debug("batch cancel requested", "batch_id", batchID)
	return nil
}

func (m *Model) retrieve(ctx context.Context, batchID string) (batchOperation, error) {
	path, err := batchPath(batchID)
	if err != nil {
		return batchOperation{}, err
	}
	var op batchOperation
	err = m.doJSON(ctx, http.MethodGet, path, nil, &op)
	return op, err
}

// batchPath accepts both "batches/123" and a bare "123".
func batchPath(batchID string) (string, error) {
	id := strings.TrimPrefix(batchID, "batches/")
	if id == "" || strings.ContainsAny(id, "/?#") {
		return "", fmt.Errorf("invalid batch id %q", batchID)
	}
	return "batches/" + id, nil
}

func creationErr(msg string, err error) error {
	return llmbatch.NewBatchError(llmbatch.CodeBatchCreationFailed, "", msg, err)
}

// toBatch converts a Gemini batch operation into a canonical snapshot.
func toBatch(op batchOperation) llmbatch.Batch {
	md := op.Metadata
	status := mapStatus(md.State)
	b := llmbatch.Batch{
		ID:     op.Name,
		Status: status,
	}

	if s := md.BatchStats; s != nil {
		b.RequestCounts = llmbatch.RequestCounts{
			Total:      int(s.RequestCount),
			Completed:  int(s.SucceededRequestCount),
			Failed:     int(s.FailedRequestCount),
			Processing: int(s.PendingRequestCount),
		}
	}

	if t, err := time.Parse(time.RFC3339Nano, md.CreateTime); err == nil {
		b.CreatedAt = t
	}
	if status.Terminal() {
		end := md.EndTime
		if end == "" {
			end = md.UpdateTime
		}
		if t, err := time.Parse(time.RFC3339Nano, end); err == nil {
			b.CompletedAt = &t
		}
	}
	return b
}

// mapStatus converts a Gemini batch state to the canonical status. Both the
// BATCH_STATE_ and JOB_STATE_ spellings are accepted.
func mapStatus(state string) llmbatch.Status {
	switch state {
	case "BATCH_STATE_PENDING", "JOB_STATE_PENDING":
		return llmbatch.StatusValidating
	case "BATCH_STATE_RUNNING", "JOB_STATE_RUNNING":
		return llmbatch.StatusInProgress
	case "BATCH_STATE_SUCCEEDED", "JOB_STATE_SUCCEEDED":
		return llmbatch.StatusCompleted
	case "BATCH_STATE_FAILED", "JOB_STATE_FAILED":
		return llmbatch.StatusFailed
	case "BATCH_STATE_CANCELLED", "JOB_STATE_CANCELLED":
		return llmbatch.StatusCancelled
	case "BATCH_STATE_EXPIRED", "JOB_STATE_EXPIRED":
		return llmbatch.StatusExpired
	default:
		return llmbatch.StatusFailed
	}
}
