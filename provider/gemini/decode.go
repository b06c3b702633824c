package gemini

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/nevindra/llmbatch"
)

// Per-item error codes produced locally rather than by the vendor.
const (
	codeInvalidOutput = "invalid_output"
	codeEmptyResponse = "empty_response"
	codeBlocked       = "blocked"
)

type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	PromptFeedback *promptFeedback `json:"promptFeedback"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// decodeInlined converts one inlined batch result into a response. An item
// without a metadata key cannot be correlated and is an error.
func decodeInlined(item inlinedResponse) (llmbatch.RawResponse, error) {
	if item.Metadata == nil || item.Metadata.Key == "" {
		return llmbatch.RawResponse{}, errors.New("inlined response has no metadata key")
	}
	out := llmbatch.RawResponse{CustomID: item.Metadata.Key}

	if e := item.Error; e != nil {
		out.Error = llmbatch.NewResponseError(statusCode(e), e.Message)
		return out, nil
	}
	if item.Response == nil {
		out.Error = llmbatch.NewResponseError(codeEmptyResponse, "inlined result has no response")
		return out, nil
	}

	resp := item.Response
	if u := resp.UsageMetadata; u != nil {
		out.Usage = llmbatch.NewUsage(u.PromptTokenCount, u.CandidatesTokenCount, u.TotalTokenCount)
	}
	out.Output, out.Error = extractOutput(resp)
	return out, nil
}

// extractOutput concatenates the first candidate's non-thought text parts
// and parses them as the JSON value responseJsonSchema constrains.
func extractOutput(resp *generateResponse) (*json.RawMessage, *llmbatch.ResponseError) {
	if len(resp.Candidates) == 0 {
		if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" {
			return nil, llmbatch.NewResponseError(codeBlocked, "prompt blocked: "+pf.BlockReason)
		}
		return nil, llmbatch.NewResponseError(codeEmptyResponse, "response has no candidates")
	}

	c := resp.Candidates[0]
	var text strings.Builder
	for _, p := range c.Content.Parts {
		if p.Thought || p.Text == nil {
			continue
		}
		text.WriteString(*p.Text)
	}
	if text.Len() == 0 {
		msg := "response has no text"
		if c.FinishReason != "" {
			msg += " (finish reason " + c.FinishReason + ")"
		}
		return nil, llmbatch.NewResponseError(codeEmptyResponse, msg)
	}

	var v json.RawMessage
	if err := json.Unmarshal([]byte(text.String()), &v); err != nil {
		return nil, llmbatch.NewResponseError(codeInvalidOutput, "text is not valid JSON: "+err.Error())
	}
	if llmbatch.IsNullJSON(v) {
		return nil, llmbatch.NewResponseError(codeInvalidOutput, "text is null")
	}
	return &v, nil
}

// statusCode prefers the canonical status name (e.g. "INVALID_ARGUMENT").
func statusCode(s *rpcStatus) string {
	if s.Status != "" {
		return s.Status
	}
	if s.Code != 0 {
		return "rpc_" + strconv.Itoa(s.Code)
	}
	return "request_failed"
}
