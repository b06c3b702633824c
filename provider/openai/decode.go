package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nevindra/llmbatch"
)

// Per-item error codes produced locally rather than by the vendor.
const (
	codeInvalidOutput = "invalid_output"
	codeRefusal       = "refusal"
	codeEmptyResponse = "empty_response"
)

// resultLine is one line of a batch output or error file.
type resultLine struct {
	ID       string          `json:"id"`
	CustomID string          `json:"custom_id"`
	Response *resultResponse `json:"response"`
	Error    *apiError       `json:"error"`
}

type resultResponse struct {
	StatusCode int             `json:"status_code"`
	RequestID  string          `json:"request_id"`
	Body       json.RawMessage `json:"body"`
}

// apiError is the error object OpenAI uses both at line level and inside an
// error response body. Code may be a string or null.
type apiError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (e *apiError) code() string {
	switch c := e.Code.(type) {
	case string:
		if c != "" {
			return c
		}
	case float64:
		return strconv.Itoa(int(c))
	}
	if e.Type != "" {
		return e.Type
	}
	return "request_failed"
}

type errorBody struct {
	Error *apiError `json:"error"`
}

// decodeLine converts one output/error file line into a response. Only a
// line that is not JSON at all, or has no custom_id, is an error; everything
// the vendor reports about the request itself becomes a per-item error.
func decodeLine(line []byte) (llmbatch.RawResponse, error) {
	var rl resultLine
	if err := json.Unmarshal(line, &rl); err != nil {
		return llmbatch.RawResponse{}, fmt.Errorf("parse result line: %w", err)
	}
	if rl.CustomID == "" {
		return llmbatch.RawResponse{}, errors.New("result line has no custom_id")
	}

	out := llmbatch.RawResponse{CustomID: rl.CustomID}
	if rl.Error != nil {
		out.Error = llmbatch.NewResponseError(rl.Error.code(), rl.Error.Message)
		return out, nil
	}
	if rl.Response == nil || len(rl.Response.Body) == 0 {
		out.Error = llmbatch.NewResponseError(codeEmptyResponse, "result line has no response body")
		return out, nil
	}

	if rl.Response.StatusCode >= 300 {
		var eb errorBody
		if err := json.Unmarshal(rl.Response.Body, &eb); err == nil && eb.Error != nil {
			out.Error = llmbatch.NewResponseError(eb.Error.code(), eb.Error.Message)
		} else {
			out.Error = llmbatch.NewResponseError("http_"+strconv.Itoa(rl.Response.StatusCode), "")
		}
		return out, nil
	}

	var body goopenai.ChatCompletionResponse
	if err := json.Unmarshal(rl.Response.Body, &body); err != nil {
		out.Error = llmbatch.NewResponseError(codeInvalidOutput, "parse response body: "+err.Error())
		return out, nil
	}
	if u := body.Usage; u.PromptTokens != 0 || u.CompletionTokens != 0 || u.TotalTokens != 0 {
		out.Usage = llmbatch.NewUsage(u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	}
	out.Output, out.Error = extractOutput(body)
	return out, nil
}

// extractOutput parses the first choice's content, which the json_schema
// directive makes a JSON-encoded value. A parse failure is reported on the
// item, never dropped.
func extractOutput(body goopenai.ChatCompletionResponse) (*json.RawMessage, *llmbatch.ResponseError) {
	if len(body.Choices) == 0 {
		return nil, llmbatch.NewResponseError(codeEmptyResponse, "response has no choices")
	}
	msg := body.Choices[0].Message
	if msg.Refusal != "" {
		return nil, llmbatch.NewResponseError(codeRefusal, msg.Refusal)
	}
	if msg.Content == "" {
		return nil, llmbatch.NewResponseError(codeEmptyResponse, "response message has no content")
	}
	var v json.RawMessage
	if err := json.Unmarshal([]byte(msg.Content), &v); err != nil {
		return nil, llmbatch.NewResponseError(codeInvalidOutput, "content is not valid JSON: "+err.Error())
	}
	if llmbatch.IsNullJSON(v) {
		return nil, llmbatch.NewResponseError(codeInvalidOutput, "content is null")
	}
	return &v, nil
}
