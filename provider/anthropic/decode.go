package anthropic

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nevindra/llmbatch"
)

// Per-item error codes produced locally rather than by the vendor.
const (
	codeMissingToolUse = "missing_tool_use"
	codeInvalidOutput  = "invalid_output"
	codeMissingResult  = "missing_result"
	codeRequestFailed  = "request_failed"
)

// decodeLine converts one results-file line into a response. Only a line
// that is not JSON, or has no custom_id, is an error.
func decodeLine(line []byte) (llmbatch.RawResponse, error) {
	var rl resultLine
	if err := json.Unmarshal(line, &rl); err != nil {
		return llmbatch.RawResponse{}, fmt.Errorf("parse result line: %w", err)
	}
	if rl.CustomID == "" {
		return llmbatch.RawResponse{}, errors.New("result line has no custom_id")
	}

	out := llmbatch.RawResponse{CustomID: rl.CustomID}
	if rl.Result == nil {
		out.Error = llmbatch.NewResponseError(codeMissingResult, "")
		return out, nil
	}

	if rl.Result.Type != "succeeded" {
		code := rl.Result.Type
		if code == "" {
			code = codeRequestFailed
		}
		out.Error = llmbatch.NewResponseError(code, errorMessage(rl.Result.Error))
		return out, nil
	}
	if rl.Result.Message == nil {
		out.Error = llmbatch.NewResponseError(codeMissingToolUse, "succeeded result has no message")
		return out, nil
	}

	msg := rl.Result.Message
	if u := msg.Usage; u != nil {
		prompt := u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
		out.Usage = llmbatch.NewUsage(prompt, u.OutputTokens, 0)
	}
	out.Output, out.Error = extractToolOutput(msg.Content)
	return out, nil
}

// extractToolOutput finds the forced tool call and returns its "response"
// property. When the model put the fields at the top level of the tool input
// instead, the whole input is used.
func extractToolOutput(blocks []contentBlock) (*json.RawMessage, *llmbatch.ResponseError) {
	for _, b := range blocks {
		if b.Type != "tool_use" || b.Name != toolName {
			continue
		}
		if len(b.Input) == 0 || llmbatch.IsNullJSON(b.Input) {
			return nil, llmbatch.NewResponseError(codeInvalidOutput, "tool input is empty")
		}
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(b.Input, &wrapper); err == nil {
			if inner, ok := wrapper[responseKey]; ok {
				if llmbatch.IsNullJSON(inner) {
					return nil, llmbatch.NewResponseError(codeInvalidOutput, "tool input "+responseKey+" is null")
				}
				return &inner, nil
			}
		}
		input := b.Input
		return &input, nil
	}
	return nil, llmbatch.NewResponseError(codeMissingToolUse, "no "+toolName+" tool call in response")
}

// errorMessage pulls the vendor's message out of an errored result, which may
// be an error envelope or a bare error object.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	var info errorInfo
	if err := json.Unmarshal(raw, &info); err == nil {
		return info.Message
	}
	return ""
}
