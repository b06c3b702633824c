package anthropic

import (
	"encoding/json"

	"github.com/nevindra/llmbatch"
)

// toolName is the forced tool whose input carries the structured output.
const toolName = "format_response"

// responseKey is the single property the tool input schema wraps the
// caller's schema in.
const responseKey = "response"

// formatTool builds the forced tool from the caller's schema.
func formatTool(schema llmbatch.Schema) (tool, error) {
	raw, err := schema.JSON()
	if err != nil {
		return tool{}, err
	}
	desc := schema.Description
	if desc == "" {
		desc = "Respond with the structured output for " + schema.SchemaName() + "."
	}
	return tool{
		Name:        toolName,
		Description: desc,
		InputSchema: inputSchema{
			Type:       "object",
			Properties: map[string]json.RawMessage{responseKey: raw},
			Required:   []string{responseKey},
		},
	}, nil
}

// buildParams returns the message parameters for one request. The system
// prompt is sent as the top-level system field only when present.
func (m *Model) buildParams(req llmbatch.BatchRequest, t tool) messageParams {
	return messageParams{
		Model:       m.model,
		MaxTokens:   m.maxTokens,
		System:      req.SystemPrompt,
		Temperature: m.temperature,
		Messages:    []message{{Role: "user", Content: req.Input}},
		Tools:       []tool{t},
		ToolChoice: toolChoice{
			Type:                   "tool",
			Name:                   toolName,
			DisableParallelToolUse: true,
		},
	}
}

// buildRequest translates requests into the batch creation payload, in order.
func (m *Model) buildRequest(requests []llmbatch.BatchRequest, schema llmbatch.Schema) (createBatchRequest, error) {
	t, err := formatTool(schema)
	if err != nil {
		return createBatchRequest{}, err
	}
	out := createBatchRequest{Requests: make([]batchRequest, 0, len(requests))}
	for _, req := range requests {
		out.Requests = append(out.Requests, batchRequest{
			CustomID: req.CustomID,
			Params:   m.buildParams(req, t),
		})
	}
	return out, nil
}
