package openai

import (
	"encoding/json"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/nevindra/llmbatch"
)

// batchLine is one line of the uploaded NDJSON input file.
type batchLine struct {
	CustomID string                         `json:"custom_id"`
	Method   string                         `json:"method"`
	URL      goopenai.BatchEndpoint         `json:"url"`
	Body     goopenai.ChatCompletionRequest `json:"body"`
}

// rawJSONSchema passes an already-encoded schema through go-openai's
// json.Marshaler-typed Schema field.
type rawJSONSchema json.RawMessage

func (r rawJSONSchema) MarshalJSON() ([]byte, error) {
	return json.RawMessage(r), nil
}

// buildMessages returns the chat messages for one request. The system message
// is only present when the request has a system prompt.
func buildMessages(req llmbatch.BatchRequest) []goopenai.ChatCompletionMessage {
	msgs := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	return append(msgs, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Input,
	})
}

// responseFormat builds the json_schema directive shared by every line.
func (m *Model) responseFormat(schema llmbatch.Schema) (*goopenai.ChatCompletionResponseFormat, error) {
	raw, err := schema.JSON()
	if err != nil {
		return nil, err
	}
	return &goopenai.ChatCompletionResponseFormat{
		Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
			Name:        schema.SchemaName(),
			Description: schema.Description,
			Schema:      rawJSONSchema(raw),
			Strict:      m.strict,
		},
	}, nil
}

// buildLines translates requests into NDJSON input lines, in order.
func (m *Model) buildLines(requests []llmbatch.BatchRequest, schema llmbatch.Schema) ([]batchLine, error) {
	format, err := m.responseFormat(schema)
	if err != nil {
		return nil, err
	}
	lines := make([]batchLine, 0, len(requests))
	for _, req := range requests {
		body := goopenai.ChatCompletionRequest{
			Model:          m.model,
			Messages:       buildMessages(req),
			ResponseFormat: format,
		}
		if m.maxTokens > 0 {
			body.MaxCompletionTokens = m.maxTokens
		}
		if m.temperature != nil {
			body.Temperature = float32(*m.temperature)
		}
		lines = append(lines, batchLine{
			CustomID: req.CustomID,
			Method:   "POST",
			URL:      goopenai.BatchEndpointChatCompletions,
			Body:     body,
		})
	}
	return lines, nil
}
