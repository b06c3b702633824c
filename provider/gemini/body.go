package gemini

import (
	"encoding/json"

	"github.com/nevindra/llmbatch"
)

type createBatchPayload struct {
	Batch batchSpec `json:"batch"`
}

type batchSpec struct {
	DisplayName string      `json:"display_name,omitempty"`
	InputConfig inputConfig `json:"input_config"`
}

type inputConfig struct {
	Requests inlinedRequests `json:"requests"`
}

type inlinedRequests struct {
	Requests []inlinedRequest `json:"requests"`
}

type inlinedRequest struct {
	Request  generateRequest `json:"request"`
	Metadata requestMetadata `json:"metadata"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text    *string `json:"text,omitempty"`
	Thought bool    `json:"thought,omitempty"`
}

type generationConfig struct {
	ResponseMimeType   string          `json:"responseMimeType"`
	ResponseJSONSchema json.RawMessage `json:"responseJsonSchema"`
	MaxOutputTokens    int             `json:"maxOutputTokens,omitempty"`
	Temperature        *float64        `json:"temperature,omitempty"`
}

func textPart(s string) part { return part{Text: &s} }

// buildRequest returns the generateContent request for one input. The
// system instruction is only present when the request has a system prompt.
func (m *Model) buildRequest(req llmbatch.BatchRequest, schema json.RawMessage) generateRequest {
	gr := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{textPart(req.Input)}}},
		GenerationConfig: generationConfig{
			ResponseMimeType:   "application/json",
			ResponseJSONSchema: schema,
			MaxOutputTokens:    m.maxTokens,
			Temperature:        m.temperature,
		},
	}
	if req.SystemPrompt != "" {
		gr.SystemInstruction = &content{Parts: []part{textPart(req.SystemPrompt)}}
	}
	return gr
}

// buildPayload translates requests into the batch creation payload, in
// order, keying each by its custom id.
func (m *Model) buildPayload(requests []llmbatch.BatchRequest, schema llmbatch.Schema) (createBatchPayload, error) {
	raw, err := schema.JSON()
	if err != nil {
		return createBatchPayload{}, err
	}
	reqs := make([]inlinedRequest, 0, len(requests))
	for _, req := range requests {
		reqs = append(reqs, inlinedRequest{
			Request:  m.buildRequest(req, raw),
			Metadata: requestMetadata{Key: req.CustomID},
		})
	}
	return createBatchPayload{Batch: batchSpec{
		DisplayName: m.displayName,
		InputConfig: inputConfig{Requests: inlinedRequests{Requests: reqs}},
	}}, nil
}
