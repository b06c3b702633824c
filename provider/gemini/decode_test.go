package gemini

import "testing"

func textResponse(texts ...string) *generateResponse {
	parts := make([]part, len(texts))
	for i := range texts {
		parts[i] = part{Text: &texts[i]}
	}
	return &generateResponse{Candidates: []candidate{{Content: content{Parts: parts}, FinishReason: "STOP"}}}
}

func TestExtractOutput(t *testing.T) {
	tests := []struct {
		name     string
		resp     *generateResponse
		want     string
		wantCode string
	}{
		{"object", textResponse(`{"label":"a","score":1}`), `{"label":"a","score":1}`, ""},
		{"split across parts", textResponse(`[1,`, `2]`), `[1,2]`, ""},
		{"not json", textResponse("label: a"), "", codeInvalidOutput},
		{"null", textResponse("null"), "", codeInvalidOutput},
		{"padded null", textResponse(" null\n"), "", codeInvalidOutput},
		{"no candidates", &generateResponse{}, "", codeEmptyResponse},
		{"blocked", &generateResponse{PromptFeedback: &promptFeedback{BlockReason: "SAFETY"}}, "", codeBlocked},
		{"no text", textResponse(), "", codeEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, rerr := extractOutput(tt.resp)
			if tt.wantCode != "" {
				if out != nil {
					t.Errorf("expected no output, got %s", *out)
				}
				if rerr == nil || rerr.Code != tt.wantCode {
					t.Fatalf("expected %s error, got %+v", tt.wantCode, rerr)
				}
				if rerr.Message == "" {
					t.Error("error message should not be empty")
				}
				return
			}
			if rerr != nil {
				t.Fatalf("unexpected error %+v", rerr)
			}
			if out == nil || string(*out) != tt.want {
				t.Errorf("expected %s, got %v", tt.want, out)
			}
		})
	}
}

func TestDecodeInlined_NullTextIsPerItemError(t *testing.T) {
	got, err := decodeInlined(inlinedResponse{
		Metadata: &requestMetadata{Key: "k"},
		Response: textResponse("null"),
	})
	if err != nil {
		t.Fatalf("decodeInlined: %v", err)
	}
	if got.CustomID != "k" || got.Output != nil {
		t.Fatalf("unexpected response %+v", got)
	}
	if got.Error == nil || got.Error.Code != codeInvalidOutput {
		t.Errorf("expected %s, got %+v", codeInvalidOutput, got.Error)
	}
}
