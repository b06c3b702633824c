package openai

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/nevindra/llmbatch"
)

// assertJSONEqual compares two JSON documents semantically.
func assertJSONEqual(t *testing.T, want, got string) {
	t.Helper()
	var w, g any
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("bad expected JSON %q: %v", want, err)
	}
	if err := json.Unmarshal([]byte(got), &g); err != nil {
		t.Fatalf("got invalid JSON %q: %v", got, err)
	}
	if !reflect.DeepEqual(w, g) {
		t.Errorf("JSON mismatch:\nwant %s\ngot  %s", want, got)
	}
}

func TestDecodeLine(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantOutput string
		wantCode   string
		wantMsg    string
	}{
		{
			name:       "success",
			line:       `{"custom_id":"a","response":{"status_code":200,"body":{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}]}}}`,
			wantOutput: `{"ok":true}`,
		},
		{
			name:     "content is not JSON",
			line:     `{"custom_id":"a","response":{"status_code":200,"body":{"choices":[{"message":{"role":"assistant","content":"sure, here you go"}}]}}}`,
			wantCode: codeInvalidOutput,
		},
		{
			name:     "content is null",
			line:     `{"custom_id":"a","response":{"status_code":200,"body":{"choices":[{"message":{"role":"assistant","content":"null"}}]}}}`,
			wantCode: codeInvalidOutput,
		},
		{
			name:     "refusal",
			line:     `{"custom_id":"a","response":{"status_code":200,"body":{"choices":[{"message":{"role":"assistant","refusal":"I can't help with that."}}]}}}`,
			wantCode: codeRefusal,
			wantMsg:  "I can't help with that.",
		},
		{
			name:     "no choices",
			line:     `{"custom_id":"a","response":{"status_code":200,"body":{"choices":[]}}}`,
			wantCode: codeEmptyResponse,
		},
		{
			name:     "line level error",
			line:     `{"custom_id":"a","response":null,"error":{"code":"batch_expired","message":"This request could not be executed before the completion window expired."}}`,
			wantCode: "batch_expired",
			wantMsg:  "This request could not be executed before the completion window expired.",
		},
		{
			name:     "line level error without message",
			line:     `{"custom_id":"a","error":{"code":"server_error","message":""}}`,
			wantCode: "server_error",
			wantMsg:  llmbatch.DefaultErrorMessage,
		},
		{
			name:     "non-2xx body error",
			line:     `{"custom_id":"a","response":{"status_code":429,"body":{"error":{"message":"Rate limited","type":"rate_limit_error","code":null}}}}`,
			wantCode: "rate_limit_error",
			wantMsg:  "Rate limited",
		},
		{
			name:     "non-2xx without error body",
			line:     `{"custom_id":"a","response":{"status_code":502,"body":"bad gateway"}}`,
			wantCode: "http_502",
			wantMsg:  llmbatch.DefaultErrorMessage,
		},
		{
			name:     "missing body",
			line:     `{"custom_id":"a","response":{"status_code":200}}`,
			wantCode: codeEmptyResponse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeLine([]byte(tt.line))
			if err != nil {
				t.Fatalf("decodeLine: %v", err)
			}
			if got.CustomID != "a" {
				t.Errorf("custom id = %q, want a", got.CustomID)
			}

			if tt.wantCode == "" {
				if got.Error != nil {
					t.Fatalf("unexpected error %+v", got.Error)
				}
				if got.Output == nil {
					t.Fatal("expected output")
				}
				assertJSONEqual(t, tt.wantOutput, string(*got.Output))
				return
			}
			if got.Output != nil {
				t.Errorf("an item never carries both output and error, got output %s", *got.Output)
			}
			if got.Error == nil {
				t.Fatalf("expected %s error", tt.wantCode)
			}
			if got.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Error.Code, tt.wantCode)
			}
			if tt.wantMsg != "" && got.Error.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", got.Error.Message, tt.wantMsg)
			}
		})
	}
}

func TestDecodeLine_Malformed(t *testing.T) {
	if _, err := decodeLine([]byte(`{"custom_id":`)); err == nil {
		t.Error("expected error for truncated line")
	}
	if _, err := decodeLine([]byte(`{"response":{"status_code":200,"body":{}}}`)); err == nil {
		t.Error("expected error for line without custom_id")
	}
}

func TestDecodeLine_Usage(t *testing.T) {
	line := `{"custom_id":"u","response":{"status_code":200,"body":{"choices":[{"message":{"role":"assistant","content":"1"}}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}}}`
	got, err := decodeLine([]byte(line))
	if err != nil {
		t.Fatalf("decodeLine: %v", err)
	}
	want := llmbatch.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4}
	if got.Usage == nil || *got.Usage != want {
		t.Errorf("usage = %+v, want %+v", got.Usage, want)
	}
	assertJSONEqual(t, `1`, string(*got.Output))
}

func TestDecodeLine_NoUsageReported(t *testing.T) {
	line := `{"custom_id":"u","response":{"status_code":200,"body":{"choices":[{"message":{"role":"assistant","content":"{}"}}]}}}`
	got, err := decodeLine([]byte(line))
	if err != nil {
		t.Fatalf("decodeLine: %v", err)
	}
	if got.Usage != nil {
		t.Errorf("usage should be absent when the body reports none, got %+v", got.Usage)
	}
	if got.Output == nil {
		t.Fatal("expected output")
	}
}
