package llmbatch

import (
	"encoding/json"
	"strings"
	"testing"
)

type sentiment struct {
	Label      string  `json:"label" jsonschema:"enum=positive,enum=negative,enum=neutral"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes,omitempty"`
}

func TestSchemaFor(t *testing.T) {
	s := SchemaFor[sentiment]("sentiment", "Classify the sentiment")
	if s.SchemaName() != "sentiment" {
		t.Errorf("SchemaName() = %q", s.SchemaName())
	}

	raw, err := s.JSON()
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}
	var doc struct {
		Type                 string                     `json:"type"`
		Properties           map[string]json.RawMessage `json:"properties"`
		Required             []string                   `json:"required"`
		AdditionalProperties *bool                      `json:"additionalProperties"`
		Defs                 json.RawMessage            `json:"$defs"`
		Schema               string                     `json:"$schema"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.Type != "object" {
		t.Errorf("type = %q, want object", doc.Type)
	}
	for _, p := range []string{"label", "confidence", "notes"} {
		if _, ok := doc.Properties[p]; !ok {
			t.Errorf("missing property %q in %s", p, raw)
		}
	}
	if strings.Join(doc.Required, ",") != "label,confidence" {
		t.Errorf("required = %v, want [label confidence]", doc.Required)
	}
	if doc.AdditionalProperties == nil || *doc.AdditionalProperties {
		t.Errorf("additionalProperties should be false: %s", raw)
	}
	if doc.Defs != nil || doc.Schema != "" {
		t.Errorf("schema should be self-contained without $schema: %s", raw)
	}
}

func TestParseSchema(t *testing.T) {
	s, err := ParseSchema("", []byte(`{"type":"object","properties":{"x":{"type":"integer"}}}`))
	if err != nil {
		t.Fatalf("ParseSchema: %v", err)
	}
	if s.SchemaName() != DefaultSchemaName {
		t.Errorf("SchemaName() = %q, want %q", s.SchemaName(), DefaultSchemaName)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"x":{"type":"integer"}`) {
		t.Errorf("round trip lost properties: %s", raw)
	}

	if _, err := ParseSchema("bad", []byte(`{`)); err == nil {
		t.Error("expected error for malformed schema")
	}
}

func TestSchemaValidate(t *testing.T) {
	var s Schema
	if err := s.Validate(); err == nil {
		t.Error("expected error for nil schema")
	}
	if _, err := s.JSON(); err == nil {
		t.Error("JSON should fail for nil schema")
	}
}
