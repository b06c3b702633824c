package llmbatch

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"
)

// DefaultSchemaName is used when a Schema has no Name. Vendors that require a
// name for the structured output directive receive it.
const DefaultSchemaName = "response"

// Schema describes the shape every item's structured output must have.
// Adapters translate it into their vendor's mechanism: a response-format
// directive, a forced tool call, or a response schema.
type Schema struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema
}

// SchemaFor reflects a Schema from the Go type T. Definitions are inlined and
// additional properties are disallowed, which is what strict structured
// output modes expect.
func SchemaFor[T any](name, description string) Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(new(T))
	s.Version = ""
	s.ID = ""
	return Schema{Name: name, Description: description, Schema: s}
}

// ParseSchema builds a Schema from a raw JSON Schema document.
func ParseSchema(name string, raw []byte) (Schema, error) {
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return Schema{}, fmt.Errorf("parse schema: %w", err)
	}
	return Schema{Name: name, Schema: &s}, nil
}

// SchemaName returns Name, or DefaultSchemaName when unset.
func (s Schema) SchemaName() string {
	if s.Name == "" {
		return DefaultSchemaName
	}
	return s.Name
}

// Validate reports whether the schema can be sent to a vendor.
func (s Schema) Validate() error {
	if s.Schema == nil {
		return errors.New("output schema is required")
	}
	return nil
}

// JSON returns the JSON Schema document.
func (s Schema) JSON() (json.RawMessage, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	b, err := json.Marshal(s.Schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return b, nil
}

// MarshalJSON lets a Schema be embedded directly in vendor request bodies.
func (s Schema) MarshalJSON() ([]byte, error) {
	return s.JSON()
}
