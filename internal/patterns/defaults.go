package patterns

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/guardrail-dev/guardrail/internal/models"
	"github.com/invopop/jsonschema"
)

//go:embed defaults/patterns.json
var defaultDocument []byte

// DefaultDocument returns the built-in pattern document.
func DefaultDocument() []byte {
	out := make([]byte, len(defaultDocument))
	copy(out, defaultDocument)
	return out
}

// Default compiles the built-in pattern document
func Default() (*CompiledSchema, error) {
	s, err := Parse(defaultDocument, FormatJSON)
	if err != nil {
		return nil, err
	}
	s.Source = "builtin"
	return s, nil
}

// JSONSchema describes the pattern document format.
func JSONSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&models.PatternSchema{})
	schema.Title = "guardrail pattern schema"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}
