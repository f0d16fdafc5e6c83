package validation

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"catalog/internal/domain"
	"catalog/internal/ports"
)

//go:embed schemas/object_created_event.schema.json
var objectCreatedEventSchema []byte

//go:embed schemas/import_row.schema.json
var importRowSchema []byte

// JSONSchemaValidator implements ports.SchemaValidator using compiled,
// embedded JSON Schemas looked up by name.
type JSONSchemaValidator struct {
	schemas map[string]*jsonschema.Schema
}

var _ ports.SchemaValidator = (*JSONSchemaValidator)(nil)

// NewJSONSchemaValidator compiles all embedded schemas.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	schemas := make(map[string]*jsonschema.Schema)

	sources := map[string][]byte{
		domain.ObjectCreatedEventSchema: objectCreatedEventSchema,
		domain.ImportRowSchema:          importRowSchema,
	}
	for name, raw := range sources {
		resource := name + ".schema.json"
		if err := compiler.AddResource(resource, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("failed to load %s schema: %w", name, err)
		}
		schema, err := compiler.Compile(resource)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", name, err)
		}
		schemas[name] = schema
	}

	return &JSONSchemaValidator{schemas: schemas}, nil
}

func (v *JSONSchemaValidator) Validate(ctx context.Context, name string, payload []byte) error {
	schema, exists := v.schemas[name]
	if !exists {
		return fmt.Errorf("no schema found for %s", name)
	}

	var data interface{}
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}

	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("validation failed for %s: %w", name, err)
	}
	return nil
}
