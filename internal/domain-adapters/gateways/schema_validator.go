package gateways

import (
	_ "embed"
	"fmt"

	"github.com/kaptinlin/jsonschema"

	"github.com/meator/android-tools-static/internal/domain/entities"
	"github.com/meator/android-tools-static/internal/domain/interfaces/gateways"
)

//go:embed schema/bom-1.6-subset.schema.json
var bomSubsetSchema []byte

// schemaValidator checks documents against the embedded CycloneDX subset
type schemaValidator struct {
	schema *jsonschema.Schema
}

var _ gateways.SchemaValidator = (*schemaValidator)(nil)

// NewSchemaValidator compiles the embedded schema
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewSchemaValidator() (*schemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile(bomSubsetSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &schemaValidator{schema: schema}, nil
}

// Validate reports a schema violation in data
func (v *schemaValidator) Validate(data []byte) error {
	result := v.schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %v", entities.ErrSchemaViolation, result.Errors)
}
