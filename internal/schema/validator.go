// Package schema validates istanbul coverage JSON documents against an
// embedded JSON Schema before they are decoded.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/istanbul-coverage.json
var schemaFS embed.FS

const schemaName = "istanbul-coverage.json"

// SchemaError represents a single schema validation error.
type SchemaError struct {
	Path       string `json:"path"`
	Message    string `json:"message"`
	ParseError bool   `json:"-"` // true when the document is not JSON at all
}

func (e SchemaError) String() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Validator checks coverage documents against the istanbul schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded schema.
func NewValidator() (*Validator, error) {
	data, err := schemaFS.ReadFile("schemas/" + schemaName)
	if err != nil {
		return nil, fmt.Errorf("read embedded schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse embedded schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaName, doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := c.Compile(schemaName)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// ValidateBytes validates a raw JSON document.
func (v *Validator) ValidateBytes(data []byte) []SchemaError {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return []SchemaError{{Message: fmt.Sprintf("failed to parse JSON: %v", err), ParseError: true}}
	}
	return v.ValidateDocument(doc)
}

// ValidateDocument validates an already-decoded document.
func (v *Validator) ValidateDocument(doc any) []SchemaError {
	err := v.schema.Validate(doc)
	if err == nil {
		return nil
	}

	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []SchemaError{{Message: err.Error()}}
	}
	return collectErrors(validationErr)
}

// collectErrors flattens a validation error tree into its leaves.
func collectErrors(ve *jsonschema.ValidationError) []SchemaError {
	if len(ve.Causes) > 0 {
		var out []SchemaError
		for _, cause := range ve.Causes {
			out = append(out, collectErrors(cause)...)
		}
		return out
	}

	path := ""
	if len(ve.InstanceLocation) > 0 {
		path = "/" + strings.Join(ve.InstanceLocation, "/")
	}
	return []SchemaError{{Path: path, Message: ve.Error()}}
}

// Error wraps a set of schema errors for one input.
type Error struct {
	Errors []SchemaError
}

func (e *Error) Error() string {
	if len(e.Errors) == 1 {
		return "schema validation failed: " + e.Errors[0].String()
	}
	return fmt.Sprintf("schema validation failed with %d errors (first: %s)", len(e.Errors), e.Errors[0])
}
