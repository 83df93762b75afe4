package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	procschema "github.com/Semphriss/SDL/schema"
)

var (
	schemaOnce    sync.Once
	processSchema *jsonschema.Schema
	schemaErr     error
)

func loadProcessSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		if err := compiler.AddResource("process.v1.json", bytes.NewReader(procschema.ProcessV1Schema)); err != nil {
			schemaErr = fmt.Errorf("add process schema resource: %w", err)
			return
		}
		processSchema, schemaErr = compiler.Compile("process.v1.json")
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile process schema: %w", schemaErr)
		}
	})
	if schemaErr != nil {
		return nil, schemaErr
	}
	return processSchema, nil
}

func validateAgainstSchema(doc map[string]any) error {
	schema, err := loadProcessSchema()
	if err != nil {
		return fmt.Errorf("load process schema: %w", err)
	}

	normalized, err := normalizeForSchema(doc)
	if err != nil {
		return fmt.Errorf("prepare manifest for schema validation: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		if vErr, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("schema validation failed:\n%s", formatValidationError(vErr))
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

// normalizeForSchema round-trips the YAML document through JSON so numbers
// and nested values take the shapes the schema validator expects.
func normalizeForSchema(doc map[string]any) (any, error) {
	buf := &bytes.Buffer{}
	encoder := json.NewEncoder(buf)
	if err := encoder.Encode(doc); err != nil {
		return nil, err
	}
	decoder := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	decoder.UseNumber()
	var out any
	if err := decoder.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func formatValidationError(err *jsonschema.ValidationError) string {
	var b strings.Builder
	appendValidationError(&b, err, 0)
	return strings.TrimRight(b.String(), "\n")
}

func appendValidationError(b *strings.Builder, err *jsonschema.ValidationError, depth int) {
	location := err.InstanceLocation
	if location == "" {
		location = "/"
	}
	fmt.Fprintf(b, "%s%s: %s\n", strings.Repeat("  ", depth), location, err.Message)
	for _, cause := range err.Causes {
		appendValidationError(b, cause, depth+1)
	}
}
