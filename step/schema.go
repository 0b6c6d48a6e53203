package step

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ducks/llmux/config"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// validateSchema compiles schema into a real JSON-Schema document
// (rather than hand-rolling a recursive type walk) and validates data
// against it.
func validateSchema(name string, schema *config.OutputSchema, data interface{}) error {
	doc := schemaToJSON(schema)
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("building schema document: %w", err)
	}

	resourceName := "llmux-step-" + name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceName, strings.NewReader(string(raw))); err != nil {
		return fmt.Errorf("invalid output_schema: %w", err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("compiling output_schema: %w", err)
	}
	if err := compiled.Validate(data); err != nil {
		return err
	}
	return nil
}

func schemaToJSON(s *config.OutputSchema) map[string]interface{} {
	typ := s.Type
	if typ == "" {
		typ = "object"
	}
	doc := map[string]interface{}{"type": typ}
	if len(s.Required) > 0 {
		doc["required"] = s.Required
	}
	if len(s.Properties) > 0 {
		props := make(map[string]interface{}, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = propertyToJSON(p)
		}
		doc["properties"] = props
	}
	return doc
}

func propertyToJSON(p config.PropertySchema) map[string]interface{} {
	m := map[string]interface{}{"type": p.Type}
	if p.Items != nil {
		m["items"] = propertyToJSON(*p.Items)
	}
	return m
}
