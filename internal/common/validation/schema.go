// Package validation checks worker job payloads against JSON schemas before
// any field reaches domain code.
package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateDocument validates a raw JSON document against a schema expressed
// as a Go map. Returns nil when the document conforms.
func ValidateDocument(schema map[string]interface{}, document string) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewStringLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("document failed validation: %v", errs)
	}

	return nil
}
