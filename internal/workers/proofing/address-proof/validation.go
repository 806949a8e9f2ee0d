package addressproof

import "idv-workers/internal/common/validation"

func inputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"sessionId", "applicant"},
		"properties": map[string]interface{}{
			"sessionId": map[string]interface{}{
				"type":      "string",
				"minLength": 1,
			},
			"applicant": map[string]interface{}{
				"type": "object",
				"additionalProperties": map[string]interface{}{
					"type": "string",
				},
			},
		},
	}
}

// validateVariables checks the raw job payload before any PII is decoded
// into domain types.
func validateVariables(variables string) error {
	return validation.ValidateDocument(inputSchema(), variables)
}
