package vendors

import (
	"context"

	"idv-workers/internal/models"
)

// MockVendor confirms every applicant that carries a non-empty first name
// and last name. Used in development configs and tests.
type MockVendor struct {
	stage string
	name  string
}

func NewMockVendor(stage, name string) *MockVendor {
	return &MockVendor{stage: stage, name: name}
}

func (v *MockVendor) Stage() string { return v.stage }
func (v *MockVendor) Name() string  { return v.name }

func (v *MockVendor) Proof(_ context.Context, applicant models.Applicant) models.StageOutcome {
	result := &models.VendorResult{
		Errors:   map[string][]string{},
		Messages: []string{v.name + ": mock check"},
	}

	if applicant["first_name"] == "" {
		result.Errors["first_name"] = []string{"is required"}
	}
	if applicant["last_name"] == "" {
		result.Errors["last_name"] = []string{"is required"}
	}
	result.Success = len(result.Errors) == 0

	return models.Ok(result)
}
