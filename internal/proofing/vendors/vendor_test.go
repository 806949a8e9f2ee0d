package vendors

import (
	"context"
	"testing"

	"idv-workers/internal/common/config"
	"idv-workers/internal/common/logger"
	"idv-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Registry Tests
// ==========================

func TestNewRegistry_MockSelections(t *testing.T) {
	cfg := config.ProofingConfig{
		ResolutionVendor: "mock",
		StateIDVendor:    "mock",
		AddressVendor:    "mock",
	}

	reg, err := NewRegistry(cfg, logger.NewTestLogger(t))
	require.NoError(t, err)

	for _, stage := range []string{StageResolution, StageStateID, StageAddress} {
		v, err := reg.ForStage(stage)
		require.NoError(t, err)
		assert.Equal(t, stage, v.Stage())
		assert.Equal(t, "mock:"+stage, v.Name())
	}
}

func TestNewRegistry_ConfiguredHTTPVendor(t *testing.T) {
	cfg := config.ProofingConfig{
		ResolutionVendor: "mock",
		StateIDVendor:    "mock",
		AddressVendor:    "instant_verify",
		Vendors: map[string]config.VendorConfig{
			"instant_verify": {Kind: "http", BaseURL: "http://localhost:9090", Timeout: 5000},
		},
	}

	reg, err := NewRegistry(cfg, logger.NewTestLogger(t))
	require.NoError(t, err)

	v, err := reg.ForStage(StageAddress)
	require.NoError(t, err)
	assert.Equal(t, "instant_verify", v.Name())
}

func TestNewRegistry_UnknownVendorIsStartupError(t *testing.T) {
	cfg := config.ProofingConfig{
		ResolutionVendor: "mock",
		StateIDVendor:    "mock",
		AddressVendor:    "nonexistent",
	}

	_, err := NewRegistry(cfg, logger.NewTestLogger(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestNewRegistry_UnknownKindIsStartupError(t *testing.T) {
	cfg := config.ProofingConfig{
		ResolutionVendor: "soap_vendor",
		StateIDVendor:    "mock",
		AddressVendor:    "mock",
		Vendors: map[string]config.VendorConfig{
			"soap_vendor": {Kind: "soap"},
		},
	}

	_, err := NewRegistry(cfg, logger.NewTestLogger(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown vendor kind")
}

func TestRegistry_ForStage_Unregistered(t *testing.T) {
	reg := &Registry{byStage: map[string]Vendor{}}

	_, err := reg.ForStage("address")

	assert.Error(t, err)
}

// ==========================
// Mock Vendor Tests
// ==========================

func TestMockVendor_Proof(t *testing.T) {
	tests := []struct {
		name           string
		applicant      models.Applicant
		expectSuccess  bool
		expectedErrors []string
	}{
		{
			name:          "complete applicant confirms",
			applicant:     models.Applicant{"first_name": "Ada", "last_name": "Lovelace"},
			expectSuccess: true,
		},
		{
			name:           "missing first name declines",
			applicant:      models.Applicant{"last_name": "Lovelace"},
			expectSuccess:  false,
			expectedErrors: []string{"first_name"},
		},
		{
			name:           "empty applicant declines on both",
			applicant:      models.Applicant{},
			expectSuccess:  false,
			expectedErrors: []string{"first_name", "last_name"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewMockVendor(StageResolution, "mock:resolution")

			outcome := v.Proof(context.Background(), tt.applicant)

			require.NotNil(t, outcome.Result)
			require.Nil(t, outcome.Fault)
			assert.Equal(t, tt.expectSuccess, outcome.Result.Success)
			for _, field := range tt.expectedErrors {
				assert.Contains(t, outcome.Result.Errors, field)
			}
		})
	}
}
