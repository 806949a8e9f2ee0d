// Package vendors holds the closed set of proofing vendor capabilities and
// the configuration-driven registry that selects between them.
package vendors

import (
	"context"
	"fmt"

	"idv-workers/internal/common/config"
	commonhttp "idv-workers/internal/common/http"
	"idv-workers/internal/common/logger"
	"idv-workers/internal/models"
)

// Proofing stages.
const (
	StageResolution = "resolution"
	StageStateID    = "state_id"
	StageAddress    = "address"
)

// Vendor is one external verification capability. Implementations are
// selected by configuration value, never by runtime type inspection.
type Vendor interface {
	// Stage names the workflow stage this vendor serves.
	Stage() string
	// Name identifies the concrete vendor for the audit trail.
	Name() string
	// Proof submits the applicant and returns a tagged outcome: either the
	// vendor's own result or a captured fault. Proof never returns a Go
	// error; faults travel in-band.
	Proof(ctx context.Context, applicant models.Applicant) models.StageOutcome
}

// Registry resolves the vendor configured for each stage.
type Registry struct {
	byStage map[string]Vendor
}

// NewRegistry builds the stage→vendor mapping from configuration. Unknown
// vendor kinds are a startup error, not a runtime fallback.
func NewRegistry(cfg config.ProofingConfig, log logger.Logger) (*Registry, error) {
	byStage := map[string]Vendor{}

	selections := map[string]string{
		StageResolution: cfg.ResolutionVendor,
		StageStateID:    cfg.StateIDVendor,
		StageAddress:    cfg.AddressVendor,
	}

	for stage, key := range selections {
		v, err := build(stage, key, cfg, log)
		if err != nil {
			return nil, err
		}
		byStage[stage] = v
	}

	return &Registry{byStage: byStage}, nil
}

func build(stage, key string, cfg config.ProofingConfig, log logger.Logger) (Vendor, error) {
	if key == "mock" {
		return NewMockVendor(stage, "mock:"+stage), nil
	}

	vc, ok := cfg.Vendors[key]
	if !ok {
		return nil, fmt.Errorf("vendor %q for stage %q not configured", key, stage)
	}

	switch vc.Kind {
	case "http":
		client := commonhttp.NewClient(vc.TimeoutDuration())
		return NewHTTPVendor(stage, key, vc, client, log), nil
	case "mock":
		return NewMockVendor(stage, key), nil
	default:
		return nil, fmt.Errorf("unknown vendor kind %q for %q", vc.Kind, key)
	}
}

// ForStage returns the vendor serving the given stage.
func (r *Registry) ForStage(stage string) (Vendor, error) {
	v, ok := r.byStage[stage]
	if !ok {
		return nil, fmt.Errorf("no vendor registered for stage %q", stage)
	}
	return v, nil
}
