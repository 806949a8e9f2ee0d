// Package costs records proofing cost and component rows. Every operation
// here is a side effect of the verification workflow; failures are logged
// and never affect control flow.
package costs

import (
	"context"
	"database/sql"
	"fmt"

	"idv-workers/internal/common/logger"
)

// Recorder writes cost and component rows to Postgres.
type Recorder struct {
	db     *sql.DB
	issuer string
	logger logger.Logger
}

func NewRecorder(db *sql.DB, issuer string, log logger.Logger) *Recorder {
	return &Recorder{db: db, issuer: issuer, logger: log}
}

// AddSPCost records a service-provider cost entry for a vendor invocation.
func (r *Recorder) AddSPCost(ctx context.Context, issuer string, amount int, token string) error {
	const query = `INSERT INTO sp_costs (issuer, cost_units, cost_type, created_at) VALUES ($1, $2, $3, NOW())`
	if _, err := r.db.ExecContext(ctx, query, issuer, amount, token); err != nil {
		return fmt.Errorf("insert sp cost: %w", err)
	}
	return nil
}

// AddUserProofingCost increments the per-user counter for a cost token.
func (r *Recorder) AddUserProofingCost(ctx context.Context, userID, token string) error {
	const query = `
		INSERT INTO proofing_costs (user_id, cost_type, count, created_at, updated_at)
		VALUES ($1, $2, 1, NOW(), NOW())
		ON CONFLICT (user_id, cost_type)
		DO UPDATE SET count = proofing_costs.count + 1, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, userID, token); err != nil {
		return fmt.Errorf("insert proofing cost: %w", err)
	}
	return nil
}

// AddProofingComponent records which vendor completed a proofing component
// for the user.
func (r *Recorder) AddProofingComponent(ctx context.Context, userID, component, vendor string) error {
	const query = `
		INSERT INTO proofing_components (user_id, component, vendor, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (user_id, component)
		DO UPDATE SET vendor = EXCLUDED.vendor, updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, userID, component, vendor); err != nil {
		return fmt.Errorf("insert proofing component: %w", err)
	}
	return nil
}

// AddStageCost satisfies the agent's cost hook: one notification per
// successful stage completion, logged on failure and otherwise silent.
func (r *Recorder) AddStageCost(ctx context.Context, stage, vendor string) {
	token := stage + ":" + vendor
	if err := r.AddSPCost(ctx, r.issuer, 1, token); err != nil {
		r.logger.Warn("stage cost record failed", map[string]interface{}{
			"stage":  stage,
			"vendor": vendor,
			"error":  err.Error(),
		})
	}
}
