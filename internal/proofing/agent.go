// Package proofing implements the identity-proofing core: the multi-stage
// vendor orchestrator, the asynchronous address-proofing path, and the
// step state machines that interpret concluded attempts.
package proofing

import (
	"context"
	"time"

	"idv-workers/internal/common/errors"
	"idv-workers/internal/common/logger"
	"idv-workers/internal/common/metrics"
	"idv-workers/internal/models"
	"idv-workers/internal/proofing/dispatch"
	"idv-workers/internal/proofing/faultreport"
	"idv-workers/internal/proofing/vendors"
)

// CostRecorder is notified once per successful stage completion. Side effect
// only; a recording failure never reaches the workflow.
type CostRecorder interface {
	AddStageCost(ctx context.Context, stage, vendor string)
}

// Agent sequences vendor stages for one verification workflow invocation.
// The synchronous resolve path runs on the caller; the address path crosses
// the job boundary via the dispatcher and reports back through the capture
// session store.
type Agent struct {
	resolution vendors.Vendor
	stateID    vendors.Vendor
	address    vendors.Vendor

	dispatcher dispatch.Dispatcher
	faults     faultreport.Reporter
	costs      CostRecorder
	logger     logger.Logger
}

// NewAgent resolves the configured vendor for every stage up front so a
// misconfigured stage fails at startup, not mid-workflow. dispatcher and
// costs may be nil on processes that never use the corresponding path.
func NewAgent(
	reg *vendors.Registry,
	dispatcher dispatch.Dispatcher,
	faults faultreport.Reporter,
	costs CostRecorder,
	log logger.Logger,
) (*Agent, error) {
	resolution, err := reg.ForStage(vendors.StageResolution)
	if err != nil {
		return nil, err
	}
	stateID, err := reg.ForStage(vendors.StageStateID)
	if err != nil {
		return nil, err
	}
	address, err := reg.ForStage(vendors.StageAddress)
	if err != nil {
		return nil, err
	}

	return &Agent{
		resolution: resolution,
		stateID:    stateID,
		address:    address,
		dispatcher: dispatcher,
		faults:     faults,
		costs:      costs,
		logger:     log,
	}, nil
}

// ProofResolution runs the resolution stage and, when it succeeded and the
// caller asked for it, folds the state-id stage onto the result. Pure
// sequencing: no retries, no I/O beyond vendor delegation.
func (a *Agent) ProofResolution(ctx context.Context, applicant models.Applicant, proofStateID bool) *models.VerificationResult {
	results := models.NewVerificationResult()
	a.submit(ctx, a.resolution, applicant, results)

	if !results.Success || !proofStateID {
		return results
	}

	a.submit(ctx, a.stateID, applicant, results)
	return results
}

// ProofAddress is the asynchronous twin of ProofResolution: it schedules the
// address stage for out-of-process execution keyed by the capture session and
// returns immediately. Only a scheduling failure surfaces here; everything
// later arrives via the capture session.
func (a *Agent) ProofAddress(ctx context.Context, applicant models.Applicant, sessionID string) error {
	if err := a.dispatcher.Dispatch(ctx, dispatch.AddressProofJob{
		SessionID: sessionID,
		Applicant: applicant,
	}); err != nil {
		return errors.NewDispatchFailedError(err)
	}
	return nil
}

// RunAddressStage executes the address vendor synchronously. Called by the
// address-proof worker on the far side of the job boundary.
func (a *Agent) RunAddressStage(ctx context.Context, applicant models.Applicant) *models.VerificationResult {
	results := models.NewVerificationResult()
	a.submit(ctx, a.address, applicant, results)
	return results
}

// submit runs one vendor stage and folds its outcome onto the accumulated
// result. The audit entry is recorded before the vendor call so a crash
// mid-call still leaves its trace.
func (a *Agent) submit(ctx context.Context, v vendors.Vendor, applicant models.Applicant, results *models.VerificationResult) {
	results.RecordStage(v.Stage(), v.Name())

	start := time.Now()
	outcome := v.Proof(ctx, applicant)
	metrics.ProofingStageDuration.WithLabelValues(v.Stage(), v.Name()).Observe(time.Since(start).Seconds())

	if outcome.Fault != nil {
		metrics.ProofingStageFaults.WithLabelValues(v.Stage(), v.Name()).Inc()
		a.faults.Notice(ctx, v.Stage(), v.Name(), outcome.Fault)
	}

	results.MergeStage(outcome)
	metrics.ProofingStagesRun.WithLabelValues(v.Stage(), v.Name(), stageOutcomeLabel(results)).Inc()

	if results.Success && a.costs != nil {
		a.costs.AddStageCost(ctx, v.Stage(), v.Name())
	}
}

func stageOutcomeLabel(results *models.VerificationResult) string {
	switch {
	case results.Fault != nil:
		return "fault"
	case results.TimedOut:
		return "timeout"
	case results.Success:
		return "success"
	default:
		return "unconfirmed"
	}
}
