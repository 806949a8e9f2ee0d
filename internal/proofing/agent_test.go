package proofing

import (
	"context"
	"errors"
	"testing"

	"idv-workers/internal/common/logger"
	"idv-workers/internal/models"
	"idv-workers/internal/proofing/dispatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Doubles
// ==========================

type scriptedVendor struct {
	stage   string
	name    string
	outcome models.StageOutcome
	calls   int
}

func (v *scriptedVendor) Stage() string { return v.stage }
func (v *scriptedVendor) Name() string  { return v.name }
func (v *scriptedVendor) Proof(_ context.Context, _ models.Applicant) models.StageOutcome {
	v.calls++
	return v.outcome
}

type recordingReporter struct {
	notices []string
}

func (r *recordingReporter) Notice(_ context.Context, stage, vendor string, fault *models.FaultDetail) {
	r.notices = append(r.notices, stage+"/"+vendor+"/"+fault.Code)
}

type recordingDispatcher struct {
	jobs []dispatch.AddressProofJob
	err  error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, job dispatch.AddressProofJob) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type recordingCosts struct {
	tokens []string
}

func (c *recordingCosts) AddStageCost(_ context.Context, stage, vendor string) {
	c.tokens = append(c.tokens, stage+":"+vendor)
}

func okOutcome(success bool, messages ...string) models.StageOutcome {
	return models.Ok(&models.VendorResult{
		Success:  success,
		Errors:   map[string][]string{},
		Messages: messages,
	})
}

func testAgent(t *testing.T, resolution, stateID, address *scriptedVendor) (*Agent, *recordingReporter, *recordingDispatcher) {
	t.Helper()
	faults := &recordingReporter{}
	dispatcher := &recordingDispatcher{}
	return &Agent{
		resolution: resolution,
		stateID:    stateID,
		address:    address,
		dispatcher: dispatcher,
		faults:     faults,
		logger:     logger.NewTestLogger(t),
	}, faults, dispatcher
}

func testApplicant() models.Applicant {
	return models.Applicant{"first_name": "Ada", "last_name": "Lovelace"}
}

// ==========================
// ProofResolution Tests
// ==========================

func TestAgent_ProofResolution_RunsBothStagesOnSuccess(t *testing.T) {
	resolution := &scriptedVendor{stage: "resolution", name: "res-v", outcome: okOutcome(true, "resolution ok")}
	stateID := &scriptedVendor{stage: "state_id", name: "sid-v", outcome: okOutcome(true, "state id ok")}
	agent, _, _ := testAgent(t, resolution, stateID, nil)

	result := agent.ProofResolution(context.Background(), testApplicant(), true)

	assert.True(t, result.Success)
	assert.Equal(t, 1, resolution.calls)
	assert.Equal(t, 1, stateID.calls)
	assert.Equal(t, []string{"resolution ok", "state id ok"}, result.Messages)
	require.Len(t, result.Context.Stages, 2)
	assert.Equal(t, "res-v", result.Context.Stages[0].Vendor)
	assert.Equal(t, "sid-v", result.Context.Stages[1].Vendor)
}

func TestAgent_ProofResolution_ShortCircuitsOnResolutionFailure(t *testing.T) {
	resolution := &scriptedVendor{stage: "resolution", name: "res-v", outcome: models.Ok(&models.VendorResult{
		Success: false,
		Errors:  map[string][]string{"ssn": {"not found"}},
	})}
	stateID := &scriptedVendor{stage: "state_id", name: "sid-v", outcome: okOutcome(true)}
	agent, _, _ := testAgent(t, resolution, stateID, nil)

	result := agent.ProofResolution(context.Background(), testApplicant(), true)

	assert.False(t, result.Success)
	assert.Equal(t, 0, stateID.calls, "state id stage must not run after a failed resolution")
	require.Len(t, result.Context.Stages, 1)
	assert.Equal(t, map[string][]string{"ssn": {"not found"}}, result.Errors)
}

func TestAgent_ProofResolution_SkipsStateIDWhenNotRequested(t *testing.T) {
	resolution := &scriptedVendor{stage: "resolution", name: "res-v", outcome: okOutcome(true)}
	stateID := &scriptedVendor{stage: "state_id", name: "sid-v", outcome: okOutcome(true)}
	agent, _, _ := testAgent(t, resolution, stateID, nil)

	result := agent.ProofResolution(context.Background(), testApplicant(), false)

	assert.True(t, result.Success)
	assert.Equal(t, 0, stateID.calls)
}

func TestAgent_ProofResolution_FaultReportedAndRecordedInBand(t *testing.T) {
	resolution := &scriptedVendor{stage: "resolution", name: "res-v", outcome: okOutcome(true, "resolution ok")}
	stateID := &scriptedVendor{stage: "state_id", name: "sid-v", outcome: models.Faulted(
		&models.FaultDetail{Code: "VENDOR_FAULT", Message: "connection reset"},
	)}
	agent, faults, _ := testAgent(t, resolution, stateID, nil)

	result := agent.ProofResolution(context.Background(), testApplicant(), true)

	assert.False(t, result.Success)
	require.NotNil(t, result.Fault)
	assert.Equal(t, "VENDOR_FAULT", result.Fault.Code)
	// The faulted stage still appears in the audit trail.
	require.Len(t, result.Context.Stages, 2)
	// The reporter saw it; control flow did not.
	assert.Equal(t, []string{"state_id/sid-v/VENDOR_FAULT"}, faults.notices)
	// Messages from the earlier stage survive.
	assert.Equal(t, []string{"resolution ok"}, result.Messages)
}

func TestAgent_ProofResolution_RecordsStageCostOnSuccess(t *testing.T) {
	resolution := &scriptedVendor{stage: "resolution", name: "res-v", outcome: okOutcome(true)}
	agent, _, _ := testAgent(t, resolution, nil, nil)
	costs := &recordingCosts{}
	agent.costs = costs

	agent.ProofResolution(context.Background(), testApplicant(), false)

	assert.Equal(t, []string{"resolution:res-v"}, costs.tokens)
}

// ==========================
// ProofAddress / RunAddressStage Tests
// ==========================

func TestAgent_ProofAddress_DispatchesJobWithSessionKey(t *testing.T) {
	agent, _, dispatcher := testAgent(t, nil, nil, nil)

	err := agent.ProofAddress(context.Background(), testApplicant(), "sess-1")

	require.NoError(t, err)
	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, "sess-1", dispatcher.jobs[0].SessionID)
	assert.Equal(t, "Ada", dispatcher.jobs[0].Applicant["first_name"])
}

func TestAgent_ProofAddress_DispatchFailureSurfacesSynchronously(t *testing.T) {
	agent, _, dispatcher := testAgent(t, nil, nil, nil)
	dispatcher.err = errors.New("gateway unavailable")

	err := agent.ProofAddress(context.Background(), testApplicant(), "sess-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISPATCH_FAILED")
}

func TestAgent_RunAddressStage_TimeoutCarriedInResult(t *testing.T) {
	address := &scriptedVendor{stage: "address", name: "addr-v", outcome: models.Ok(&models.VendorResult{
		Success:  false,
		Errors:   map[string][]string{},
		TimedOut: true,
	})}
	agent, faults, _ := testAgent(t, nil, nil, address)

	result := agent.RunAddressStage(context.Background(), testApplicant())

	assert.False(t, result.Success)
	assert.True(t, result.TimedOut)
	assert.Nil(t, result.Fault)
	assert.Empty(t, faults.notices, "a timeout is not a fault")
}
