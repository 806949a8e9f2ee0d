package phonestep

import (
	"context"
	"errors"
	"testing"

	"idv-workers/internal/common/logger"
	"idv-workers/internal/models"
	"idv-workers/internal/proofing/capture"
	"idv-workers/internal/proofing/confirmation"
	"idv-workers/internal/proofing/idvsession"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Doubles
// ==========================

type fakeCaptures struct {
	nextID     string
	createErr  error
	piiErr     error
	sessions   map[string]*capture.Session
	storedPII  models.Applicant
	lookupErr  error
	createUser string
}

func newFakeCaptures() *fakeCaptures {
	return &fakeCaptures{nextID: "cap-1", sessions: map[string]*capture.Session{}}
}

func (f *fakeCaptures) Create(_ context.Context, userID string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createUser = userID
	f.sessions[f.nextID] = &capture.Session{ID: f.nextID, UserID: userID}
	return f.nextID, nil
}

func (f *fakeCaptures) StorePII(_ context.Context, id string, applicant models.Applicant) error {
	if f.piiErr != nil {
		return f.piiErr
	}
	sess, ok := f.sessions[id]
	if !ok {
		return capture.ErrNotFound
	}
	sess.PII = applicant
	f.storedPII = applicant
	return nil
}

func (f *fakeCaptures) Lookup(_ context.Context, id string) (*capture.Session, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	sess, ok := f.sessions[id]
	if !ok {
		return nil, capture.ErrNotFound
	}
	return sess, nil
}

type fakeProofer struct {
	dispatched []string
	err        error
}

func (f *fakeProofer) ProofAddress(_ context.Context, _ models.Applicant, sessionID string) error {
	if f.err != nil {
		return f.err
	}
	f.dispatched = append(f.dispatched, sessionID)
	return nil
}

type fakeConfirmer struct {
	started []string
	err     error
}

func (f *fakeConfirmer) Start(_ context.Context, destination, method string) (confirmation.Session, error) {
	if f.err != nil {
		return confirmation.Session{}, f.err
	}
	f.started = append(f.started, method+":"+destination)
	return confirmation.Session{ID: "conf-1", Destination: destination, DeliveryMethod: method}, nil
}

type fakeCosts struct {
	spCosts    []string
	userCosts  []string
	components []string
}

func (f *fakeCosts) AddSPCost(_ context.Context, issuer string, _ int, token string) error {
	f.spCosts = append(f.spCosts, issuer+":"+token)
	return nil
}

func (f *fakeCosts) AddUserProofingCost(_ context.Context, userID, token string) error {
	f.userCosts = append(f.userCosts, userID+":"+token)
	return nil
}

func (f *fakeCosts) AddProofingComponent(_ context.Context, userID, component, vendor string) error {
	f.components = append(f.components, userID+":"+component+":"+vendor)
	return nil
}

type fakePhones struct {
	phones []string
	err    error
}

func (f *fakePhones) UserPhones(_ context.Context, _ string) ([]string, error) {
	return f.phones, f.err
}

// ==========================
// Test Helper Functions
// ==========================

type stepFixture struct {
	step      *Step
	session   *idvsession.Session
	captures  *fakeCaptures
	proofer   *fakeProofer
	confirmer *fakeConfirmer
	costs     *fakeCosts
	phones    *fakePhones
}

func newFixture(t *testing.T) *stepFixture {
	t.Helper()
	session := idvsession.New("user-1", "urn:example:sp")
	session.Applicant = models.Applicant{"first_name": "Ada", "last_name": "Lovelace"}

	f := &stepFixture{
		session:   session,
		captures:  newFakeCaptures(),
		proofer:   &fakeProofer{},
		confirmer: &fakeConfirmer{},
		costs:     &fakeCosts{},
		phones:    &fakePhones{},
	}
	f.step = New(session, Config{
		Captures:    f.captures,
		Agent:       f.proofer,
		Confirmer:   f.confirmer,
		Costs:       f.costs,
		Phones:      f.phones,
		MaxAttempts: 5,
		Logger:      logger.NewTestLogger(t),
	})
	return f
}

func doneState(success, timedOut bool, fault *models.FaultDetail) AsyncState {
	result := models.NewVerificationResult()
	result.RecordStage("address", "mock:address")
	if fault != nil {
		result.MergeStage(models.Faulted(fault))
	} else {
		result.MergeStage(models.Ok(&models.VendorResult{
			Success:  success,
			Errors:   map[string][]string{},
			TimedOut: timedOut,
		}))
	}
	return AsyncState{
		Kind:   StateDone,
		Result: result,
		PII:    models.Applicant{"first_name": "Ada", "last_name": "Lovelace", "phone": "7035551234"},
	}
}

// ==========================
// Submit Tests
// ==========================

func TestStep_Submit_HappyPath(t *testing.T) {
	f := newFixture(t)

	err := f.step.Submit(context.Background(), Params{Phone: "+1 (703) 555-1234"})

	require.NoError(t, err)
	// Normalized phone and issuer prefix merged into the snapshot.
	assert.Equal(t, "7035551234", f.captures.storedPII["phone"])
	assert.Equal(t, "urn:example:sp", f.captures.storedPII["uuid_prefix"])
	assert.Equal(t, "Ada", f.captures.storedPII["first_name"])
	// Session reference recorded, job dispatched against it, costs recorded.
	assert.Equal(t, "cap-1", f.session.CaptureSessionID(StepName))
	assert.Equal(t, []string{"cap-1"}, f.proofer.dispatched)
	assert.Equal(t, []string{"urn:example:sp:address"}, f.costs.spCosts)
	assert.Equal(t, []string{"user-1:address"}, f.costs.userCosts)
}

func TestStep_Submit_OtherPhoneFallback(t *testing.T) {
	f := newFixture(t)

	err := f.step.Submit(context.Background(), Params{Phone: "other", OtherPhone: "1-202-555-0000"})

	require.NoError(t, err)
	assert.Equal(t, "2025550000", f.captures.storedPII["phone"])
}

func TestStep_Submit_DispatchFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.proofer.err = errors.New("gateway unavailable")

	err := f.step.Submit(context.Background(), Params{Phone: "7035551234"})

	// Scenario: dispatch fails — the caller sees it synchronously.
	require.Error(t, err)
	// The submission never got far enough to charge a cost.
	assert.Empty(t, f.costs.spCosts)
}

func TestStep_Submit_CreateFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.captures.createErr = errors.New("redis down")

	err := f.step.Submit(context.Background(), Params{Phone: "7035551234"})

	require.Error(t, err)
	assert.Empty(t, f.proofer.dispatched)
	assert.Empty(t, f.session.CaptureSessionID(StepName))
}

// ==========================
// ResolveAsyncState Tests
// ==========================

func TestStep_ResolveAsyncState_NoSessionRecorded(t *testing.T) {
	f := newFixture(t)

	state, err := f.step.ResolveAsyncState(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateNone, state.Kind)
}

func TestStep_ResolveAsyncState_SessionEvicted(t *testing.T) {
	f := newFixture(t)
	f.session.SetCaptureSessionID(StepName, "gone")

	state, err := f.step.ResolveAsyncState(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateTimedOut, state.Kind)
}

func TestStep_ResolveAsyncState_InProgress(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.step.Submit(context.Background(), Params{Phone: "7035551234"}))

	state, err := f.step.ResolveAsyncState(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateInProgress, state.Kind)
	assert.Nil(t, state.Result)
}

func TestStep_ResolveAsyncState_Done(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.step.Submit(context.Background(), Params{Phone: "7035551234"}))
	f.captures.sessions["cap-1"].Result = testVerification(true)

	state, err := f.step.ResolveAsyncState(context.Background())

	require.NoError(t, err)
	assert.Equal(t, StateDone, state.Kind)
	require.NotNil(t, state.Result)
	assert.True(t, state.Result.Success)
	assert.NotNil(t, state.PII)
}

func TestStep_ResolveAsyncState_IdempotentUntilCleared(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.step.Submit(context.Background(), Params{Phone: "7035551234"}))
	f.captures.sessions["cap-1"].Result = testVerification(true)

	// Scenario: polling a Done session twice yields the same state.
	first, err := f.step.ResolveAsyncState(context.Background())
	require.NoError(t, err)
	second, err := f.step.ResolveAsyncState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, first.Kind)
	assert.Equal(t, StateDone, second.Kind)

	// Once concluded, the reference is consumed and the state is None.
	f.step.ConcludeDone(context.Background(), first)
	after, err := f.step.ResolveAsyncState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateNone, after.Kind)
}

func testVerification(success bool) *models.VerificationResult {
	r := models.NewVerificationResult()
	r.RecordStage("address", "mock:address")
	r.MergeStage(models.Ok(&models.VendorResult{
		Success: success,
		Errors:  map[string][]string{},
	}))
	return r
}

// ==========================
// ConcludeDone Tests
// ==========================

func TestStep_ConcludeDone_Success(t *testing.T) {
	f := newFixture(t)
	f.session.SetCaptureSessionID(StepName, "cap-1")
	f.phones.phones = []string{"+1 703 555 1234"}

	resp := f.step.ConcludeDone(context.Background(), doneState(true, false, nil))

	assert.True(t, resp.Success)
	assert.Equal(t, 1, f.session.Attempts(StepName))
	// Confirmed applicant persisted into the workflow session.
	assert.Equal(t, "7035551234", f.session.Applicant.Phone())
	assert.Equal(t, "phone", f.session.AddressVerificationMechanism)
	assert.True(t, f.session.VendorPhoneConfirmation)
	assert.True(t, f.session.UserPhoneConfirmation, "confirmed phone matches the one on file")
	// Component recorded against the serving vendor, handshake started.
	assert.Equal(t, []string{"user-1:address_check:mock:address"}, f.costs.components)
	assert.Equal(t, []string{"sms:7035551234"}, f.confirmer.started)
	assert.Equal(t, "conf-1", f.session.ConfirmationSessionID)
	// Session reference consumed.
	assert.Empty(t, f.session.CaptureSessionID(StepName))
	assert.Equal(t, ReasonNone, f.step.FailureReason())
}

func TestStep_ConcludeDone_SuccessPhoneNotOnFile(t *testing.T) {
	f := newFixture(t)
	f.session.SetCaptureSessionID(StepName, "cap-1")
	f.phones.phones = []string{"9195550000"}

	f.step.ConcludeDone(context.Background(), doneState(true, false, nil))

	assert.True(t, f.session.VendorPhoneConfirmation)
	assert.False(t, f.session.UserPhoneConfirmation)
}

func TestStep_ConcludeDone_ConfirmationFailureDoesNotFailStep(t *testing.T) {
	f := newFixture(t)
	f.session.SetCaptureSessionID(StepName, "cap-1")
	f.confirmer.err = errors.New("sns throttled")

	resp := f.step.ConcludeDone(context.Background(), doneState(true, false, nil))

	assert.True(t, resp.Success)
	assert.Empty(t, f.session.ConfirmationSessionID)
	assert.True(t, f.session.VendorPhoneConfirmation)
}

func TestStep_ConcludeDone_CleanDeclineChargesAttempt(t *testing.T) {
	f := newFixture(t)
	f.session.SetCaptureSessionID(StepName, "cap-1")

	resp := f.step.ConcludeDone(context.Background(), doneState(false, false, nil))

	// Scenario: vendor declines — attempt charged, warning reason.
	assert.False(t, resp.Success)
	assert.Equal(t, 1, f.session.Attempts(StepName))
	assert.Equal(t, ReasonWarning, f.step.FailureReason())
	assert.Empty(t, f.session.CaptureSessionID(StepName))
	assert.Empty(t, f.confirmer.started)
}

func TestStep_ConcludeDone_TimeoutDoesNotChargeAttempt(t *testing.T) {
	f := newFixture(t)
	f.session.SetCaptureSessionID(StepName, "cap-1")

	resp := f.step.ConcludeDone(context.Background(), doneState(false, true, nil))

	// Scenario: vendor timed out — no attempt charged, timeout reason.
	assert.False(t, resp.Success)
	assert.Equal(t, 0, f.session.Attempts(StepName))
	assert.Equal(t, ReasonTimeout, f.step.FailureReason())
	assert.Empty(t, f.session.CaptureSessionID(StepName))
}

func TestStep_ConcludeDone_FaultDoesNotChargeAttempt(t *testing.T) {
	f := newFixture(t)
	f.session.SetCaptureSessionID(StepName, "cap-1")

	resp := f.step.ConcludeDone(context.Background(), doneState(false, false,
		&models.FaultDetail{Code: "VENDOR_FAULT", Message: "boom"}))

	// Scenario: job failed — no attempt charged, jobfail reason.
	assert.False(t, resp.Success)
	assert.Equal(t, 0, f.session.Attempts(StepName))
	assert.Equal(t, ReasonJobFail, f.step.FailureReason())
}

func TestStep_ConcludeDone_ResponseCarriesExtra(t *testing.T) {
	f := newFixture(t)
	f.session.SetCaptureSessionID(StepName, "cap-1")

	resp := f.step.ConcludeDone(context.Background(), doneState(false, true, nil))

	assert.Contains(t, resp.Extra, "messages")
	assert.Contains(t, resp.Extra, "timedOut")
	assert.Contains(t, resp.Extra, "context")
	assert.NotContains(t, resp.Extra, "success")
	assert.NotContains(t, resp.Extra, "errors")
}

// ==========================
// FailureReason Precedence Tests
// ==========================

func TestStep_FailureReason_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		attempts int
		state    AsyncState
		expected Reason
	}{
		{
			name:     "attempts exhausted beats everything",
			attempts: 5,
			state:    doneState(false, false, &models.FaultDetail{Code: "VENDOR_FAULT", Message: "boom"}),
			expected: ReasonFail,
		},
		{
			name:     "timeout beats fault",
			attempts: 0,
			state:    doneState(false, true, nil),
			expected: ReasonTimeout,
		},
		{
			name:     "fault beats warning",
			attempts: 0,
			state:    doneState(false, false, &models.FaultDetail{Code: "VENDOR_FAULT", Message: "boom"}),
			expected: ReasonJobFail,
		},
		{
			name:     "clean decline warns",
			attempts: 0,
			state:    doneState(false, false, nil),
			expected: ReasonWarning,
		},
		{
			name:     "success clears",
			attempts: 0,
			state:    doneState(true, false, nil),
			expected: ReasonNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.session.SetCaptureSessionID(StepName, "cap-1")
			for i := 0; i < tt.attempts; i++ {
				f.session.IncrementAttempts(StepName)
			}

			f.step.ConcludeDone(context.Background(), tt.state)

			assert.Equal(t, tt.expected, f.step.FailureReason())
		})
	}
}

func TestStep_FailureReason_FaultClassifiedAsJobFail(t *testing.T) {
	f := newFixture(t)
	f.session.SetCaptureSessionID(StepName, "cap-1")

	f.step.ConcludeDone(context.Background(), doneState(false, false,
		&models.FaultDetail{Code: "VENDOR_FAULT", Message: "boom"}))

	assert.Equal(t, ReasonJobFail, f.step.FailureReason())
}

func TestStep_FailureReason_ExhaustionWithCleanDeclines(t *testing.T) {
	f := newFixture(t)

	// Scenario: repeated clean declines exhaust the budget; timeouts in
	// between never charge it.
	for i := 0; i < 4; i++ {
		f.session.SetCaptureSessionID(StepName, "cap-1")
		f.step.ConcludeDone(context.Background(), doneState(false, false, nil))
		assert.Equal(t, i+1, f.session.Attempts(StepName))
	}

	f.session.SetCaptureSessionID(StepName, "cap-1")
	f.step.ConcludeDone(context.Background(), doneState(false, true, nil))
	assert.Equal(t, 4, f.session.Attempts(StepName), "timeout must not charge the budget")
	assert.Equal(t, ReasonTimeout, f.step.FailureReason())

	f.session.SetCaptureSessionID(StepName, "cap-1")
	f.step.ConcludeDone(context.Background(), doneState(false, false, nil))
	assert.Equal(t, 5, f.session.Attempts(StepName))
	assert.Equal(t, ReasonFail, f.step.FailureReason())
}

// ==========================
// Phone Normalization Tests
// ==========================

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"bare digits", "7035551234", "7035551234"},
		{"formatted", "(703) 555-1234", "7035551234"},
		{"with country code", "+1 703 555 1234", "7035551234"},
		{"dashed with country code", "1-202-555-0000", "2025550000"},
		{"eleven digits not US", "27035551234", "27035551234"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.raw))
		})
	}
}
