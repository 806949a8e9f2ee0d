// Package phonestep drives the phone-verification step: it submits the
// applicant's phone for asynchronous address proofing, resolves the job's
// state on later polls, and applies attempt accounting and success side
// effects once the job concludes.
package phonestep

import (
	"context"
	"errors"

	"idv-workers/internal/common/logger"
	"idv-workers/internal/common/metrics"
	"idv-workers/internal/models"
	"idv-workers/internal/proofing/capture"
	"idv-workers/internal/proofing/confirmation"
	"idv-workers/internal/proofing/idvsession"
)

// CaptureStore is the slice of the capture session store this step uses.
type CaptureStore interface {
	Create(ctx context.Context, userID string) (string, error)
	StorePII(ctx context.Context, id string, applicant models.Applicant) error
	Lookup(ctx context.Context, id string) (*capture.Session, error)
}

// AddressProofer schedules the asynchronous address-proof job.
type AddressProofer interface {
	ProofAddress(ctx context.Context, applicant models.Applicant, sessionID string) error
}

// Confirmer starts the out-of-band confirmation handshake on success.
type Confirmer interface {
	Start(ctx context.Context, destination, method string) (confirmation.Session, error)
}

// CostRecorder records proofing cost and component rows.
type CostRecorder interface {
	AddSPCost(ctx context.Context, issuer string, amount int, token string) error
	AddUserProofingCost(ctx context.Context, userID, token string) error
	AddProofingComponent(ctx context.Context, userID, component, vendor string) error
}

// PhoneIndex exposes the phones already on file for a user.
type PhoneIndex interface {
	UserPhones(ctx context.Context, userID string) ([]string, error)
}

const addressCostToken = "address"

// Step is the phone-verification step state machine bound to one workflow
// session. The step mutates the session's fields; the enclosing layer owns
// persisting them.
type Step struct {
	session *idvsession.Session

	captures    CaptureStore
	agent       AddressProofer
	confirmer   Confirmer
	costs       CostRecorder
	phones      PhoneIndex
	maxAttempts int
	logger      logger.Logger

	idvResult *models.VerificationResult
}

// Config carries the step's collaborators and policy knobs.
type Config struct {
	Captures    CaptureStore
	Agent       AddressProofer
	Confirmer   Confirmer
	Costs       CostRecorder
	Phones      PhoneIndex
	MaxAttempts int
	Logger      logger.Logger
}

func New(session *idvsession.Session, cfg Config) *Step {
	return &Step{
		session:     session,
		captures:    cfg.Captures,
		agent:       cfg.Agent,
		confirmer:   cfg.Confirmer,
		costs:       cfg.Costs,
		phones:      cfg.Phones,
		maxAttempts: cfg.MaxAttempts,
		logger:      cfg.Logger,
	}
}

// Submit normalizes the submitted phone, opens a capture session holding the
// applicant snapshot, and dispatches the address-proof job. Control returns
// to the caller immediately; the outcome arrives via ResolveAsyncState on a
// later poll. Only a dispatch failure is reported here.
func (s *Step) Submit(ctx context.Context, params Params) error {
	applicant := s.applicantForSubmission(params)

	sessionID, err := s.captures.Create(ctx, s.session.UserID)
	if err != nil {
		return err
	}
	if err := s.captures.StorePII(ctx, sessionID, applicant); err != nil {
		return err
	}
	s.session.SetCaptureSessionID(StepName, sessionID)

	if err := s.agent.ProofAddress(ctx, applicant, sessionID); err != nil {
		return err
	}

	s.addProofingCost(ctx)
	return nil
}

// ResolveAsyncState computes the step's position relative to its
// asynchronous job. Idempotent: polling a Done session repeatedly yields the
// same state until the session reference is cleared.
func (s *Step) ResolveAsyncState(ctx context.Context) (AsyncState, error) {
	sessionID := s.session.CaptureSessionID(StepName)
	if sessionID == "" {
		return AsyncState{Kind: StateNone}, nil
	}

	sess, err := s.captures.Lookup(ctx, sessionID)
	if errors.Is(err, capture.ErrNotFound) {
		return AsyncState{Kind: StateTimedOut}, nil
	}
	if err != nil {
		return AsyncState{}, err
	}

	switch {
	case sess.Result != nil:
		return AsyncState{Kind: StateDone, Result: sess.Result, PII: sess.PII}, nil
	case sess.PII != nil:
		return AsyncState{Kind: StateInProgress}, nil
	default:
		// Session exists but never received the snapshot; treat as stale.
		return AsyncState{Kind: StateTimedOut}, nil
	}
}

// ConcludeDone applies business policy to a Done state: charge the attempt
// budget for substantive outcomes, apply success side effects, and consume
// the session reference so it cannot be polled again.
func (s *Step) ConcludeDone(ctx context.Context, state AsyncState) StepResponse {
	s.idvResult = state.Result

	if !s.failedDueToTimeoutOrFault() {
		s.session.IncrementAttempts(StepName)
	}

	success := s.idvResult.Success
	if success {
		s.handleSuccessfulProofingAttempt(ctx, state.PII, s.idvResult)
	}

	s.session.ClearCaptureSessionID(StepName)
	metrics.ProofingStepOutcomes.WithLabelValues(StepName, reasonLabel(s.FailureReason())).Inc()

	return StepResponse{
		Success: success,
		Errors:  s.idvResult.Errors,
		Extra:   s.idvResult.Extra(),
	}
}

// FailureReason classifies the concluded attempt, first match wins:
// attempts-exhausted, then timeout, then job failure, then a clean decline.
func (s *Step) FailureReason() Reason {
	if s.session.Attempts(StepName) >= s.maxAttempts {
		return ReasonFail
	}
	if s.idvResult == nil {
		return ReasonNone
	}
	if s.idvResult.TimedOut {
		return ReasonTimeout
	}
	if s.idvResult.Fault != nil {
		return ReasonJobFail
	}
	if !s.idvResult.Success {
		return ReasonWarning
	}
	return ReasonNone
}

func (s *Step) failedDueToTimeoutOrFault() bool {
	return s.idvResult.TimedOut || s.idvResult.Fault != nil
}

func (s *Step) applicantForSubmission(params Params) models.Applicant {
	phone := params.Phone
	if phone == "other" {
		phone = params.OtherPhone
	}
	return s.session.Applicant.With(map[string]string{
		"phone":       NormalizePhone(phone),
		"uuid_prefix": s.session.Issuer,
	})
}

func (s *Step) handleSuccessfulProofingAttempt(ctx context.Context, pii models.Applicant, result *models.VerificationResult) {
	s.session.Applicant = pii
	s.session.AddressVerificationMechanism = "phone"
	s.session.VendorPhoneConfirmation = true
	s.session.UserPhoneConfirmation = s.phoneMatchesUserPhone(ctx, pii.Phone())

	vendor := lastStageVendor(result)
	if err := s.costs.AddProofingComponent(ctx, s.session.UserID, "address_check", vendor); err != nil {
		s.logger.Warn("proofing component record failed", map[string]interface{}{
			"userId": s.session.UserID,
			"error":  err.Error(),
		})
	}

	confSession, err := s.confirmer.Start(ctx, pii.Phone(), confirmation.MethodSMS)
	if err != nil {
		// The confirmed channel stands; the handshake can be restarted.
		s.logger.Error("confirmation handshake start failed", map[string]interface{}{
			"userId": s.session.UserID,
			"error":  err.Error(),
		})
		return
	}
	s.session.ConfirmationSessionID = confSession.ID
}

func (s *Step) phoneMatchesUserPhone(ctx context.Context, phone string) bool {
	if phone == "" {
		return false
	}
	known, err := s.phones.UserPhones(ctx, s.session.UserID)
	if err != nil {
		s.logger.Warn("user phone lookup failed", map[string]interface{}{
			"userId": s.session.UserID,
			"error":  err.Error(),
		})
		return false
	}
	for _, k := range known {
		if NormalizePhone(k) == phone {
			return true
		}
	}
	return false
}

func (s *Step) addProofingCost(ctx context.Context) {
	if err := s.costs.AddSPCost(ctx, s.session.Issuer, 1, addressCostToken); err != nil {
		s.logger.Warn("sp cost record failed", map[string]interface{}{"error": err.Error()})
	}
	if err := s.costs.AddUserProofingCost(ctx, s.session.UserID, addressCostToken); err != nil {
		s.logger.Warn("user proofing cost record failed", map[string]interface{}{"error": err.Error()})
	}
}

func lastStageVendor(result *models.VerificationResult) string {
	stages := result.Context.Stages
	if len(stages) == 0 {
		return ""
	}
	return stages[len(stages)-1].Vendor
}

func reasonLabel(r Reason) string {
	if r == ReasonNone {
		return "success"
	}
	return string(r)
}
