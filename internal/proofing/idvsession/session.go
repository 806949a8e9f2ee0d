// Package idvsession models the caller's identity-verification workflow
// state: applicant data, per-step attempt counters, the active capture
// session reference, and confirmed-channel markers. The proofing core reads
// and writes these fields but does not own their persistence.
package idvsession

import (
	"idv-workers/internal/models"
)

// Session is one user's verification workflow state.
type Session struct {
	UserID string `json:"userId"`
	Issuer string `json:"issuer"`

	Applicant models.Applicant `json:"applicant"`

	// StepAttempts counts concluded substantive attempts per step. Never
	// decremented; reset only through an external session reset.
	StepAttempts map[string]int `json:"stepAttempts"`

	// CaptureSessionIDs holds the active capture-session reference per step.
	// Cleared once the step consumes its result.
	CaptureSessionIDs map[string]string `json:"captureSessionIds"`

	AddressVerificationMechanism string `json:"addressVerificationMechanism,omitempty"`
	VendorPhoneConfirmation      bool   `json:"vendorPhoneConfirmation"`
	UserPhoneConfirmation        bool   `json:"userPhoneConfirmation"`

	// ConfirmationSessionID is the handle of the active out-of-band
	// confirmation handshake.
	ConfirmationSessionID string `json:"confirmationSessionId,omitempty"`
}

// New returns an empty workflow session for the given user.
func New(userID, issuer string) *Session {
	return &Session{
		UserID:            userID,
		Issuer:            issuer,
		Applicant:         models.Applicant{},
		StepAttempts:      map[string]int{},
		CaptureSessionIDs: map[string]string{},
	}
}

// Attempts returns the concluded attempt count for a step.
func (s *Session) Attempts(step string) int {
	return s.StepAttempts[step]
}

// IncrementAttempts charges one concluded attempt against the step budget.
func (s *Session) IncrementAttempts(step string) {
	if s.StepAttempts == nil {
		s.StepAttempts = map[string]int{}
	}
	s.StepAttempts[step]++
}

// CaptureSessionID returns the active capture-session reference for a step,
// empty if none is recorded.
func (s *Session) CaptureSessionID(step string) string {
	return s.CaptureSessionIDs[step]
}

// SetCaptureSessionID records the active capture-session reference for a step.
func (s *Session) SetCaptureSessionID(step, id string) {
	if s.CaptureSessionIDs == nil {
		s.CaptureSessionIDs = map[string]string{}
	}
	s.CaptureSessionIDs[step] = id
}

// ClearCaptureSessionID drops the capture-session reference once the step
// has consumed its result, preventing re-polling a consumed session.
func (s *Session) ClearCaptureSessionID(step string) {
	delete(s.CaptureSessionIDs, step)
}
