package addressproof

import (
	"idv-workers/internal/models"
)

// Input mirrors dispatch.AddressProofJob: the capture-session key the
// outcome is written to and the applicant snapshot to proof.
type Input struct {
	SessionID string           `json:"sessionId"`
	Applicant models.Applicant `json:"applicant"`
}

// Output is reported back to the workflow engine. The verification outcome
// itself travels only through the capture session store.
type Output struct {
	SessionID string `json:"sessionId"`
	Stored    bool   `json:"stored"`
	Success   bool   `json:"success"`
	TimedOut  bool   `json:"timedOut"`
}
