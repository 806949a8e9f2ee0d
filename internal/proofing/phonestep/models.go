package phonestep

import (
	"idv-workers/internal/models"
)

// StepName keys the attempt counter and capture-session reference for this step.
const StepName = "phone"

// Params are the caller-submitted step inputs. When Phone is "other" the
// free-form OtherPhone field carries the number.
type Params struct {
	Phone      string `json:"phone"`
	OtherPhone string `json:"otherPhone,omitempty"`
}

// StateKind enumerates the async resolution states.
type StateKind int

const (
	StateNone StateKind = iota
	StateInProgress
	StateTimedOut
	StateDone
)

func (k StateKind) String() string {
	switch k {
	case StateNone:
		return "none"
	case StateInProgress:
		return "in_progress"
	case StateTimedOut:
		return "timed_out"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// AsyncState is the resolved position of the step's asynchronous job.
// Result and PII are set only when Kind is StateDone.
type AsyncState struct {
	Kind   StateKind
	Result *models.VerificationResult
	PII    models.Applicant
}

// Reason classifies a concluded attempt. Checked in precedence order:
// attempts-exhausted beats timeout beats job failure beats a clean
// vendor decline.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonFail    Reason = "fail"
	ReasonTimeout Reason = "timeout"
	ReasonJobFail Reason = "jobfail"
	ReasonWarning Reason = "warning"
)

// StepResponse is the outward-facing outcome of a concluded attempt. Extra
// carries the vendor-reported diagnostic fields except success and errors,
// which are reported at the top level.
type StepResponse struct {
	Success bool                   `json:"success"`
	Errors  map[string][]string    `json:"errors"`
	Extra   map[string]interface{} `json:"extra"`
}
