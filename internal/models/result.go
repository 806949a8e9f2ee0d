package models

// StageRecord is one audit-trail entry: which vendor served which stage.
// Recorded before the vendor is invoked so a crash mid-call still leaves
// its trace.
type StageRecord struct {
	Stage  string `json:"stage"`
	Vendor string `json:"vendor"`
}

// ResultContext carries cross-stage audit data.
type ResultContext struct {
	Stages []StageRecord `json:"stages"`
}

// FaultDetail is a captured vendor failure, recorded in-band in the result
// rather than propagated up the call stack.
type FaultDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FaultFromError captures an error into a FaultDetail.
func FaultFromError(code string, err error) *FaultDetail {
	return &FaultDetail{Code: code, Message: err.Error()}
}

// VendorResult is one vendor's own outcome for a single stage.
type VendorResult struct {
	Success  bool                `json:"success"`
	Errors   map[string][]string `json:"errors"`
	Messages []string            `json:"messages"`
	TimedOut bool                `json:"timedOut"`
}

// StageOutcome is the tagged result of one vendor invocation: either the
// vendor produced a result, or the call raised. Exactly one side is set;
// consumers match on the tag.
type StageOutcome struct {
	Result *VendorResult
	Fault  *FaultDetail
}

// Ok wraps a vendor result into a successful-invocation outcome.
func Ok(r *VendorResult) StageOutcome {
	return StageOutcome{Result: r}
}

// Faulted wraps a captured failure into a faulted-invocation outcome.
func Faulted(f *FaultDetail) StageOutcome {
	return StageOutcome{Fault: f}
}

// VerificationResult is the canonical merged outcome of one or more vendor
// stages. Messages and the stage audit trail accumulate across stages; every
// other field reflects the last stage executed ("last stage wins except
// messages").
type VerificationResult struct {
	Errors   map[string][]string `json:"errors"`
	Messages []string            `json:"messages"`
	Context  ResultContext       `json:"context"`
	Fault    *FaultDetail        `json:"fault,omitempty"`
	Success  bool                `json:"success"`
	TimedOut bool                `json:"timedOut"`
}

// NewVerificationResult returns the empty accumulator a workflow starts from.
func NewVerificationResult() *VerificationResult {
	return &VerificationResult{
		Errors:   map[string][]string{},
		Messages: []string{},
		Context:  ResultContext{Stages: []StageRecord{}},
	}
}

// RecordStage appends an audit entry for a stage about to run.
func (r *VerificationResult) RecordStage(stage, vendor string) {
	r.Context.Stages = append(r.Context.Stages, StageRecord{Stage: stage, Vendor: vendor})
}

// MergeStage folds one stage's outcome onto the accumulated result.
// Messages append; Errors, Success, TimedOut and Fault are overwritten by
// the stage's own values.
func (r *VerificationResult) MergeStage(outcome StageOutcome) {
	if outcome.Fault != nil {
		r.Fault = outcome.Fault
		r.Errors = map[string][]string{}
		r.Success = false
		r.TimedOut = false
		return
	}

	res := outcome.Result
	r.Messages = append(r.Messages, res.Messages...)
	r.Errors = res.Errors
	if r.Errors == nil {
		r.Errors = map[string][]string{}
	}
	r.Success = res.Success
	r.TimedOut = res.TimedOut
	r.Fault = nil
}

// Extra returns the vendor-reported fields for diagnostic payloads, excluding
// Success and Errors which the caller reports separately.
func (r *VerificationResult) Extra() map[string]interface{} {
	return map[string]interface{}{
		"messages": r.Messages,
		"context":  r.Context,
		"fault":    r.Fault,
		"timedOut": r.TimedOut,
	}
}
