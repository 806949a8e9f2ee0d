// internal/workers/proofing/address-proof/handler.go
package addressproof

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"idv-workers/internal/common/logger"
	"idv-workers/internal/common/metrics"
	"idv-workers/internal/models"
	"idv-workers/internal/proofing/capture"
	"idv-workers/internal/proofing/dispatch"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = dispatch.AddressProofTaskType
)

// StageRunner executes the address vendor stage in-process.
type StageRunner interface {
	RunAddressStage(ctx context.Context, applicant models.Applicant) *models.VerificationResult
}

// ResultStore is the write side of the capture session handoff.
type ResultStore interface {
	StoreResult(ctx context.Context, id string, result *models.VerificationResult) error
}

type Handler struct {
	config   *Config
	agent    StageRunner
	captures ResultStore
	logger   logger.Logger
}

func NewHandler(config *Config, agent StageRunner, captures ResultStore, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		agent:    agent,
		captures: captures,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	if err := validateVariables(job.Variables); err != nil {
		h.failJob(client, job, "APPLICANT_VALIDATION_FAILED", err.Error())
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		// Only the handoff write can land here; retry via the engine so a
		// transient store outage does not eat the vendor outcome.
		h.retryJob(client, job, "SESSION_STORE_FAILED", err.Error())
		return
	}

	h.completeJob(client, job, output)
}

// execute runs the address stage and writes the outcome into the capture
// session. Vendor declines, timeouts, and faults are all carried inside the
// result; they complete the job. Only a store infrastructure failure is an
// error here.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	result := h.agent.RunAddressStage(ctx, input.Applicant)

	output := &Output{
		SessionID: input.SessionID,
		Success:   result.Success,
		TimedOut:  result.TimedOut,
	}

	err := h.captures.StoreResult(ctx, input.SessionID, result)
	switch {
	case err == nil:
		output.Stored = true
	case errors.Is(err, capture.ErrResultAlreadyStored):
		// Redelivered job: the first delivery's result stands.
		h.logger.Warn("result already stored, keeping first write", map[string]interface{}{
			"sessionId": input.SessionID,
		})
	case errors.Is(err, capture.ErrNotFound):
		// Session expired mid-flight. The caller already observed a timeout;
		// there is nowhere left to deliver the outcome.
		h.logger.Warn("capture session gone, dropping result", map[string]interface{}{
			"sessionId": input.SessionID,
		})
	default:
		return nil, err
	}

	return output, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// failJob raises a BPMN error for payloads the process can never retry into
// validity.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

// retryJob hands the job back with one fewer retry so the engine reschedules
// it after a transient infrastructure failure.
func (h *Handler) retryJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed, retrying", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      job.Retries - 1,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, err := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(job.Retries - 1).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to fail job", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
