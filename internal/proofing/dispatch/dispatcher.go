// Package dispatch hands proofing work across the out-of-process job
// boundary. The caller fires a job and returns; the worker that picks it up
// reports back only through the capture session store.
package dispatch

import (
	"context"

	"idv-workers/internal/common/camunda"
	"idv-workers/internal/common/logger"
	"idv-workers/internal/common/metrics"
	"idv-workers/internal/models"
)

// AddressProofTaskType is the Zeebe job type the address-proof worker serves.
const AddressProofTaskType = "address-proof"

// AddressProofProcessID is the BPMN process wrapping the address-proof task.
const AddressProofProcessID = "idv-address-proof"

// AddressProofJob carries everything the worker needs to run independently
// of the caller's process: the applicant snapshot and the capture-session
// key the worker writes its outcome to.
type AddressProofJob struct {
	SessionID string           `json:"sessionId"`
	Applicant models.Applicant `json:"applicant"`
}

// Dispatcher schedules proofing jobs for out-of-process execution. Dispatch
// returns without waiting for the job to run; a scheduling failure is the
// only error it reports.
type Dispatcher interface {
	Dispatch(ctx context.Context, job AddressProofJob) error
}

// ZeebeDispatcher creates a process instance per job on the workflow engine.
// Transient engine failures are retried inside the connected client before a
// scheduling failure surfaces.
type ZeebeDispatcher struct {
	client *camunda.Client
	logger logger.Logger
}

func NewZeebeDispatcher(client *camunda.Client, log logger.Logger) *ZeebeDispatcher {
	return &ZeebeDispatcher{
		client: client,
		logger: log.WithFields(map[string]interface{}{"jobType": AddressProofTaskType}),
	}
}

func (d *ZeebeDispatcher) Dispatch(ctx context.Context, job AddressProofJob) error {
	var instanceKey int64
	err := d.client.ExecuteWithRetry(ctx, "create "+AddressProofProcessID+" instance", func(ctx context.Context) error {
		cmd, err := d.client.GetClient().NewCreateInstanceCommand().
			BPMNProcessId(AddressProofProcessID).
			LatestVersion().
			VariablesFromObject(job)
		if err != nil {
			return err
		}
		resp, err := cmd.Send(ctx)
		if err != nil {
			return err
		}
		instanceKey = resp.GetProcessInstanceKey()
		return nil
	})
	if err != nil {
		metrics.ProofingJobsDispatched.WithLabelValues(AddressProofTaskType, "error").Inc()
		return err
	}

	metrics.ProofingJobsDispatched.WithLabelValues(AddressProofTaskType, "ok").Inc()
	d.logger.Info("address proof job dispatched", map[string]interface{}{
		"sessionId":          job.SessionID,
		"processInstanceKey": instanceKey,
	})
	return nil
}
