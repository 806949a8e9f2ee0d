package vendors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"idv-workers/internal/common/config"
	commonhttp "idv-workers/internal/common/http"
	"idv-workers/internal/common/logger"
	"idv-workers/internal/models"
)

// HTTPVendor submits the applicant to a remote proofing API. The wire payload
// is opaque applicant JSON in, the vendor's {success, errors, messages,
// timedOut} envelope out.
type HTTPVendor struct {
	stage  string
	name   string
	cfg    config.VendorConfig
	client *commonhttp.Client
	logger logger.Logger
}

func NewHTTPVendor(stage, name string, cfg config.VendorConfig, client *commonhttp.Client, log logger.Logger) *HTTPVendor {
	return &HTTPVendor{
		stage:  stage,
		name:   name,
		cfg:    cfg,
		client: client,
		logger: log.WithFields(map[string]interface{}{"vendor": name, "stage": stage}),
	}
}

func (v *HTTPVendor) Stage() string { return v.stage }
func (v *HTTPVendor) Name() string  { return v.name }

func (v *HTTPVendor) Proof(ctx context.Context, applicant models.Applicant) models.StageOutcome {
	body, err := json.Marshal(applicant)
	if err != nil {
		return models.Faulted(models.FaultFromError("VENDOR_FAULT", err))
	}

	var headers map[string]string
	if v.cfg.APIKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + v.cfg.APIKey}
	}

	resp, err := v.client.PostJSON(ctx, v.cfg.BaseURL+"/proof", body, headers)
	if err != nil {
		// A transport deadline is the vendor's timeout indicator for this
		// stage, not a fault: the caller's staleness policy handles it.
		if errors.Is(err, context.DeadlineExceeded) || isClientTimeout(err) {
			return models.Ok(&models.VendorResult{
				Errors:   map[string][]string{},
				Messages: []string{fmt.Sprintf("%s: request timed out", v.name)},
				TimedOut: true,
			})
		}
		v.logger.Warn("vendor request failed", map[string]interface{}{"error": err.Error()})
		return models.Faulted(models.FaultFromError("VENDOR_FAULT", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return models.Faulted(models.FaultFromError(
			"VENDOR_FAULT",
			fmt.Errorf("vendor returned %d: %s", resp.StatusCode, string(payload)),
		))
	}

	var result models.VendorResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.Faulted(models.FaultFromError("VENDOR_FAULT", err))
	}
	if result.Errors == nil {
		result.Errors = map[string][]string{}
	}
	return models.Ok(&result)
}

func isClientTimeout(err error) bool {
	var uerr interface{ Timeout() bool }
	return errors.As(err, &uerr) && uerr.Timeout()
}
