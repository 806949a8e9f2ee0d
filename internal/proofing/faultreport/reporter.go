// Package faultreport delivers captured vendor faults to observability
// collaborators. Reporting is fire-and-forget: it never affects the
// workflow's control flow.
package faultreport

import (
	"context"

	"idv-workers/internal/common/logger"
	"idv-workers/internal/models"
)

// Reporter receives captured vendor faults.
type Reporter interface {
	Notice(ctx context.Context, stage, vendor string, fault *models.FaultDetail)
}

// LogReporter writes faults to the structured log.
type LogReporter struct {
	logger logger.Logger
}

func NewLogReporter(log logger.Logger) *LogReporter {
	return &LogReporter{logger: log}
}

func (r *LogReporter) Notice(_ context.Context, stage, vendor string, fault *models.FaultDetail) {
	r.logger.Error("vendor stage raised", map[string]interface{}{
		"stage":     stage,
		"vendor":    vendor,
		"faultCode": fault.Code,
		"fault":     fault.Message,
	})
}

// MultiReporter fans a fault out to several reporters.
type MultiReporter []Reporter

func (m MultiReporter) Notice(ctx context.Context, stage, vendor string, fault *models.FaultDetail) {
	for _, r := range m {
		r.Notice(ctx, stage, vendor, fault)
	}
}
