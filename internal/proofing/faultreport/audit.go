package faultreport

import (
	"context"
	"encoding/json"
	"time"

	"idv-workers/internal/common/logger"
	"idv-workers/internal/models"
)

// Indexer is the slice of the Elasticsearch client the audit sink needs.
type Indexer interface {
	Index(ctx context.Context, index string, body []byte) error
}

// AuditSink indexes proofing fault events into Elasticsearch so operators
// can trace vendor behavior over time.
type AuditSink struct {
	indexer Indexer
	index   string
	logger  logger.Logger
}

func NewAuditSink(indexer Indexer, index string, log logger.Logger) *AuditSink {
	return &AuditSink{indexer: indexer, index: index, logger: log}
}

type auditEvent struct {
	Kind      string    `json:"kind"`
	Stage     string    `json:"stage"`
	Vendor    string    `json:"vendor"`
	FaultCode string    `json:"faultCode"`
	Fault     string    `json:"fault"`
	Timestamp time.Time `json:"@timestamp"`
}

func (s *AuditSink) Notice(ctx context.Context, stage, vendor string, fault *models.FaultDetail) {
	body, err := json.Marshal(auditEvent{
		Kind:      "vendor_fault",
		Stage:     stage,
		Vendor:    vendor,
		FaultCode: fault.Code,
		Fault:     fault.Message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}

	if err := s.indexer.Index(ctx, s.index, body); err != nil {
		// Audit loss is logged, never surfaced to the workflow.
		s.logger.Warn("audit event write failed", map[string]interface{}{
			"index": s.index,
			"error": err.Error(),
		})
	}
}
