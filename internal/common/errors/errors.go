// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Proofing workflow errors
const (
	ErrCodeVendorFault       ErrorCode = "VENDOR_FAULT"
	ErrCodeVendorTimeout     ErrorCode = "VENDOR_TIMEOUT"
	ErrCodeVendorUnavailable ErrorCode = "VENDOR_UNAVAILABLE"

	ErrCodeDispatchFailed      ErrorCode = "DISPATCH_FAILED"
	ErrCodeSessionNotFound     ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionStoreFailed  ErrorCode = "SESSION_STORE_FAILED"
	ErrCodeResultAlreadyStored ErrorCode = "RESULT_ALREADY_STORED"

	ErrCodeAttemptsExhausted          ErrorCode = "ATTEMPTS_EXHAUSTED"
	ErrCodeApplicantValidationFailed  ErrorCode = "APPLICANT_VALIDATION_FAILED"
	ErrCodeConfirmationSendFailed     ErrorCode = "CONFIRMATION_SEND_FAILED"
	ErrCodeConfirmationCodeExpired    ErrorCode = "CONFIRMATION_CODE_EXPIRED"
	ErrCodeConfirmationCodeMismatched ErrorCode = "CONFIRMATION_CODE_MISMATCHED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeCostRecordFailed         ErrorCode = "COST_RECORD_FAILED"
	ErrCodeAuditWriteFailed         ErrorCode = "AUDIT_WRITE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewVendorFaultError records a vendor call that raised during execution.
func NewVendorFaultError(vendor string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeVendorFault,
		Message:   fmt.Sprintf("Vendor '%s' call raised", vendor),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewVendorTimeoutError records a vendor call that exceeded its deadline.
func NewVendorTimeoutError(vendor string) *StandardError {
	return &StandardError{
		Code:      ErrCodeVendorTimeout,
		Message:   fmt.Sprintf("Vendor '%s' timed out", vendor),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchFailedError records a job that could not be scheduled at all.
// Surfaced synchronously to the caller, unlike every later failure mode.
func NewDispatchFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchFailed,
		Message:   "Address proofing job could not be scheduled",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError records a capture session lookup miss.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Capture session not found or expired",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionStoreFailedError creates a retryable session store error.
func NewSessionStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionStoreFailed,
		Message:   "Capture session store operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResultAlreadyStoredError records a second write attempt against a
// completed capture session. A programming error, never silently absorbed.
func NewResultAlreadyStoredError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResultAlreadyStored,
		Message:   "Capture session already holds a proofing result",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAttemptsExhaustedError records a step whose attempt budget is spent.
func NewAttemptsExhaustedError(step string, max int) *StandardError {
	return &StandardError{
		Code:      ErrCodeAttemptsExhausted,
		Message:   fmt.Sprintf("Step '%s' attempt budget exhausted", step),
		Details:   fmt.Sprintf("maxAttempts: %d", max),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicantValidationFailedError creates a non-retryable validation error.
func NewApplicantValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicantValidationFailed,
		Message:   "Applicant data validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfirmationSendFailedError creates a retryable confirmation delivery error.
func NewConfirmationSendFailedError(method string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfirmationSendFailed,
		Message:   "Confirmation code delivery failed",
		Details:   fmt.Sprintf("method: %s, error: %s", method, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCostRecordFailedError creates a retryable cost accounting error.
func NewCostRecordFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCostRecordFailed,
		Message:   "Proofing cost record insert failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuditWriteFailedError creates a retryable audit sink error.
func NewAuditWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuditWriteFailed,
		Message:   "Proofing audit event write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      "AUTHENTICATION_ERROR",
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeSessionStoreFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeCostRecordFailed,
		ErrCodeAuditWriteFailed,
		ErrCodeConfirmationSendFailed:
		return 3 // Retryable technical errors

	case ErrCodeVendorTimeout, ErrCodeVendorUnavailable:
		return 2 // Transient vendor conditions

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VENDOR"):
		return "VENDOR"
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "RESULT"):
		return "CAPTURE_SESSION"
	case strings.Contains(codeStr, "DISPATCH"):
		return "DISPATCH"
	case strings.Contains(codeStr, "CONFIRMATION"):
		return "CONFIRMATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") || strings.Contains(codeStr, "COST"):
		return "DATABASE"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "ATTEMPTS"):
		return "POLICY"
	default:
		return "OTHER"
	}
}
