// Package errors provides standardized error codes for the categorization
// layer and their conversion to BPMN errors for the job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidEmailInput ErrorCode = "INVALID_EMAIL_INPUT"
	ErrCodeBatchTooLarge     ErrorCode = "BATCH_TOO_LARGE"
	ErrCodeEmptyBatch        ErrorCode = "EMPTY_BATCH"
	ErrCodeEmailNotFound     ErrorCode = "EMAIL_NOT_FOUND"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeCategoryPersistFailed    ErrorCode = "CATEGORY_PERSIST_FAILED"
	ErrCodeActivityLogFailed        ErrorCode = "ACTIVITY_LOG_FAILED"

	ErrCodeAnalysisBackendTimeout ErrorCode = "ANALYSIS_BACKEND_TIMEOUT"
	ErrCodeAnalysisBackendFailed  ErrorCode = "ANALYSIS_BACKEND_FAILED"
	ErrCodeAnalysisParseFailed    ErrorCode = "ANALYSIS_PARSE_FAILED"

	ErrCodeAlertPublishFailed ErrorCode = "ALERT_PUBLISH_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error { return e.cause }

// BPMNError represents an error thrown to the Camunda workflow engine.
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
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewInvalidEmailInputError rejects an email that is missing its subject or content.
func NewInvalidEmailInputError(emailID int64, details string) *StandardError {
	e := newError(ErrCodeInvalidEmailInput, "Email is missing subject or content", details, false, nil)
	e.Metadata = map[string]interface{}{"emailId": emailID}
	return e
}

func NewBatchTooLargeError(size, limit int) *StandardError {
	return newError(ErrCodeBatchTooLarge, "Batch exceeds maximum size",
		fmt.Sprintf("size: %d, limit: %d", size, limit), false, nil)
}

func NewEmptyBatchError() *StandardError {
	return newError(ErrCodeEmptyBatch, "Batch contains no email ids", "", false, nil)
}

func NewEmailNotFoundError(emailID int64) *StandardError {
	return newError(ErrCodeEmailNotFound, "Email not found",
		fmt.Sprintf("emailId: %d", emailID), false, nil)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true, err)
}

func NewQueryExecutionFailedError(query string, err error) *StandardError {
	return newError(ErrCodeQueryExecutionFailed, "Database query execution error",
		fmt.Sprintf("query: %s, error: %s", query, err.Error()), true, err)
}

func NewCategoryPersistFailedError(emailID int64, err error) *StandardError {
	return newError(ErrCodeCategoryPersistFailed, "Failed to persist email category",
		fmt.Sprintf("emailId: %d, error: %s", emailID, err.Error()), true, err)
}

func NewActivityLogFailedError(err error) *StandardError {
	return newError(ErrCodeActivityLogFailed, "Failed to record activity", err.Error(), true, err)
}

func NewAnalysisBackendTimeoutError(err error) *StandardError {
	return newError(ErrCodeAnalysisBackendTimeout, "Analysis backend timeout", err.Error(), true, err)
}

func NewAnalysisBackendFailedError(err error) *StandardError {
	return newError(ErrCodeAnalysisBackendFailed, "Analysis backend failed", err.Error(), true, err)
}

func NewAnalysisParseFailedError(err error) *StandardError {
	return newError(ErrCodeAnalysisParseFailed, "Analysis backend returned unparseable output", err.Error(), false, err)
}

func NewAlertPublishFailedError(err error) *StandardError {
	return newError(ErrCodeAlertPublishFailed, "Urgent alert publish failed", err.Error(), true, err)
}

// Normalize returns err as a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeCategoryPersistFailed,
		ErrCodeAnalysisBackendFailed:
		return 3

	case ErrCodeAnalysisBackendTimeout,
		ErrCodeActivityLogFailed,
		ErrCodeAlertPublishFailed:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"errorCategory":     GetErrorCategory(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ANALYSIS"):
		return "ANALYSIS"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY") ||
		strings.Contains(codeStr, "PERSIST") || strings.Contains(codeStr, "ACTIVITY"):
		return "STORAGE"
	case strings.Contains(codeStr, "ALERT"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "BATCH") ||
		strings.Contains(codeStr, "NOT_FOUND"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
