// Package errors provides structured error handling for ExpertScout.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (index, document store, learning store)
//   - 3XX: Service errors (reasoner, embedder)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates index and store errors.
	CategoryStorage Category = "STORAGE"
	// CategoryService indicates errors talking to the reasoner or embedder.
	CategoryService Category = "SERVICE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeIndexUnavailable = "ERR_201_INDEX_UNAVAILABLE"
	ErrCodeIndexCorrupt     = "ERR_202_INDEX_CORRUPT"
	ErrCodeRecordMalformed  = "ERR_203_RECORD_MALFORMED"
	ErrCodeStoreIO          = "ERR_204_STORE_IO"
	ErrCodeStoreLocked      = "ERR_205_STORE_LOCKED"

	// Service errors (300-399)
	ErrCodeReasonerTimeout     = "ERR_301_REASONER_TIMEOUT"
	ErrCodeReasonerUnavailable = "ERR_302_REASONER_UNAVAILABLE"
	ErrCodeEmbeddingFailed     = "ERR_303_EMBEDDING_FAILED"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty        = "ERR_402_QUERY_EMPTY"
	ErrCodeDimensionMismatch = "ERR_403_DIMENSION_MISMATCH"
	ErrCodeInvalidSession    = "ERR_404_INVALID_SESSION"
	ErrCodeInvalidFeedback   = "ERR_405_INVALID_FEEDBACK"

	// Internal errors (500-599)
	ErrCodeInternal        = "ERR_501_INTERNAL"
	ErrCodeSearchFailed    = "ERR_502_SEARCH_FAILED"
	ErrCodeLearningFlush   = "ERR_503_LEARNING_FLUSH"
	ErrCodeWorkflowInvalid = "ERR_504_WORKFLOW_INVALID"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "201" from "ERR_201_INDEX_UNAVAILABLE".
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryService
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexCorrupt, ErrCodeWorkflowInvalid:
		return SeverityFatal
	}

	// Retryable service errors degrade rather than fail.
	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeReasonerTimeout, ErrCodeReasonerUnavailable,
		ErrCodeEmbeddingFailed, ErrCodeLearningFlush, ErrCodeStoreLocked:
		return true
	default:
		return false
	}
}
