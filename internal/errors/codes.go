// Package errors provides structured error handling for recall.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration and startup errors
//   - 2XX: IO errors (file, disk, index persistence)
//   - 3XX: Pipeline errors (queue, watcher, shutdown)
//   - 4XX: Validation and state errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration and startup errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryPipeline indicates change-queue and watcher errors.
	CategoryPipeline Category = "PIPELINE"
	// CategoryValidation indicates input validation and state errors.
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
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeDataDirLocked  = "ERR_103_DATA_DIR_LOCKED"

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeFileTooLarge   = "ERR_203_FILE_TOO_LARGE"
	ErrCodeCorruptIndex   = "ERR_204_CORRUPT_INDEX"
	ErrCodeFileVanished   = "ERR_205_FILE_VANISHED"

	// Pipeline errors (300-399)
	ErrCodeQueueOverflow  = "ERR_301_QUEUE_OVERFLOW"
	ErrCodeEventDiscarded = "ERR_302_EVENT_DISCARDED"
	ErrCodeWatcherFailed  = "ERR_303_WATCHER_FAILED"

	// Validation errors (400-499)
	ErrCodeNotInitialized     = "ERR_401_NOT_INITIALIZED"
	ErrCodeVocabularyMismatch = "ERR_402_VOCABULARY_MISMATCH"
	ErrCodeDimensionMismatch  = "ERR_403_DIMENSION_MISMATCH"
	ErrCodeInvalidQuery       = "ERR_404_INVALID_QUERY"
	ErrCodeInvalidPath        = "ERR_405_INVALID_PATH"
	ErrCodeUnsupportedContent = "ERR_406_UNSUPPORTED_CONTENT"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeEncodeFailed = "ERR_502_ENCODE_FAILED"
	ErrCodeSearchFailed = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexFailed  = "ERR_504_INDEX_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "101" from "ERR_101_CONFIG_NOT_FOUND")
	numStr := code[4:7]
	if len(numStr) < 1 {
		return CategoryInternal
	}

	switch numStr[0] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryPipeline
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	// Fatal errors abort the operation that raised them.
	switch code {
	case ErrCodeConfigInvalid, ErrCodeCorruptIndex, ErrCodeDataDirLocked, ErrCodeVocabularyMismatch:
		return SeverityFatal
	}

	// Recovered pipeline drops only degrade operation.
	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Queue overflow can be retried via IndexNow once the queue drains, and a
// locked data directory clears when the holding process exits.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeQueueOverflow, ErrCodeDataDirLocked:
		return true
	default:
		return false
	}
}
