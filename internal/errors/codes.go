// Package errors provides structured error handling for sortcore.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage and IO errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates record store and index IO errors.
	CategoryStorage Category = "STORAGE"
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
	ErrCodeStoreOpen     = "ERR_201_STORE_OPEN"
	ErrCodeStoreWrite    = "ERR_202_STORE_WRITE"
	ErrCodeCorruptRecord = "ERR_203_CORRUPT_RECORD"
	ErrCodeStoreLocked   = "ERR_204_STORE_LOCKED"

	// Validation errors (400-499)
	ErrCodeDimensionMismatch = "ERR_401_DIMENSION_MISMATCH"
	ErrCodeInvalidConfidence = "ERR_402_INVALID_CONFIDENCE"
	ErrCodeEmptyResource     = "ERR_403_EMPTY_RESOURCE"
	ErrCodeUnknownResource   = "ERR_404_UNKNOWN_RESOURCE"

	// Internal errors (500-599)
	ErrCodeIndexUnavailable = "ERR_501_INDEX_UNAVAILABLE"
	ErrCodeInternal         = "ERR_500_INTERNAL"
)
