package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeRefreshFailed          = "refresh_failed"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound = "not_found"
	ErrCodeConflict = "conflict"

	// Attempt errors
	ErrCodePoolInsufficient  = "pool_insufficient"
	ErrCodeNoSavedAttempt    = "no_saved_attempt"
	ErrCodeAlreadyAnswered   = "already_answered"
	ErrCodeNotAnswered       = "not_answered"
	ErrCodeInvalidChoice     = "invalid_choice"
	ErrCodeInvalidMode       = "invalid_mode"
	ErrCodeUnknownCategory   = "unknown_category"
	ErrCodeUnknownDifficulty = "unknown_difficulty"
	ErrCodeAttemptBusy       = "attempt_busy"
	ErrCodeNoWeakArea        = "no_weak_area"
	ErrCodeAttemptFailed     = "attempt_failed"

	// Progress errors
	ErrCodeProgressFetchFailed = "progress_fetch_failed"

	// Question bank errors
	ErrCodeBankUnavailable = "bank_unavailable"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
)
