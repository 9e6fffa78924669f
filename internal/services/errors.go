package services

import "errors"

var (
	ErrMissingFields      = errors.New("all fields are required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = errors.New("user not found")
	ErrWrongPassword      = errors.New("current password is incorrect")

	ErrReportNotFound    = errors.New("report not found")
	ErrNoImage           = errors.New("report has no image")
	ErrUnknownStatus     = errors.New("unknown report status")
	ErrSameStatus        = errors.New("report already has this status")
	ErrIllegalTransition = errors.New("status transition not allowed")
	ErrReportClosed      = errors.New("report is already resolved or rejected")
	ErrJobNotFound       = errors.New("job not found")
	ErrQueueUnavailable  = errors.New("job queue unavailable")
)

// ValidationError carries per-field messages, rendered as a 400 with an errors map.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string][]string{field: {msg}}}
}
