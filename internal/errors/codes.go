package errors

// ErrorCode is a stable machine-readable error identifier
type ErrorCode string

const (
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrForbidden      ErrorCode = "FORBIDDEN"
	ErrConflict       ErrorCode = "CONFLICT"
	ErrValidation     ErrorCode = "VALIDATION_ERROR"
	ErrBadRequest     ErrorCode = "BAD_REQUEST"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrAlreadyExists  ErrorCode = "ALREADY_EXISTS"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
	ErrServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"

	// Moderation pipeline codes. ErrModeration means a classifier looked at
	// the content and rejected it; ErrUpstream means a classifier or the
	// object store could not be reached at all. The distinction matters to
	// clients: the first blames the content, the second blames us.
	ErrModeration ErrorCode = "MODERATION_REJECTED"
	ErrUpstream   ErrorCode = "UPSTREAM_FAILED"
)
