package lmerror

import "net/http"

type (
	// An LMError represents the error format that can be rendered by the
	// lifemoments server.
	LMError struct {
		HTTPCode   int `json:"-"`
		FieldError err `json:"error"`
	}

	err struct {
		Tag     string `json:"tag,omitempty"`
		Message string `json:"message"`
	}
)

// StatusCode returns the HTTP status code.
func StatusCode(err error) int {
	if lmerr, ok := err.(*LMError); ok && lmerr.HTTPCode != 0 {
		return lmerr.HTTPCode
	}
	return http.StatusInternalServerError
}

// New returns a new LMError with the given message.
func New(message string) *LMError {
	return &LMError{FieldError: err{Message: message}}
}

// NewWithTagCode returns a new LMError with the given code, tag and message.
func NewWithTagCode(code int, tag, message string) *LMError {
	return &LMError{HTTPCode: code, FieldError: err{Tag: tag, Message: message}}
}

// Validation returns an error for malformed input.
func Validation(message string) *LMError {
	return NewWithTagCode(http.StatusBadRequest, "validation", message)
}

// Unauthorized returns an error for requests without a valid session.
func Unauthorized(message string) *LMError {
	return NewWithTagCode(http.StatusUnauthorized, "invalid-auth", message)
}

// Forbidden returns an error for authenticated but unauthorized access.
func Forbidden(message string) *LMError {
	return NewWithTagCode(http.StatusForbidden, "forbidden", message)
}

// NotFound returns an error for absent or filtered out resources.
func NotFound(message string) *LMError {
	return NewWithTagCode(http.StatusNotFound, "not-found", message)
}

// Conflict returns an error for stale-precondition updates.
func Conflict(message string) *LMError {
	return NewWithTagCode(http.StatusConflict, "stale-entry", message)
}

// Upstream returns an error for external service failures.
func Upstream(message string) *LMError {
	return NewWithTagCode(http.StatusInternalServerError, "upstream", message)
}

// Error implements error interface.
func (e *LMError) Error() string {
	return e.FieldError.Message
}
