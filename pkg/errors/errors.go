package errors

import "fmt"

// ErrorType classifies failures across the sync pipeline
type ErrorType string

const (
	// ErrorTypeFatalSetup aborts the whole run before any record is processed
	ErrorTypeFatalSetup ErrorType = "fatal_setup"
	// ErrorTypeRateLimit is a throttling/quota signal from the remote store
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeRecord isolates a failure to a single identity
	ErrorTypeRecord ErrorType = "record"

	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a classified error with an optional remote status code
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a classified error without a status code
func New(t ErrorType, message string) *Error {
	return &Error{Type: t, Message: message}
}

// Newf creates a classified error with a formatted message
func Newf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// IsRetryable reports whether a write against the remote store may be
// attempted again for this error class. Only throttling qualifies: all
// other failures abort the single operation immediately.
func IsRetryable(errorType ErrorType) bool {
	return errorType == ErrorTypeRateLimit
}

// IsFatal reports whether an error class must abort the run
func IsFatal(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeFatalSetup, ErrorTypeAuth:
		return true
	default:
		return false
	}
}

// TypeForStatusCode maps an HTTP status code from the remote store to an
// error class
func TypeForStatusCode(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == 429:
		return ErrorTypeRateLimit
	case statusCode == 401 || statusCode == 403:
		return ErrorTypeAuth
	case statusCode == 404:
		return ErrorTypeNotFound
	case statusCode >= 500:
		return ErrorTypeServerError
	case statusCode >= 400:
		return ErrorTypeUnknown
	default:
		return ErrorTypeUnknown
	}
}
