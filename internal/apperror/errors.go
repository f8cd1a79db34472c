// Package apperror holds the error taxonomy the console shows to users.
// Every backend or transport failure is turned into one of these types
// before it reaches a handler.
package apperror

import (
	"errors"
	"fmt"
)

const (
	// NoConnectionMessage is shown when the backend could not be reached at all
	NoConnectionMessage = "No response from server. Please check your network connection."

	// DefaultValidationMessage is used when a validation failure carries no message
	DefaultValidationMessage = "Validation failed. Please check the form."

	// SessionExpiredMessage is used when the session could not be refreshed
	SessionExpiredMessage = "Your session has expired. Please sign in again."

	// CanceledMessage is used when the caller gave up before the server answered
	CanceledMessage = "The request was cancelled before the server answered."
)

// ErrNoConnection is returned when a request got no response
var ErrNoConnection = &RequestError{Message: NoConnectionMessage}

// RequestError is a generic failure with a human readable message
type RequestError struct {
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Canceled wraps a context error of the caller. errors.Is still matches
// context.Canceled and context.DeadlineExceeded.
func Canceled(err error) *RequestError {
	return &RequestError{Message: CanceledMessage, Err: err}
}

// FormValidationError carries the first message per field of a rejected
// create or update.
type FormValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *FormValidationError) Error() string {
	return e.Message
}

// NewFormValidationError builds the error from the backend's errors map.
// Values may be a list of messages or a single message; only the first
// message of a list is kept.
func NewFormValidationError(message string, raw map[string]any) *FormValidationError {
	if message == "" {
		message = DefaultValidationMessage
	}
	fields := make(map[string]string, len(raw))
	for field, value := range raw {
		switch v := value.(type) {
		case string:
			fields[field] = v
		case []string:
			if len(v) > 0 {
				fields[field] = v[0]
			}
		case []any:
			if len(v) > 0 {
				fields[field] = fmt.Sprint(v[0])
			}
		}
	}
	return &FormValidationError{Message: message, Fields: fields}
}

// AuthError means the session could not be refreshed and has been cleared.
// The user has to sign in again.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return SessionExpiredMessage
	}
	return e.Message
}

// NotFoundError is a local lookup miss, for example an optimistic delete
// whose target is not on the current page.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Item with identifier %s not found.", e.Identifier)
}

// IsAuth reports whether err is, or wraps, an *AuthError
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Message returns the text a notification should show for err
func Message(err error) string {
	if err == nil {
		return ""
	}

	var formErr *FormValidationError
	if errors.As(err, &formErr) {
		return formErr.Message
	}
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Message
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Error()
	}
	var notFound *NotFoundError
	if errors.As(err, &notFound) {
		return notFound.Error()
	}
	return err.Error()
}
