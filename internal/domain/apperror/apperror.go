package apperror

import (
	"errors"
	"fmt"
)

// Code identifies a class of application error for callers and HTTP mapping.
type Code string

const (
	CodeValidation         Code = "VALIDATION"
	CodeNotFound           Code = "NOT_FOUND"
	CodeSlotUnavailable    Code = "SLOT_UNAVAILABLE"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeAppointmentExpired Code = "APPOINTMENT_EXPIRED"
	CodeStaleTransition    Code = "STALE_TRANSITION"
	CodeChannelUnavailable Code = "CHANNEL_UNAVAILABLE"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeInternal           Code = "INTERNAL"
)

// Error is an application error carrying a machine-readable code. For
// transition failures CurrentState holds the status observed when the
// operation was rejected, so clients can explain the failure and decide
// whether to retry against fresh state.
type Error struct {
	Code         Code
	Message      string
	CurrentState string
	cause        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// NewValidation creates a validation error.
func NewValidation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// NewNotFound creates a not-found error for the given resource and identifier.
func NewNotFound(resource, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

// NewSlotUnavailable creates a create-time slot conflict error.
func NewSlotUnavailable(date, timeOfDay string) *Error {
	return &Error{
		Code:    CodeSlotUnavailable,
		Message: fmt.Sprintf("slot %s %s is already booked", date, timeOfDay),
	}
}

// NewInvalidTransition creates an error for a transition not allowed from the
// booking's current status.
func NewInvalidTransition(current, requested string) *Error {
	return &Error{
		Code:         CodeInvalidTransition,
		Message:      fmt.Sprintf("cannot transition booking from %s to %s", current, requested),
		CurrentState: current,
	}
}

// NewAppointmentExpired creates an error for a check-in attempted on a
// past-dated appointment.
func NewAppointmentExpired(date string) *Error {
	return &Error{
		Code:    CodeAppointmentExpired,
		Message: fmt.Sprintf("appointment date %s has passed", date),
	}
}

// NewStaleTransition creates an error for a compare-and-update that lost a
// race to another actor.
func NewStaleTransition(current string) *Error {
	return &Error{
		Code:         CodeStaleTransition,
		Message:      "booking was modified by another transition",
		CurrentState: current,
	}
}

// NewChannelUnavailable creates an error for a failed notification send.
func NewChannelUnavailable(cause error) *Error {
	return &Error{Code: CodeChannelUnavailable, Message: "notification channel unavailable", cause: cause}
}

// NewUnauthorized creates an authentication error.
func NewUnauthorized(message string) *Error {
	return &Error{Code: CodeUnauthorized, Message: message}
}

// NewForbidden creates an authorization error.
func NewForbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// NewInternal wraps an unexpected failure.
func NewInternal(message string, cause error) *Error {
	return &Error{Code: CodeInternal, Message: message, cause: cause}
}

// CodeOf extracts the application error code from err, or CodeInternal if err
// is not an application error.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
