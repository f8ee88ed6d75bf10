package ocpp

import (
	"errors"
	"fmt"
)

var (
	// ErrFormation is returned by Parse when a frame is not a well-formed
	// OCPP-J array.
	ErrFormation = errors.New("ocpp: malformed frame")

	// ErrUnknownMessageType is returned by Parse when the first array element
	// is not 2, 3 or 4.
	ErrUnknownMessageType = errors.New("ocpp: unknown message type")
)

// ErrorCode is an OCPP-J CallError code.
type ErrorCode string

// CallError codes defined by OCPP-J 1.6 section 4.2.3.
const (
	ErrorNotImplemented                ErrorCode = "NotImplemented"
	ErrorNotSupported                  ErrorCode = "NotSupported"
	ErrorInternal                      ErrorCode = "InternalError"
	ErrorProtocol                      ErrorCode = "ProtocolError"
	ErrorSecurity                      ErrorCode = "SecurityError"
	ErrorFormationViolation            ErrorCode = "FormationViolation"
	ErrorPropertyConstraintViolation   ErrorCode = "PropertyConstraintViolation"
	ErrorOccurrenceConstraintViolation ErrorCode = "OccurrenceConstraintViolation"
	ErrorTypeConstraintViolation       ErrorCode = "TypeConstraintViolation"
	ErrorGeneric                       ErrorCode = "GenericError"
)

// CallError is the error side of a Call, either received from a charge point
// or about to be sent to one.
type CallError struct {
	Code        ErrorCode
	Description string
	Details     map[string]any
}

// Error implements error.
func (e *CallError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("ocpp: %s", e.Code)
	}
	return fmt.Sprintf("ocpp: %s: %s", e.Code, e.Description)
}

// ConstraintError reports a payload field that breaks the OCPP schema.
type ConstraintError struct {
	Code   ErrorCode
	Field  string
	Reason string
}

// Error implements error.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// Validator is implemented by payloads that can check their own fields.
type Validator interface {
	Validate() error
}

func missing(field string) error {
	return &ConstraintError{Code: ErrorOccurrenceConstraintViolation, Field: field, Reason: "is required"}
}

func invalid(field, reason string) error {
	return &ConstraintError{Code: ErrorPropertyConstraintViolation, Field: field, Reason: reason}
}

func oneOf[T ~string](field string, v T, allowed ...T) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return invalid(field, fmt.Sprintf("has unsupported value %q", string(v)))
}

func maxLen(field, v string, n int) error {
	if len(v) > n {
		return invalid(field, fmt.Sprintf("exceeds %d characters", n))
	}
	return nil
}
