package ledger

import (
	"errors"
	"fmt"
)

// Code is a stable failure code returned to external callers.
type Code int

const (
	// CodeUnauthorized indicates the caller may not perform the operation.
	CodeUnauthorized Code = 200

	// CodeNotFound indicates a referenced record does not exist.
	CodeNotFound Code = 201

	// CodeInvalidRate indicates a non-positive provider hourly rate.
	CodeInvalidRate Code = 202

	// CodeInvalidStatus indicates the booking is not in a state that
	// allows the requested transition (including rating before completion).
	CodeInvalidStatus Code = 203

	// CodeInsufficientPayment indicates the payment presented is below the
	// booking's total cost.
	CodeInsufficientPayment Code = 204

	// CodeAlreadyRated indicates the booking has already been rated.
	CodeAlreadyRated Code = 205

	// CodeAlreadySet indicates the booking's preparation record is already set.
	CodeAlreadySet Code = 206

	// CodeInvalidInput indicates a malformed or out-of-range argument.
	CodeInvalidInput Code = 207

	// CodeInactive indicates the referenced provider or garden is deactivated.
	CodeInactive Code = 208

	// CodeInvalidDepth indicates a non-positive garden initial depth.
	CodeInvalidDepth Code = 501

	// CodeInvalidMeasurement indicates a measurement ordering or bound violation.
	CodeInvalidMeasurement Code = 502

	// CodeInvalidProfile indicates a malformed decay rate profile.
	CodeInvalidProfile Code = 503

	// CodeInvalidThreshold indicates a threshold outside (0, 100].
	CodeInvalidThreshold Code = 504
)

var codeNames = map[Code]string{
	CodeUnauthorized:        "Unauthorized",
	CodeNotFound:            "NotFound",
	CodeInvalidRate:         "InvalidRate",
	CodeInvalidStatus:       "InvalidStatus",
	CodeInsufficientPayment: "InsufficientPayment",
	CodeAlreadyRated:        "AlreadyRated",
	CodeAlreadySet:          "AlreadySet",
	CodeInvalidInput:        "InvalidInput",
	CodeInactive:            "Inactive",
	CodeInvalidDepth:        "InvalidDepth",
	CodeInvalidMeasurement:  "InvalidMeasurement",
	CodeInvalidProfile:      "InvalidProfile",
	CodeInvalidThreshold:    "InvalidThreshold",
}

// Name returns the output case name for the code, e.g. "InvalidStatus".
func (c Code) Name() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code%d", int(c))
}

func (c Code) String() string {
	return fmt.Sprintf("%s(%d)", c.Name(), int(c))
}

// CodeByName is the inverse of Code.Name. It returns false for unknown names.
func CodeByName(name string) (Code, bool) {
	for code, n := range codeNames {
		if n == name {
			return code, true
		}
	}
	return 0, false
}

// Codes returns every defined code in ascending order.
func Codes() []Code {
	return []Code{
		CodeUnauthorized, CodeNotFound, CodeInvalidRate, CodeInvalidStatus,
		CodeInsufficientPayment, CodeAlreadyRated, CodeAlreadySet, CodeInvalidInput,
		CodeInactive, CodeInvalidDepth, CodeInvalidMeasurement, CodeInvalidProfile,
		CodeInvalidThreshold,
	}
}

// Error is a rejected transition.
//
// A rejected transition never mutates state; the caller is expected to
// resubmit a corrected request.
type Error struct {
	// Code identifies the failure category.
	Code Code

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so errors.Is(err, ErrNotFound)
// works regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// Errorf creates an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is matching.
var (
	ErrUnauthorized        = &Error{Code: CodeUnauthorized}
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrInvalidRate         = &Error{Code: CodeInvalidRate}
	ErrInvalidStatus       = &Error{Code: CodeInvalidStatus}
	ErrInsufficientPayment = &Error{Code: CodeInsufficientPayment}
	ErrAlreadyRated        = &Error{Code: CodeAlreadyRated}
	ErrAlreadySet          = &Error{Code: CodeAlreadySet}
	ErrInvalidInput        = &Error{Code: CodeInvalidInput}
	ErrInactive            = &Error{Code: CodeInactive}
	ErrInvalidDepth        = &Error{Code: CodeInvalidDepth}
	ErrInvalidMeasurement  = &Error{Code: CodeInvalidMeasurement}
	ErrInvalidProfile      = &Error{Code: CodeInvalidProfile}
	ErrInvalidThreshold    = &Error{Code: CodeInvalidThreshold}
)

// CodeOf extracts the failure code from err.
// Uses errors.As to handle wrapped errors. Returns false for nil and for
// errors that are not ledger failures.
func CodeOf(err error) (Code, bool) {
	var le *Error
	if errors.As(err, &le) {
		return le.Code, true
	}
	return 0, false
}

// IsFailure returns true if err is a ledger failure (as opposed to an
// infrastructure error such as a storage fault).
func IsFailure(err error) bool {
	_, ok := CodeOf(err)
	return ok
}
