package errors

import (
	stdErrors "errors"
	"fmt"
)

// Code classifies failures the batch processors encounter. The taxonomy drives
// retry semantics: validation failures need the user to fix account state,
// gateway and dependency failures are retryable by rescheduling, notification
// failures are always best-effort.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeGateway       Code = "GATEWAY_ERROR"
	CodeNotification  Code = "NOTIFICATION_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeInternal      Code = "INTERNAL_ERROR"
)

type Metadata struct {
	// Retryable reports whether a later batch pass may succeed without
	// operator or user intervention.
	Retryable bool
	// Fatal reports whether the failure should abort the whole run rather
	// than just the current account.
	Fatal bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {Retryable: false},
	CodeNotFound:      {Retryable: false},
	CodeStateConflict: {Retryable: false},
	CodeGateway:       {Retryable: true},
	CodeNotification:  {Retryable: true},
	CodeDependency:    {Retryable: true, Fatal: true},
	CodeInternal:      {Retryable: true, Fatal: true},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsRetryable reports whether a later scheduled run may clear the failure.
func IsRetryable(err error) bool {
	typed := As(err)
	if typed == nil {
		return false
	}
	return MetadataFor(typed.Code()).Retryable
}
