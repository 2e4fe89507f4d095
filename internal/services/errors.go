package services

import "errors"

// ErrFocusModelNotFound is returned by the read-only model lookup when no
// model has been built for the key.
var ErrFocusModelNotFound = errors.New("focus model not found")

// ErrNoRecipientEmail marks an email delivery that cannot be attempted.
var ErrNoRecipientEmail = errors.New("recipient has no email address on file")

// ErrDeliveryDeferred marks a delivery that was not attempted. The item stays
// pending for a later dispatch.
var ErrDeliveryDeferred = errors.New("delivery deferred")

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
