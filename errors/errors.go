// Package errors holds the error taxonomy shared by the live channel and the HTTP surface.
// Every concrete error wraps exactly one kind so the edges can classify it with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// Kinds.
var (
	ErrAuthentication      = errors.New("authentication failure")
	ErrVerifierUnavailable = errors.New("identity verifier unavailable")
	ErrAuthorization       = errors.New("authorization failure")
	ErrValidation          = errors.New("validation failure")
	ErrNotFound            = errors.New("not found")
	ErrStore               = errors.New("store failure")
)

// Authentication
var (
	ErrMissingCredential = fmt.Errorf("%w: missing bearer token", ErrAuthentication)
	ErrInvalidCredential = fmt.Errorf("%w: invalid token", ErrAuthentication)
	ErrSessionState      = fmt.Errorf("%w: session is not in a state allowing this transition", ErrAuthentication)
)

// Validation
var (
	ErrEmptyMessage         = fmt.Errorf("%w: message has neither text nor image", ErrValidation)
	ErrEmptyText            = fmt.Errorf("%w: message text is required", ErrValidation)
	ErrInvalidImageFormat   = fmt.Errorf("%w: invalid image data format", ErrValidation)
	ErrImageTooLarge        = fmt.Errorf("%w: image too large", ErrValidation)
	ErrUnsupportedImageType = fmt.Errorf("%w: invalid image type", ErrValidation)
	ErrImageContentMismatch = fmt.Errorf("%w: image content does not match its declared type", ErrValidation)
	ErrInvalidPayload       = fmt.Errorf("%w: invalid payload", ErrValidation)
	ErrUnknownEvent         = fmt.Errorf("%w: unknown event", ErrValidation)
	ErrInvalidCursor        = fmt.Errorf("%w: invalid cursor", ErrValidation)
)

// Store and runtime
var (
	ErrMessageUnavailable = fmt.Errorf("%w: message not found or you cannot modify this message", ErrNotFound)
	ErrProfileNotFound    = fmt.Errorf("%w: profile", ErrNotFound)
	ErrUnsupportedFilter  = fmt.Errorf("%w: filter is not supported by this backend", ErrStore)
	ErrUnknownStoreDriver = errors.New("unknown store driver")
	ErrSinkClosed         = errors.New("sink closed")
	ErrSinkFull           = errors.New("sink buffer full")
	ErrUnknownSession     = errors.New("unknown session")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)

// Is and As let callers classify errors without importing both error packages.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
