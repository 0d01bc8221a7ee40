package services

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input the caller can fix locally without a network call.
	ErrValidation = errors.New("checkout: validation failed")
	// ErrEmptySelection is returned when proceeding to checkout with no cart line selected.
	ErrEmptySelection = errors.New("checkout: no cart line selected")
	// ErrUnauthenticated is returned when no session user is present.
	ErrUnauthenticated = errors.New("session: unauthenticated")
	// ErrSessionExpired means the gateway callback cannot be matched to the stored payment session.
	ErrSessionExpired = errors.New("payment session: expired or mismatched")
	// ErrPaymentAmountMismatch means the gateway reported a different amount than the stored draft.
	ErrPaymentAmountMismatch = errors.New("payment session: amount mismatch")
	// ErrInvalidState indicates a transition was attempted from a status that does not allow it.
	ErrInvalidState = errors.New("order: invalid status transition")
	// ErrActorNotPermitted indicates the actor may not trigger the requested transition.
	ErrActorNotPermitted = errors.New("order: actor not permitted")
	// ErrStockChanged is returned when the backend rejects an order because stock moved since selection.
	ErrStockChanged = errors.New("checkout: stock changed")
	// ErrNotFound indicates the backend does not know the order, item or refund.
	ErrNotFound = errors.New("order: not found")
	// ErrBackendUnavailable indicates the backend could not be reached.
	ErrBackendUnavailable = errors.New("backend: unavailable")
)

// ValidationError identifies the first field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %s is required", ErrValidation.Error(), e.Field)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Message)
}

// Unwrap allows errors.Is(err, ErrValidation).
func (e *ValidationError) Unwrap() error { return ErrValidation }

func missingField(field string) error {
	return &ValidationError{Field: field}
}

// BackendError is implemented by order/cart backend client errors so the services layer can
// classify failures without depending on the transport.
type BackendError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
	IsStockChanged() bool
	UserMessage() string
}

// RemoteError wraps a backend failure while keeping the backend's message for display.
type RemoteError struct {
	kind    error
	message string
	err     error
}

// Error returns the backend message verbatim when one was supplied.
func (e *RemoteError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.err.Error()
}

// Is matches the classified sentinel.
func (e *RemoteError) Is(target error) bool {
	return e.kind != nil && target == e.kind
}

// Unwrap exposes the transport error.
func (e *RemoteError) Unwrap() error { return e.err }

func mapBackendError(err error) error {
	if err == nil {
		return nil
	}
	var backendErr BackendError
	if !errors.As(err, &backendErr) {
		return err
	}
	remote := &RemoteError{message: backendErr.UserMessage(), err: err}
	switch {
	case backendErr.IsStockChanged():
		remote.kind = ErrStockChanged
	case backendErr.IsNotFound():
		remote.kind = ErrNotFound
	case backendErr.IsConflict():
		remote.kind = ErrInvalidState
	case backendErr.IsUnavailable():
		remote.kind = ErrBackendUnavailable
	}
	return remote
}
