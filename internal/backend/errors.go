package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const codeStockChanged = "stock_changed"

// Error is a failure reported by (or while reaching) the order/cart backend.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Status == 0 && e.Err != nil:
		return fmt.Sprintf("backend: request failed: %v", e.Err)
	case e.Message != "":
		return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("backend: status %d", e.Status)
	}
}

// Unwrap exposes the transport error, if any.
func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports a 404 from the backend.
func (e *Error) IsNotFound() bool { return e.Status == http.StatusNotFound }

// IsConflict reports that the backend refused the change in the current state.
func (e *Error) IsConflict() bool {
	return e.Status == http.StatusConflict || e.Status == http.StatusUnprocessableEntity
}

// IsUnavailable reports transport failures and 5xx responses.
func (e *Error) IsUnavailable() bool {
	return e.Status == 0 || e.Status >= http.StatusInternalServerError
}

// IsStockChanged reports that stock moved since the shopper selected the lines.
func (e *Error) IsStockChanged() bool {
	code := strings.ToLower(strings.TrimSpace(e.Code))
	return code == codeStockChanged || code == "out_of_stock" || code == "insufficient_stock"
}

// UserMessage is the backend's message, shown to the user verbatim.
func (e *Error) UserMessage() string { return e.Message }

// ErrMissingBaseURL is returned when the client is built without a backend URL.
var ErrMissingBaseURL = errors.New("backend: base url is required")

// ErrInvalidPathSegment is returned before any request is sent when an id would not address a
// single resource.
var ErrInvalidPathSegment = errors.New("backend: invalid path segment")
