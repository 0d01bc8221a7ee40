package firestore

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/danseongsa/storefront/internal/repositories"
)

// WrapError classifies a Firestore error into a repositories.StoreError. Cancellation is returned
// as the matching context error so callers can tell it apart from store failures.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var storeErr *repositories.StoreError
	if errors.As(err, &storeErr) {
		if storeErr.Op == "" {
			storeErr.Op = op
		}
		return storeErr
	}

	code := status.Code(err)
	switch code {
	case codes.Canceled:
		return context.Canceled
	case codes.DeadlineExceeded:
		return context.DeadlineExceeded
	}
	return &repositories.StoreError{
		Op:          op,
		Err:         err,
		NotFound:    code == codes.NotFound,
		Conflict:    code == codes.AlreadyExists || code == codes.FailedPrecondition || code == codes.Aborted,
		Unavailable: code == codes.Unavailable || code == codes.ResourceExhausted || code == codes.Internal,
	}
}
