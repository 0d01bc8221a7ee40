package repositories

import (
	"context"

	"github.com/danseongsa/storefront/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// PaymentSessionRepository stores at most one pending payment session per user.
// Writes overwrite the user's previous session.
type PaymentSessionRepository interface {
	Save(ctx context.Context, session domain.PendingPaymentSession) error
	// FindByUser returns a not-found RepositoryError when no session is stored.
	FindByUser(ctx context.Context, userID string) (domain.PendingPaymentSession, error)
	// Delete removes the user's session only while its id still equals sessionID.
	Delete(ctx context.Context, userID, sessionID string) error
}

// HealthChecker is implemented by stores that can report readiness.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
