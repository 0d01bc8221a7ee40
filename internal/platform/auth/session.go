package auth

import (
	"context"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/services"
)

// SessionResolver answers "who is signed in" from the request identity.
type SessionResolver struct{}

// SessionUser implements services.SessionService.
func (SessionResolver) SessionUser(ctx context.Context) (*domain.SessionUser, error) {
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity.UID == "" {
		return nil, services.ErrUnauthenticated
	}
	return identity.SessionUser(ctx), nil
}

var _ services.SessionService = SessionResolver{}
