package auth

import (
	"context"
	"sync"

	firebaseauth "firebase.google.com/go/v4/auth"

	"github.com/danseongsa/storefront/internal/domain"
)

// Identity is the caller resolved from a verified Firebase ID token.
type Identity struct {
	UID     string
	Name    string
	Phone   string
	Address string
	Seller  bool

	lookup func(ctx context.Context, uid string) (*firebaseauth.UserRecord, error)
	mu     sync.Mutex
	looked bool
}

// Actor returns the identity acting in the given role.
func (i *Identity) Actor(role domain.ActorRole) domain.Actor {
	if i == nil {
		return domain.Actor{Role: role}
	}
	return domain.Actor{UserID: i.UID, Role: role}
}

// SessionUser converts the identity into the signed-in user that checkout works with. A name or
// phone missing from the token is taken from the Firebase user record, fetched at most once.
func (i *Identity) SessionUser(ctx context.Context) *domain.SessionUser {
	i.completeProfile(ctx)
	return &domain.SessionUser{
		UserID:   i.UID,
		Name:     i.Name,
		Phone:    i.Phone,
		Address:  i.Address,
		IsSeller: i.Seller,
	}
}

func (i *Identity) completeProfile(ctx context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.looked || i.lookup == nil || (i.Name != "" && i.Phone != "") {
		return
	}
	i.looked = true
	record, err := i.lookup(ctx, i.UID)
	if err != nil || record == nil || record.UserInfo == nil {
		return
	}
	if i.Name == "" {
		i.Name = record.DisplayName
	}
	if i.Phone == "" {
		i.Phone = record.PhoneNumber
	}
}

type identityKey struct{}

// WithIdentity stores the identity on the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFromContext returns the identity stored by the session middleware.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok && identity != nil
}
