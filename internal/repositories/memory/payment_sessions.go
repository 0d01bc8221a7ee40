package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/repositories"
)

var errSessionNotFound = errors.New("payment session not found")

type entry struct {
	session   domain.PendingPaymentSession
	expiresAt time.Time
}

// PaymentSessionStore keeps pending sessions in process memory. Intended for local runs and tests.
type PaymentSessionStore struct {
	mu    sync.Mutex
	items map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

// NewPaymentSessionStore returns an empty store. A non-positive ttl keeps sessions until deleted.
func NewPaymentSessionStore(ttl time.Duration, clock func() time.Time) *PaymentSessionStore {
	if clock == nil {
		clock = time.Now
	}
	return &PaymentSessionStore{items: make(map[string]entry), ttl: ttl, now: clock}
}

// Save implements repositories.PaymentSessionRepository.
func (s *PaymentSessionStore) Save(_ context.Context, session domain.PendingPaymentSession) error {
	userID := strings.TrimSpace(session.UserID)
	if userID == "" {
		return &repositories.StoreError{Op: "memory.payment_sessions.save", Err: errors.New("user id is required")}
	}
	var expires time.Time
	if s.ttl > 0 {
		expires = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.items[userID] = entry{session: cloneSession(session), expiresAt: expires}
	s.mu.Unlock()
	return nil
}

// FindByUser implements repositories.PaymentSessionRepository.
func (s *PaymentSessionStore) FindByUser(_ context.Context, userID string) (domain.PendingPaymentSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID = strings.TrimSpace(userID)
	e, ok := s.items[userID]
	if !ok {
		return domain.PendingPaymentSession{}, repositories.NewNotFoundError("memory.payment_sessions.find", errSessionNotFound)
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.items, userID)
		return domain.PendingPaymentSession{}, repositories.NewNotFoundError("memory.payment_sessions.find", errSessionNotFound)
	}
	return cloneSession(e.session), nil
}

// Delete implements repositories.PaymentSessionRepository.
func (s *PaymentSessionStore) Delete(_ context.Context, userID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID = strings.TrimSpace(userID)
	e, ok := s.items[userID]
	if !ok || e.session.SessionID != sessionID {
		return nil
	}
	delete(s.items, userID)
	return nil
}

// Ping implements repositories.HealthChecker.
func (s *PaymentSessionStore) Ping(context.Context) error { return nil }

func cloneSession(session domain.PendingPaymentSession) domain.PendingPaymentSession {
	session.CartItemIDs = append([]string(nil), session.CartItemIDs...)
	session.Items = append([]domain.CartLine(nil), session.Items...)
	return session
}
