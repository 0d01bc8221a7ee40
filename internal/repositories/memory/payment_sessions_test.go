package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/repositories"
)

func TestPaymentSessionStoreRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewPaymentSessionStore(time.Hour, func() time.Time { return now })
	ctx := context.Background()

	session := domain.PendingPaymentSession{SessionID: "S1", UserID: "u1", CartItemIDs: []string{"c1"}}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.FindByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	got.CartItemIDs[0] = "mutated"
	again, _ := store.FindByUser(ctx, "u1")
	if again.CartItemIDs[0] != "c1" {
		t.Fatalf("store must return copies, got %v", again.CartItemIDs)
	}

	if err := store.Delete(ctx, "u1", "S2"); err != nil {
		t.Fatalf("delete mismatched: %v", err)
	}
	if _, err := store.FindByUser(ctx, "u1"); err != nil {
		t.Fatalf("mismatched delete must keep session: %v", err)
	}

	if err := store.Delete(ctx, "u1", "S1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = store.FindByUser(ctx, "u1")
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestPaymentSessionStoreExpires(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewPaymentSessionStore(time.Minute, func() time.Time { return now })
	ctx := context.Background()

	if err := store.Save(ctx, domain.PendingPaymentSession{SessionID: "S1", UserID: "u1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.FindByUser(ctx, "u1"); err == nil {
		t.Fatalf("expected expired session to be gone")
	}
}

func TestPaymentSessionStoreOverwritesPerUser(t *testing.T) {
	store := NewPaymentSessionStore(0, nil)
	ctx := context.Background()

	_ = store.Save(ctx, domain.PendingPaymentSession{SessionID: "S1", UserID: "u1"})
	_ = store.Save(ctx, domain.PendingPaymentSession{SessionID: "S2", UserID: "u1"})

	got, err := store.FindByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.SessionID != "S2" {
		t.Fatalf("expected latest session, got %s", got.SessionID)
	}
}

func TestPaymentSessionStoreEvictsExpiredPaddedLookup(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewPaymentSessionStore(time.Minute, func() time.Time { return now })
	ctx := context.Background()

	if err := store.Save(ctx, domain.PendingPaymentSession{SessionID: "S1", UserID: "u1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := store.FindByUser(ctx, "  u1 "); err == nil {
		t.Fatalf("expected expired session to be gone")
	}
	store.mu.Lock()
	_, left := store.items["u1"]
	store.mu.Unlock()
	if left {
		t.Fatalf("expired entry must be evicted")
	}
}
