//go:build integration

package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/repositories"
)

func TestPaymentSessionStoreIntegration(t *testing.T) {
	addr := os.Getenv("STOREFRONT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STOREFRONT_TEST_REDIS_ADDR not set")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := NewPaymentSessionStore(client, "test:payment-session:", time.Minute)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	session := domain.PendingPaymentSession{
		SessionID: "S1",
		UserID:    "u-integration",
		Amounts:   domain.Amounts{Subtotal: 40000, ShippingFee: 3000, Total: 43000},
		State:     domain.PaymentSessionAwaitingCallback,
	}
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.FindByUser(ctx, session.UserID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.SessionID != "S1" || got.Amounts.Total != 43000 {
		t.Fatalf("unexpected session %+v", got)
	}
	ttl, err := client.TTL(ctx, store.key(session.UserID)).Result()
	if err != nil || ttl <= 0 {
		t.Fatalf("expected ttl on key, got %v (%v)", ttl, err)
	}

	if err := store.Delete(ctx, session.UserID, "S2"); err != nil {
		t.Fatalf("delete mismatched: %v", err)
	}
	if _, err := store.FindByUser(ctx, session.UserID); err != nil {
		t.Fatalf("session must survive mismatched delete: %v", err)
	}
	if err := store.Delete(ctx, session.UserID, "S1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = store.FindByUser(ctx, session.UserID)
	var repoErr repositories.RepositoryError
	if !errors.As(err, &repoErr) || !repoErr.IsNotFound() {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
