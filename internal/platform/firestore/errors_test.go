package firestore

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/danseongsa/storefront/internal/platform/config"
	"github.com/danseongsa/storefront/internal/repositories"
)

func TestWrapErrorClassifiesStatusCodes(t *testing.T) {
	cases := []struct {
		code        codes.Code
		notFound    bool
		conflict    bool
		unavailable bool
	}{
		{codes.NotFound, true, false, false},
		{codes.Aborted, false, true, false},
		{codes.FailedPrecondition, false, true, false},
		{codes.Unavailable, false, false, true},
		{codes.PermissionDenied, false, false, false},
	}
	for _, tc := range cases {
		err := WrapError("paymentSessions.get", status.Error(tc.code, "boom"))
		var repoErr repositories.RepositoryError
		if !errors.As(err, &repoErr) {
			t.Fatalf("%s: expected repository error, got %T", tc.code, err)
		}
		if repoErr.IsNotFound() != tc.notFound || repoErr.IsConflict() != tc.conflict || repoErr.IsUnavailable() != tc.unavailable {
			t.Fatalf("%s: unexpected classification %+v", tc.code, repoErr)
		}
	}
}

func TestWrapErrorKeepsExistingStoreError(t *testing.T) {
	inner := repositories.NewNotFoundError("", errors.New("expired"))
	err := WrapError("paymentSessions.get", inner)
	var storeErr *repositories.StoreError
	if !errors.As(err, &storeErr) || storeErr != inner || storeErr.Op != "paymentSessions.get" {
		t.Fatalf("expected the same store error annotated with op, got %v", err)
	}
}

func TestWrapErrorPassesThroughCancellation(t *testing.T) {
	if err := WrapError("op", status.Error(codes.Canceled, "gone")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := WrapError("op", context.DeadlineExceeded); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline passthrough, got %v", err)
	}
	if WrapError("op", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestProviderRejectsUseAfterClose(t *testing.T) {
	provider := NewProvider(config.FirestoreConfig{ProjectID: "test-project"})
	if err := provider.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := provider.Client(context.Background()); !errors.Is(err, ErrProviderClosed) {
		t.Fatalf("expected ErrProviderClosed, got %v", err)
	}
}

func TestCollectionRefValidatesInput(t *testing.T) {
	provider := NewProvider(config.FirestoreConfig{ProjectID: "test-project"})
	if _, err := NewCollection[struct{}](provider, "").Ref(context.Background(), "u1"); err == nil {
		t.Fatalf("expected error for empty collection")
	}
	if _, err := NewCollection[struct{}](provider, "paymentSessions").Ref(context.Background(), " "); err == nil {
		t.Fatalf("expected error for empty id")
	}
}
