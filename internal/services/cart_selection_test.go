package services

import (
	"context"
	"errors"
	"testing"

	"github.com/danseongsa/storefront/internal/domain"
)

func TestClampQuantity(t *testing.T) {
	cases := []struct {
		quantity int
		stock    int
		want     int
	}{
		{quantity: 3, stock: 10, want: 3},
		{quantity: 0, stock: 10, want: 1},
		{quantity: -5, stock: 10, want: 1},
		{quantity: 20, stock: 10, want: 10},
		{quantity: 2, stock: 0, want: 1},
		{quantity: 1, stock: -3, want: 1},
	}
	for _, tc := range cases {
		if got := ClampQuantity(tc.quantity, tc.stock); got != tc.want {
			t.Fatalf("ClampQuantity(%d, %d) = %d, want %d", tc.quantity, tc.stock, got, tc.want)
		}
	}
	for q := -50; q <= 50; q++ {
		for stock := 0; stock <= 20; stock++ {
			got := ClampQuantity(q, stock)
			if got < 1 || got > max(1, stock) {
				t.Fatalf("ClampQuantity(%d, %d) = %d out of bounds", q, stock, got)
			}
		}
	}
}

func TestShippingThreshold(t *testing.T) {
	cases := map[int64]int64{
		49999: 3000,
		50000: 0,
		0:     0,
		1:     3000,
		90000: 0,
	}
	for subtotal, want := range cases {
		lines := []domain.CartLine{}
		if subtotal > 0 {
			lines = append(lines, domain.CartLine{CartID: "c1", UnitPrice: subtotal, Quantity: 1, Stock: 1})
		}
		got := ComputeAmounts(lines)
		if got.ShippingFee != want {
			t.Fatalf("subtotal %d: expected shipping %d, got %d", subtotal, want, got.ShippingFee)
		}
		if got.Total != got.Subtotal+got.ShippingFee {
			t.Fatalf("subtotal %d: total %d does not add up", subtotal, got.Total)
		}
	}
}

func TestSelectLinesScenario(t *testing.T) {
	cart := []domain.CartLine{
		{CartID: "c1", ProductID: "jacket", UnitPrice: 52000, DiscountPrice: int64Ptr(40000), Quantity: 1, Stock: 5},
		{CartID: "c2", ProductID: "tee", UnitPrice: 15000, Quantity: 1, Stock: 5},
	}

	sel := SelectLines(cart, []string{"c1"})
	if sel.Amounts != (domain.Amounts{Subtotal: 40000, ShippingFee: 3000, Total: 43000}) {
		t.Fatalf("unexpected amounts for single line: %+v", sel.Amounts)
	}

	sel = SelectLines(cart, []string{"c1", "c2", "unknown"})
	if len(sel.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(sel.Lines))
	}
	if sel.Amounts != (domain.Amounts{Subtotal: 55000, ShippingFee: 0, Total: 55000}) {
		t.Fatalf("unexpected amounts for two lines: %+v", sel.Amounts)
	}
	if again := ComputeAmounts(sel.Lines); again != sel.Amounts {
		t.Fatalf("pricing not idempotent: %+v vs %+v", again, sel.Amounts)
	}
}

func TestSelectLinesClampsToStock(t *testing.T) {
	cart := []domain.CartLine{
		{CartID: "c1", UnitPrice: 1000, Quantity: 7, Stock: 3},
		{CartID: "c2", UnitPrice: 1000, Quantity: 0, Stock: 0},
	}
	sel := SelectLines(cart, []string{"c1", "c2"})
	if sel.Lines[0].Quantity != 3 || sel.Lines[1].Quantity != 1 {
		t.Fatalf("expected clamped quantities 3 and 1, got %d and %d", sel.Lines[0].Quantity, sel.Lines[1].Quantity)
	}
	if len(sel.Clamped) != 2 {
		t.Fatalf("expected both lines reported as clamped, got %v", sel.Clamped)
	}
	if cart[0].Quantity != 7 {
		t.Fatalf("input cart must not be mutated")
	}
}

func TestSelectRejectsEmptySelection(t *testing.T) {
	cart := []domain.CartLine{{CartID: "c1", UnitPrice: 1000, Quantity: 1, Stock: 1}}
	if _, err := Select(cart, nil); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
	if _, err := Select(cart, []string{"missing"}); !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection for unknown ids, got %v", err)
	}
}

func TestCartSelectionChangeQuantityNoopWhenUnchanged(t *testing.T) {
	calls := 0
	svc, err := NewCartSelectionService(CartSelectionServiceDeps{
		Cart: &stubCartBackend{updateFn: func(_ context.Context, _ string, cartID string, quantity int) (domain.CartLine, error) {
			calls++
			return domain.CartLine{CartID: cartID, Quantity: quantity, Stock: 4}, nil
		}},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	line := domain.CartLine{CartID: "c1", Quantity: 4, Stock: 4}
	got, changed, err := svc.ChangeQuantity(context.Background(), "u1", line, 9)
	if err != nil {
		t.Fatalf("change quantity: %v", err)
	}
	if changed || calls != 0 || got.Quantity != 4 {
		t.Fatalf("expected no-op at stock ceiling, changed=%v calls=%d qty=%d", changed, calls, got.Quantity)
	}

	got, changed, err = svc.ChangeQuantity(context.Background(), "u1", line, 2)
	if err != nil {
		t.Fatalf("change quantity: %v", err)
	}
	if !changed || calls != 1 || got.Quantity != 2 {
		t.Fatalf("expected update to 2, changed=%v calls=%d qty=%d", changed, calls, got.Quantity)
	}
}

func TestCartSelectionChangeQuantityPassesBackendMessage(t *testing.T) {
	svc, err := NewCartSelectionService(CartSelectionServiceDeps{
		Cart: &stubCartBackend{updateFn: func(context.Context, string, string, int) (domain.CartLine, error) {
			return domain.CartLine{}, &fakeBackendError{status: 503, message: "장바구니 서비스를 사용할 수 없습니다"}
		}},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	_, _, err = svc.ChangeQuantity(context.Background(), "u1", domain.CartLine{CartID: "c1", Quantity: 1, Stock: 5}, 3)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if err.Error() != "장바구니 서비스를 사용할 수 없습니다" {
		t.Fatalf("expected backend message verbatim, got %q", err.Error())
	}
}

func TestCartSelectionPreview(t *testing.T) {
	svc, err := NewCartSelectionService(CartSelectionServiceDeps{
		Cart: &stubCartBackend{listFn: func(_ context.Context, userID string) ([]domain.CartLine, error) {
			if userID != "u1" {
				t.Fatalf("unexpected user %q", userID)
			}
			return []domain.CartLine{
				{CartID: "c1", UnitPrice: 20000, Quantity: 2, Stock: 5},
				{CartID: "c2", UnitPrice: 9000, Quantity: 1, Stock: 5},
			}, nil
		}},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	sel, err := svc.Preview(context.Background(), "u1", []string{"c1"})
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if sel.Amounts.Total != 43000 {
		t.Fatalf("expected total 43000, got %d", sel.Amounts.Total)
	}
	if _, err := svc.Preview(context.Background(), " ", nil); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
