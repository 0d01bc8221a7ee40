package payments

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/danseongsa/storefront/internal/services"
)

type fakeProvider struct {
	calls   int
	last    CheckoutSessionRequest
	session CheckoutSession
	err     error
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	f.calls++
	f.last = req
	return f.session, f.err
}

func newTestManager(t *testing.T, providers map[string]Provider, opts ...ManagerOption) *Manager {
	t.Helper()
	opts = append([]ManagerOption{WithReturnURLs("https://shop.example/checkout/success", "https://shop.example/checkout/fail?src=pg")}, opts...)
	mgr, err := NewManager(providers, opts...)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return mgr
}

func TestManagerBuildsReturnURLs(t *testing.T) {
	expires := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	provider := &fakeProvider{session: CheckoutSession{RedirectURL: "https://pay.example/s/1", ExpiresAt: expires}}
	mgr := newTestManager(t, map[string]Provider{"stripe": provider})

	redirect, err := mgr.CreateRedirect(context.Background(), services.PaymentRedirectRequest{
		SessionID: "S1",
		UserID:    "u1",
		Amount:    43000,
		Currency:  "KRW",
	})
	if err != nil {
		t.Fatalf("create redirect: %v", err)
	}
	if redirect.Provider != "stripe" || redirect.RedirectURL != "https://pay.example/s/1" {
		t.Fatalf("unexpected redirect %+v", redirect)
	}
	if redirect.ExpiresAt == nil || !redirect.ExpiresAt.Equal(expires) {
		t.Fatalf("expected expiry %v, got %v", expires, redirect.ExpiresAt)
	}

	success, err := url.Parse(provider.last.SuccessURL)
	if err != nil {
		t.Fatalf("parse success url: %v", err)
	}
	if success.Query().Get("orderId") != "S1" || success.Query().Get("amount") != "43000" {
		t.Fatalf("unexpected success url %s", provider.last.SuccessURL)
	}
	fail, _ := url.Parse(provider.last.CancelURL)
	if fail.Query().Get("orderId") != "S1" || fail.Query().Get("src") != "pg" {
		t.Fatalf("unexpected fail url %s", provider.last.CancelURL)
	}
}

func TestManagerRoutesByCurrency(t *testing.T) {
	stripe := &fakeProvider{}
	sandbox := &fakeProvider{}
	mgr := newTestManager(t,
		map[string]Provider{"stripe": stripe, "sandbox": sandbox},
		WithCurrencyRoutes(map[string]string{"krw": "SANDBOX"}),
	)

	redirect, err := mgr.CreateRedirect(context.Background(), services.PaymentRedirectRequest{SessionID: "S1", Amount: 1000, Currency: "KRW"})
	if err != nil {
		t.Fatalf("create redirect: %v", err)
	}
	if redirect.Provider != "sandbox" || sandbox.calls != 1 || stripe.calls != 0 {
		t.Fatalf("expected sandbox routing, got %+v", redirect)
	}
}

func TestManagerRejectsInvalidRequests(t *testing.T) {
	provider := &fakeProvider{}
	mgr := newTestManager(t, map[string]Provider{"sandbox": provider})

	if _, err := mgr.CreateRedirect(context.Background(), services.PaymentRedirectRequest{Amount: 1000}); err == nil {
		t.Fatalf("expected error for missing session id")
	}
	if _, err := mgr.CreateRedirect(context.Background(), services.PaymentRedirectRequest{SessionID: "S1"}); err == nil {
		t.Fatalf("expected error for zero amount")
	}
	if provider.calls != 0 {
		t.Fatalf("provider must not be called for invalid requests")
	}
}

func TestManagerPropagatesProviderError(t *testing.T) {
	boom := errors.New("gateway down")
	mgr := newTestManager(t, map[string]Provider{"sandbox": &fakeProvider{err: boom}})
	_, err := mgr.CreateRedirect(context.Background(), services.PaymentRedirectRequest{SessionID: "S1", Amount: 1000})
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, WithReturnURLs("a", "b")); err == nil {
		t.Fatalf("expected error without providers")
	}
	if _, err := NewManager(map[string]Provider{"sandbox": &fakeProvider{}}); err == nil {
		t.Fatalf("expected error without return urls")
	}
	if _, err := NewManager(map[string]Provider{" ": &fakeProvider{}}, WithReturnURLs("a", "b")); err == nil {
		t.Fatalf("expected error for blank provider key")
	}
}

func TestSandboxProviderRedirectsToSuccess(t *testing.T) {
	clock := func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	mgr := newTestManager(t, map[string]Provider{ProviderSandbox: NewSandboxProvider(clock)})

	redirect, err := mgr.CreateRedirect(context.Background(), services.PaymentRedirectRequest{SessionID: "S1", Amount: 43000})
	if err != nil {
		t.Fatalf("create redirect: %v", err)
	}
	u, err := url.Parse(redirect.RedirectURL)
	if err != nil {
		t.Fatalf("parse redirect: %v", err)
	}
	q := u.Query()
	if q.Get("paymentKey") != "sandbox_S1" || q.Get("orderId") != "S1" || q.Get("amount") != "43000" {
		t.Fatalf("unexpected redirect %s", redirect.RedirectURL)
	}
}
