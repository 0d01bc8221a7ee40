package payments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/services"
)

// ErrUnsupportedProvider is returned when the manager cannot locate a provider.
var ErrUnsupportedProvider = errors.New("payments: unsupported provider")

// CheckoutSessionRequest captures what a provider needs to prepare the hosted payment page.
// SuccessURL and CancelURL already carry the session id and amount; providers append their
// own payment key.
type CheckoutSessionRequest struct {
	SessionID     string
	UserID        string
	OrderName     string
	Amount        int64
	Currency      string
	PaymentMethod string
	Items         []domain.CartLine
	ShippingFee   int64
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the provider's answer: where to send the shopper.
type CheckoutSession struct {
	ID          string
	Provider    string
	RedirectURL string
	ExpiresAt   time.Time
}

// Provider is implemented by gateway adapters.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error)
}

// Manager selects a provider and builds return URLs. It implements services.PaymentGateway.
type Manager struct {
	providers       map[string]Provider
	defaultProvider string
	currencyRoutes  map[string]string
	successURL      string
	failURL         string
}

var _ services.PaymentGateway = (*Manager)(nil)

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithDefaultProvider overrides the default provider for currencies without explicit routing.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) {
		m.defaultProvider = strings.ToLower(strings.TrimSpace(provider))
	}
}

// WithCurrencyRoutes configures static currency to provider mappings.
func WithCurrencyRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		if len(routes) == 0 {
			return
		}
		if m.currencyRoutes == nil {
			m.currencyRoutes = make(map[string]string, len(routes))
		}
		for k, v := range routes {
			m.currencyRoutes[strings.ToUpper(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
		}
	}
}

// WithReturnURLs sets where the gateway sends the shopper after paying or giving up.
func WithReturnURLs(successURL, failURL string) ManagerOption {
	return func(m *Manager) {
		m.successURL = strings.TrimSpace(successURL)
		m.failURL = strings.TrimSpace(failURL)
	}
}

// NewManager constructs a Manager over the supplied providers.
func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	copyMap := make(map[string]Provider, len(providers))
	for k, v := range providers {
		key := strings.TrimSpace(strings.ToLower(k))
		if key == "" || v == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", k)
		}
		copyMap[key] = v
	}
	m := &Manager{providers: copyMap}
	if _, ok := copyMap[ProviderStripe]; ok {
		m.defaultProvider = ProviderStripe
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.successURL == "" || m.failURL == "" {
		return nil, errors.New("payments: success and fail urls are required")
	}
	return m, nil
}

func (m *Manager) resolveProvider(currency string) (string, Provider, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if key, ok := m.currencyRoutes[currency]; ok {
		if p, ok := m.providers[key]; ok {
			return key, p, nil
		}
	}
	if p, ok := m.providers[m.defaultProvider]; ok {
		return m.defaultProvider, p, nil
	}
	if len(m.providers) == 1 {
		for key, p := range m.providers {
			return key, p, nil
		}
	}
	return "", nil, ErrUnsupportedProvider
}

// CreateRedirect prepares the gateway page for the payment session.
func (m *Manager) CreateRedirect(ctx context.Context, req services.PaymentRedirectRequest) (services.PaymentRedirect, error) {
	if strings.TrimSpace(req.SessionID) == "" {
		return services.PaymentRedirect{}, errors.New("payments: session id is required")
	}
	if req.Amount <= 0 {
		return services.PaymentRedirect{}, fmt.Errorf("payments: invalid amount %d", req.Amount)
	}
	key, provider, err := m.resolveProvider(req.Currency)
	if err != nil {
		return services.PaymentRedirect{}, err
	}
	successURL, err := withQuery(m.successURL, map[string]string{
		"orderId": req.SessionID,
		"amount":  strconv.FormatInt(req.Amount, 10),
	})
	if err != nil {
		return services.PaymentRedirect{}, err
	}
	failURL, err := withQuery(m.failURL, map[string]string{"orderId": req.SessionID})
	if err != nil {
		return services.PaymentRedirect{}, err
	}

	session, err := provider.CreateCheckoutSession(ctx, CheckoutSessionRequest{
		SessionID:     req.SessionID,
		UserID:        req.UserID,
		OrderName:     req.OrderName,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		Items:         req.Items,
		ShippingFee:   req.ShippingFee,
		SuccessURL:    successURL,
		CancelURL:     failURL,
	})
	if err != nil {
		return services.PaymentRedirect{}, err
	}
	redirect := services.PaymentRedirect{Provider: key, RedirectURL: session.RedirectURL}
	if !session.ExpiresAt.IsZero() {
		expires := session.ExpiresAt
		redirect.ExpiresAt = &expires
	}
	return redirect, nil
}

func withQuery(raw string, params map[string]string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("payments: parse return url: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// appendRawParam adds a query parameter without escaping its value, for provider placeholders.
func appendRawParam(raw, key, value string) string {
	sep := "?"
	if strings.Contains(raw, "?") {
		sep = "&"
	}
	return raw + sep + key + "=" + value
}
