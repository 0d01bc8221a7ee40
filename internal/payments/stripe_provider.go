package payments

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// ProviderStripe is the registry key of the Stripe Checkout provider.
const ProviderStripe = "stripe"

const stripeSessionPlaceholder = "{CHECKOUT_SESSION_ID}"

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey    string
	AccountID string
	Backends  *stripe.Backends
	Logger    StripeLogger
	Clock     func() time.Time
	Sessions  stripeSessionAPI
}

// StripeProvider hands the shopper to a Stripe Checkout page. The storefront session id is the
// client reference, and the Checkout session id comes back as the payment key.
type StripeProvider struct {
	sessions stripeSessionAPI
	account  string
	clock    func() time.Time
	logger   StripeLogger
}

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	sessions := cfg.Sessions
	if sessions == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sessions = client.New(apiKey, cfg.Backends).CheckoutSessions
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		sessions: sessions,
		account:  strings.TrimSpace(cfg.AccountID),
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// CreateCheckoutSession creates a Stripe Checkout session for the pending payment.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	if p == nil {
		return CheckoutSession{}, errors.New("stripe: provider is nil")
	}
	currency := strings.ToLower(defaultString(req.Currency, "krw"))
	metadata := map[string]string{
		"sessionId": req.SessionID,
		"userId":    req.UserID,
	}
	if req.PaymentMethod != "" {
		metadata["paymentMethod"] = req.PaymentMethod
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(appendRawParam(req.SuccessURL, "paymentKey", stripeSessionPlaceholder)),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.SessionID),
		Metadata:          metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: maps.Clone(metadata),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout:" + req.SessionID)
	if p.account != "" {
		params.SetStripeAccount(p.account)
	}
	if req.OrderName != "" {
		params.PaymentIntentData.Description = stripe.String(req.OrderName)
	}
	params.LineItems = stripeLineItems(req, currency)

	session, err := p.sessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	p.logger(ctx, "payments.stripe.session.created", map[string]any{
		"sessionId":         req.SessionID,
		"checkoutSessionId": session.ID,
		"currency":          session.Currency,
	})

	expiresAt := p.clock().Add(30 * time.Minute)
	if session.ExpiresAt != 0 {
		expiresAt = time.Unix(session.ExpiresAt, 0).UTC()
	}
	return CheckoutSession{
		ID:          session.ID,
		Provider:    ProviderStripe,
		RedirectURL: session.URL,
		ExpiresAt:   expiresAt,
	}, nil
}

// stripeLineItems mirrors the cart lines and the shipping fee. KRW is zero-decimal, so unit
// amounts are passed as-is.
func stripeLineItems(req CheckoutSessionRequest, currency string) []*stripe.CheckoutSessionLineItemParams {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items)+1)
	var itemsTotal int64
	for _, item := range req.Items {
		price := item.EffectivePrice()
		itemsTotal += price * int64(item.Quantity)
		lineItems = append(lineItems, stripeLine(defaultString(item.ProductName, item.ProductID), currency, price, int64(item.Quantity)))
	}
	if req.ShippingFee > 0 {
		itemsTotal += req.ShippingFee
		lineItems = append(lineItems, stripeLine("배송비", currency, req.ShippingFee, 1))
	}
	if len(lineItems) == 0 || itemsTotal != req.Amount {
		return []*stripe.CheckoutSessionLineItemParams{
			stripeLine(defaultString(req.OrderName, "Order"), currency, req.Amount, 1),
		}
	}
	return lineItems
}

func stripeLine(name, currency string, unitAmount, quantity int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(max(quantity, 1)),
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(currency),
			UnitAmount: stripe.Int64(unitAmount),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
		},
	}
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
