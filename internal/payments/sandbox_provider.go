package payments

import (
	"context"
	"time"
)

// ProviderSandbox is the registry key of the local sandbox provider.
const ProviderSandbox = "sandbox"

// SandboxProvider approves every payment immediately by redirecting straight to the success
// URL. It backs local development and end-to-end tests.
type SandboxProvider struct {
	clock func() time.Time
}

// NewSandboxProvider constructs the sandbox provider.
func NewSandboxProvider(clock func() time.Time) *SandboxProvider {
	if clock == nil {
		clock = time.Now
	}
	return &SandboxProvider{clock: clock}
}

// CreateCheckoutSession implements Provider.
func (p *SandboxProvider) CreateCheckoutSession(_ context.Context, req CheckoutSessionRequest) (CheckoutSession, error) {
	id := "sandbox_" + req.SessionID
	return CheckoutSession{
		ID:          id,
		Provider:    ProviderSandbox,
		RedirectURL: appendRawParam(req.SuccessURL, "paymentKey", id),
		ExpiresAt:   p.clock().UTC().Add(30 * time.Minute),
	}, nil
}
