package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/platform/auth"
	"github.com/danseongsa/storefront/internal/services"
)

// SellerHandlers exposes shipping, seller cancellation and refund decisions.
type SellerHandlers struct {
	authn       *auth.Authenticator
	orders      services.OrderQueryService
	fulfillment services.FulfillmentService
	refunds     services.RefundService
}

// NewSellerHandlers constructs seller handlers guarded by the seller claim.
func NewSellerHandlers(authn *auth.Authenticator, orders services.OrderQueryService, fulfillment services.FulfillmentService, refunds services.RefundService) *SellerHandlers {
	return &SellerHandlers{
		authn:       authn,
		orders:      orders,
		fulfillment: fulfillment,
		refunds:     refunds,
	}
}

// Routes registers seller endpoints.
func (h *SellerHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	group := r
	if h.authn != nil {
		group = group.With(h.authn.RequireSeller())
	}
	group.Get("/orders/{orderId}", h.detail)
	group.Post("/order-items/{orderItemId}/ship", h.ship)
	group.Post("/order-items/{orderItemId}/cancel", h.cancel)
	group.Post("/refunds/{refundId}/approve", h.approve)
	group.Post("/refunds/{refundId}/reject", h.reject)
}

type sellerNoteRequest struct {
	Note string `json:"note"`
}

func (h *SellerHandlers) detail(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	detail, err := h.orders.Detail(r.Context(), identity.Actor(domain.ActorSeller), chi.URLParam(r, "orderId"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, detail)
}

func (h *SellerHandlers) ship(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	item, err := h.fulfillment.Ship(r.Context(), identity.Actor(domain.ActorSeller), chi.URLParam(r, "orderItemId"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, item)
}

func (h *SellerHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	result, err := h.fulfillment.SellerCancel(r.Context(), identity.Actor(domain.ActorSeller), chi.URLParam(r, "orderItemId"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

func (h *SellerHandlers) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.refunds.Approve)
}

func (h *SellerHandlers) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.refunds.Reject)
}

func (h *SellerHandlers) decide(w http.ResponseWriter, r *http.Request, decision func(context.Context, domain.Actor, string, string) (services.RefundOutcome, error)) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var body sellerNoteRequest
	if !decodeBody(w, r, &body, true) {
		return
	}
	outcome, err := decision(r.Context(), identity.Actor(domain.ActorSeller), chi.URLParam(r, "refundId"), body.Note)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, outcome)
}
