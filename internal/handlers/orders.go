package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/platform/auth"
	"github.com/danseongsa/storefront/internal/services"
)

// OrderHandlers exposes the buyer's order detail and order-line actions.
type OrderHandlers struct {
	authn       *auth.Authenticator
	orders      services.OrderQueryService
	fulfillment services.FulfillmentService
	refunds     services.RefundService
}

// NewOrderHandlers constructs buyer order handlers.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderQueryService, fulfillment services.FulfillmentService, refunds services.RefundService) *OrderHandlers {
	return &OrderHandlers{
		authn:       authn,
		orders:      orders,
		fulfillment: fulfillment,
		refunds:     refunds,
	}
}

// Routes registers buyer order endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	group := r
	if h.authn != nil {
		group = group.With(h.authn.RequireSession())
	}
	group.Get("/orders/{orderId}", h.detail)
	group.Post("/order-items/{orderItemId}/cancel", h.cancel)
	group.Post("/order-items/{orderItemId}/confirm", h.confirm)
	group.Post("/order-items/{orderItemId}/refunds", h.requestRefund)
	group.Post("/refunds/{refundId}/cancel", h.cancelRefund)
}

type refundRequestBody struct {
	Type         string `json:"type"`
	Reason       string `json:"reason"`
	ReasonDetail string `json:"reasonDetail"`
	Amount       int64  `json:"amount"`
}

func (h *OrderHandlers) detail(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	detail, err := h.orders.Detail(r.Context(), identity.Actor(domain.ActorBuyer), chi.URLParam(r, "orderId"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, detail)
}

func (h *OrderHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	item, err := h.fulfillment.BuyerCancel(r.Context(), identity.Actor(domain.ActorBuyer), chi.URLParam(r, "orderItemId"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, item)
}

func (h *OrderHandlers) confirm(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	item, err := h.fulfillment.ConfirmPurchase(r.Context(), identity.Actor(domain.ActorBuyer), chi.URLParam(r, "orderItemId"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, item)
}

func (h *OrderHandlers) requestRefund(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var body refundRequestBody
	if !decodeBody(w, r, &body, false) {
		return
	}
	outcome, err := h.refunds.Request(r.Context(), identity.Actor(domain.ActorBuyer), services.RefundRequestCommand{
		OrderItemID:  chi.URLParam(r, "orderItemId"),
		Type:         domain.RefundType(strings.ToUpper(strings.TrimSpace(body.Type))),
		Reason:       body.Reason,
		ReasonDetail: body.ReasonDetail,
		Amount:       body.Amount,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, outcome)
}

func (h *OrderHandlers) cancelRefund(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	outcome, err := h.refunds.Cancel(r.Context(), identity.Actor(domain.ActorBuyer), chi.URLParam(r, "refundId"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, outcome)
}
