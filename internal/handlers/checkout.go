package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/platform/auth"
	"github.com/danseongsa/storefront/internal/platform/httpx"
	"github.com/danseongsa/storefront/internal/services"
)

// CheckoutHandlers exposes cart selection and the payment session round trip.
type CheckoutHandlers struct {
	authn    *auth.Authenticator
	sessions services.SessionService
	cart     services.CartSelectionService
	payments services.PaymentSessionService
}

// NewCheckoutHandlers constructs checkout handlers guarded by session authentication.
func NewCheckoutHandlers(authn *auth.Authenticator, sessions services.SessionService, cart services.CartSelectionService, payments services.PaymentSessionService) *CheckoutHandlers {
	return &CheckoutHandlers{
		authn:    authn,
		sessions: sessions,
		cart:     cart,
		payments: payments,
	}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	group := r
	if h.authn != nil {
		group = group.With(h.authn.RequireSession())
	}
	group.Post("/cart/selection", h.preview)
	group.Post("/cart/items/{cartId}/quantity", h.changeQuantity)
	group.Post("/checkout/payments", h.begin)
	group.Get("/checkout/payments/current", h.current)
	group.Post("/checkout/payments/resume", h.resume)
	group.Get("/checkout/payments/success", h.success)
	group.Get("/checkout/payments/fail", h.fail)
}

type selectionRequest struct {
	CartIDs []string `json:"cartIds"`
}

type quantityRequest struct {
	Line     domain.CartLine `json:"line"`
	Quantity int             `json:"quantity"`
}

type quantityResponse struct {
	Line    domain.CartLine `json:"line"`
	Changed bool            `json:"changed"`
}

type beginPaymentRequest struct {
	CartIDs       []string            `json:"cartIds"`
	Delivery      domain.DeliveryInfo `json:"delivery"`
	PaymentMethod string              `json:"paymentMethod"`
	OrderName     string              `json:"orderName"`
}

type beginPaymentResponse struct {
	SessionID   string         `json:"sessionId"`
	Provider    string         `json:"provider"`
	RedirectURL string         `json:"redirectUrl"`
	Amounts     domain.Amounts `json:"amounts"`
	ExpiresAt   string         `json:"expiresAt,omitempty"`
}

type paymentSessionResponse struct {
	SessionID     string         `json:"sessionId"`
	State         string         `json:"state"`
	Amounts       domain.Amounts `json:"amounts"`
	FailureCode   string         `json:"failureCode,omitempty"`
	FailureReason string         `json:"failureReason,omitempty"`
	CanResume     bool           `json:"canResume"`
}

func (h *CheckoutHandlers) preview(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req selectionRequest
	if !decodeBody(w, r, &req, true) {
		return
	}
	selection, err := h.cart.Preview(r.Context(), identity.UID, req.CartIDs)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, selection)
}

func (h *CheckoutHandlers) changeQuantity(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	req.Line.CartID = strings.TrimSpace(chi.URLParam(r, "cartId"))
	line, changed, err := h.cart.ChangeQuantity(r.Context(), identity.UID, req.Line, req.Quantity)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, quantityResponse{Line: line, Changed: changed})
}

func (h *CheckoutHandlers) begin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req beginPaymentRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	user, err := h.sessions.SessionUser(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	selection, err := h.cart.Preview(ctx, identity.UID, req.CartIDs)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	result, err := h.payments.Begin(ctx, services.BeginPaymentCommand{
		User:          user,
		Selection:     selection,
		Delivery:      req.Delivery,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		OrderName:     strings.TrimSpace(req.OrderName),
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	resp := beginPaymentResponse{
		SessionID:   result.Session.SessionID,
		Provider:    result.Redirect.Provider,
		RedirectURL: result.Redirect.RedirectURL,
		Amounts:     result.Session.Amounts,
	}
	if result.Redirect.ExpiresAt != nil {
		resp.ExpiresAt = result.Redirect.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSONResponse(w, http.StatusCreated, resp)
}

func (h *CheckoutHandlers) current(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	session, err := h.payments.Current(r.Context(), identity.UID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, sessionResponse(session))
}

func (h *CheckoutHandlers) resume(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	draft, err := h.payments.Resume(r.Context(), identity.UID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, draft)
}

// success handles the gateway's browser return: orderId is the session id, paymentKey the gateway's
// payment key and amount the charged total.
func (h *CheckoutHandlers) success(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	amount, err := strconv.ParseInt(strings.TrimSpace(query.Get("amount")), 10, 64)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "amount must be an integer", http.StatusBadRequest).
			WithDetails(map[string]any{"field": "amount"}))
		return
	}
	confirmation, err := h.payments.HandleSuccess(ctx, services.PaymentSuccessCallback{
		UserID:            identity.UID,
		SessionID:         strings.TrimSpace(query.Get("orderId")),
		GatewayPaymentKey: strings.TrimSpace(query.Get("paymentKey")),
		Amount:            amount,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, confirmation)
}

func (h *CheckoutHandlers) fail(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	session, err := h.payments.HandleFailure(r.Context(), services.PaymentFailureCallback{
		UserID:    identity.UID,
		SessionID: strings.TrimSpace(query.Get("orderId")),
		Code:      strings.TrimSpace(query.Get("code")),
		Message:   query.Get("message"),
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, sessionResponse(session))
}

func sessionResponse(session domain.PendingPaymentSession) paymentSessionResponse {
	return paymentSessionResponse{
		SessionID:     session.SessionID,
		State:         string(session.State),
		Amounts:       session.Amounts,
		FailureCode:   session.FailureCode,
		FailureReason: session.FailureReason,
		CanResume:     session.State != domain.PaymentSessionCompleted,
	}
}
