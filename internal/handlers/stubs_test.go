package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/platform/auth"
	"github.com/danseongsa/storefront/internal/services"
)

type stubSessionService struct {
	user *domain.SessionUser
	err  error
}

func (s stubSessionService) SessionUser(context.Context) (*domain.SessionUser, error) {
	return s.user, s.err
}

type stubCartSelection struct {
	previewFn func(ctx context.Context, userID string, selected []string) (services.Selection, error)
	changeFn  func(ctx context.Context, userID string, line domain.CartLine, requested int) (domain.CartLine, bool, error)
}

func (s *stubCartSelection) Preview(ctx context.Context, userID string, selected []string) (services.Selection, error) {
	if s.previewFn == nil {
		return services.Selection{}, nil
	}
	return s.previewFn(ctx, userID, selected)
}

func (s *stubCartSelection) ChangeQuantity(ctx context.Context, userID string, line domain.CartLine, requested int) (domain.CartLine, bool, error) {
	if s.changeFn == nil {
		return line, false, nil
	}
	return s.changeFn(ctx, userID, line, requested)
}

type stubPaymentSessions struct {
	beginFn   func(ctx context.Context, cmd services.BeginPaymentCommand) (services.BeginPaymentResult, error)
	successFn func(ctx context.Context, cb services.PaymentSuccessCallback) (services.PaymentConfirmation, error)
	failureFn func(ctx context.Context, cb services.PaymentFailureCallback) (domain.PendingPaymentSession, error)
	resumeFn  func(ctx context.Context, userID string) (domain.OrderDraft, error)
	currentFn func(ctx context.Context, userID string) (domain.PendingPaymentSession, error)
}

func (s *stubPaymentSessions) Begin(ctx context.Context, cmd services.BeginPaymentCommand) (services.BeginPaymentResult, error) {
	return s.beginFn(ctx, cmd)
}

func (s *stubPaymentSessions) HandleSuccess(ctx context.Context, cb services.PaymentSuccessCallback) (services.PaymentConfirmation, error) {
	return s.successFn(ctx, cb)
}

func (s *stubPaymentSessions) HandleFailure(ctx context.Context, cb services.PaymentFailureCallback) (domain.PendingPaymentSession, error) {
	return s.failureFn(ctx, cb)
}

func (s *stubPaymentSessions) Resume(ctx context.Context, userID string) (domain.OrderDraft, error) {
	return s.resumeFn(ctx, userID)
}

func (s *stubPaymentSessions) Current(ctx context.Context, userID string) (domain.PendingPaymentSession, error) {
	return s.currentFn(ctx, userID)
}

type stubOrderQuery struct {
	detailFn func(ctx context.Context, actor domain.Actor, orderID string) (services.OrderDetail, error)
}

func (s *stubOrderQuery) Detail(ctx context.Context, actor domain.Actor, orderID string) (services.OrderDetail, error) {
	return s.detailFn(ctx, actor, orderID)
}

type stubFulfillment struct {
	shipFn    func(ctx context.Context, actor domain.Actor, orderItemID string) (domain.OrderItem, error)
	sellerFn  func(ctx context.Context, actor domain.Actor, orderItemID string) (services.SellerCancelResult, error)
	cancelFn  func(ctx context.Context, actor domain.Actor, orderItemID string) (domain.OrderItem, error)
	confirmFn func(ctx context.Context, actor domain.Actor, orderItemID string) (domain.OrderItem, error)
}

func (s *stubFulfillment) Ship(ctx context.Context, actor domain.Actor, orderItemID string) (domain.OrderItem, error) {
	return s.shipFn(ctx, actor, orderItemID)
}

func (s *stubFulfillment) SellerCancel(ctx context.Context, actor domain.Actor, orderItemID string) (services.SellerCancelResult, error) {
	return s.sellerFn(ctx, actor, orderItemID)
}

func (s *stubFulfillment) BuyerCancel(ctx context.Context, actor domain.Actor, orderItemID string) (domain.OrderItem, error) {
	return s.cancelFn(ctx, actor, orderItemID)
}

func (s *stubFulfillment) ConfirmPurchase(ctx context.Context, actor domain.Actor, orderItemID string) (domain.OrderItem, error) {
	return s.confirmFn(ctx, actor, orderItemID)
}

type stubRefunds struct {
	requestFn func(ctx context.Context, actor domain.Actor, cmd services.RefundRequestCommand) (services.RefundOutcome, error)
	cancelFn  func(ctx context.Context, actor domain.Actor, refundID string) (services.RefundOutcome, error)
	approveFn func(ctx context.Context, actor domain.Actor, refundID, note string) (services.RefundOutcome, error)
	rejectFn  func(ctx context.Context, actor domain.Actor, refundID, note string) (services.RefundOutcome, error)
}

func (s *stubRefunds) Request(ctx context.Context, actor domain.Actor, cmd services.RefundRequestCommand) (services.RefundOutcome, error) {
	return s.requestFn(ctx, actor, cmd)
}

func (s *stubRefunds) Cancel(ctx context.Context, actor domain.Actor, refundID string) (services.RefundOutcome, error) {
	return s.cancelFn(ctx, actor, refundID)
}

func (s *stubRefunds) Approve(ctx context.Context, actor domain.Actor, refundID, note string) (services.RefundOutcome, error) {
	return s.approveFn(ctx, actor, refundID, note)
}

func (s *stubRefunds) Reject(ctx context.Context, actor domain.Actor, refundID, note string) (services.RefundOutcome, error) {
	return s.rejectFn(ctx, actor, refundID, note)
}

// serve routes a request through registrar with the identity uid attached when non-empty.
func serve(t *testing.T, register func(chi.Router), method, target, body, uid string) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	register(router)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if uid != "" {
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid}))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}
