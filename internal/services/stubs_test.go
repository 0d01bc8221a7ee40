package services

import (
	"context"
	"errors"

	"github.com/danseongsa/storefront/internal/domain"
)

type stubOrderBackend struct {
	confirmPaymentFn func(context.Context, ConfirmPaymentRequest) ([]domain.OrderItemRecord, error)
	getOrderFn       func(context.Context, string, string) (domain.OrderRecord, error)
	getItemFn        func(context.Context, string, string) (domain.OrderItemRecord, error)
	listRefundsFn    func(context.Context, string, string) ([]domain.RefundRecord, error)
	getRefundFn      func(context.Context, string, string) (domain.RefundRecord, error)
	cancelItemFn     func(context.Context, string, string) (domain.OrderItemRecord, error)
	confirmItemFn    func(context.Context, string, string) (domain.OrderItemRecord, error)
	createRefundFn   func(context.Context, CreateRefundRequest) (domain.RefundRecord, error)
	cancelRefundFn   func(context.Context, string, string) (domain.RefundRecord, error)
	shipFn           func(context.Context, string, string) (domain.OrderItemRecord, error)
	sellerCancelFn   func(context.Context, string, string) (domain.OrderItemRecord, error)
	approveFn        func(context.Context, string, string, string) (RefundDecisionResult, error)
	rejectFn         func(context.Context, string, string, string) (RefundDecisionResult, error)
}

var errNotStubbed = errors.New("not implemented")

func (s *stubOrderBackend) ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) ([]domain.OrderItemRecord, error) {
	if s.confirmPaymentFn != nil {
		return s.confirmPaymentFn(ctx, req)
	}
	return nil, errNotStubbed
}

func (s *stubOrderBackend) GetOrderDetail(ctx context.Context, orderID, userID string) (domain.OrderRecord, error) {
	if s.getOrderFn != nil {
		return s.getOrderFn(ctx, orderID, userID)
	}
	return domain.OrderRecord{}, errNotStubbed
}

func (s *stubOrderBackend) GetOrderItem(ctx context.Context, orderItemID, userID string) (domain.OrderItemRecord, error) {
	if s.getItemFn != nil {
		return s.getItemFn(ctx, orderItemID, userID)
	}
	return domain.OrderItemRecord{}, errNotStubbed
}

func (s *stubOrderBackend) ListRefundRequests(ctx context.Context, orderItemID, userID string) ([]domain.RefundRecord, error) {
	if s.listRefundsFn != nil {
		return s.listRefundsFn(ctx, orderItemID, userID)
	}
	return nil, nil
}

func (s *stubOrderBackend) GetRefundRequest(ctx context.Context, refundID, userID string) (domain.RefundRecord, error) {
	if s.getRefundFn != nil {
		return s.getRefundFn(ctx, refundID, userID)
	}
	return domain.RefundRecord{}, errNotStubbed
}

func (s *stubOrderBackend) CancelOrderItem(ctx context.Context, userID, orderItemID string) (domain.OrderItemRecord, error) {
	if s.cancelItemFn != nil {
		return s.cancelItemFn(ctx, userID, orderItemID)
	}
	return domain.OrderItemRecord{}, errNotStubbed
}

func (s *stubOrderBackend) ConfirmOrderItem(ctx context.Context, userID, orderItemID string) (domain.OrderItemRecord, error) {
	if s.confirmItemFn != nil {
		return s.confirmItemFn(ctx, userID, orderItemID)
	}
	return domain.OrderItemRecord{}, errNotStubbed
}

func (s *stubOrderBackend) CreateRefundRequest(ctx context.Context, req CreateRefundRequest) (domain.RefundRecord, error) {
	if s.createRefundFn != nil {
		return s.createRefundFn(ctx, req)
	}
	return domain.RefundRecord{}, errNotStubbed
}

func (s *stubOrderBackend) CancelRefundRequest(ctx context.Context, userID, refundID string) (domain.RefundRecord, error) {
	if s.cancelRefundFn != nil {
		return s.cancelRefundFn(ctx, userID, refundID)
	}
	return domain.RefundRecord{}, errNotStubbed
}

func (s *stubOrderBackend) ShipOrderItem(ctx context.Context, sellerID, orderItemID string) (domain.OrderItemRecord, error) {
	if s.shipFn != nil {
		return s.shipFn(ctx, sellerID, orderItemID)
	}
	return domain.OrderItemRecord{}, errNotStubbed
}

func (s *stubOrderBackend) CancelOrderItemBySeller(ctx context.Context, sellerID, orderItemID string) (domain.OrderItemRecord, error) {
	if s.sellerCancelFn != nil {
		return s.sellerCancelFn(ctx, sellerID, orderItemID)
	}
	return domain.OrderItemRecord{}, errNotStubbed
}

func (s *stubOrderBackend) ApproveRefundRequest(ctx context.Context, sellerID, refundID, note string) (RefundDecisionResult, error) {
	if s.approveFn != nil {
		return s.approveFn(ctx, sellerID, refundID, note)
	}
	return RefundDecisionResult{}, errNotStubbed
}

func (s *stubOrderBackend) RejectRefundRequest(ctx context.Context, sellerID, refundID, note string) (RefundDecisionResult, error) {
	if s.rejectFn != nil {
		return s.rejectFn(ctx, sellerID, refundID, note)
	}
	return RefundDecisionResult{}, errNotStubbed
}

type stubCartBackend struct {
	listFn   func(context.Context, string) ([]domain.CartLine, error)
	updateFn func(context.Context, string, string, int) (domain.CartLine, error)
	removeFn func(context.Context, string, []string) error
}

func (s *stubCartBackend) ListCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID)
	}
	return nil, nil
}

func (s *stubCartBackend) UpdateQuantity(ctx context.Context, userID, cartID string, quantity int) (domain.CartLine, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, userID, cartID, quantity)
	}
	return domain.CartLine{}, errNotStubbed
}

func (s *stubCartBackend) RemoveLines(ctx context.Context, userID string, cartIDs []string) error {
	if s.removeFn != nil {
		return s.removeFn(ctx, userID, cartIDs)
	}
	return nil
}

type stubGateway struct {
	createFn func(context.Context, PaymentRedirectRequest) (PaymentRedirect, error)
}

func (s *stubGateway) CreateRedirect(ctx context.Context, req PaymentRedirectRequest) (PaymentRedirect, error) {
	if s.createFn != nil {
		return s.createFn(ctx, req)
	}
	return PaymentRedirect{Provider: "sandbox", RedirectURL: "https://pay.example/" + req.SessionID}, nil
}

type captureOrderEvents struct {
	events []OrderEvent
}

func (c *captureOrderEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.events = append(c.events, event)
	return nil
}

type captureTransitions struct {
	outcomes map[string][]string
}

func (c *captureTransitions) RecordTransition(_ context.Context, operation, outcome string) {
	if c.outcomes == nil {
		c.outcomes = make(map[string][]string)
	}
	c.outcomes[operation] = append(c.outcomes[operation], outcome)
}

type fakeBackendError struct {
	status       int
	message      string
	stockChanged bool
}

func (e *fakeBackendError) Error() string        { return "backend status " + e.message }
func (e *fakeBackendError) IsNotFound() bool     { return e.status == 404 }
func (e *fakeBackendError) IsConflict() bool     { return e.status == 409 && !e.stockChanged }
func (e *fakeBackendError) IsUnavailable() bool  { return e.status >= 500 }
func (e *fakeBackendError) IsStockChanged() bool { return e.stockChanged }
func (e *fakeBackendError) UserMessage() string  { return e.message }

func int64Ptr(v int64) *int64 { return &v }
