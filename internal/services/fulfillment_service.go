package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danseongsa/storefront/internal/domain"
)

// SellerCancelResult is the cancelled line plus whether its order has nothing left for the seller to act on.
type SellerCancelResult struct {
	Item           domain.OrderItem `json:"item"`
	OrderRemovable bool             `json:"orderRemovable"`
}

// FulfillmentServiceDeps bundles collaborators required to construct the fulfillment service.
type FulfillmentServiceDeps struct {
	Orders     OrderBackend
	Normalizer *StatusNormalizer
	Events     OrderEventPublisher
	Metrics    TransitionRecorder
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type fulfillmentService struct {
	transitionSupport
}

// NewFulfillmentService wires dependencies into a FulfillmentService.
func NewFulfillmentService(deps FulfillmentServiceDeps) (FulfillmentService, error) {
	if deps.Orders == nil {
		return nil, errors.New("fulfillment service: order backend is required")
	}
	return &fulfillmentService{
		transitionSupport: newTransitionSupport(deps.Orders, deps.Normalizer, deps.Events, deps.Metrics, deps.Clock, deps.Logger),
	}, nil
}

func (s *fulfillmentService) Ship(ctx context.Context, actor domain.Actor, orderItemID string) (domain.OrderItem, error) {
	const op = "order_item.ship"
	sellerID, item, err := s.prepare(ctx, actor, domain.ActorSeller, orderItemID, domain.OrderItemStatusDelivering)
	if err != nil {
		return domain.OrderItem{}, s.failed(ctx, op, err)
	}
	record, err := s.orders.ShipOrderItem(ctx, sellerID, item.OrderItemID)
	if err != nil {
		return domain.OrderItem{}, s.failed(ctx, op, mapBackendError(err))
	}
	return s.applied(ctx, op, item, record, domain.OrderItemStatusDelivering, sellerID), nil
}

// SellerCancel is only offered before shipment.
func (s *fulfillmentService) SellerCancel(ctx context.Context, actor domain.Actor, orderItemID string) (SellerCancelResult, error) {
	const op = "order_item.seller_cancel"
	sellerID, item, err := s.prepare(ctx, actor, domain.ActorSeller, orderItemID, domain.OrderItemStatusCancelled)
	if err != nil {
		return SellerCancelResult{}, s.failed(ctx, op, err)
	}
	record, err := s.orders.CancelOrderItemBySeller(ctx, sellerID, item.OrderItemID)
	if err != nil {
		return SellerCancelResult{}, s.failed(ctx, op, mapBackendError(err))
	}
	after := s.applied(ctx, op, item, record, domain.OrderItemStatusCancelled, sellerID)
	return SellerCancelResult{
		Item:           after,
		OrderRemovable: s.orderRemovable(ctx, sellerID, after),
	}, nil
}

func (s *fulfillmentService) BuyerCancel(ctx context.Context, actor domain.Actor, orderItemID string) (domain.OrderItem, error) {
	const op = "order_item.cancel"
	buyerID, item, err := s.prepare(ctx, actor, domain.ActorBuyer, orderItemID, domain.OrderItemStatusCancelled)
	if err != nil {
		return domain.OrderItem{}, s.failed(ctx, op, err)
	}
	record, err := s.orders.CancelOrderItem(ctx, buyerID, item.OrderItemID)
	if err != nil {
		return domain.OrderItem{}, s.failed(ctx, op, mapBackendError(err))
	}
	return s.applied(ctx, op, item, record, domain.OrderItemStatusCancelled, buyerID), nil
}

// ConfirmPurchase is refused while a refund on the line is awaiting a decision or settlement.
func (s *fulfillmentService) ConfirmPurchase(ctx context.Context, actor domain.Actor, orderItemID string) (domain.OrderItem, error) {
	const op = "order_item.confirm"
	buyerID, item, err := s.prepare(ctx, actor, domain.ActorBuyer, orderItemID, domain.OrderItemStatusConfirmed)
	if err != nil {
		return domain.OrderItem{}, s.failed(ctx, op, err)
	}
	active, err := s.activeRefund(ctx, item.OrderItemID, buyerID)
	if err != nil {
		return domain.OrderItem{}, s.failed(ctx, op, err)
	}
	if active != nil {
		return domain.OrderItem{}, s.failed(ctx, op, fmt.Errorf("%w: refund %s is still %s", ErrInvalidState, active.RefundID, active.Status))
	}
	record, err := s.orders.ConfirmOrderItem(ctx, buyerID, item.OrderItemID)
	if err != nil {
		return domain.OrderItem{}, s.failed(ctx, op, mapBackendError(err))
	}
	return s.applied(ctx, op, item, record, domain.OrderItemStatusConfirmed, buyerID), nil
}

func (s *fulfillmentService) prepare(ctx context.Context, actor domain.Actor, role domain.ActorRole, orderItemID string, target domain.OrderItemStatus) (string, domain.OrderItem, error) {
	userID, err := requireActor(actor, role)
	if err != nil {
		return "", domain.OrderItem{}, err
	}
	item, err := s.loadItem(ctx, role, userID, orderItemID)
	if err != nil {
		return "", domain.OrderItem{}, err
	}
	if err := s.requireItemTransition(item, target); err != nil {
		return "", domain.OrderItem{}, err
	}
	return userID, item, nil
}

// orderRemovable reports whether every other line of the order has reached a terminal status.
// Lookup failures are logged and reported as not removable.
func (s *fulfillmentService) orderRemovable(ctx context.Context, sellerID string, cancelled domain.OrderItem) bool {
	if cancelled.OrderID == "" {
		return false
	}
	order, err := s.orders.GetOrderDetail(ctx, cancelled.OrderID, sellerID)
	if err != nil {
		s.logger(ctx, "order_item.seller_cancel.order_lookup_failed", map[string]any{
			"orderId": cancelled.OrderID,
			"error":   err.Error(),
		})
		return false
	}
	for _, record := range order.Items {
		if record.OrderItemID == cancelled.OrderItemID {
			continue
		}
		if record.SellerID != "" && record.SellerID != sellerID {
			continue
		}
		if !s.normalizer.OrderItemStatus(record.Status).Terminal() {
			return false
		}
	}
	return true
}
