package services

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/danseongsa/storefront/internal/domain"
)

const (
	orderItemEventTransitioned = "order_item.transitioned"
	refundEventTransitioned    = "refund.transitioned"
)

var orderItemTransitions = map[domain.OrderItemStatus][]domain.OrderItemStatus{
	domain.OrderItemStatusPaid:       {domain.OrderItemStatusDelivering, domain.OrderItemStatusCancelled},
	domain.OrderItemStatusDelivering: {domain.OrderItemStatusDelivered, domain.OrderItemStatusConfirmed, domain.OrderItemStatusRefunded},
	domain.OrderItemStatusDelivered:  {domain.OrderItemStatusConfirmed},
}

var refundTransitions = map[domain.RefundStatus][]domain.RefundStatus{
	domain.RefundStatusRequested: {domain.RefundStatusApproved, domain.RefundStatusRejected, domain.RefundStatusCanceled},
	domain.RefundStatusApproved:  {domain.RefundStatusCompleted},
}

// CanWriteReview reports whether the buyer may review the product of an order line in the status.
func CanWriteReview(status domain.OrderItemStatus) bool {
	return status == domain.OrderItemStatusConfirmed || status == domain.OrderItemStatusDelivered
}

func canTransitionItem(current, target domain.OrderItemStatus) bool {
	return slices.Contains(orderItemTransitions[current], target)
}

func canTransitionRefund(current, target domain.RefundStatus) bool {
	return slices.Contains(refundTransitions[current], target)
}

// transitionSupport holds what the buyer and seller workflows share: fetching fresh state,
// actor checks, event publication and counters.
type transitionSupport struct {
	orders     OrderBackend
	normalizer *StatusNormalizer
	events     OrderEventPublisher
	metrics    TransitionRecorder
	clock      func() time.Time
	logger     eventLogger
}

func newTransitionSupport(orders OrderBackend, normalizer *StatusNormalizer, events OrderEventPublisher, metrics TransitionRecorder, clock func() time.Time, logger func(context.Context, string, map[string]any)) transitionSupport {
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	if metrics == nil {
		metrics = noopRecorder{}
	}
	return transitionSupport{
		orders:     orders,
		normalizer: normalizer,
		events:     events,
		metrics:    metrics,
		clock:      defaultClock(clock),
		logger:     defaultLogger(logger),
	}
}

func requireActor(actor domain.Actor, role domain.ActorRole) (string, error) {
	userID := strings.TrimSpace(actor.UserID)
	if userID == "" {
		return "", ErrUnauthenticated
	}
	if actor.Role != role {
		return "", fmt.Errorf("%w: %s action requested by %s", ErrActorNotPermitted, role, actor.Role)
	}
	return userID, nil
}

// loadItem re-fetches the order line so preconditions never run against a cached status.
func (t transitionSupport) loadItem(ctx context.Context, role domain.ActorRole, userID, orderItemID string) (domain.OrderItem, error) {
	orderItemID, err := resourceID("orderItemId", orderItemID)
	if err != nil {
		return domain.OrderItem{}, err
	}
	record, err := t.orders.GetOrderItem(ctx, orderItemID, userID)
	if err != nil {
		return domain.OrderItem{}, mapBackendError(err)
	}
	item := t.normalizer.OrderItem(record)
	owner := item.BuyerID
	if role == domain.ActorSeller {
		owner = item.SellerID
	}
	if owner != "" && owner != userID {
		return domain.OrderItem{}, fmt.Errorf("%w: order item %s", ErrActorNotPermitted, orderItemID)
	}
	return item, nil
}

func (t transitionSupport) requireItemTransition(item domain.OrderItem, target domain.OrderItemStatus) error {
	if !canTransitionItem(item.Status, target) {
		return fmt.Errorf("%w: order item %s is %s", ErrInvalidState, item.OrderItemID, item.Status)
	}
	return nil
}

// activeRefund returns the first refund for the item that still blocks a new request.
func (t transitionSupport) activeRefund(ctx context.Context, orderItemID, userID string) (*domain.RefundRequest, error) {
	records, err := t.orders.ListRefundRequests(ctx, orderItemID, userID)
	if err != nil {
		return nil, mapBackendError(err)
	}
	for _, record := range records {
		refund := t.normalizer.Refund(record)
		if refund.Status.Blocking() {
			return &refund, nil
		}
	}
	return nil, nil
}

// applied normalizes the backend's resulting line and accepts it even when it differs from target.
func (t transitionSupport) applied(ctx context.Context, operation string, before domain.OrderItem, record domain.OrderItemRecord, target domain.OrderItemStatus, actorID string) domain.OrderItem {
	after := t.normalizer.OrderItem(record)
	if after.OrderItemID == "" {
		after.OrderItemID = before.OrderItemID
	}
	if after.OrderID == "" {
		after.OrderID = before.OrderID
	}
	if after.Status != target {
		t.logger(ctx, "order_item.transition.unexpected_status", map[string]any{
			"operation":   operation,
			"orderItemId": after.OrderItemID,
			"expected":    string(target),
			"actual":      string(after.Status),
		})
	}
	t.publish(ctx, OrderEvent{
		Type:           orderItemEventTransitioned,
		OrderID:        after.OrderID,
		OrderItemID:    after.OrderItemID,
		PreviousStatus: string(before.Status),
		CurrentStatus:  string(after.Status),
		ActorID:        actorID,
		OccurredAt:     t.clock(),
		Metadata:       map[string]any{"operation": operation},
	})
	t.metrics.RecordTransition(ctx, operation, "ok")
	return after
}

func (t transitionSupport) failed(ctx context.Context, operation string, err error) error {
	outcome := "error"
	switch {
	case isInvalidState(err):
		outcome = "invalid_state"
	case isNotPermitted(err):
		outcome = "not_permitted"
	}
	t.metrics.RecordTransition(ctx, operation, outcome)
	t.logger(ctx, operation+".failed", map[string]any{"error": err.Error()})
	return err
}

func (t transitionSupport) publish(ctx context.Context, event OrderEvent) {
	if t.events == nil {
		return
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := t.events.PublishOrderEvent(ctx, event); err != nil {
		t.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"item":   event.OrderItemID,
			"error":  err.Error(),
			"status": event.CurrentStatus,
		})
	}
}
