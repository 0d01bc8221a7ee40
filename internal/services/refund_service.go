package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/platform/textutil"
)

const (
	maxRefundReasonLen       = 100
	maxRefundReasonDetailLen = 1000
	maxSellerNoteLen         = 1000
)

// RefundRequestCommand is the buyer's refund or exchange request against one order line.
type RefundRequestCommand struct {
	OrderItemID  string
	Type         domain.RefundType
	Reason       string
	ReasonDetail string
	// Amount defaults to the line total for refunds when zero.
	Amount int64
}

// RefundOutcome is the refund after a transition plus the order line as the backend now reports it.
type RefundOutcome struct {
	Refund domain.RefundRequest `json:"refund"`
	Item   *domain.OrderItem    `json:"item,omitempty"`
}

// RefundServiceDeps bundles collaborators required to construct the refund service.
type RefundServiceDeps struct {
	Orders     OrderBackend
	Normalizer *StatusNormalizer
	Events     OrderEventPublisher
	Metrics    TransitionRecorder
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type refundService struct {
	transitionSupport
}

// NewRefundService wires dependencies into a RefundService.
func NewRefundService(deps RefundServiceDeps) (RefundService, error) {
	if deps.Orders == nil {
		return nil, errors.New("refund service: order backend is required")
	}
	return &refundService{
		transitionSupport: newTransitionSupport(deps.Orders, deps.Normalizer, deps.Events, deps.Metrics, deps.Clock, deps.Logger),
	}, nil
}

// Request requires the line to be in delivery and no other refund to be active for it.
func (s *refundService) Request(ctx context.Context, actor domain.Actor, cmd RefundRequestCommand) (RefundOutcome, error) {
	const op = "refund.request"
	userID, err := requireActor(actor, domain.ActorBuyer)
	if err != nil {
		return RefundOutcome{}, s.failed(ctx, op, err)
	}

	refundType := domain.RefundType(strings.ToUpper(strings.TrimSpace(string(cmd.Type))))
	switch refundType {
	case "":
		refundType = domain.RefundTypeRefund
	case domain.RefundTypeRefund, domain.RefundTypeExchange:
	default:
		return RefundOutcome{}, &ValidationError{Field: "type", Message: "must be REFUND or EXCHANGE"}
	}
	reason := textutil.PlainText(cmd.Reason, maxRefundReasonLen)
	if reason == "" {
		return RefundOutcome{}, missingField("reason")
	}
	if cmd.Amount < 0 {
		return RefundOutcome{}, &ValidationError{Field: "amount", Message: "must not be negative"}
	}

	item, err := s.loadItem(ctx, domain.ActorBuyer, userID, cmd.OrderItemID)
	if err != nil {
		return RefundOutcome{}, s.failed(ctx, op, err)
	}
	if item.Status != domain.OrderItemStatusDelivering {
		return RefundOutcome{}, s.failed(ctx, op, fmt.Errorf("%w: refund requires %s, order item %s is %s", ErrInvalidState, domain.OrderItemStatusDelivering, item.OrderItemID, item.Status))
	}
	active, err := s.activeRefund(ctx, item.OrderItemID, userID)
	if err != nil {
		return RefundOutcome{}, s.failed(ctx, op, err)
	}
	if active != nil {
		return RefundOutcome{}, s.failed(ctx, op, fmt.Errorf("%w: refund %s is still %s", ErrInvalidState, active.RefundID, active.Status))
	}

	amount := cmd.Amount
	if amount == 0 && refundType == domain.RefundTypeRefund {
		amount = lineTotal(item)
	}

	record, err := s.orders.CreateRefundRequest(ctx, CreateRefundRequest{
		UserID:       userID,
		OrderItemID:  item.OrderItemID,
		Type:         refundType,
		Reason:       reason,
		ReasonDetail: textutil.PlainText(cmd.ReasonDetail, maxRefundReasonDetailLen),
		Amount:       amount,
	})
	if err != nil {
		return RefundOutcome{}, s.failed(ctx, op, mapBackendError(err))
	}
	refund := s.normalizer.Refund(record)
	if refund.OrderItemID == "" {
		refund.OrderItemID = item.OrderItemID
	}
	s.refundApplied(ctx, op, "", refund, item.OrderID, userID)
	return RefundOutcome{Refund: refund, Item: &item}, nil
}

// Cancel withdraws a buyer's request while it is still awaiting a decision.
func (s *refundService) Cancel(ctx context.Context, actor domain.Actor, refundID string) (RefundOutcome, error) {
	const op = "refund.cancel"
	userID, err := requireActor(actor, domain.ActorBuyer)
	if err != nil {
		return RefundOutcome{}, s.failed(ctx, op, err)
	}
	current, err := s.loadRefund(ctx, userID, refundID, domain.RefundStatusCanceled)
	if err != nil {
		return RefundOutcome{}, s.failed(ctx, op, err)
	}

	record, err := s.orders.CancelRefundRequest(ctx, userID, current.RefundID)
	if err != nil {
		return RefundOutcome{}, s.failed(ctx, op, mapBackendError(err))
	}
	refund := s.normalizer.Refund(record)
	s.refundApplied(ctx, op, current.Status, refund, "", userID)
	return RefundOutcome{Refund: refund}, nil
}

// Approve reflects whatever order line status the backend reports once the approval is recorded.
func (s *refundService) Approve(ctx context.Context, actor domain.Actor, refundID, sellerNote string) (RefundOutcome, error) {
	return s.decide(ctx, "refund.approve", actor, refundID, sellerNote, domain.RefundStatusApproved, s.orders.ApproveRefundRequest)
}

// Reject leaves the order line where it was so the buyer can request again or confirm the purchase.
func (s *refundService) Reject(ctx context.Context, actor domain.Actor, refundID, sellerNote string) (RefundOutcome, error) {
	return s.decide(ctx, "refund.reject", actor, refundID, sellerNote, domain.RefundStatusRejected, s.orders.RejectRefundRequest)
}

type refundDecision func(ctx context.Context, sellerID, refundID, note string) (RefundDecisionResult, error)

func (s *refundService) decide(ctx context.Context, op string, actor domain.Actor, refundID, sellerNote string, target domain.RefundStatus, call refundDecision) (RefundOutcome, error) {
	sellerID, err := requireActor(actor, domain.ActorSeller)
	if err != nil {
		return RefundOutcome{}, s.failed(ctx, op, err)
	}
	current, err := s.loadRefund(ctx, sellerID, refundID, target)
	if err != nil {
		return RefundOutcome{}, s.failed(ctx, op, err)
	}
	item, err := s.loadItem(ctx, domain.ActorSeller, sellerID, current.OrderItemID)
	if err != nil {
		return RefundOutcome{}, s.failed(ctx, op, err)
	}

	result, err := call(ctx, sellerID, current.RefundID, textutil.PlainText(sellerNote, maxSellerNoteLen))
	if err != nil {
		return RefundOutcome{}, s.failed(ctx, op, mapBackendError(err))
	}
	refund := s.normalizer.Refund(result.Refund)
	if refund.OrderItemID == "" {
		refund.OrderItemID = current.OrderItemID
	}

	after := item
	if result.Item != nil {
		after = s.normalizer.OrderItem(*result.Item)
		if target == domain.RefundStatusRejected && after.Status != item.Status {
			s.logger(ctx, "refund.reject.item_moved", map[string]any{
				"orderItemId": item.OrderItemID,
				"before":      string(item.Status),
				"after":       string(after.Status),
			})
		}
		if after.Status != item.Status {
			s.publish(ctx, OrderEvent{
				Type:           orderItemEventTransitioned,
				OrderID:        after.OrderID,
				OrderItemID:    after.OrderItemID,
				PreviousStatus: string(item.Status),
				CurrentStatus:  string(after.Status),
				ActorID:        sellerID,
				OccurredAt:     s.clock(),
				Metadata:       map[string]any{"operation": op, "refundId": refund.RefundID},
			})
		}
	}
	s.refundApplied(ctx, op, current.Status, refund, item.OrderID, sellerID)
	return RefundOutcome{Refund: refund, Item: &after}, nil
}

// loadRefund fetches the refund fresh and checks it may move to target.
func (s *refundService) loadRefund(ctx context.Context, userID, refundID string, target domain.RefundStatus) (domain.RefundRequest, error) {
	refundID, err := resourceID("refundId", refundID)
	if err != nil {
		return domain.RefundRequest{}, err
	}
	record, err := s.orders.GetRefundRequest(ctx, refundID, userID)
	if err != nil {
		return domain.RefundRequest{}, mapBackendError(err)
	}
	refund := s.normalizer.Refund(record)
	if refund.RefundID == "" {
		refund.RefundID = refundID
	}
	if !canTransitionRefund(refund.Status, target) {
		return domain.RefundRequest{}, fmt.Errorf("%w: refund %s is %s", ErrInvalidState, refund.RefundID, refund.Status)
	}
	return refund, nil
}

func (s *refundService) refundApplied(ctx context.Context, op string, previous domain.RefundStatus, refund domain.RefundRequest, orderID, actorID string) {
	s.publish(ctx, OrderEvent{
		Type:           refundEventTransitioned,
		OrderID:        orderID,
		OrderItemID:    refund.OrderItemID,
		RefundID:       refund.RefundID,
		PreviousStatus: string(previous),
		CurrentStatus:  string(refund.Status),
		ActorID:        actorID,
		OccurredAt:     s.clock(),
		Metadata: map[string]any{
			"operation": op,
			"type":      string(refund.Type),
		},
	})
	s.logger(ctx, op, map[string]any{
		"refundId":    refund.RefundID,
		"orderItemId": refund.OrderItemID,
		"status":      string(refund.Status),
	})
	s.metrics.RecordTransition(ctx, op, "ok")
}

func lineTotal(item domain.OrderItem) int64 {
	price := item.UnitPrice
	if item.DiscountPrice != nil {
		price = *item.DiscountPrice
	}
	return price * int64(item.Quantity)
}
