package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/danseongsa/storefront/internal/domain"
)

// OrderDetail is an order as seen by one actor, with canonical statuses and the actions on offer.
type OrderDetail struct {
	OrderID   string              `json:"orderId"`
	BuyerID   string              `json:"buyerId,omitempty"`
	Items     []OrderItemView     `json:"items"`
	Delivery  domain.DeliveryInfo `json:"delivery"`
	Amounts   domain.Amounts      `json:"amounts"`
	CreatedAt time.Time           `json:"createdAt"`
}

// OrderItemView decorates an order line with its label, refunds and affordances.
type OrderItemView struct {
	domain.OrderItem
	StatusLabel  string      `json:"statusLabel"`
	ActiveRefund *RefundView `json:"activeRefund,omitempty"`
	LatestRefund *RefundView `json:"latestRefund,omitempty"`
	Actions      ItemActions `json:"actions"`
}

// RefundView is a refund request with its display label.
type RefundView struct {
	domain.RefundRequest
	StatusLabel string `json:"statusLabel"`
}

// ItemActions lists which transitions the actor may start on a line. The backend stays authoritative.
type ItemActions struct {
	CanCancel        bool `json:"canCancel"`
	CanConfirm       bool `json:"canConfirm"`
	CanRequestRefund bool `json:"canRequestRefund"`
	CanCancelRefund  bool `json:"canCancelRefund"`
	CanWriteReview   bool `json:"canWriteReview"`
	CanShip          bool `json:"canShip"`
	CanSellerCancel  bool `json:"canSellerCancel"`
	CanDecideRefund  bool `json:"canDecideRefund"`
}

// OrderQueryServiceDeps bundles collaborators required to construct the order query service.
type OrderQueryServiceDeps struct {
	Orders     OrderBackend
	Normalizer *StatusNormalizer
}

type orderQueryService struct {
	orders     OrderBackend
	normalizer *StatusNormalizer
}

// NewOrderQueryService wires dependencies into an OrderQueryService.
func NewOrderQueryService(deps OrderQueryServiceDeps) (OrderQueryService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order query service: order backend is required")
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	return &orderQueryService{orders: deps.Orders, normalizer: normalizer}, nil
}

// Detail returns the whole order to its buyer and only the seller's own lines to a seller.
func (s *orderQueryService) Detail(ctx context.Context, actor domain.Actor, orderID string) (OrderDetail, error) {
	userID := strings.TrimSpace(actor.UserID)
	if userID == "" {
		return OrderDetail{}, ErrUnauthenticated
	}
	orderID, err := resourceID("orderId", orderID)
	if err != nil {
		return OrderDetail{}, err
	}

	record, err := s.orders.GetOrderDetail(ctx, orderID, userID)
	if err != nil {
		return OrderDetail{}, mapBackendError(err)
	}
	if actor.Role == domain.ActorBuyer && record.BuyerID != "" && record.BuyerID != userID {
		return OrderDetail{}, fmt.Errorf("%w: order %s", ErrActorNotPermitted, orderID)
	}

	refundsByItem := make(map[string][]domain.RefundRequest)
	for _, r := range record.Refunds {
		refund := s.normalizer.Refund(r)
		refundsByItem[refund.OrderItemID] = append(refundsByItem[refund.OrderItemID], refund)
	}

	detail := OrderDetail{
		OrderID:   firstNonEmpty(record.OrderID, orderID),
		BuyerID:   record.BuyerID,
		Items:     make([]OrderItemView, 0, len(record.Items)),
		Delivery:  record.Delivery,
		Amounts:   record.Amounts,
		CreatedAt: record.CreatedAt,
	}
	for _, r := range record.Items {
		item := s.normalizer.OrderItem(r)
		if actor.Role == domain.ActorSeller && item.SellerID != "" && item.SellerID != userID {
			continue
		}
		if item.OrderID == "" {
			item.OrderID = detail.OrderID
		}
		detail.Items = append(detail.Items, buildItemView(actor.Role, item, refundsByItem[item.OrderItemID]))
	}
	if actor.Role == domain.ActorSeller && len(detail.Items) == 0 && len(record.Items) > 0 {
		return OrderDetail{}, fmt.Errorf("%w: order %s", ErrActorNotPermitted, orderID)
	}
	return detail, nil
}

func buildItemView(role domain.ActorRole, item domain.OrderItem, refunds []domain.RefundRequest) OrderItemView {
	view := OrderItemView{
		OrderItem:   item,
		StatusLabel: OrderItemStatusLabel(item.Status),
	}

	sort.SliceStable(refunds, func(i, j int) bool {
		return refunds[i].RequestedAt.After(refunds[j].RequestedAt)
	})
	for i := range refunds {
		if refunds[i].Status.Blocking() && view.ActiveRefund == nil {
			view.ActiveRefund = refundView(refunds[i])
		}
	}
	if len(refunds) > 0 {
		view.LatestRefund = refundView(refunds[0])
	}

	hasActive := view.ActiveRefund != nil
	pendingDecision := hasActive && view.ActiveRefund.Status == domain.RefundStatusRequested
	switch role {
	case domain.ActorBuyer:
		view.Actions = ItemActions{
			CanCancel:        canTransitionItem(item.Status, domain.OrderItemStatusCancelled),
			CanConfirm:       canTransitionItem(item.Status, domain.OrderItemStatusConfirmed) && !hasActive,
			CanRequestRefund: item.Status == domain.OrderItemStatusDelivering && !hasActive,
			CanCancelRefund:  pendingDecision,
			CanWriteReview:   CanWriteReview(item.Status),
		}
	case domain.ActorSeller:
		view.Actions = ItemActions{
			CanShip:         canTransitionItem(item.Status, domain.OrderItemStatusDelivering),
			CanSellerCancel: canTransitionItem(item.Status, domain.OrderItemStatusCancelled),
			CanDecideRefund: pendingDecision,
		}
	}
	return view
}

func refundView(refund domain.RefundRequest) *RefundView {
	return &RefundView{RefundRequest: refund, StatusLabel: RefundStatusLabel(refund.Status)}
}
