package services

import (
	"fmt"
	"io"
	"maps"
	"strings"

	"golang.org/x/text/width"
	"gopkg.in/yaml.v3"

	"github.com/danseongsa/storefront/internal/domain"
)

var orderItemStatusAliases = map[string]domain.OrderItemStatus{
	"PAY":                domain.OrderItemStatusPaid,
	"PAID":               domain.OrderItemStatusPaid,
	"PAYMENT_COMPLETE":   domain.OrderItemStatusPaid,
	"DLV":                domain.OrderItemStatusDelivering,
	"DELIVERING":         domain.OrderItemStatusDelivering,
	"SHIPPING":           domain.OrderItemStatusDelivering,
	"SHIPPED":            domain.OrderItemStatusDelivering,
	"DLD":                domain.OrderItemStatusDelivered,
	"DELIVERED":          domain.OrderItemStatusDelivered,
	"CNF":                domain.OrderItemStatusConfirmed,
	"CONFIRMED":          domain.OrderItemStatusConfirmed,
	"PURCHASE_CONFIRMED": domain.OrderItemStatusConfirmed,
	"CAN":                domain.OrderItemStatusCancelled,
	"CANCEL":             domain.OrderItemStatusCancelled,
	"CANCELED":           domain.OrderItemStatusCancelled,
	"CANCELLED":          domain.OrderItemStatusCancelled,
	"REF":                domain.OrderItemStatusRefunded,
	"REFUND":             domain.OrderItemStatusRefunded,
	"REFUNDED":           domain.OrderItemStatusRefunded,
}

var refundStatusAliases = map[string]domain.RefundStatus{
	"REQ":       domain.RefundStatusRequested,
	"REQUEST":   domain.RefundStatusRequested,
	"REQUESTED": domain.RefundStatusRequested,
	"APR":       domain.RefundStatusApproved,
	"APPROVE":   domain.RefundStatusApproved,
	"APPROVED":  domain.RefundStatusApproved,
	"COM":       domain.RefundStatusCompleted,
	"COMPLETE":  domain.RefundStatusCompleted,
	"COMPLETED": domain.RefundStatusCompleted,
	"REJ":       domain.RefundStatusRejected,
	"REJECT":    domain.RefundStatusRejected,
	"REJECTED":  domain.RefundStatusRejected,
	"CAN":       domain.RefundStatusCanceled,
	"CANCEL":    domain.RefundStatusCanceled,
	"CANCELED":  domain.RefundStatusCanceled,
	"CANCELLED": domain.RefundStatusCanceled,
}

var orderItemStatusLabels = map[domain.OrderItemStatus]string{
	domain.OrderItemStatusPaid:       "결제완료",
	domain.OrderItemStatusDelivering: "배송중",
	domain.OrderItemStatusDelivered:  "배송완료",
	domain.OrderItemStatusConfirmed:  "구매확정",
	domain.OrderItemStatusCancelled:  "주문취소",
	domain.OrderItemStatusRefunded:   "환불완료",
}

var refundStatusLabels = map[domain.RefundStatus]string{
	domain.RefundStatusRequested: "요청됨",
	domain.RefundStatusApproved:  "승인됨",
	domain.RefundStatusRejected:  "거절됨",
	domain.RefundStatusCompleted: "처리완료",
	domain.RefundStatusCanceled:  "요청취소",
}

// StatusNormalizer maps backend status spellings onto the canonical enums. Both mappings are
// total: they never fail on unexpected input.
type StatusNormalizer struct {
	orderItem map[string]domain.OrderItemStatus
	refund    map[string]domain.RefundStatus
}

// NewStatusNormalizer returns a normalizer seeded with the built-in vocabulary.
func NewStatusNormalizer() *StatusNormalizer {
	return &StatusNormalizer{
		orderItem: maps.Clone(orderItemStatusAliases),
		refund:    maps.Clone(refundStatusAliases),
	}
}

var defaultNormalizer = NewStatusNormalizer()

// NormalizeOrderItemStatus maps raw using the built-in vocabulary.
func NormalizeOrderItemStatus(raw string) domain.OrderItemStatus {
	return defaultNormalizer.OrderItemStatus(raw)
}

// NormalizeRefundStatus maps raw using the built-in vocabulary.
func NormalizeRefundStatus(raw string) domain.RefundStatus {
	return defaultNormalizer.RefundStatus(raw)
}

// OrderItemStatus maps raw to a canonical order-line status. Unknown or empty input is PAID.
func (n *StatusNormalizer) OrderItemStatus(raw string) domain.OrderItemStatus {
	if n == nil {
		n = defaultNormalizer
	}
	if status, ok := n.orderItem[statusToken(raw)]; ok {
		return status
	}
	return domain.OrderItemStatusPaid
}

// RefundStatus maps raw to a canonical refund status. Unknown input is returned uppercased
// and is not canonical.
func (n *StatusNormalizer) RefundStatus(raw string) domain.RefundStatus {
	if n == nil {
		n = defaultNormalizer
	}
	token := statusToken(raw)
	if status, ok := n.refund[token]; ok {
		return status
	}
	return domain.RefundStatus(strings.ToUpper(strings.TrimSpace(raw)))
}

// OrderItem converts a backend record into an order line with a canonical status.
func (n *StatusNormalizer) OrderItem(record domain.OrderItemRecord) domain.OrderItem {
	return domain.OrderItem{
		OrderItemID:   record.OrderItemID,
		OrderID:       record.OrderID,
		ProductID:     record.ProductID,
		ProductName:   record.ProductName,
		BuyerID:       record.BuyerID,
		SellerID:      record.SellerID,
		Quantity:      record.Quantity,
		UnitPrice:     record.UnitPrice,
		DiscountPrice: record.DiscountPrice,
		Color:         record.Color,
		Size:          record.Size,
		Status:        n.OrderItemStatus(record.Status),
	}
}

// Refund converts a backend record into a refund request with a normalized status.
func (n *StatusNormalizer) Refund(record domain.RefundRecord) domain.RefundRequest {
	refundType := domain.RefundType(strings.ToUpper(strings.TrimSpace(record.Type)))
	if refundType != domain.RefundTypeExchange {
		refundType = domain.RefundTypeRefund
	}
	return domain.RefundRequest{
		RefundID:       record.RefundID,
		OrderItemID:    record.OrderItemID,
		Type:           refundType,
		Reason:         record.Reason,
		ReasonDetail:   record.ReasonDetail,
		Amount:         record.Amount,
		Status:         n.RefundStatus(record.Status),
		SellerResponse: record.SellerResponse,
		RequestedAt:    record.RequestedAt,
	}
}

type statusAliasFile struct {
	OrderItem map[string]string `yaml:"orderItem"`
	Refund    map[string]string `yaml:"refund"`
}

// LoadAliases extends the vocabulary from a YAML document of the form
//
//	orderItem:
//	  IN_TRANSIT: DELIVERING
//	refund:
//	  DONE: COMPLETED
//
// Targets must be canonical statuses.
func (n *StatusNormalizer) LoadAliases(r io.Reader) error {
	var file statusAliasFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return fmt.Errorf("status aliases: decode: %w", err)
	}

	orderItem := maps.Clone(n.orderItem)
	for alias, target := range file.OrderItem {
		status, ok := orderItemStatusAliases[statusToken(target)]
		if !ok || string(status) != statusToken(target) {
			return fmt.Errorf("status aliases: %q is not a canonical order item status", target)
		}
		orderItem[statusToken(alias)] = status
	}
	refund := maps.Clone(n.refund)
	for alias, target := range file.Refund {
		status, ok := refundStatusAliases[statusToken(target)]
		if !ok || string(status) != statusToken(target) {
			return fmt.Errorf("status aliases: %q is not a canonical refund status", target)
		}
		refund[statusToken(alias)] = status
	}
	n.orderItem = orderItem
	n.refund = refund
	return nil
}

// OrderItemStatusLabel returns the display label for a canonical order-line status.
func OrderItemStatusLabel(status domain.OrderItemStatus) string {
	if label, ok := orderItemStatusLabels[status]; ok {
		return label
	}
	return string(status)
}

// RefundStatusLabel returns the display label for a refund status, or the raw value when unknown.
func RefundStatusLabel(status domain.RefundStatus) string {
	if label, ok := refundStatusLabels[status]; ok {
		return label
	}
	return string(status)
}

// statusToken folds full-width characters, trims, uppercases and joins words with underscores.
func statusToken(raw string) string {
	folded := strings.ToUpper(strings.TrimSpace(width.Fold.String(raw)))
	return strings.NewReplacer("-", "_", " ", "_").Replace(folded)
}
