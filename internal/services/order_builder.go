package services

import (
	"slices"
	"strings"

	"github.com/danseongsa/storefront/internal/domain"
)

// BuildOrderDraft combines a selection and delivery info into an order draft. It performs no I/O.
// Amounts are taken from the selection as computed there.
func BuildOrderDraft(user *domain.SessionUser, sel Selection, delivery domain.DeliveryInfo) (domain.OrderDraft, error) {
	if user == nil || strings.TrimSpace(user.UserID) == "" {
		return domain.OrderDraft{}, ErrUnauthenticated
	}
	if sel.Empty() {
		return domain.OrderDraft{}, ErrEmptySelection
	}
	delivery = NormalizeDeliveryInfo(delivery)
	if err := ValidateDeliveryInfo(delivery); err != nil {
		return domain.OrderDraft{}, err
	}
	return domain.OrderDraft{
		UserID:   user.UserID,
		Items:    slices.Clone(sel.Lines),
		Delivery: delivery,
		Amounts:  sel.Amounts,
	}, nil
}
