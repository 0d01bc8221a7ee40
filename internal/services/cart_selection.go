package services

import (
	"context"
	"errors"
	"strings"

	"github.com/danseongsa/storefront/internal/domain"
)

// Selection is the priced subset of the cart the shopper chose to check out.
type Selection struct {
	Lines   []domain.CartLine `json:"lines"`
	Amounts domain.Amounts    `json:"amounts"`
	// Clamped lists cart ids whose requested quantity was pulled back into stock bounds.
	Clamped []string `json:"clamped,omitempty"`
}

// Empty reports whether no line is selected.
func (s Selection) Empty() bool {
	return len(s.Lines) == 0
}

// ClampQuantity pulls quantity into [1, max(1, stock)].
func ClampQuantity(quantity, stock int) int {
	upper := max(1, stock)
	return min(max(quantity, 1), upper)
}

// ComputeAmounts prices lines using the discount price when present.
func ComputeAmounts(lines []domain.CartLine) domain.Amounts {
	var subtotal int64
	for _, line := range lines {
		subtotal += line.EffectivePrice() * int64(line.Quantity)
	}
	shipping := domain.ShippingFeeFor(subtotal)
	return domain.Amounts{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Total:       subtotal + shipping,
	}
}

// SelectLines filters lines to the selected cart ids, clamps quantities and prices the result.
// Unknown ids are ignored. Order follows the cart.
func SelectLines(lines []domain.CartLine, selected []string) Selection {
	wanted := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		if id = strings.TrimSpace(id); id != "" {
			wanted[id] = struct{}{}
		}
	}

	sel := Selection{Lines: make([]domain.CartLine, 0, len(wanted))}
	for _, line := range lines {
		if _, ok := wanted[line.CartID]; !ok {
			continue
		}
		clamped := ClampQuantity(line.Quantity, line.Stock)
		if clamped != line.Quantity {
			sel.Clamped = append(sel.Clamped, line.CartID)
			line.Quantity = clamped
		}
		sel.Lines = append(sel.Lines, line)
	}
	sel.Amounts = ComputeAmounts(sel.Lines)
	return sel
}

// Select is SelectLines for the point of proceeding to checkout, where an empty result is an error.
func Select(lines []domain.CartLine, selected []string) (Selection, error) {
	sel := SelectLines(lines, selected)
	if sel.Empty() {
		return Selection{}, ErrEmptySelection
	}
	return sel, nil
}

// CartSelectionServiceDeps bundles collaborators for the cart selection service.
type CartSelectionServiceDeps struct {
	Cart   CartBackend
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type cartSelectionService struct {
	cart   CartBackend
	logger eventLogger
}

// NewCartSelectionService wires dependencies into a CartSelectionService.
func NewCartSelectionService(deps CartSelectionServiceDeps) (CartSelectionService, error) {
	if deps.Cart == nil {
		return nil, errors.New("cart selection service: cart backend is required")
	}
	return &cartSelectionService{cart: deps.Cart, logger: defaultLogger(deps.Logger)}, nil
}

func (s *cartSelectionService) Preview(ctx context.Context, userID string, selected []string) (Selection, error) {
	if strings.TrimSpace(userID) == "" {
		return Selection{}, ErrUnauthenticated
	}
	lines, err := s.cart.ListCart(ctx, userID)
	if err != nil {
		return Selection{}, mapBackendError(err)
	}
	return SelectLines(lines, selected), nil
}

// ChangeQuantity clamps requested against the line's stock snapshot. When the clamped value equals
// the current quantity nothing is sent and changed is false.
func (s *cartSelectionService) ChangeQuantity(ctx context.Context, userID string, line domain.CartLine, requested int) (domain.CartLine, bool, error) {
	if strings.TrimSpace(userID) == "" {
		return line, false, ErrUnauthenticated
	}
	if strings.TrimSpace(line.CartID) == "" {
		return line, false, &ValidationError{Field: "cartId"}
	}
	target := ClampQuantity(requested, line.Stock)
	if target == line.Quantity {
		return line, false, nil
	}

	updated, err := s.cart.UpdateQuantity(ctx, userID, line.CartID, target)
	if err != nil {
		s.logger(ctx, "cart.quantity.update_failed", map[string]any{
			"cartId": line.CartID,
			"target": target,
			"error":  err,
		})
		return line, false, mapBackendError(err)
	}
	return updated, true, nil
}
