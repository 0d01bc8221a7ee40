package domain

import "time"

// OrderItemStatus is the canonical lifecycle state of a single order line.
type OrderItemStatus string

const (
	OrderItemStatusPaid       OrderItemStatus = "PAID"
	OrderItemStatusDelivering OrderItemStatus = "DELIVERING"
	OrderItemStatusDelivered  OrderItemStatus = "DELIVERED"
	OrderItemStatusConfirmed  OrderItemStatus = "CONFIRMED"
	OrderItemStatusCancelled  OrderItemStatus = "CANCELLED"
	OrderItemStatusRefunded   OrderItemStatus = "REFUNDED"
)

// Terminal reports whether no further order-line transition is offered from the status.
func (s OrderItemStatus) Terminal() bool {
	switch s {
	case OrderItemStatusConfirmed, OrderItemStatusCancelled, OrderItemStatusRefunded:
		return true
	}
	return false
}

// RefundStatus is the canonical state of a refund or exchange request.
// Values outside the declared constants are passed through from the backend verbatim.
type RefundStatus string

const (
	RefundStatusRequested RefundStatus = "REQUESTED"
	RefundStatusApproved  RefundStatus = "APPROVED"
	RefundStatusRejected  RefundStatus = "REJECTED"
	RefundStatusCompleted RefundStatus = "COMPLETED"
	RefundStatusCanceled  RefundStatus = "CANCELED"
)

// Active reports whether the request still blocks a new request on the same order line.
func (s RefundStatus) Active() bool {
	return s == RefundStatusRequested || s == RefundStatusApproved
}

// Terminal reports whether the request reached an end state.
func (s RefundStatus) Terminal() bool {
	switch s {
	case RefundStatusRejected, RefundStatusCompleted, RefundStatusCanceled:
		return true
	}
	return false
}

// Blocking reports whether the request still holds the order line. Any status that is not
// terminal blocks, including values the normalizer did not recognize.
func (s RefundStatus) Blocking() bool {
	return !s.Terminal()
}

// Canonical reports whether the value is one of the declared refund statuses.
func (s RefundStatus) Canonical() bool {
	return s.Active() || s.Terminal()
}

// RefundType distinguishes money-back requests from exchanges.
type RefundType string

const (
	RefundTypeRefund   RefundType = "REFUND"
	RefundTypeExchange RefundType = "EXCHANGE"
)

// PaymentSessionState tracks a checkout attempt across the gateway round trip.
type PaymentSessionState string

const (
	PaymentSessionDraftReady           PaymentSessionState = "DRAFT_READY"
	PaymentSessionAwaitingCallback     PaymentSessionState = "AWAITING_CALLBACK"
	PaymentSessionConfirming           PaymentSessionState = "CONFIRMING"
	PaymentSessionCompleted            PaymentSessionState = "COMPLETED"
	PaymentSessionConfirmationFailed   PaymentSessionState = "CONFIRMATION_FAILED"
	PaymentSessionReconciliationFailed PaymentSessionState = "RECONCILIATION_FAILED"
	PaymentSessionAbandoned            PaymentSessionState = "ABANDONED"
)

// ActorRole identifies which side of the marketplace triggers a transition.
type ActorRole string

const (
	ActorBuyer  ActorRole = "buyer"
	ActorSeller ActorRole = "seller"
)

// Actor is the user performing an order or refund action.
type Actor struct {
	UserID string
	Role   ActorRole
}

// SessionUser is the signed-in shopper as reported by the session service.
type SessionUser struct {
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	IsSeller bool   `json:"isSeller"`
}

// CartLine is one product/option row in the shopper's cart. Owned by the cart service.
type CartLine struct {
	CartID        string `json:"cartId"`
	ProductID     string `json:"productId"`
	ProductName   string `json:"productName,omitempty"`
	SellerID      string `json:"sellerId,omitempty"`
	UnitPrice     int64  `json:"unitPrice"`
	DiscountPrice *int64 `json:"discountPrice,omitempty"`
	Quantity      int    `json:"quantity"`
	Stock         int    `json:"stock"`
	Color         string `json:"color,omitempty"`
	Size          string `json:"size,omitempty"`
}

// EffectivePrice returns the discount price when present, otherwise the unit price.
func (l CartLine) EffectivePrice() int64 {
	if l.DiscountPrice != nil {
		return *l.DiscountPrice
	}
	return l.UnitPrice
}

// Amounts is the price breakdown of a selection or order.
type Amounts struct {
	Subtotal    int64 `json:"subtotal"`
	ShippingFee int64 `json:"shippingFee"`
	Total       int64 `json:"total"`
}

// DeliveryInfo holds recipient and address details. Memo is the only optional field.
type DeliveryInfo struct {
	RecipientName  string `json:"recipientName"`
	RecipientPhone string `json:"recipientPhone"`
	PostalCode     string `json:"postalCode"`
	Address        string `json:"address"`
	DetailAddress  string `json:"detailAddress"`
	Memo           string `json:"memo,omitempty"`
}

// OrderDraft is the unpersisted order built from a selection and delivery info.
type OrderDraft struct {
	UserID   string       `json:"userId"`
	Items    []CartLine   `json:"items"`
	Delivery DeliveryInfo `json:"delivery"`
	Amounts  Amounts      `json:"amounts"`
}

// CartItemIDs lists the cart ids the draft was built from.
func (d OrderDraft) CartItemIDs() []string {
	ids := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		ids = append(ids, item.CartID)
	}
	return ids
}

// PendingPaymentSession bridges a checkout attempt across the redirect to the payment gateway.
// SessionID doubles as the gateway order id.
type PendingPaymentSession struct {
	SessionID     string              `json:"sessionId"`
	UserID        string              `json:"userId"`
	CartItemIDs   []string            `json:"cartItemIds"`
	Items         []CartLine          `json:"items"`
	Delivery      DeliveryInfo        `json:"delivery"`
	Amounts       Amounts             `json:"amounts"`
	PaymentMethod string              `json:"paymentMethod"`
	State         PaymentSessionState `json:"state"`
	Attempted     bool                `json:"attempted"`
	FailureCode   string              `json:"failureCode,omitempty"`
	FailureReason string              `json:"failureReason,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// Draft reconstructs the order draft stored on the session.
func (s PendingPaymentSession) Draft() OrderDraft {
	return OrderDraft{
		UserID:   s.UserID,
		Items:    append([]CartLine(nil), s.Items...),
		Delivery: s.Delivery,
		Amounts:  s.Amounts,
	}
}

// OrderItem is an order line with a canonical status.
type OrderItem struct {
	OrderItemID   string          `json:"orderItemId"`
	OrderID       string          `json:"orderId"`
	ProductID     string          `json:"productId"`
	ProductName   string          `json:"productName,omitempty"`
	BuyerID       string          `json:"buyerId,omitempty"`
	SellerID      string          `json:"sellerId,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     int64           `json:"unitPrice"`
	DiscountPrice *int64          `json:"discountPrice,omitempty"`
	Color         string          `json:"color,omitempty"`
	Size          string          `json:"size,omitempty"`
	Status        OrderItemStatus `json:"status"`
}

// RefundRequest is a refund or exchange request against one order line.
type RefundRequest struct {
	RefundID       string       `json:"refundId"`
	OrderItemID    string       `json:"orderItemId"`
	Type           RefundType   `json:"type"`
	Reason         string       `json:"reason"`
	ReasonDetail   string       `json:"reasonDetail"`
	Amount         int64        `json:"amount"`
	Status         RefundStatus `json:"status"`
	SellerResponse string       `json:"sellerResponse,omitempty"`
	RequestedAt    time.Time    `json:"requestedAt"`
}

// Order groups order lines created by one confirmed payment.
type Order struct {
	OrderID   string          `json:"orderId"`
	BuyerID   string          `json:"buyerId"`
	Items     []OrderItem     `json:"items"`
	Refunds   []RefundRequest `json:"refunds,omitempty"`
	Delivery  DeliveryInfo    `json:"delivery"`
	Amounts   Amounts         `json:"amounts"`
	CreatedAt time.Time       `json:"createdAt"`
}
