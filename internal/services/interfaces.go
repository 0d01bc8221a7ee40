package services

import (
	"context"
	"time"

	"github.com/danseongsa/storefront/internal/domain"
)

// SessionService resolves the signed-in user. Returns ErrUnauthenticated when no session exists.
type SessionService interface {
	SessionUser(ctx context.Context) (*domain.SessionUser, error)
}

// CartBackend is the cart service collaborator. Quantity and removal mutations happen
// independently of checkout.
type CartBackend interface {
	ListCart(ctx context.Context, userID string) ([]domain.CartLine, error)
	UpdateQuantity(ctx context.Context, userID, cartID string, quantity int) (domain.CartLine, error)
	RemoveLines(ctx context.Context, userID string, cartIDs []string) error
}

// ConfirmPaymentRequest asks the order backend to confirm the gateway payment and create the order.
// The backend deduplicates on IdempotencyKey.
type ConfirmPaymentRequest struct {
	SessionID         string
	GatewayPaymentKey string
	Amount            int64
	UserID            string
	CartItemIDs       []string
	Items             []domain.CartLine
	Delivery          domain.DeliveryInfo
	Amounts           domain.Amounts
	PaymentMethod     string
	IdempotencyKey    string
}

// CreateRefundRequest carries the buyer's refund or exchange request.
type CreateRefundRequest struct {
	UserID       string
	OrderItemID  string
	Type         domain.RefundType
	Reason       string
	ReasonDetail string
	Amount       int64
}

// RefundDecisionResult is the backend's view after a seller decided on a refund.
type RefundDecisionResult struct {
	Refund domain.RefundRecord
	Item   *domain.OrderItemRecord
}

// OrderBackend is the order service collaborator. Every status it returns is raw and must be
// normalized before use.
type OrderBackend interface {
	ConfirmPayment(ctx context.Context, req ConfirmPaymentRequest) ([]domain.OrderItemRecord, error)
	GetOrderDetail(ctx context.Context, orderID, userID string) (domain.OrderRecord, error)
	GetOrderItem(ctx context.Context, orderItemID, userID string) (domain.OrderItemRecord, error)
	ListRefundRequests(ctx context.Context, orderItemID, userID string) ([]domain.RefundRecord, error)
	GetRefundRequest(ctx context.Context, refundID, userID string) (domain.RefundRecord, error)

	CancelOrderItem(ctx context.Context, userID, orderItemID string) (domain.OrderItemRecord, error)
	ConfirmOrderItem(ctx context.Context, userID, orderItemID string) (domain.OrderItemRecord, error)
	CreateRefundRequest(ctx context.Context, req CreateRefundRequest) (domain.RefundRecord, error)
	CancelRefundRequest(ctx context.Context, userID, refundID string) (domain.RefundRecord, error)

	ShipOrderItem(ctx context.Context, sellerID, orderItemID string) (domain.OrderItemRecord, error)
	CancelOrderItemBySeller(ctx context.Context, sellerID, orderItemID string) (domain.OrderItemRecord, error)
	ApproveRefundRequest(ctx context.Context, sellerID, refundID, note string) (RefundDecisionResult, error)
	RejectRefundRequest(ctx context.Context, sellerID, refundID, note string) (RefundDecisionResult, error)
}

// PaymentRedirectRequest describes the payment the shopper is about to make at the gateway.
type PaymentRedirectRequest struct {
	SessionID     string
	UserID        string
	OrderName     string
	Amount        int64
	Currency      string
	PaymentMethod string
	Items         []domain.CartLine
	ShippingFee   int64
}

// PaymentRedirect is where the shopper is sent to pay.
type PaymentRedirect struct {
	Provider    string
	RedirectURL string
	ExpiresAt   *time.Time
}

// PaymentGateway prepares the redirect to the external gateway.
type PaymentGateway interface {
	CreateRedirect(ctx context.Context, req PaymentRedirectRequest) (PaymentRedirect, error)
}

// OrderEventPublisher publishes order lifecycle events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order lifecycle events.
type OrderEvent struct {
	Type           string         `json:"type"`
	OrderID        string         `json:"orderId,omitempty"`
	OrderItemID    string         `json:"orderItemId,omitempty"`
	RefundID       string         `json:"refundId,omitempty"`
	SessionID      string         `json:"sessionId,omitempty"`
	PreviousStatus string         `json:"previousStatus,omitempty"`
	CurrentStatus  string         `json:"currentStatus,omitempty"`
	ActorID        string         `json:"actorId,omitempty"`
	OccurredAt     time.Time      `json:"occurredAt"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// TransitionRecorder counts transition outcomes for metrics.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, operation, outcome string)
}

// CartSelectionService aggregates selected cart lines into a priced selection.
type CartSelectionService interface {
	Preview(ctx context.Context, userID string, selected []string) (Selection, error)
	ChangeQuantity(ctx context.Context, userID string, line domain.CartLine, requested int) (domain.CartLine, bool, error)
}

// PaymentSessionService coordinates the gateway round trip for a checkout attempt.
type PaymentSessionService interface {
	Begin(ctx context.Context, cmd BeginPaymentCommand) (BeginPaymentResult, error)
	HandleSuccess(ctx context.Context, cb PaymentSuccessCallback) (PaymentConfirmation, error)
	HandleFailure(ctx context.Context, cb PaymentFailureCallback) (domain.PendingPaymentSession, error)
	Resume(ctx context.Context, userID string) (domain.OrderDraft, error)
	Current(ctx context.Context, userID string) (domain.PendingPaymentSession, error)
}

// RefundService governs refund and exchange requests.
type RefundService interface {
	Request(ctx context.Context, actor domain.Actor, cmd RefundRequestCommand) (RefundOutcome, error)
	Cancel(ctx context.Context, actor domain.Actor, refundID string) (RefundOutcome, error)
	Approve(ctx context.Context, actor domain.Actor, refundID, sellerNote string) (RefundOutcome, error)
	Reject(ctx context.Context, actor domain.Actor, refundID, sellerNote string) (RefundOutcome, error)
}

// FulfillmentService applies shipping, cancellation and purchase confirmation to order lines.
type FulfillmentService interface {
	Ship(ctx context.Context, actor domain.Actor, orderItemID string) (domain.OrderItem, error)
	SellerCancel(ctx context.Context, actor domain.Actor, orderItemID string) (SellerCancelResult, error)
	BuyerCancel(ctx context.Context, actor domain.Actor, orderItemID string) (domain.OrderItem, error)
	ConfirmPurchase(ctx context.Context, actor domain.Actor, orderItemID string) (domain.OrderItem, error)
}

// OrderQueryService builds the order detail view with canonical statuses and affordances.
type OrderQueryService interface {
	Detail(ctx context.Context, actor domain.Actor, orderID string) (OrderDetail, error)
}
