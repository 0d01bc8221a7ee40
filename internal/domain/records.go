package domain

import "time"

// OrderItemRecord is an order line as returned by the order backend, status not yet normalized.
type OrderItemRecord struct {
	OrderItemID   string
	OrderID       string
	ProductID     string
	ProductName   string
	BuyerID       string
	SellerID      string
	Quantity      int
	UnitPrice     int64
	DiscountPrice *int64
	Color         string
	Size          string
	Status        string
}

// RefundRecord is a refund request as returned by the order backend.
type RefundRecord struct {
	RefundID       string
	OrderItemID    string
	Type           string
	Reason         string
	ReasonDetail   string
	Amount         int64
	Status         string
	SellerResponse string
	RequestedAt    time.Time
}

// OrderRecord is an order detail as returned by the order backend.
type OrderRecord struct {
	OrderID   string
	BuyerID   string
	Items     []OrderItemRecord
	Refunds   []RefundRecord
	Delivery  DeliveryInfo
	Amounts   Amounts
	CreatedAt time.Time
}
