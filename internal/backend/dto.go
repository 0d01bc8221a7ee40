package backend

import (
	"strings"
	"time"

	"github.com/danseongsa/storefront/internal/domain"
)

type errorPayload struct {
	Code    string `json:"code"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

type cartLinePayload struct {
	CartID        string `json:"cartId"`
	ProductID     string `json:"productId"`
	ProductName   string `json:"productName"`
	SellerID      string `json:"sellerId"`
	UnitPrice     int64  `json:"price"`
	DiscountPrice *int64 `json:"discountPrice"`
	Quantity      int    `json:"quantity"`
	Stock         int    `json:"stock"`
	Color         string `json:"color"`
	Size          string `json:"size"`
}

func (p cartLinePayload) toDomain() domain.CartLine {
	return domain.CartLine{
		CartID:        strings.TrimSpace(p.CartID),
		ProductID:     strings.TrimSpace(p.ProductID),
		ProductName:   p.ProductName,
		SellerID:      strings.TrimSpace(p.SellerID),
		UnitPrice:     p.UnitPrice,
		DiscountPrice: p.DiscountPrice,
		Quantity:      p.Quantity,
		Stock:         p.Stock,
		Color:         p.Color,
		Size:          p.Size,
	}
}

func cartLinePayloadFrom(line domain.CartLine) cartLinePayload {
	return cartLinePayload{
		CartID:        line.CartID,
		ProductID:     line.ProductID,
		ProductName:   line.ProductName,
		SellerID:      line.SellerID,
		UnitPrice:     line.UnitPrice,
		DiscountPrice: line.DiscountPrice,
		Quantity:      line.Quantity,
		Stock:         line.Stock,
		Color:         line.Color,
		Size:          line.Size,
	}
}

type cartListPayload struct {
	Items []cartLinePayload `json:"items"`
}

type orderItemPayload struct {
	OrderItemID   string `json:"orderItemId"`
	OrderID       string `json:"orderId"`
	ProductID     string `json:"productId"`
	ProductName   string `json:"productName"`
	BuyerID       string `json:"buyerId"`
	SellerID      string `json:"sellerId"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"price"`
	DiscountPrice *int64 `json:"discountPrice"`
	Color         string `json:"color"`
	Size          string `json:"size"`
	Status        string `json:"status"`
}

func (p orderItemPayload) toRecord() domain.OrderItemRecord {
	return domain.OrderItemRecord{
		OrderItemID:   strings.TrimSpace(p.OrderItemID),
		OrderID:       strings.TrimSpace(p.OrderID),
		ProductID:     strings.TrimSpace(p.ProductID),
		ProductName:   p.ProductName,
		BuyerID:       strings.TrimSpace(p.BuyerID),
		SellerID:      strings.TrimSpace(p.SellerID),
		Quantity:      p.Quantity,
		UnitPrice:     p.UnitPrice,
		DiscountPrice: p.DiscountPrice,
		Color:         p.Color,
		Size:          p.Size,
		Status:        p.Status,
	}
}

type orderItemListPayload struct {
	Items []orderItemPayload `json:"items"`
}

type refundPayload struct {
	RefundID       string `json:"refundId"`
	OrderItemID    string `json:"orderItemId"`
	Type           string `json:"type"`
	Reason         string `json:"reason"`
	ReasonDetail   string `json:"reasonDetail"`
	Amount         int64  `json:"amount"`
	Status         string `json:"status"`
	SellerResponse string `json:"sellerResponse"`
	RequestedAt    string `json:"requestedAt"`
}

func (p refundPayload) toRecord() domain.RefundRecord {
	return domain.RefundRecord{
		RefundID:       strings.TrimSpace(p.RefundID),
		OrderItemID:    strings.TrimSpace(p.OrderItemID),
		Type:           p.Type,
		Reason:         p.Reason,
		ReasonDetail:   p.ReasonDetail,
		Amount:         p.Amount,
		Status:         p.Status,
		SellerResponse: p.SellerResponse,
		RequestedAt:    parseTime(p.RequestedAt),
	}
}

type refundListPayload struct {
	Refunds []refundPayload `json:"refunds"`
}

type refundDecisionPayload struct {
	Refund refundPayload     `json:"refund"`
	Item   *orderItemPayload `json:"item"`
}

type orderPayload struct {
	OrderID   string              `json:"orderId"`
	BuyerID   string              `json:"buyerId"`
	Items     []orderItemPayload  `json:"items"`
	Refunds   []refundPayload     `json:"refunds"`
	Delivery  domain.DeliveryInfo `json:"delivery"`
	Amounts   domain.Amounts      `json:"amounts"`
	CreatedAt string              `json:"createdAt"`
}

func (p orderPayload) toRecord() domain.OrderRecord {
	record := domain.OrderRecord{
		OrderID:   strings.TrimSpace(p.OrderID),
		BuyerID:   strings.TrimSpace(p.BuyerID),
		Delivery:  p.Delivery,
		Amounts:   p.Amounts,
		CreatedAt: parseTime(p.CreatedAt),
	}
	for _, item := range p.Items {
		record.Items = append(record.Items, item.toRecord())
	}
	for _, refund := range p.Refunds {
		record.Refunds = append(record.Refunds, refund.toRecord())
	}
	return record
}

type confirmPaymentPayload struct {
	PaymentKey    string              `json:"paymentKey"`
	OrderID       string              `json:"orderId"`
	Amount        int64               `json:"amount"`
	CartItemIDs   []string            `json:"cartItemIds"`
	Items         []cartLinePayload   `json:"items"`
	Delivery      domain.DeliveryInfo `json:"delivery"`
	Amounts       domain.Amounts      `json:"amounts"`
	PaymentMethod string              `json:"paymentMethod"`
}

type createRefundPayload struct {
	OrderItemID  string `json:"orderItemId"`
	Type         string `json:"type"`
	Reason       string `json:"reason"`
	ReasonDetail string `json:"reasonDetail,omitempty"`
	Amount       int64  `json:"amount,omitempty"`
}

func parseTime(val string) time.Time {
	val = strings.TrimSpace(val)
	if val == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, val); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
