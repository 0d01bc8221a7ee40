package events

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danseongsa/storefront/internal/services"
)

// partitionKey keeps events for one order line, refund or session in order.
func partitionKey(event services.OrderEvent) string {
	switch {
	case event.OrderItemID != "":
		return "order_item:" + event.OrderItemID
	case event.RefundID != "":
		return "refund:" + event.RefundID
	case event.OrderID != "":
		return "order:" + event.OrderID
	default:
		return "session:" + event.SessionID
	}
}

func encode(event services.OrderEvent) ([]byte, map[string]string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal order event: %w", err)
	}
	attrs := map[string]string{"type": event.Type}
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "orderItemId", event.OrderItemID)
	setAttr(attrs, "refundId", event.RefundID)
	setAttr(attrs, "status", event.CurrentStatus)
	return data, attrs, nil
}

func setAttr(attrs map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
