package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/services"
)

const (
	defaultTimeout    = 10 * time.Second
	idempotencyHeader = "Idempotency-Key"
	userHeader        = "X-User-Id"
	maxErrorBody      = 4 << 10
)

// Client calls the order and cart REST backend. Mutating calls carry an Idempotency-Key and are
// never retried by the client.
type Client struct {
	baseURL string
	http    *http.Client
}

var (
	_ services.OrderBackend = (*Client)(nil)
	_ services.CartBackend  = (*Client)(nil)
)

// Option customises the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout overrides the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.http.Timeout = timeout
		}
	}
}

// NewClient constructs a backend client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	c := &Client{baseURL: baseURL, http: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListCart returns the user's cart lines.
func (c *Client) ListCart(ctx context.Context, userID string) ([]domain.CartLine, error) {
	var payload cartListPayload
	if err := c.do(ctx, http.MethodGet, userID, nil, &payload, "", "cart", "items"); err != nil {
		return nil, err
	}
	lines := make([]domain.CartLine, 0, len(payload.Items))
	for _, item := range payload.Items {
		lines = append(lines, item.toDomain())
	}
	return lines, nil
}

// UpdateQuantity changes one cart line's quantity.
func (c *Client) UpdateQuantity(ctx context.Context, userID, cartID string, quantity int) (domain.CartLine, error) {
	var payload cartLinePayload
	body := map[string]int{"quantity": quantity}
	if err := c.do(ctx, http.MethodPatch, userID, body, &payload, "", "cart", "items", cartID); err != nil {
		return domain.CartLine{}, err
	}
	return payload.toDomain(), nil
}

// RemoveLines deletes cart lines by id.
func (c *Client) RemoveLines(ctx context.Context, userID string, cartIDs []string) error {
	if len(cartIDs) == 0 {
		return nil
	}
	body := map[string][]string{"cartIds": cartIDs}
	return c.do(ctx, http.MethodPost, userID, body, nil, "", "cart", "items", "remove")
}

// ConfirmPayment confirms the gateway payment and creates the order.
func (c *Client) ConfirmPayment(ctx context.Context, req services.ConfirmPaymentRequest) ([]domain.OrderItemRecord, error) {
	body := confirmPaymentPayload{
		PaymentKey:    req.GatewayPaymentKey,
		OrderID:       req.SessionID,
		Amount:        req.Amount,
		CartItemIDs:   req.CartItemIDs,
		Delivery:      req.Delivery,
		Amounts:       req.Amounts,
		PaymentMethod: req.PaymentMethod,
	}
	for _, item := range req.Items {
		body.Items = append(body.Items, cartLinePayloadFrom(item))
	}
	var payload orderItemListPayload
	if err := c.do(ctx, http.MethodPost, req.UserID, body, &payload, req.IdempotencyKey, "payments", "confirm"); err != nil {
		return nil, err
	}
	return itemRecords(payload.Items), nil
}

// GetOrderDetail fetches an order with its lines and refunds.
func (c *Client) GetOrderDetail(ctx context.Context, orderID, userID string) (domain.OrderRecord, error) {
	var payload orderPayload
	if err := c.do(ctx, http.MethodGet, userID, nil, &payload, "", "orders", orderID); err != nil {
		return domain.OrderRecord{}, err
	}
	return payload.toRecord(), nil
}

// GetOrderItem fetches one order line.
func (c *Client) GetOrderItem(ctx context.Context, orderItemID, userID string) (domain.OrderItemRecord, error) {
	return c.itemCall(ctx, http.MethodGet, userID, "order-items", orderItemID)
}

// ListRefundRequests lists refunds filed against an order line.
func (c *Client) ListRefundRequests(ctx context.Context, orderItemID, userID string) ([]domain.RefundRecord, error) {
	var payload refundListPayload
	if err := c.do(ctx, http.MethodGet, userID, nil, &payload, "", "order-items", orderItemID, "refunds"); err != nil {
		return nil, err
	}
	records := make([]domain.RefundRecord, 0, len(payload.Refunds))
	for _, refund := range payload.Refunds {
		records = append(records, refund.toRecord())
	}
	return records, nil
}

// GetRefundRequest fetches one refund request.
func (c *Client) GetRefundRequest(ctx context.Context, refundID, userID string) (domain.RefundRecord, error) {
	return c.refundCall(ctx, http.MethodGet, userID, nil, "refunds", refundID)
}

// CancelOrderItem cancels a paid line on behalf of the buyer.
func (c *Client) CancelOrderItem(ctx context.Context, userID, orderItemID string) (domain.OrderItemRecord, error) {
	return c.itemCall(ctx, http.MethodPost, userID, "order-items", orderItemID, "cancel")
}

// ConfirmOrderItem confirms purchase of a delivered line.
func (c *Client) ConfirmOrderItem(ctx context.Context, userID, orderItemID string) (domain.OrderItemRecord, error) {
	return c.itemCall(ctx, http.MethodPost, userID, "order-items", orderItemID, "confirm")
}

// CreateRefundRequest files a refund or exchange request.
func (c *Client) CreateRefundRequest(ctx context.Context, req services.CreateRefundRequest) (domain.RefundRecord, error) {
	body := createRefundPayload{
		OrderItemID:  req.OrderItemID,
		Type:         string(req.Type),
		Reason:       req.Reason,
		ReasonDetail: req.ReasonDetail,
		Amount:       req.Amount,
	}
	return c.refundCall(ctx, http.MethodPost, req.UserID, body, "refunds")
}

// CancelRefundRequest withdraws a requested refund.
func (c *Client) CancelRefundRequest(ctx context.Context, userID, refundID string) (domain.RefundRecord, error) {
	return c.refundCall(ctx, http.MethodPost, userID, nil, "refunds", refundID, "cancel")
}

// ShipOrderItem marks a paid line as shipped by the seller.
func (c *Client) ShipOrderItem(ctx context.Context, sellerID, orderItemID string) (domain.OrderItemRecord, error) {
	return c.itemCall(ctx, http.MethodPost, sellerID, "seller", "order-items", orderItemID, "ship")
}

// CancelOrderItemBySeller cancels a paid line on behalf of the seller.
func (c *Client) CancelOrderItemBySeller(ctx context.Context, sellerID, orderItemID string) (domain.OrderItemRecord, error) {
	return c.itemCall(ctx, http.MethodPost, sellerID, "seller", "order-items", orderItemID, "cancel")
}

// ApproveRefundRequest approves a refund; the backend may report the updated line.
func (c *Client) ApproveRefundRequest(ctx context.Context, sellerID, refundID, note string) (services.RefundDecisionResult, error) {
	return c.decide(ctx, sellerID, refundID, note, "approve")
}

// RejectRefundRequest rejects a refund; the backend may report the updated line.
func (c *Client) RejectRefundRequest(ctx context.Context, sellerID, refundID, note string) (services.RefundDecisionResult, error) {
	return c.decide(ctx, sellerID, refundID, note, "reject")
}

func (c *Client) decide(ctx context.Context, sellerID, refundID, note, action string) (services.RefundDecisionResult, error) {
	var payload refundDecisionPayload
	body := map[string]string{"sellerResponse": note}
	if err := c.do(ctx, http.MethodPost, sellerID, body, &payload, "", "seller", "refunds", refundID, action); err != nil {
		return services.RefundDecisionResult{}, err
	}
	result := services.RefundDecisionResult{Refund: payload.Refund.toRecord()}
	if payload.Item != nil {
		record := payload.Item.toRecord()
		result.Item = &record
	}
	return result, nil
}

func (c *Client) itemCall(ctx context.Context, method, userID string, segments ...string) (domain.OrderItemRecord, error) {
	var payload orderItemPayload
	if err := c.do(ctx, method, userID, nil, &payload, "", segments...); err != nil {
		return domain.OrderItemRecord{}, err
	}
	return payload.toRecord(), nil
}

func (c *Client) refundCall(ctx context.Context, method, userID string, body any, segments ...string) (domain.RefundRecord, error) {
	var payload refundPayload
	if err := c.do(ctx, method, userID, body, &payload, "", segments...); err != nil {
		return domain.RefundRecord{}, err
	}
	return payload.toRecord(), nil
}

func (c *Client) do(ctx context.Context, method, userID string, body, out any, idempotencyKey string, segments ...string) error {
	for i, segment := range segments {
		segment = strings.TrimSpace(segment)
		if segment == "" || segment == "." || segment == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidPathSegment, segment)
		}
		segments[i] = url.PathEscape(segment)
	}
	endpoint, err := url.JoinPath(c.baseURL, segments...)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if userID = strings.TrimSpace(userID); userID != "" {
		httpReq.Header.Set(userHeader, userID)
	}
	if method != http.MethodGet {
		httpReq.Header.Set(idempotencyHeader, ensureIdempotencyKey(idempotencyKey))
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return &Error{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	backendErr := &Error{Status: resp.StatusCode}
	var payload errorPayload
	if err := json.Unmarshal(raw, &payload); err == nil {
		backendErr.Code = strings.TrimSpace(payload.Code)
		if backendErr.Code == "" {
			backendErr.Code = strings.TrimSpace(payload.Error)
		}
		backendErr.Message = strings.TrimSpace(payload.Message)
	} else {
		backendErr.Message = strings.TrimSpace(string(raw))
	}
	return backendErr
}

func itemRecords(items []orderItemPayload) []domain.OrderItemRecord {
	records := make([]domain.OrderItemRecord, 0, len(items))
	for _, item := range items {
		records = append(records, item.toRecord())
	}
	return records
}

func ensureIdempotencyKey(key string) string {
	if key = strings.TrimSpace(key); key != "" {
		return key
	}
	return uuid.NewString()
}
