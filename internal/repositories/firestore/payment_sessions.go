package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/danseongsa/storefront/internal/domain"
	pfirestore "github.com/danseongsa/storefront/internal/platform/firestore"
	"github.com/danseongsa/storefront/internal/repositories"
)

const defaultPaymentSessionCollection = "paymentSessions"

type cartLineDoc struct {
	CartID        string `firestore:"cartId"`
	ProductID     string `firestore:"productId"`
	ProductName   string `firestore:"productName,omitempty"`
	SellerID      string `firestore:"sellerId,omitempty"`
	UnitPrice     int64  `firestore:"unitPrice"`
	DiscountPrice *int64 `firestore:"discountPrice,omitempty"`
	Quantity      int    `firestore:"quantity"`
	Stock         int    `firestore:"stock"`
	Color         string `firestore:"color,omitempty"`
	Size          string `firestore:"size,omitempty"`
}

type deliveryDoc struct {
	RecipientName  string `firestore:"recipientName"`
	RecipientPhone string `firestore:"recipientPhone"`
	PostalCode     string `firestore:"postalCode"`
	Address        string `firestore:"address"`
	DetailAddress  string `firestore:"detailAddress"`
	Memo           string `firestore:"memo,omitempty"`
}

type paymentSessionDoc struct {
	SessionID     string        `firestore:"sessionId"`
	UserID        string        `firestore:"userId"`
	CartItemIDs   []string      `firestore:"cartItemIds"`
	Items         []cartLineDoc `firestore:"items"`
	Delivery      deliveryDoc   `firestore:"delivery"`
	Subtotal      int64         `firestore:"subtotal"`
	ShippingFee   int64         `firestore:"shippingFee"`
	Total         int64         `firestore:"total"`
	PaymentMethod string        `firestore:"paymentMethod"`
	State         string        `firestore:"state"`
	Attempted     bool          `firestore:"attempted"`
	FailureCode   string        `firestore:"failureCode,omitempty"`
	FailureReason string        `firestore:"failureReason,omitempty"`
	CreatedAt     time.Time     `firestore:"createdAt"`
	UpdatedAt     time.Time     `firestore:"updatedAt"`
	ExpiresAt     time.Time     `firestore:"expiresAt"`
}

// PaymentSessionRepository stores pending sessions in Firestore, one document per user.
// expiresAt is intended for a Firestore TTL policy.
type PaymentSessionRepository struct {
	provider *pfirestore.Provider
	docs     *pfirestore.Collection[paymentSessionDoc]
	name     string
	ttl      time.Duration
	now      func() time.Time
}

// NewPaymentSessionRepository constructs the Firestore-backed store.
func NewPaymentSessionRepository(provider *pfirestore.Provider, collection string, ttl time.Duration) (*PaymentSessionRepository, error) {
	if provider == nil {
		return nil, errors.New("payment session repository: firestore provider is required")
	}
	if strings.TrimSpace(collection) == "" {
		collection = defaultPaymentSessionCollection
	}
	return &PaymentSessionRepository{
		provider: provider,
		docs:     pfirestore.NewCollection[paymentSessionDoc](provider, collection),
		name:     collection,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Save implements repositories.PaymentSessionRepository.
func (r *PaymentSessionRepository) Save(ctx context.Context, session domain.PendingPaymentSession) error {
	doc := encodePaymentSession(session)
	if r.ttl > 0 {
		doc.ExpiresAt = r.now().UTC().Add(r.ttl)
	}
	return r.docs.Set(ctx, session.UserID, doc)
}

// FindByUser implements repositories.PaymentSessionRepository.
func (r *PaymentSessionRepository) FindByUser(ctx context.Context, userID string) (domain.PendingPaymentSession, error) {
	doc, err := r.docs.Get(ctx, strings.TrimSpace(userID))
	if err != nil {
		return domain.PendingPaymentSession{}, err
	}
	if !doc.Data.ExpiresAt.IsZero() && !r.now().Before(doc.Data.ExpiresAt) {
		return domain.PendingPaymentSession{}, repositories.NewNotFoundError(r.name+".get", errors.New("payment session expired"))
	}
	return decodePaymentSession(doc.Data), nil
}

// Delete implements repositories.PaymentSessionRepository. A newer session stored under the
// same user is left in place.
func (r *PaymentSessionRepository) Delete(ctx context.Context, userID, sessionID string) error {
	return r.docs.Update(ctx, strings.TrimSpace(userID), func(tx *firestore.Transaction, ref *firestore.DocumentRef, current *pfirestore.Document[paymentSessionDoc]) error {
		if current == nil || current.Data.SessionID != sessionID {
			return nil
		}
		return tx.Delete(ref)
	})
}

// Ping implements repositories.HealthChecker.
func (r *PaymentSessionRepository) Ping(ctx context.Context) error {
	return r.provider.Ping(ctx, r.name)
}

func encodePaymentSession(s domain.PendingPaymentSession) paymentSessionDoc {
	items := make([]cartLineDoc, 0, len(s.Items))
	for _, line := range s.Items {
		items = append(items, cartLineDoc{
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
		})
	}
	return paymentSessionDoc{
		SessionID:     s.SessionID,
		UserID:        s.UserID,
		CartItemIDs:   append([]string(nil), s.CartItemIDs...),
		Items:         items,
		Delivery:      deliveryDoc(s.Delivery),
		Subtotal:      s.Amounts.Subtotal,
		ShippingFee:   s.Amounts.ShippingFee,
		Total:         s.Amounts.Total,
		PaymentMethod: s.PaymentMethod,
		State:         string(s.State),
		Attempted:     s.Attempted,
		FailureCode:   s.FailureCode,
		FailureReason: s.FailureReason,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func decodePaymentSession(doc paymentSessionDoc) domain.PendingPaymentSession {
	items := make([]domain.CartLine, 0, len(doc.Items))
	for _, line := range doc.Items {
		items = append(items, domain.CartLine{
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
		})
	}
	return domain.PendingPaymentSession{
		SessionID:     doc.SessionID,
		UserID:        doc.UserID,
		CartItemIDs:   doc.CartItemIDs,
		Items:         items,
		Delivery:      domain.DeliveryInfo(doc.Delivery),
		Amounts:       domain.Amounts{Subtotal: doc.Subtotal, ShippingFee: doc.ShippingFee, Total: doc.Total},
		PaymentMethod: doc.PaymentMethod,
		State:         domain.PaymentSessionState(doc.State),
		Attempted:     doc.Attempted,
		FailureCode:   doc.FailureCode,
		FailureReason: doc.FailureReason,
		CreatedAt:     doc.CreatedAt.UTC(),
		UpdatedAt:     doc.UpdatedAt.UTC(),
	}
}
