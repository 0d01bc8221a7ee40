package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/platform/textutil"
	"github.com/danseongsa/storefront/internal/repositories"
)

const (
	paymentEventConfirmed = "payment.confirmed"

	defaultPaymentMethod = "CARD"
	maxFailureReasonLen  = 200
)

var confirmIdempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("storefront:payment-confirm"))

var paymentSessionTransitions = map[domain.PaymentSessionState][]domain.PaymentSessionState{
	domain.PaymentSessionDraftReady:       {domain.PaymentSessionAwaitingCallback},
	domain.PaymentSessionAwaitingCallback: {domain.PaymentSessionConfirming, domain.PaymentSessionReconciliationFailed, domain.PaymentSessionAbandoned},
	domain.PaymentSessionConfirming:       {domain.PaymentSessionCompleted, domain.PaymentSessionConfirmationFailed},
}

// BeginPaymentCommand starts a checkout attempt from the current selection and delivery info.
type BeginPaymentCommand struct {
	User          *domain.SessionUser
	Selection     Selection
	Delivery      domain.DeliveryInfo
	PaymentMethod string
	OrderName     string
}

// BeginPaymentResult is the stored session plus where to send the shopper.
type BeginPaymentResult struct {
	Session  domain.PendingPaymentSession
	Redirect PaymentRedirect
}

// PaymentSuccessCallback is the gateway's success return.
type PaymentSuccessCallback struct {
	UserID            string
	SessionID         string
	GatewayPaymentKey string
	Amount            int64
}

// PaymentFailureCallback is the gateway's failure or cancel return.
type PaymentFailureCallback struct {
	UserID    string
	SessionID string
	Code      string
	Message   string
}

// PaymentConfirmation describes the order created for a completed session.
type PaymentConfirmation struct {
	SessionID string             `json:"sessionId"`
	OrderID   string             `json:"orderId"`
	Items     []domain.OrderItem `json:"items"`
	Amounts   domain.Amounts     `json:"amounts"`
	State     string             `json:"state"`
}

// PaymentSessionServiceDeps bundles collaborators required to construct the payment session service.
type PaymentSessionServiceDeps struct {
	Sessions    repositories.PaymentSessionRepository
	Gateway     PaymentGateway
	Orders      OrderBackend
	Cart        CartBackend
	Normalizer  *StatusNormalizer
	Events      OrderEventPublisher
	Metrics     TransitionRecorder
	Currency    string
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type paymentSessionService struct {
	sessions   repositories.PaymentSessionRepository
	gateway    PaymentGateway
	orders     OrderBackend
	cart       CartBackend
	normalizer *StatusNormalizer
	events     OrderEventPublisher
	metrics    TransitionRecorder
	currency   string
	clock      func() time.Time
	newID      func() string
	logger     eventLogger
}

// NewPaymentSessionService wires dependencies into a PaymentSessionService.
func NewPaymentSessionService(deps PaymentSessionServiceDeps) (PaymentSessionService, error) {
	if deps.Sessions == nil {
		return nil, errors.New("payment session service: session repository is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("payment session service: payment gateway is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("payment session service: order backend is required")
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopRecorder{}
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = defaultNormalizer
	}
	currency := strings.ToUpper(strings.TrimSpace(deps.Currency))
	if currency == "" {
		currency = "KRW"
	}

	return &paymentSessionService{
		sessions:   deps.Sessions,
		gateway:    deps.Gateway,
		orders:     deps.Orders,
		cart:       deps.Cart,
		normalizer: normalizer,
		events:     deps.Events,
		metrics:    metrics,
		currency:   currency,
		clock:      defaultClock(deps.Clock),
		newID:      idGen,
		logger:     defaultLogger(deps.Logger),
	}, nil
}

// Begin always generates a fresh session id, overwriting whatever the user had stored before.
func (s *paymentSessionService) Begin(ctx context.Context, cmd BeginPaymentCommand) (BeginPaymentResult, error) {
	draft, err := BuildOrderDraft(cmd.User, cmd.Selection, cmd.Delivery)
	if err != nil {
		return BeginPaymentResult{}, err
	}

	method := strings.ToUpper(strings.TrimSpace(cmd.PaymentMethod))
	if method == "" {
		method = defaultPaymentMethod
	}

	now := s.clock()
	session := domain.PendingPaymentSession{
		SessionID:     s.newID(),
		UserID:        draft.UserID,
		CartItemIDs:   draft.CartItemIDs(),
		Items:         draft.Items,
		Delivery:      draft.Delivery,
		Amounts:       draft.Amounts,
		PaymentMethod: method,
		State:         domain.PaymentSessionDraftReady,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		s.metrics.RecordTransition(ctx, "payment_session.begin", "error")
		return BeginPaymentResult{}, fmt.Errorf("payment session: persist: %w", err)
	}

	redirect, err := s.gateway.CreateRedirect(ctx, PaymentRedirectRequest{
		SessionID:     session.SessionID,
		UserID:        session.UserID,
		OrderName:     orderName(cmd.OrderName, draft.Items),
		Amount:        draft.Amounts.Total,
		Currency:      s.currency,
		PaymentMethod: method,
		Items:         draft.Items,
		ShippingFee:   draft.Amounts.ShippingFee,
	})
	if err != nil {
		s.logger(ctx, "payment_session.redirect_failed", map[string]any{
			"sessionId": session.SessionID,
			"error":     err.Error(),
		})
		s.metrics.RecordTransition(ctx, "payment_session.begin", "error")
		return BeginPaymentResult{}, fmt.Errorf("payment session: prepare redirect: %w", err)
	}

	session, err = s.advance(ctx, session, domain.PaymentSessionAwaitingCallback)
	if err != nil {
		return BeginPaymentResult{}, err
	}

	s.logger(ctx, "payment_session.begin", map[string]any{
		"sessionId": session.SessionID,
		"userId":    session.UserID,
		"total":     session.Amounts.Total,
		"provider":  redirect.Provider,
	})
	s.metrics.RecordTransition(ctx, "payment_session.begin", "ok")
	return BeginPaymentResult{Session: session, Redirect: redirect}, nil
}

// HandleSuccess matches the callback to the stored session before anything else. The session is
// deleted only once the backend has created the order; if that delete fails the session is kept as
// COMPLETED, which Current treats as gone.
//
// cb.Amount is the amount carried on the return URL. For redirect providers that is the value this
// service put there when the session began, so the check only catches tampering or a stale
// session; the backend confirmation, keyed by the gateway payment key, is the authoritative check
// against what the gateway charged.
func (s *paymentSessionService) HandleSuccess(ctx context.Context, cb PaymentSuccessCallback) (PaymentConfirmation, error) {
	session, err := s.matchSession(ctx, cb.UserID, cb.SessionID)
	if err != nil {
		s.metrics.RecordTransition(ctx, "payment_session.confirm", "reconciliation_failed")
		return PaymentConfirmation{}, err
	}

	switch session.State {
	case domain.PaymentSessionAwaitingCallback, domain.PaymentSessionConfirming:
	default:
		s.logger(ctx, "payment_session.reused", map[string]any{
			"sessionId": session.SessionID,
			"state":     string(session.State),
		})
		s.metrics.RecordTransition(ctx, "payment_session.confirm", "reconciliation_failed")
		return PaymentConfirmation{}, fmt.Errorf("%w: session %s already attempted", ErrSessionExpired, session.SessionID)
	}

	if cb.Amount != session.Amounts.Total {
		session.State = domain.PaymentSessionReconciliationFailed
		session.Attempted = true
		session.FailureCode = "amount_mismatch"
		session.FailureReason = fmt.Sprintf("expected %d, gateway reported %d", session.Amounts.Total, cb.Amount)
		s.store(ctx, session)
		s.metrics.RecordTransition(ctx, "payment_session.confirm", "reconciliation_failed")
		return PaymentConfirmation{}, fmt.Errorf("%w: expected %d, got %d", ErrPaymentAmountMismatch, session.Amounts.Total, cb.Amount)
	}

	paymentKey := strings.TrimSpace(cb.GatewayPaymentKey)
	if paymentKey == "" {
		return PaymentConfirmation{}, missingField("paymentKey")
	}

	if session.State != domain.PaymentSessionConfirming {
		session, err = s.advance(ctx, session, domain.PaymentSessionConfirming)
		if err != nil {
			return PaymentConfirmation{}, err
		}
	}

	records, err := s.orders.ConfirmPayment(ctx, ConfirmPaymentRequest{
		SessionID:         session.SessionID,
		GatewayPaymentKey: paymentKey,
		Amount:            cb.Amount,
		UserID:            session.UserID,
		CartItemIDs:       session.CartItemIDs,
		Items:             session.Items,
		Delivery:          session.Delivery,
		Amounts:           session.Amounts,
		PaymentMethod:     session.PaymentMethod,
		IdempotencyKey:    ConfirmIdempotencyKey(session.SessionID, paymentKey),
	})
	if err != nil {
		mapped := mapBackendError(err)
		session.State = domain.PaymentSessionConfirmationFailed
		session.Attempted = true
		session.FailureCode = confirmFailureCode(mapped)
		session.FailureReason = mapped.Error()
		s.store(ctx, session)
		s.logger(ctx, "payment_session.confirm_failed", map[string]any{
			"sessionId": session.SessionID,
			"error":     err.Error(),
		})
		s.metrics.RecordTransition(ctx, "payment_session.confirm", "error")
		return PaymentConfirmation{}, mapped
	}

	if err := s.sessions.Delete(ctx, session.UserID, session.SessionID); err != nil {
		session.State = domain.PaymentSessionCompleted
		s.store(ctx, session)
		s.logger(ctx, "payment_session.clear_failed", map[string]any{
			"sessionId": session.SessionID,
			"error":     err.Error(),
		})
	}

	items := make([]domain.OrderItem, 0, len(records))
	for _, record := range records {
		items = append(items, s.normalizer.OrderItem(record))
	}
	orderID := ""
	if len(items) > 0 {
		orderID = items[0].OrderID
	}

	s.removeCartLines(ctx, session)
	s.publishEvent(ctx, OrderEvent{
		Type:          paymentEventConfirmed,
		OrderID:       orderID,
		SessionID:     session.SessionID,
		CurrentStatus: string(domain.PaymentSessionCompleted),
		ActorID:       session.UserID,
		OccurredAt:    s.clock(),
		Metadata: map[string]any{
			"amount": session.Amounts.Total,
			"items":  len(items),
		},
	})
	s.logger(ctx, "payment_session.completed", map[string]any{
		"sessionId": session.SessionID,
		"orderId":   orderID,
	})
	s.metrics.RecordTransition(ctx, "payment_session.confirm", "ok")

	return PaymentConfirmation{
		SessionID: session.SessionID,
		OrderID:   orderID,
		Items:     items,
		Amounts:   session.Amounts,
		State:     string(domain.PaymentSessionCompleted),
	}, nil
}

// HandleFailure marks the session abandoned and keeps it so the draft can be resumed.
func (s *paymentSessionService) HandleFailure(ctx context.Context, cb PaymentFailureCallback) (domain.PendingPaymentSession, error) {
	session, err := s.matchSession(ctx, cb.UserID, cb.SessionID)
	if err != nil {
		return domain.PendingPaymentSession{}, err
	}
	if session.State != domain.PaymentSessionAbandoned {
		if !canAdvance(session.State, domain.PaymentSessionAbandoned) {
			return domain.PendingPaymentSession{}, fmt.Errorf("%w: session is %s", ErrSessionExpired, session.State)
		}
		session.State = domain.PaymentSessionAbandoned
	}
	session.Attempted = true
	session.FailureCode = strings.TrimSpace(cb.Code)
	session.FailureReason = textutil.PlainText(cb.Message, maxFailureReasonLen)
	session.UpdatedAt = s.clock()
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.PendingPaymentSession{}, fmt.Errorf("payment session: persist: %w", err)
	}

	s.logger(ctx, "payment_session.abandoned", map[string]any{
		"sessionId": session.SessionID,
		"code":      session.FailureCode,
	})
	s.metrics.RecordTransition(ctx, "payment_session.abandon", "ok")
	return session, nil
}

func (s *paymentSessionService) Resume(ctx context.Context, userID string) (domain.OrderDraft, error) {
	session, err := s.Current(ctx, userID)
	if err != nil {
		return domain.OrderDraft{}, err
	}
	return session.Draft(), nil
}

func (s *paymentSessionService) Current(ctx context.Context, userID string) (domain.PendingPaymentSession, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.PendingPaymentSession{}, ErrUnauthenticated
	}
	session, err := s.sessions.FindByUser(ctx, userID)
	if err != nil {
		if isRepositoryNotFound(err) {
			return domain.PendingPaymentSession{}, ErrSessionExpired
		}
		return domain.PendingPaymentSession{}, fmt.Errorf("payment session: load: %w", err)
	}
	if session.State == domain.PaymentSessionCompleted {
		return domain.PendingPaymentSession{}, ErrSessionExpired
	}
	return session, nil
}

// ConfirmIdempotencyKey derives the key the backend deduplicates confirmations on.
func ConfirmIdempotencyKey(sessionID, paymentKey string) string {
	return uuid.NewSHA1(confirmIdempotencyNamespace, []byte(sessionID+":"+paymentKey)).String()
}

func (s *paymentSessionService) matchSession(ctx context.Context, userID, sessionID string) (domain.PendingPaymentSession, error) {
	sessionID = strings.TrimSpace(sessionID)
	session, err := s.Current(ctx, userID)
	if err != nil {
		return domain.PendingPaymentSession{}, err
	}
	if sessionID == "" || session.SessionID != sessionID {
		s.logger(ctx, "payment_session.mismatch", map[string]any{
			"storedSessionId":   session.SessionID,
			"callbackSessionId": sessionID,
		})
		return domain.PendingPaymentSession{}, ErrSessionExpired
	}
	return session, nil
}

func (s *paymentSessionService) advance(ctx context.Context, session domain.PendingPaymentSession, target domain.PaymentSessionState) (domain.PendingPaymentSession, error) {
	if !canAdvance(session.State, target) {
		return session, fmt.Errorf("%w: payment session %s -> %s", ErrInvalidState, session.State, target)
	}
	session.State = target
	session.UpdatedAt = s.clock()
	if err := s.sessions.Save(ctx, session); err != nil {
		return session, fmt.Errorf("payment session: persist: %w", err)
	}
	return session, nil
}

// store persists a state the caller cannot act on further; save errors are only logged.
func (s *paymentSessionService) store(ctx context.Context, session domain.PendingPaymentSession) {
	session.UpdatedAt = s.clock()
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger(ctx, "payment_session.persist_failed", map[string]any{
			"sessionId": session.SessionID,
			"state":     string(session.State),
			"error":     err.Error(),
		})
	}
}

func (s *paymentSessionService) removeCartLines(ctx context.Context, session domain.PendingPaymentSession) {
	if s.cart == nil || len(session.CartItemIDs) == 0 {
		return
	}
	if err := s.cart.RemoveLines(ctx, session.UserID, session.CartItemIDs); err != nil {
		s.logger(ctx, "payment_session.cart_cleanup_failed", map[string]any{
			"sessionId": session.SessionID,
			"error":     err.Error(),
		})
	}
}

func (s *paymentSessionService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "payment.event.publish.failed", map[string]any{
			"type":    event.Type,
			"session": event.SessionID,
			"error":   err.Error(),
		})
	}
}

func canAdvance(current, target domain.PaymentSessionState) bool {
	return slices.Contains(paymentSessionTransitions[current], target)
}

func confirmFailureCode(err error) string {
	switch {
	case errors.Is(err, ErrStockChanged):
		return "stock_changed"
	case errors.Is(err, ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.Is(err, ErrInvalidState):
		return "conflict"
	default:
		return "confirm_failed"
	}
}

func orderName(explicit string, items []domain.CartLine) string {
	if name := strings.TrimSpace(explicit); name != "" {
		return name
	}
	if len(items) == 0 {
		return ""
	}
	first := firstNonEmpty(items[0].ProductName, items[0].ProductID)
	if len(items) == 1 {
		return first
	}
	return fmt.Sprintf("%s 외 %d건", first, len(items)-1)
}
