package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/danseongsa/storefront/internal/domain"
	"github.com/danseongsa/storefront/internal/repositories"
)

const (
	fieldSessionID = "sessionId"
	fieldPayload   = "payload"
)

// deleteIfCurrent removes the hash only while it still holds the expected session id.
var deleteIfCurrent = goredis.NewScript(`
if redis.call("HGET", KEYS[1], ARGV[1]) == ARGV[2] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// PaymentSessionStore keeps one pending session per user in a Redis hash with a TTL.
type PaymentSessionStore struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewPaymentSessionStore binds the store to a Redis client.
func NewPaymentSessionStore(client goredis.UniversalClient, prefix string, ttl time.Duration) (*PaymentSessionStore, error) {
	if client == nil {
		return nil, errors.New("redis payment session store: client is required")
	}
	if ttl <= 0 {
		return nil, errors.New("redis payment session store: ttl must be positive")
	}
	return &PaymentSessionStore{client: client, prefix: prefix, ttl: ttl}, nil
}

// Save implements repositories.PaymentSessionRepository.
func (s *PaymentSessionStore) Save(ctx context.Context, session domain.PendingPaymentSession) error {
	userID := strings.TrimSpace(session.UserID)
	if userID == "" {
		return &repositories.StoreError{Op: "redis.payment_sessions.save", Err: errors.New("user id is required")}
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis.payment_sessions.save: encode: %w", err)
	}

	key := s.key(userID)
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldSessionID, session.SessionID, fieldPayload, payload)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	return wrapError("redis.payment_sessions.save", err)
}

// FindByUser implements repositories.PaymentSessionRepository.
func (s *PaymentSessionStore) FindByUser(ctx context.Context, userID string) (domain.PendingPaymentSession, error) {
	raw, err := s.client.HGet(ctx, s.key(strings.TrimSpace(userID)), fieldPayload).Bytes()
	if err != nil {
		return domain.PendingPaymentSession{}, wrapError("redis.payment_sessions.find", err)
	}
	var session domain.PendingPaymentSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.PendingPaymentSession{}, fmt.Errorf("redis.payment_sessions.find: decode: %w", err)
	}
	return session, nil
}

// Delete implements repositories.PaymentSessionRepository.
func (s *PaymentSessionStore) Delete(ctx context.Context, userID, sessionID string) error {
	err := deleteIfCurrent.Run(ctx, s.client, []string{s.key(strings.TrimSpace(userID))}, fieldSessionID, sessionID).Err()
	return wrapError("redis.payment_sessions.delete", err)
}

// Ping implements repositories.HealthChecker.
func (s *PaymentSessionStore) Ping(ctx context.Context) error {
	return wrapError("redis.ping", s.client.Ping(ctx).Err())
}

func (s *PaymentSessionStore) key(userID string) string {
	return s.prefix + userID
}

func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, goredis.Nil) {
		return repositories.NewNotFoundError(op, err)
	}
	if errors.Is(err, goredis.TxFailedErr) {
		return &repositories.StoreError{Op: op, Err: err, Conflict: true}
	}
	return repositories.NewUnavailableError(op, err)
}
