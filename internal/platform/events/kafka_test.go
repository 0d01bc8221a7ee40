package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danseongsa/storefront/internal/services"
)

type captureWriter struct {
	messages []kafka.Message
	err      error
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, msgs...)
	return nil
}

func (c *captureWriter) Close() error { return nil }

func TestKafkaPublisherWritesKeyedMessage(t *testing.T) {
	writer := &captureWriter{}
	publisher := &KafkaPublisher{writer: writer}
	at := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

	err := publisher.PublishOrderEvent(context.Background(), services.OrderEvent{
		Type:           "order_item.transitioned",
		OrderID:        "o1",
		OrderItemID:    "oi1",
		PreviousStatus: "PAID",
		CurrentStatus:  "DELIVERING",
		OccurredAt:     at,
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	assert.Equal(t, "order_item:oi1", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var decoded services.OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "DELIVERING", decoded.CurrentStatus)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "order_item.transitioned", headers["type"])
	assert.Equal(t, "o1", headers["orderId"])
	assert.NotContains(t, headers, "refundId")
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	publisher := &KafkaPublisher{writer: &captureWriter{err: boom}}
	err := publisher.PublishOrderEvent(context.Background(), services.OrderEvent{Type: "payment.confirmed", SessionID: "S1"})
	assert.ErrorIs(t, err, boom)
}

func TestNewKafkaPublisherValidates(t *testing.T) {
	_, err := NewKafkaPublisher([]string{" "}, "orders")
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)
	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "orders")
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, "refund:r1", partitionKey(services.OrderEvent{RefundID: "r1", OrderID: "o1"}))
	assert.Equal(t, "order:o1", partitionKey(services.OrderEvent{OrderID: "o1"}))
	assert.Equal(t, "session:S1", partitionKey(services.OrderEvent{SessionID: "S1"}))
}
