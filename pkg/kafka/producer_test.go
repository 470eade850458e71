package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func newTestProducer(w messageWriter) *Producer {
	return &Producer{writer: w, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// --- Event tests ---

func TestNewEvent(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	event, err := NewEvent("product.updated", "product", "prod-1", 4, "catalog-service", payload{Name: "Linen Shirt"})
	require.NoError(t, err)

	assert.Len(t, event.EventID, 36)
	assert.Equal(t, "product.updated", event.EventType)
	assert.Equal(t, "prod-1", event.AggregateID)
	assert.Equal(t, 4, event.Version)
	assert.False(t, event.Timestamp.IsZero())

	var got payload
	require.NoError(t, event.Decode(&got))
	assert.Equal(t, "Linen Shirt", got.Name)

	_, err = NewEvent("x", "product", "p", 1, "svc", make(chan int))
	assert.Error(t, err)
}

func TestEvent_Chaining(t *testing.T) {
	event, err := NewEvent("product.deleted", "product", "prod-1", 2, "catalog-service", nil)
	require.NoError(t, err)

	same := event.WithCorrelationID("corr-1").WithMetadata("actor", "admin")
	assert.Same(t, event, same)
	assert.Equal(t, "corr-1", event.CorrelationID)
	assert.Equal(t, "admin", event.Metadata["actor"])
}

// --- Producer tests ---

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)

	event, err := NewEvent("product.created", "product", "prod-9", 1, "catalog-service", map[string]string{"id": "prod-9"})
	require.NoError(t, err)
	event.WithCorrelationID("corr-9")

	require.NoError(t, p.Publish(context.Background(), "ecommerce.product.created", event))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ecommerce.product.created", msg.Topic)
	assert.Equal(t, []byte("prod-9"), msg.Key)

	carrier := headerCarrier{headers: &msg.Headers}
	assert.Equal(t, "product.created", carrier.Get("event_type"))
	assert.Equal(t, "corr-9", carrier.Get("correlation_id"))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.EventID, decoded.EventID)
}

func TestProducer_PublishInjectsTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	w := &fakeWriter{}
	event, err := NewEvent("product.updated", "product", "prod-1", 2, "catalog-service", nil)
	require.NoError(t, err)
	require.NoError(t, newTestProducer(w).Publish(ctx, "topic", event))

	traceparent := headerCarrier{headers: &w.msgs[0].Headers}.Get("traceparent")
	assert.Contains(t, traceparent, span.SpanContext().TraceID().String())
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	event, err := NewEvent("product.updated", "product", "prod-1", 2, "catalog-service", nil)
	require.NoError(t, err)

	err = newTestProducer(w).Publish(context.Background(), "topic", event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestProducer_PingWithoutBrokers(t *testing.T) {
	err := newTestProducer(&fakeWriter{}).Ping(context.Background())
	assert.EqualError(t, err, "kafka: no brokers configured")
}

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := headerCarrier{headers: &headers}

	c.Set("a", "2")
	c.Set("b", "3")

	assert.Equal(t, "2", c.Get("a"))
	assert.Equal(t, "3", c.Get("b"))
	assert.Empty(t, c.Get("missing"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
}
