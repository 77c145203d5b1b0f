package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/giovaniif/stock-records/domain/record"
)

type fakeWriter struct {
	written  []kafka.Message
	writeErr error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testEvent(t *testing.T, eventType record.EventType) record.Event {
	t.Helper()
	r, err := record.New("P100", "A1", 20, 5, 50)
	require.NoError(t, err)
	return record.NewEvent(eventType, 3, r)
}

func TestKafkaPublish(t *testing.T) {
	writer := &fakeWriter{}
	p := &EventPublisherKafka{writer: writer, logger: zap.NewNop()}
	event := testEvent(t, record.EventReserved)

	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, writer.written, 1)

	msg := writer.written[0]
	assert.Equal(t, "P100/A1", string(msg.Key))
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, "stock.reserved", string(msg.Headers[0].Value))

	var decoded record.Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event.Id, decoded.Id)
	assert.Equal(t, int32(20), decoded.Record.OnHand)
}

func TestKafkaPublish_Empty(t *testing.T) {
	writer := &fakeWriter{writeErr: errors.New("should not be called")}
	p := &EventPublisherKafka{writer: writer, logger: zap.NewNop()}

	assert.NoError(t, p.Publish(context.Background()))
}

func TestKafkaPublish_WriteError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	p := &EventPublisherKafka{writer: &fakeWriter{writeErr: errors.New("broker down")}, logger: zap.New(core)}

	err := p.Publish(context.Background(), testEvent(t, record.EventShipped))
	assert.Error(t, err)
	assert.Equal(t, 1, logs.FilterMessage("failed to publish stock events").Len())
}

func TestKafkaClose(t *testing.T) {
	writer := &fakeWriter{}
	p := &EventPublisherKafka{writer: writer, logger: zap.NewNop()}

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}

func TestLogPublish(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewEventPublisherLog(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), testEvent(t, record.EventReceived), testEvent(t, record.EventReorderNeeded)))
	entries := logs.FilterMessage("stock event").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "stock.received", entries[0].ContextMap()["type"])
	assert.Equal(t, "P100/A1", entries[1].ContextMap()["record"])
}
