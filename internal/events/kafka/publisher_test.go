package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{w: w}

	at := time.Date(2025, 3, 1, 14, 0, 0, 0, time.UTC)
	ev := domain.BookingEvent{
		Type:        domain.EventConfirmed,
		BookingID:   7,
		BookingCode: "BK250301-ABCDEF01",
		Status:      domain.StatusPendingPayment,
		Seats:       []string{"A1"},
		Total:       50000,
		OccurredAt:  at,
	}

	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "BK250301-ABCDEF01", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	assert.Equal(t, "booking.confirmed", string(msg.Headers[0].Value))

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "booking.confirmed", got["type"])
	assert.Equal(t, "confirmed_pending_payment", got["status"])
	assert.EqualValues(t, 7, got["bookingId"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &Publisher{w: &fakeWriter{err: boom}}

	err := p.Publish(context.Background(), domain.BookingEvent{BookingCode: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestNewPublisher_Async(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	p := NewPublisher([]string{"127.0.0.1:9092"}, "", log)
	w, ok := p.w.(*kafka.Writer)
	require.True(t, ok)

	assert.True(t, w.Async)
	assert.Equal(t, DefaultTopic, w.Topic)
	require.NotNil(t, w.Completion)

	w.Completion([]kafka.Message{{Key: []byte("BK250301-ABCDEF01")}}, nil)
	assert.Empty(t, buf.String())

	w.Completion([]kafka.Message{
		{Key: []byte("BK250301-ABCDEF01")},
		{Key: []byte("BK250301-ABCDEF02")},
	}, errors.New("broker down"))
	out := buf.String()
	assert.Contains(t, out, "BK250301-ABCDEF01")
	assert.Contains(t, out, "BK250301-ABCDEF02")
	assert.Contains(t, out, "broker down")
}
