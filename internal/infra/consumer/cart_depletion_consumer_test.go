package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/producer"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs      chan kafka.Message
	mu        sync.Mutex
	committed []int64
	closed    bool
}

func newFakeReader() *fakeReader {
	return &fakeReader{msgs: make(chan kafka.Message, 10)}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-r.msgs:
		return m, nil
	}
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type fakeHandler struct {
	mu     sync.Mutex
	fails  int
	calls  int
	events []model.CartDepletionRequestedEvent
}

func (h *fakeHandler) HandleDepletionRequested(ctx context.Context, evt model.CartDepletionRequestedEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.fails > 0 {
		h.fails--
		return errors.New("db busy")
	}
	h.events = append(h.events, evt)
	return nil
}

func (h *fakeHandler) handled() []model.CartDepletionRequestedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.CartDepletionRequestedEvent(nil), h.events...)
}

func depletionMessage(t *testing.T, offset int64, eventType model.EventType) kafka.Message {
	value, err := json.Marshal(model.CartDepletionRequestedEvent{
		OrderID: "ORD-1",
		UserID:  7,
		Items:   []model.OrderLine{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	return kafka.Message{
		Offset: offset,
		Value:  value,
		Headers: []kafka.Header{
			{Key: producer.HeaderEventType, Value: []byte(eventType)},
		},
	}
}

func newTestConsumer(r *fakeReader, h *fakeHandler) *CartDepletionConsumer {
	c := NewCartDepletionConsumer(r, h, nil)
	c.retryDelay = time.Millisecond
	return c
}

func TestConsumerHandlesAndCommits(t *testing.T) {
	r := newFakeReader()
	h := &fakeHandler{fails: 1}
	c := newTestConsumer(r, h)

	require.NoError(t, c.Start(context.Background()))
	require.ErrorIs(t, c.Start(context.Background()), ErrConsumerAlreadyRunning)

	r.msgs <- depletionMessage(t, 1, model.EventOrderPaid)
	r.msgs <- depletionMessage(t, 2, model.EventCartDepletionRequested)

	require.Eventually(t, func() bool { return len(r.commits()) == 2 }, time.Second, 5*time.Millisecond)
	events := h.handled()
	require.Len(t, events, 1)
	require.Equal(t, "ORD-1", events[0].OrderID)
	require.Equal(t, []int64{1, 2}, r.commits())

	require.NoError(t, c.Stop(time.Second))
	require.NoError(t, c.Stop(time.Second))
	require.True(t, r.closed)
	require.ErrorIs(t, c.Start(context.Background()), ErrConsumerClosed)
}

func TestConsumerGivesUpAfterRetries(t *testing.T) {
	r := newFakeReader()
	h := &fakeHandler{fails: 10}
	c := newTestConsumer(r, h)

	require.NoError(t, c.Start(context.Background()))
	r.msgs <- depletionMessage(t, 5, model.EventCartDepletionRequested)

	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	h.mu.Lock()
	require.Equal(t, defaultHandleAttempts, h.calls)
	h.mu.Unlock()
	require.NoError(t, c.Stop(time.Second))
}

func TestConsumerSkipsMalformedPayload(t *testing.T) {
	r := newFakeReader()
	h := &fakeHandler{}
	c := newTestConsumer(r, h)

	require.NoError(t, c.Start(context.Background()))
	msg := depletionMessage(t, 9, model.EventCartDepletionRequested)
	msg.Value = []byte("{not json")
	r.msgs <- msg

	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, time.Second, 5*time.Millisecond)
	require.Empty(t, h.handled())
	require.NoError(t, c.Stop(time.Second))
}
