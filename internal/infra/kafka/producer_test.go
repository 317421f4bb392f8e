package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	errs    []error
	calls   int
	written []kafka.Message
	closed  bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func newTestProducer(w *fakeWriter) *kafkaProducer {
	cfg := DefaultConfig()
	cfg.Brokers = []string{"localhost:9092"}
	cfg.Topic = "checkout.events"
	p := newProducerWithWriter(w, cfg)
	p.retryDelay = time.Millisecond
	return p
}

func TestProduceRetriesTemporaryError(t *testing.T) {
	w := &fakeWriter{errs: []error{kafka.LeaderNotAvailable, kafka.RequestTimedOut}}
	p := newTestProducer(w)

	err := p.Produce(context.Background(), []Message{{
		Key:     []byte("7"),
		Value:   []byte(`{}`),
		Topic:   "ignored",
		Headers: []Header{{Key: "event_type", Value: []byte("OrderPaid")}},
	}})
	require.NoError(t, err)
	require.Equal(t, 3, w.calls)
	require.Len(t, w.written, 1)
	require.Equal(t, "", w.written[0].Topic)
	require.Equal(t, "event_type", w.written[0].Headers[0].Key)
}

func TestProduceStopsOnFatalError(t *testing.T) {
	w := &fakeWriter{errs: []error{kafka.TopicAuthorizationFailed}}
	p := newTestProducer(w)

	err := p.Produce(context.Background(), []Message{{Value: []byte("x")}})
	require.Error(t, err)
	var kErr *KafkaError
	require.True(t, errors.As(err, &kErr))
	require.Equal(t, "Produce", kErr.Operation)
	require.Equal(t, 1, w.calls)
}

func TestProduceGivesUpAfterRetries(t *testing.T) {
	w := &fakeWriter{errs: []error{
		kafka.LeaderNotAvailable, kafka.LeaderNotAvailable, kafka.LeaderNotAvailable,
		kafka.LeaderNotAvailable, kafka.LeaderNotAvailable,
	}}
	p := newTestProducer(w)

	err := p.Produce(context.Background(), []Message{{Value: []byte("x")}})
	require.ErrorIs(t, err, kafka.LeaderNotAvailable)
	require.Equal(t, 4, w.calls)
}

func TestProduceAfterClose(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	require.True(t, w.closed)

	err := p.Produce(context.Background(), []Message{{Value: []byte("x")}})
	require.ErrorIs(t, err, ErrClientClosed)
	require.Equal(t, 0, w.calls)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.ErrorIs(t, cfg.Validate(), ErrInvalidateParameter)
	cfg.Brokers = []string{"b:9092"}
	require.ErrorIs(t, cfg.Validate(), ErrInvalidateParameter)
	cfg.Topic = "t"
	require.NoError(t, cfg.Validate())
}

func TestMessageConversion(t *testing.T) {
	m := Message{Key: []byte("k"), Value: []byte("v"), Headers: []Header{{Key: "a", Value: []byte("1")}}}
	back := FromKafkaMessage(m.ToKafkaMessage())
	require.Equal(t, "1", back.GetHeader("a"))
	require.Equal(t, "", back.GetHeader("missing"))
	require.Equal(t, []byte("k"), back.Key)
}
