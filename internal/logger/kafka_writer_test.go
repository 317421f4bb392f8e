package logger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/infra/kafka"
	"github.com/RoyceAzure/lab/checkout/internal/mock"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestKafkaWriterBatchAndFlushOnClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	producer := mock.NewMockProducer(ctrl)

	var mu sync.Mutex
	var batches [][]kafka.Message
	producer.EXPECT().
		Produce(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, msgs []kafka.Message) error {
			mu.Lock()
			defer mu.Unlock()
			batches = append(batches, append([]kafka.Message(nil), msgs...))
			return nil
		}).
		Times(2)
	producer.EXPECT().Close().Return(nil)

	w := NewKafkaWriter(producer, WithBatchSize(2), WithFlushInterval(time.Hour))

	for _, line := range []string{"a", "b", "c"} {
		n, err := w.Write([]byte(line))
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}

	require.NoError(t, w.Close(5*time.Second))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 2)
	require.Len(t, batches[0], 2)
	require.Len(t, batches[1], 1)
	require.Equal(t, "a", string(batches[0][0].Value))
	require.Equal(t, "c", string(batches[1][0].Value))
	require.Equal(t, uint64(1), binary.BigEndian.Uint64(batches[0][0].Key))
	require.Equal(t, uint64(3), binary.BigEndian.Uint64(batches[1][0].Key))

	_, err := w.Write([]byte("late"))
	require.ErrorIs(t, err, ErrWriterClosed)
	require.NoError(t, w.Close(time.Second))
}

func TestKafkaWriterDropsWhenBufferFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	producer := mock.NewMockProducer(ctrl)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	producer.EXPECT().
		Produce(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, msgs []kafka.Message) error {
			once.Do(func() { close(started) })
			<-release
			return nil
		}).
		AnyTimes()
	producer.EXPECT().Close().Return(nil)

	w := NewKafkaWriter(producer, WithBufferSize(1), WithBatchSize(1), WithFlushInterval(time.Hour))

	_, err := w.Write([]byte("first"))
	require.NoError(t, err)
	<-started

	// 第一筆卡在 Produce, 緩衝區只能再放一筆
	for i := 0; i < 5; i++ {
		_, err := w.Write([]byte("more"))
		require.NoError(t, err)
	}
	require.Equal(t, int64(4), w.Dropped())

	close(release)
	require.NoError(t, w.Close(5*time.Second))
}

func TestNewLoggerWritesToExtraWriters(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	producer := mock.NewMockProducer(ctrl)
	got := make(chan []byte, 1)
	producer.EXPECT().
		Produce(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, msgs []kafka.Message) error {
			for _, m := range msgs {
				got <- m.Value
			}
			return nil
		})
	producer.EXPECT().Close().Return(nil)

	w := NewKafkaWriter(producer, WithBatchSize(1))
	l := New(Options{ServiceName: "checkout", Writers: []io.Writer{w}})
	l.Info().Str("order_id", "ORD-1").Msg("order paid")

	var entry map[string]any
	select {
	case raw := <-got:
		require.NoError(t, json.Unmarshal(raw, &entry))
	case <-time.After(5 * time.Second):
		t.Fatal("log was not produced")
	}
	require.Equal(t, "checkout", entry["service"])
	require.Equal(t, "ORD-1", entry["order_id"])
	require.Equal(t, "order paid", entry["message"])

	require.NoError(t, w.Close(5*time.Second))
}
