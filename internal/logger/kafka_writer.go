package logger

import (
	"context"
	"encoding/binary"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/infra/kafka"
)

var ErrWriterClosed = errors.New("kafka log writer is closed")

const (
	defaultBufferSize    = 10000
	defaultBatchSize     = 100
	defaultFlushInterval = time.Second
)

/*
KafkaWriter 將zerolog輸出送到kafka
Write 不會等待kafka, 緩衝區滿時直接丟棄並計數
key 使用遞增序號, 平均分配到各分區
*/
type KafkaWriter struct {
	producer      kafka.Producer
	receiverCh    chan []byte
	batchSize     int
	flushInterval time.Duration
	logID         atomic.Uint64
	dropped       atomic.Int64
	mu            sync.RWMutex
	closed        bool
	isStopped     chan struct{}
}

type WriterOption func(*KafkaWriter)

func WithBufferSize(size int) WriterOption {
	return func(w *KafkaWriter) {
		if size > 0 {
			w.receiverCh = make(chan []byte, size)
		}
	}
}

func WithBatchSize(size int) WriterOption {
	return func(w *KafkaWriter) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

func WithFlushInterval(d time.Duration) WriterOption {
	return func(w *KafkaWriter) {
		if d > 0 {
			w.flushInterval = d
		}
	}
}

func NewKafkaWriter(producer kafka.Producer, opts ...WriterOption) *KafkaWriter {
	if producer == nil {
		panic("kafka log writer producer cannot be nil")
	}
	w := &KafkaWriter{
		producer:      producer,
		receiverCh:    make(chan []byte, defaultBufferSize),
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
		isStopped:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	go w.run()
	return w
}

// Write zerolog 會重用 p, 必須複製
func (w *KafkaWriter) Write(p []byte) (int, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return 0, ErrWriterClosed
	}
	buf := make([]byte, len(p))
	copy(buf, p)

	select {
	case w.receiverCh <- buf:
	default:
		w.dropped.Add(1)
	}
	return len(p), nil
}

// Dropped 因緩衝區已滿而丟棄的筆數
func (w *KafkaWriter) Dropped() int64 {
	return w.dropped.Load()
}

func (w *KafkaWriter) run() {
	defer close(w.isStopped)

	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	buffer := make([]kafka.Message, 0, w.batchSize)
	flush := func() {
		if len(buffer) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		// 不能寫回zerolog, 否則會再進入這個writer
		if err := w.producer.Produce(ctx, buffer); err != nil {
			log.Printf("kafka log writer failed to send %d logs: %v", len(buffer), err)
		}
		cancel()
		buffer = buffer[:0]
	}

	for {
		select {
		case p, ok := <-w.receiverCh:
			if !ok {
				flush()
				return
			}
			buffer = append(buffer, w.toMessage(p))
			if len(buffer) >= w.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (w *KafkaWriter) toMessage(p []byte) kafka.Message {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, w.logID.Add(1))
	return kafka.Message{
		Key:   key,
		Value: p,
		Time:  time.Now().UTC(),
	}
}

// Close 送出緩衝區剩餘的log後關閉producer
func (w *KafkaWriter) Close(timeout time.Duration) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.receiverCh)
	w.mu.Unlock()

	select {
	case <-w.isStopped:
	case <-time.After(timeout):
		log.Printf("time out for stop kafka log writer")
	}
	return w.producer.Close()
}
