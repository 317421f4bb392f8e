package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/kafka"
	"github.com/RoyceAzure/lab/checkout/internal/infra/producer"
	"github.com/rs/zerolog"
)

var (
	ErrConsumerClosed         = errors.New("consumer closed")
	ErrConsumerAlreadyRunning = errors.New("consumer already running")
)

const (
	defaultHandleAttempts = 3
	defaultRetryDelay     = 500 * time.Millisecond
)

type CartDepletionHandler interface {
	HandleDepletionRequested(ctx context.Context, evt model.CartDepletionRequestedEvent) error
}

/*
CartDepletionConsumer 讀取購物車補扣事件
處理成功(或確定無法處理)才commit, 重啟後未commit的訊息會重新投遞
handler 需自行保證冪等
*/
type CartDepletionConsumer struct {
	reader     kafka.Reader
	handler    CartDepletionHandler
	logger     *zerolog.Logger
	attempts   int
	retryDelay time.Duration

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	closeChan chan struct{}
	closeOnce sync.Once
}

func NewCartDepletionConsumer(reader kafka.Reader, handler CartDepletionHandler, logger *zerolog.Logger) *CartDepletionConsumer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CartDepletionConsumer{
		reader:     reader,
		handler:    handler,
		logger:     logger,
		attempts:   defaultHandleAttempts,
		retryDelay: defaultRetryDelay,
		closeChan:  make(chan struct{}),
	}
}

func (c *CartDepletionConsumer) checkIsClosed() bool {
	select {
	case <-c.closeChan:
		return true
	default:
		return false
	}
}

func (c *CartDepletionConsumer) Start(ctx context.Context) error {
	if c.checkIsClosed() {
		return ErrConsumerClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrConsumerAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true

	go c.loop(runCtx)
	return nil
}

func (c *CartDepletionConsumer) loop(ctx context.Context) {
	defer close(c.done)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || c.checkIsClosed() {
				return
			}
			c.logger.Error().Err(err).Msg("fetch cart depletion message failed")
			if !c.sleep(ctx, c.retryDelay) {
				return
			}
			continue
		}

		c.process(ctx, kafka.FromKafkaMessage(msg))
		if ctx.Err() != nil {
			// 處理中被停止, 不commit, 交由下次重新投遞
			return
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("commit cart depletion message failed")
		}
	}
}

// process 格式錯誤或重試用盡都只記錄, 不阻塞後續訊息
func (c *CartDepletionConsumer) process(ctx context.Context, msg kafka.Message) {
	if eventType := msg.GetHeader(producer.HeaderEventType); eventType != string(model.EventCartDepletionRequested) {
		c.logger.Debug().Str("event_type", eventType).Msg("skip unrelated event")
		return
	}
	var evt model.CartDepletionRequestedEvent
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		c.logger.Error().Err(err).Msg("decode cart depletion event failed")
		return
	}

	for attempt := 1; attempt <= c.attempts; attempt++ {
		err := c.handler.HandleDepletionRequested(ctx, evt)
		if err == nil {
			return
		}
		c.logger.Warn().Err(err).Str("order_id", evt.OrderID).Int("attempt", attempt).Msg("handle cart depletion failed")
		if attempt == c.attempts || !c.sleep(ctx, c.retryDelay*time.Duration(attempt)) {
			break
		}
	}
	c.logger.Error().Str("order_id", evt.OrderID).Int64("user_id", evt.UserID).Msg("cart depletion gave up, manual reconciliation required")
}

func (c *CartDepletionConsumer) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-c.closeChan:
		return false
	case <-t.C:
		return true
	}
}

// Stop 等待處理中的訊息結束後關閉reader, 可重複呼叫
func (c *CartDepletionConsumer) Stop(timeout time.Duration) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeChan)
		c.mu.Lock()
		cancel, done, running := c.cancel, c.done, c.running
		c.mu.Unlock()

		if running {
			cancel()
			select {
			case <-done:
			case <-time.After(timeout):
				c.logger.Error().Msg("time out for stop cart depletion consumer")
			}
		}
		err = c.reader.Close()
	})
	return err
}
