package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/kafka"
)

const (
	HeaderEventType = "event_type"
	HeaderVersion   = "event_version"

	eventVersion = "1"
)

// 依 user id 分區, 同一使用者的事件維持順序
// topic: 由producer創建時設置, 付款完成與購物車補扣分屬不同topic
type CheckoutEventProducer struct {
	orderProducer kafka.Producer
	cartProducer  kafka.Producer
}

type ICheckoutEventProducer interface {
	ProduceOrderPaidEvent(ctx context.Context, evt model.OrderPaidEvent) error
	ProduceCartDepletionRequestedEvent(ctx context.Context, evt model.CartDepletionRequestedEvent) error
}

var _ ICheckoutEventProducer = (*CheckoutEventProducer)(nil)

func NewCheckoutEventProducer(orderProducer, cartProducer kafka.Producer) *CheckoutEventProducer {
	if orderProducer == nil || cartProducer == nil {
		panic("checkout event producer cannot be nil")
	}
	return &CheckoutEventProducer{
		orderProducer: orderProducer,
		cartProducer:  cartProducer,
	}
}

func (c *CheckoutEventProducer) ProduceOrderPaidEvent(ctx context.Context, evt model.OrderPaidEvent) error {
	msg, err := c.convertToMessage(evt.UserID, model.EventOrderPaid, evt)
	if err != nil {
		return err
	}
	return c.orderProducer.Produce(ctx, []kafka.Message{msg})
}

func (c *CheckoutEventProducer) ProduceCartDepletionRequestedEvent(ctx context.Context, evt model.CartDepletionRequestedEvent) error {
	msg, err := c.convertToMessage(evt.UserID, model.EventCartDepletionRequested, evt)
	if err != nil {
		return err
	}
	return c.cartProducer.Produce(ctx, []kafka.Message{msg})
}

func (c *CheckoutEventProducer) convertToMessage(userID int64, eventType model.EventType, evt any) (kafka.Message, error) {
	value, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(userID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(eventType)},
			{Key: HeaderVersion, Value: []byte(eventVersion)},
		},
		Time: time.Now().UTC(),
	}, nil
}
