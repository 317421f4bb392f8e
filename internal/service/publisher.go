package service

import (
	"context"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
)

// EventPublisher 交易commit後才發送, 發送失敗只記錄不回滾
type EventPublisher interface {
	ProduceOrderPaidEvent(ctx context.Context, evt model.OrderPaidEvent) error
	ProduceCartDepletionRequestedEvent(ctx context.Context, evt model.CartDepletionRequestedEvent) error
}

// NoopPublisher 未設定kafka時使用
type NoopPublisher struct{}

func (NoopPublisher) ProduceOrderPaidEvent(context.Context, model.OrderPaidEvent) error {
	return nil
}

func (NoopPublisher) ProduceCartDepletionRequestedEvent(context.Context, model.CartDepletionRequestedEvent) error {
	return nil
}
