package model

import "time"

type EventType string

const (
	EventOrderPaid              EventType = "OrderPaid"
	EventCartDepletionRequested EventType = "CartDepletionRequested"
)

// OrderPaidEvent 訂單付款完成後發出
type OrderPaidEvent struct {
	OrderID     string    `json:"order_id"`
	UserID      int64     `json:"user_id"`
	PaymentKey  string    `json:"payment_key"`
	TotalAmount int64     `json:"total_amount"`
	PaidAmount  int64     `json:"paid_amount"`
	UsedPoint   int64     `json:"used_point"`
	EarnedPoint int64     `json:"earned_point"`
	PaidAt      time.Time `json:"paid_at"`
}

// CartDepletionRequestedEvent 交易內扣除購物車失敗時發出, 由consumer補做
type CartDepletionRequestedEvent struct {
	OrderID     string      `json:"order_id"`
	UserID      int64       `json:"user_id"`
	Items       []OrderLine `json:"items"`
	RequestedAt time.Time   `json:"requested_at"`
}
