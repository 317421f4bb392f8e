package model

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusRequested         PaymentStatus = "REQUESTED"
	PaymentStatusWaitingForDeposit PaymentStatus = "WAITING_FOR_DEPOSIT"
	PaymentStatusApproved          PaymentStatus = "APPROVED"
	PaymentStatusCancelled         PaymentStatus = "CANCELLED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
)

const (
	ProviderToss  = "toss"
	ProviderPoint = "point"
)

const (
	PaymentMethodCard           = "CARD"
	PaymentMethodVirtualAccount = "VIRTUAL_ACCOUNT"
	PaymentMethodTransfer       = "TRANSFER"
	PaymentMethodMobile         = "MOBILE"
	PaymentMethodPoint          = "POINT"
	PaymentMethodUnknown        = "UNKNOWN"
)

// Payment PaymentKey 全域唯一, 是重複確認時的冪等依據
type Payment struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	OrderID     string        `gorm:"type:varchar(50);not null;index" json:"order_id"`
	Provider    string        `gorm:"type:varchar(20);not null" json:"provider"`
	Method      string        `gorm:"type:varchar(30);not null" json:"method"`
	PaymentKey  string        `gorm:"type:varchar(200);not null;uniqueIndex:uq_payments_payment_key" json:"payment_key"`
	Amount      int64         `gorm:"not null" json:"amount"`
	Status      PaymentStatus `gorm:"type:varchar(30);not null;default:'REQUESTED'" json:"status"`
	UsedPoint   int64         `gorm:"not null;default:0" json:"used_point"`
	EarnedPoint int64         `gorm:"not null;default:0" json:"earned_point"`
	ReceiptURL  string        `gorm:"type:varchar(500)" json:"receipt_url,omitempty"`
	RawResponse string        `gorm:"type:text" json:"-"`
	ApprovedAt  *time.Time    `json:"approved_at,omitempty"`
	BaseModel
}

func (p *Payment) IsApproved() bool {
	return p.Status == PaymentStatusApproved
}

type PaymentLogType string

const (
	PaymentLogConfirm     PaymentLogType = "CONFIRM"
	PaymentLogConfirmFail PaymentLogType = "CONFIRM_FAIL"
	PaymentLogPointOnly   PaymentLogType = "POINT_ONLY"
)

// PaymentLog 只新增, 不修改也不刪除
type PaymentLog struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	PaymentID       *uint          `gorm:"index" json:"payment_id,omitempty"`
	OrderID         string         `gorm:"type:varchar(50);index" json:"order_id"`
	PaymentKey      string         `gorm:"type:varchar(200)" json:"payment_key"`
	LogType         PaymentLogType `gorm:"type:varchar(20);not null" json:"log_type"`
	RequestURL      string         `gorm:"type:varchar(500)" json:"request_url"`
	RequestPayload  string         `gorm:"type:text" json:"request_payload"`
	ResponsePayload string         `gorm:"type:text" json:"response_payload"`
	StatusCode      int            `gorm:"not null" json:"status_code"`
	Message         string         `gorm:"type:text" json:"message,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
}
