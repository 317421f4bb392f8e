package model

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

type ShippingStatus string

const (
	ShippingStatusPending   ShippingStatus = "PENDING"
	ShippingStatusShipping  ShippingStatus = "SHIPPING"
	ShippingStatusDelivered ShippingStatus = "DELIVERED"
)

// RequestStatus 取消與換貨/退貨共用的申請狀態, APPROVED/REJECTED 為終態
type RequestStatus string

const (
	RequestStatusNone     RequestStatus = "NONE"
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

type ExchangeRefundType string

const (
	ExchangeRefundTypeExchange ExchangeRefundType = "EXCHANGE"
	ExchangeRefundTypeRefund   ExchangeRefundType = "REFUND"
)

type CancellationReason string

const (
	CancelNotLikeColor       CancellationReason = "NOT_LIKE_COLOR"
	CancelNotLikeDesign      CancellationReason = "NOT_LIKE_DESIGN"
	CancelLongTimeDelivery   CancellationReason = "LONG_TIME_DELIVERY"
	CancelSimpleChangeOfMind CancellationReason = "SIMPLE_CHANGE_OF_MIND"
	CancelTooExpensive       CancellationReason = "TOO_EXPENSIVE"
	CancelNoNeedAnymore      CancellationReason = "NO_NEED_ANYMORE"
	CancelOther              CancellationReason = "OTHER"
)

func (r CancellationReason) Valid() bool {
	switch r {
	case CancelNotLikeColor, CancelNotLikeDesign, CancelLongTimeDelivery,
		CancelSimpleChangeOfMind, CancelTooExpensive, CancelNoNeedAnymore, CancelOther:
		return true
	}
	return false
}

type ExchangeRefundReason string

const (
	ExchangeSizeMismatch  ExchangeRefundReason = "SIZE_MISMATCH"
	ExchangeNotLikeColor  ExchangeRefundReason = "NOT_LIKE_COLOR"
	ExchangeNotLikeDesign ExchangeRefundReason = "NOT_LIKE_DESIGN"
	ExchangeWrongProduct  ExchangeRefundReason = "WRONG_PRODUCT"
	ExchangeDefective     ExchangeRefundReason = "DEFECTIVE"
	ExchangeWrongDelivery ExchangeRefundReason = "WRONG_DELIVERY"
	ExchangeOther         ExchangeRefundReason = "OTHER"
)

func (r ExchangeRefundReason) Valid() bool {
	switch r {
	case ExchangeSizeMismatch, ExchangeNotLikeColor, ExchangeNotLikeDesign,
		ExchangeWrongProduct, ExchangeDefective, ExchangeWrongDelivery, ExchangeOther:
		return true
	}
	return false
}

func (t ExchangeRefundType) Valid() bool {
	return t == ExchangeRefundTypeExchange || t == ExchangeRefundTypeRefund
}

type Order struct {
	OrderID        string         `gorm:"primaryKey;type:varchar(50)" json:"order_id"`
	UserID         int64          `gorm:"not null;index" json:"user_id"`
	ProductName    string         `gorm:"type:varchar(255);not null" json:"product_name"`
	TotalAmount    int64          `gorm:"not null" json:"total_amount"`
	ShippingFee    int64          `gorm:"not null;default:0" json:"shipping_fee"`
	UsedPoint      int64          `gorm:"not null;default:0" json:"used_point"`
	Status         OrderStatus    `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	ShippingStatus ShippingStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"shipping_status"`

	// 付款交易內已完成購物車扣除, 非同步補做時以此判斷是否已處理
	CartDepleted bool `gorm:"not null;default:false" json:"-"`

	RecipientName string `gorm:"type:varchar(100)" json:"recipient_name,omitempty"`
	Phone         string `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Address       string `gorm:"type:varchar(255)" json:"address,omitempty"`
	DeliveryMemo  string `gorm:"type:varchar(255)" json:"delivery_memo,omitempty"`

	CancellationStatus      RequestStatus      `gorm:"type:varchar(20);not null;default:'NONE'" json:"cancellation_status"`
	CancellationReason      CancellationReason `gorm:"type:varchar(50)" json:"cancellation_reason,omitempty"`
	CancellationDetail      string             `gorm:"type:text" json:"cancellation_detail,omitempty"`
	CancellationAdminNote   string             `gorm:"type:text" json:"cancellation_admin_note,omitempty"`
	CancellationRequestedAt *time.Time         `json:"cancellation_requested_at,omitempty"`
	CancellationProcessedAt *time.Time         `json:"cancellation_processed_at,omitempty"`

	ExchangeRefundStatus      RequestStatus        `gorm:"type:varchar(20);not null;default:'NONE'" json:"exchange_refund_status"`
	ExchangeRefundType        ExchangeRefundType   `gorm:"type:varchar(20)" json:"exchange_refund_type,omitempty"`
	ExchangeRefundReason      ExchangeRefundReason `gorm:"type:varchar(50)" json:"exchange_refund_reason,omitempty"`
	ExchangeRefundDetail      string               `gorm:"type:text" json:"exchange_refund_detail,omitempty"`
	ExchangeRefundAdminNote   string               `gorm:"type:text" json:"exchange_refund_admin_note,omitempty"`
	ExchangeRefundRequestedAt *time.Time           `json:"exchange_refund_requested_at,omitempty"`
	ExchangeRefundProcessedAt *time.Time           `json:"exchange_refund_processed_at,omitempty"`

	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
	Payments   []Payment   `gorm:"foreignKey:OrderID" json:"payments,omitempty"`
	BaseModel
}

// CanRequestCancellation 已付款且尚未出貨才可申請取消
func (o *Order) CanRequestCancellation() bool {
	return o.Status == OrderStatusPaid &&
		o.ShippingStatus == ShippingStatusPending &&
		o.CancellationStatus == RequestStatusNone
}

// CanRequestExchangeRefund 已送達且未曾申請過
func (o *Order) CanRequestExchangeRefund() bool {
	return o.ShippingStatus == ShippingStatusDelivered &&
		o.ExchangeRefundStatus == RequestStatusNone &&
		o.Status == OrderStatusPaid
}

// NextShippingStatus 出貨狀態只能往前推進一格
func (o *Order) NextShippingStatus(to ShippingStatus) bool {
	switch o.ShippingStatus {
	case ShippingStatusPending:
		return to == ShippingStatusShipping
	case ShippingStatusShipping:
		return to == ShippingStatusDelivered
	}
	return false
}

// OrderItem 品項名稱與單價為下單當下的快照
type OrderItem struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OrderID     string `gorm:"type:varchar(50);not null;index" json:"order_id"`
	ProductID   uint   `gorm:"not null" json:"product_id"`
	ProductName string `gorm:"type:varchar(200);not null" json:"product_name"`
	ColorID     *uint  `json:"color_id,omitempty"`
	SizeID      *uint  `json:"size_id,omitempty"`
	Quantity    int    `gorm:"not null" json:"quantity"`
	UnitPrice   int64  `gorm:"not null" json:"unit_price"`
	Subtotal    int64  `gorm:"not null" json:"subtotal"`
	BaseModel
}

func (i *OrderItem) RecomputeSubtotal() {
	i.Subtotal = int64(i.Quantity) * i.UnitPrice
}

// BeforeSave 小計一律在寫入時重算
func (i *OrderItem) BeforeSave(tx *gorm.DB) error {
	i.RecomputeSubtotal()
	return nil
}
