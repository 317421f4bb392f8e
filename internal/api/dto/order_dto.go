package dto

import (
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
)

type AdminNoteDTO struct {
	Note string `json:"note"`
}

type OrderItemDTO struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	ColorID     *uint  `json:"color_id,omitempty"`
	SizeID      *uint  `json:"size_id,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Subtotal    int64  `json:"subtotal"`
}

type PaymentDTO struct {
	Provider    string     `json:"provider"`
	Method      string     `json:"method"`
	Amount      int64      `json:"amount"`
	Status      string     `json:"status"`
	UsedPoint   int64      `json:"used_point"`
	EarnedPoint int64      `json:"earned_point"`
	ReceiptURL  string     `json:"receipt_url,omitempty"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
}

// OrderDTO 不對外暴露 payment key 與閘道原始回應
type OrderDTO struct {
	OrderID              string         `json:"order_id"`
	ProductName          string         `json:"product_name"`
	TotalAmount          int64          `json:"total_amount"`
	ShippingFee          int64          `json:"shipping_fee"`
	UsedPoint            int64          `json:"used_point"`
	Status               string         `json:"status"`
	ShippingStatus       string         `json:"shipping_status"`
	CancellationStatus   string         `json:"cancellation_status"`
	ExchangeRefundStatus string         `json:"exchange_refund_status"`
	ExchangeRefundType   string         `json:"exchange_refund_type,omitempty"`
	RecipientName        string         `json:"recipient_name,omitempty"`
	Address              string         `json:"address,omitempty"`
	Items                []OrderItemDTO `json:"items"`
	Payments             []PaymentDTO   `json:"payments"`
	CreatedAt            time.Time      `json:"created_at"`
}

type OrderResponse struct {
	Success bool     `json:"success"`
	Order   OrderDTO `json:"order"`
}

// ConvertOrderModelToDTO 將訂單模型轉換為對外格式
func ConvertOrderModelToDTO(o *model.Order) OrderDTO {
	res := OrderDTO{
		OrderID:              o.OrderID,
		ProductName:          o.ProductName,
		TotalAmount:          o.TotalAmount,
		ShippingFee:          o.ShippingFee,
		UsedPoint:            o.UsedPoint,
		Status:               string(o.Status),
		ShippingStatus:       string(o.ShippingStatus),
		CancellationStatus:   string(o.CancellationStatus),
		ExchangeRefundStatus: string(o.ExchangeRefundStatus),
		ExchangeRefundType:   string(o.ExchangeRefundType),
		RecipientName:        o.RecipientName,
		Address:              o.Address,
		Items:                make([]OrderItemDTO, 0, len(o.OrderItems)),
		Payments:             make([]PaymentDTO, 0, len(o.Payments)),
		CreatedAt:            o.CreatedAt,
	}
	for _, item := range o.OrderItems {
		res.Items = append(res.Items, OrderItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ColorID:     item.ColorID,
			SizeID:      item.SizeID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		})
	}
	for _, p := range o.Payments {
		res.Payments = append(res.Payments, PaymentDTO{
			Provider:    p.Provider,
			Method:      p.Method,
			Amount:      p.Amount,
			Status:      string(p.Status),
			UsedPoint:   p.UsedPoint,
			EarnedPoint: p.EarnedPoint,
			ReceiptURL:  p.ReceiptURL,
			ApprovedAt:  p.ApprovedAt,
		})
	}
	return res
}
