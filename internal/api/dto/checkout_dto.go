package dto

import "github.com/RoyceAzure/lab/checkout/internal/service"

type PreOrderDTO struct {
	Items []service.ItemRequest `json:"items"`
}

type PreOrderResponse struct {
	Success     bool   `json:"success"`
	RedirectURL string `json:"redirect_url"`
	PreOrderKey string `json:"pre_order_key"`
	Amount      int64  `json:"amount"`
}

// UsePointsDTO 指定點數與產生付款資料共用
type UsePointsDTO struct {
	PreOrderKey string `json:"pre_order_key"`
	UsedPoint   int64  `json:"used_point"`
}

type AttachPointsResponse struct {
	Success     bool   `json:"success"`
	PreOrderKey string `json:"pre_order_key"`
	Amount      int64  `json:"amount"`
	UsedPoint   int64  `json:"used_point"`
}

type PaymentRequestResponse struct {
	Success bool `json:"success"`
	service.PaymentRequest
}

/*
ConfirmDTO 閘道導回時以query傳入, 伺服器主動確認時以JSON傳入
欄位名稱沿用閘道的命名
*/
type ConfirmDTO struct {
	PaymentKey  string `json:"paymentKey"`
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	PreOrderKey string `json:"preOrderKey"`
}

type ConfirmResponse struct {
	Success          bool   `json:"success"`
	OrderID          string `json:"order_id"`
	AlreadyProcessed bool   `json:"already_processed,omitempty"`
}

type PointOnlyDTO struct {
	PreOrderKey string `json:"pre_order_key"`
	UsedPoints  int64  `json:"used_points"`
}

type PointOnlyResponse struct {
	Success     bool   `json:"success"`
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}

type PreOrderKeyDTO struct {
	PreOrderKey string `json:"pre_order_key"`
}

type PointBalanceResponse struct {
	Success bool  `json:"success"`
	Balance int64 `json:"balance"`
}

type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
