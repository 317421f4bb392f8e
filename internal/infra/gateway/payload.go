package gateway

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
)

// PaymentDetail 確認成功後從閘道回應取出的欄位
type PaymentDetail struct {
	Method      string
	Status      string
	ReceiptURL  string
	TotalAmount int64
	// metadata.usedPoint, 沒有時為0
	UsedPoint int64
}

type receipt struct {
	URL string `json:"url"`
}

type confirmResponse struct {
	Method      string         `json:"method"`
	Status      string         `json:"status"`
	TotalAmount int64          `json:"totalAmount"`
	Receipt     *receipt       `json:"receipt"`
	Metadata    map[string]any `json:"metadata"`
}

// NormalizeMethod 閘道的付款方式名稱轉為內部代碼
func NormalizeMethod(method string) string {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "":
		return model.PaymentMethodUnknown
	case "카드", "card", "간편결제", "easy_pay":
		return model.PaymentMethodCard
	case "가상계좌", "virtual_account":
		return model.PaymentMethodVirtualAccount
	case "계좌이체", "transfer":
		return model.PaymentMethodTransfer
	case "휴대폰", "mobile_phone":
		return model.PaymentMethodMobile
	}
	return strings.ToUpper(method)
}

// ParsePaymentDetail 解析失敗時回傳零值, 交由呼叫端決定預設
func ParsePaymentDetail(raw []byte) PaymentDetail {
	var resp confirmResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return PaymentDetail{Method: model.PaymentMethodUnknown}
	}
	detail := PaymentDetail{
		Method:      NormalizeMethod(resp.Method),
		Status:      resp.Status,
		TotalAmount: resp.TotalAmount,
	}
	if resp.Receipt != nil {
		detail.ReceiptURL = resp.Receipt.URL
	}
	detail.UsedPoint = metadataInt(resp.Metadata, "usedPoint")
	return detail
}

// metadata 的值可能是字串或數字
func metadataInt(metadata map[string]any, key string) int64 {
	v, ok := metadata[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0
		}
		return int64(n)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil || parsed < 0 {
			return 0
		}
		return parsed
	}
	return 0
}
