package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/domain/errs"
	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/rs/zerolog"
)

const (
	confirmPath = "/v1/payments/confirm"

	defaultTimeout = 10 * time.Second
	// 連線層失敗時寫入紀錄用的狀態碼
	statusNetworkFailure = http.StatusServiceUnavailable
)

type Config struct {
	BaseURL               string
	SecretKey             string
	Timeout               time.Duration
	FreeShippingThreshold int64
	ShippingFee           int64
}

// PaymentLogWriter 失敗紀錄在交易外寫入
type PaymentLogWriter interface {
	CreatePaymentLog(ctx context.Context, log *model.PaymentLog) error
}

// ConfirmResult 不判斷業務上是否有效, 只回報閘道結果
type ConfirmResult struct {
	OK             bool
	Message        string
	Raw            []byte
	StatusCode     int
	RequestURL     string
	RequestPayload []byte
}

type TossClient struct {
	cfg        Config
	httpClient *http.Client
	logs       PaymentLogWriter
	logger     *zerolog.Logger
}

func NewTossClient(cfg Config, logs PaymentLogWriter, logger *zerolog.Logger) *TossClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &TossClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logs:       logs,
		logger:     logger,
	}
}

func (c *TossClient) authorization() string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(c.cfg.SecretKey+":"))
}

type confirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Confirm 呼叫閘道確認付款, 錯誤不會往外拋, 一律以 ConfirmResult 回報
func (c *TossClient) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) ConfirmResult {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + confirmPath
	payload, _ := json.Marshal(confirmRequest{PaymentKey: paymentKey, OrderID: orderID, Amount: amount})
	result := ConfirmResult{RequestURL: url, RequestPayload: payload}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return c.networkFailure(ctx, result, paymentKey, orderID, err)
	}
	req.Header.Set("Authorization", c.authorization())
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", paymentKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.networkFailure(ctx, result, paymentKey, orderID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.networkFailure(ctx, result, paymentKey, orderID, err)
	}
	result.Raw = body
	result.StatusCode = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var gwErr gatewayError
		_ = json.Unmarshal(body, &gwErr)
		result.Message = gwErr.Message
		if result.Message == "" {
			result.Message = http.StatusText(resp.StatusCode)
		}
		c.writeLog(ctx, &model.PaymentLog{
			OrderID:         orderID,
			PaymentKey:      paymentKey,
			LogType:         model.PaymentLogConfirmFail,
			RequestURL:      url,
			RequestPayload:  string(payload),
			ResponsePayload: string(body),
			StatusCode:      resp.StatusCode,
			Message:         result.Message,
		})
		c.logger.Warn().
			Str("order_id", orderID).
			Int("status", resp.StatusCode).
			Str("gateway_code", gwErr.Code).
			Str("message", result.Message).
			Msg("payment confirm rejected")
		return result
	}

	result.OK = true
	return result
}

func (c *TossClient) networkFailure(ctx context.Context, result ConfirmResult, paymentKey, orderID string, cause error) ConfirmResult {
	result.StatusCode = statusNetworkFailure
	result.Message = "payment gateway unavailable"
	c.writeLog(ctx, &model.PaymentLog{
		OrderID:        orderID,
		PaymentKey:     paymentKey,
		LogType:        model.PaymentLogConfirmFail,
		RequestURL:     result.RequestURL,
		RequestPayload: string(result.RequestPayload),
		StatusCode:     statusNetworkFailure,
		Message:        cause.Error(),
	})
	c.logger.Error().Err(cause).Str("order_id", orderID).Msg("payment confirm request failed")
	return result
}

// writeLog 紀錄寫入失敗不影響回傳結果
func (c *TossClient) writeLog(ctx context.Context, log *model.PaymentLog) {
	if c.logs == nil {
		return
	}
	// 呼叫端的ctx可能已逾時, 紀錄仍要寫入
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := c.logs.CreatePaymentLog(logCtx, log); err != nil {
		c.logger.Error().Err(err).Str("order_id", log.OrderID).Msg("write payment log failed")
	}
}

// ShippingFee 達免運門檻時為0
func (c *TossClient) ShippingFee(orderAmount int64) int64 {
	if orderAmount >= c.cfg.FreeShippingThreshold {
		return 0
	}
	return c.cfg.ShippingFee
}

// ExpectedAmount 實際應付 = max(0, 訂單金額 - 點數) + 運費
func (c *TossClient) ExpectedAmount(orderAmount, usedPoint int64) int64 {
	afterPoints := orderAmount - usedPoint
	if afterPoints < 0 {
		afterPoints = 0
	}
	return afterPoints + c.ShippingFee(orderAmount)
}

// ValidateAmount 比對閘道回傳金額與伺服器計算結果, 任何寫入前必須先通過
func (c *TossClient) ValidateAmount(claimed, orderAmount, usedPoint int64) error {
	expected := c.ExpectedAmount(orderAmount, usedPoint)
	if claimed != expected {
		return fmt.Errorf("%w: expected %d, got %d", errs.ErrAmountMismatch, expected, claimed)
	}
	return nil
}
