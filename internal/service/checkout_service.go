package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/domain/errs"
	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/gateway"
	"github.com/RoyceAzure/lab/checkout/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/checkout/internal/pkg/util"
	"github.com/rs/zerolog"
)

// PreOrderStore 預購單快照存取, 擁有者由呼叫端檢查
type PreOrderStore interface {
	Put(ctx context.Context, userID int64, items []model.OrderLine, amount int64) (string, error)
	Get(ctx context.Context, key string) (*model.PreOrderSnapshot, error)
	AttachPoints(ctx context.Context, key string, points int64) (*model.PreOrderSnapshot, error)
	Delete(ctx context.Context, key string) error
}

type PaymentGateway interface {
	Confirm(ctx context.Context, paymentKey, orderID string, amount int64) gateway.ConfirmResult
	ShippingFee(orderAmount int64) int64
	ValidateAmount(claimed, orderAmount, usedPoint int64) error
}

type CheckoutConfig struct {
	HostURL       string
	MinPointUsage int64
}

type PreOrderResult struct {
	PreOrderKey string `json:"pre_order_key"`
	Amount      int64  `json:"amount"`
	RedirectURL string `json:"redirect_url"`
}

// PaymentRequest 前端呼叫閘道付款視窗所需的資料
type PaymentRequest struct {
	OrderID     string `json:"order_id"`
	OrderName   string `json:"order_name"`
	Amount      int64  `json:"amount"`
	ShippingFee int64  `json:"shipping_fee"`
	UsedPoint   int64  `json:"used_point"`
	SuccessURL  string `json:"success_url"`
	FailURL     string `json:"fail_url"`
}

type ConfirmRequest struct {
	PaymentKey  string
	OrderID     string
	Amount      int64
	PreOrderKey string
}

type ConfirmResult struct {
	OrderID string `json:"order_id"`
	// 同一個payment key 已經處理過
	AlreadyProcessed bool `json:"already_processed"`
}

type PointOnlyResult struct {
	OrderID     string `json:"order_id"`
	RedirectURL string `json:"redirect_url"`
}

type ICheckoutService interface {
	CreatePreOrder(ctx context.Context, userID int64, items []ItemRequest) (PreOrderResult, error)
	AttachPoints(ctx context.Context, userID int64, key string, points int64) (*model.PreOrderSnapshot, error)
	PreparePayment(ctx context.Context, userID int64, key string, points int64) (PaymentRequest, error)
	ConfirmPayment(ctx context.Context, userID int64, req ConfirmRequest) (ConfirmResult, error)
	FailPayment(ctx context.Context, userID int64, key string) error
	PayWithPointsOnly(ctx context.Context, userID int64, key string, usedPoints int64) (PointOnlyResult, error)
	CreateVirtualAccountOrder(ctx context.Context, userID int64, key string) (*model.Order, error)
	GetPointBalance(ctx context.Context, userID int64) (int64, error)
	GetOrder(ctx context.Context, userID int64, orderID string) (*model.Order, error)
}

var _ ICheckoutService = (*CheckoutService)(nil)

/*
CheckoutService 結帳流程
預購單 -> 指定點數 -> 閘道確認(或純點數) -> 寫入訂單

每個使用預購單的步驟都自行檢查擁有者
金額一律以伺服器計算為準
*/
type CheckoutService struct {
	validator    *ItemValidator
	store        PreOrderStore
	gateway      PaymentGateway
	materializer *OrderMaterializer
	ledger       *PointLedger
	db           db.UnifiedDB
	cfg          CheckoutConfig
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewCheckoutService(
	validator *ItemValidator,
	store PreOrderStore,
	gw PaymentGateway,
	materializer *OrderMaterializer,
	ledger *PointLedger,
	unified db.UnifiedDB,
	cfg CheckoutConfig,
	logger *zerolog.Logger,
) *CheckoutService {
	if validator == nil || store == nil || gw == nil || materializer == nil || ledger == nil || unified == nil {
		panic("checkout service dependency is nil")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CheckoutService{
		validator:    validator,
		store:        store,
		gateway:      gw,
		materializer: materializer,
		ledger:       ledger,
		db:           unified,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *CheckoutService) CreatePreOrder(ctx context.Context, userID int64, items []ItemRequest) (PreOrderResult, error) {
	validated, err := s.validator.Validate(ctx, items)
	if err != nil {
		return PreOrderResult{}, err
	}
	key, err := s.store.Put(ctx, userID, validated.Items, validated.Amount)
	if err != nil {
		return PreOrderResult{}, err
	}
	return PreOrderResult{
		PreOrderKey: key,
		Amount:      validated.Amount,
		RedirectURL: "/payments/?preOrderKey=" + url.QueryEscape(key),
	}, nil
}

// ownedSnapshot 不存在與非本人都不透露細節
func (s *CheckoutService) ownedSnapshot(ctx context.Context, userID int64, key string) (*model.PreOrderSnapshot, error) {
	if key == "" {
		return nil, errs.ErrMissingFields
	}
	snapshot, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !snapshot.OwnedBy(userID) {
		return nil, errs.ErrAuthorization
	}
	return snapshot, nil
}

// AttachPoints 寫入要使用的點數, 不可超過訂單金額
func (s *CheckoutService) AttachPoints(ctx context.Context, userID int64, key string, points int64) (*model.PreOrderSnapshot, error) {
	if points < 0 {
		return nil, fmt.Errorf("%w: used_point must not be negative", errs.ErrValidation)
	}
	snapshot, err := s.ownedSnapshot(ctx, userID, key)
	if err != nil {
		return nil, err
	}
	if points > snapshot.Amount {
		return nil, fmt.Errorf("%w: used_point exceeds order amount", errs.ErrValidation)
	}
	return s.store.AttachPoints(ctx, key, points)
}

// PreparePayment 指定點數並產生閘道付款資料, 這裡的餘額檢查只是提示, 最終以commit時為準
func (s *CheckoutService) PreparePayment(ctx context.Context, userID int64, key string, points int64) (PaymentRequest, error) {
	if points > 0 {
		balance, err := s.GetPointBalance(ctx, userID)
		if err != nil {
			return PaymentRequest{}, err
		}
		if points > balance {
			return PaymentRequest{}, fmt.Errorf("%w: balance %d, requested %d", errs.ErrInsufficientBalance, balance, points)
		}
	}
	snapshot, err := s.AttachPoints(ctx, userID, key, points)
	if err != nil {
		return PaymentRequest{}, err
	}

	names := make([]string, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		names = append(names, item.ProductName)
	}
	host := strings.TrimRight(s.cfg.HostURL, "/")
	return PaymentRequest{
		OrderID:     util.GenerateOrderID(s.now()),
		OrderName:   util.OrderName(names),
		Amount:      max(snapshot.Amount-points, 0) + s.gateway.ShippingFee(snapshot.Amount),
		ShippingFee: s.gateway.ShippingFee(snapshot.Amount),
		UsedPoint:   points,
		SuccessURL:  host + "/api/v1/payments/toss/confirm?preOrderKey=" + url.QueryEscape(key),
		FailURL:     host + "/api/v1/payments/toss/fail?preOrderKey=" + url.QueryEscape(key),
	}, nil
}

/*
ConfirmPayment 閘道付款成功後的確認

	1. 同一個 payment key 已寫入過, 直接回傳成功
	2. 取得預購單並檢查擁有者
	3. 金額比對, 必須在任何寫入之前
	4. 呼叫閘道確認
	5. 寫入訂單, 重複視為成功
*/
func (s *CheckoutService) ConfirmPayment(ctx context.Context, userID int64, req ConfirmRequest) (ConfirmResult, error) {
	if req.PaymentKey == "" || req.OrderID == "" || req.PreOrderKey == "" || req.Amount <= 0 {
		return ConfirmResult{}, errs.ErrMissingFields
	}

	if result, done, err := s.alreadyProcessed(ctx, userID, req.PaymentKey, req.PreOrderKey); done || err != nil {
		return result, err
	}

	snapshot, err := s.ownedSnapshot(ctx, userID, req.PreOrderKey)
	if err != nil {
		return ConfirmResult{}, err
	}
	usedPoint := snapshot.Points()
	if err := s.gateway.ValidateAmount(req.Amount, snapshot.Amount, usedPoint); err != nil {
		s.logger.Warn().
			Err(err).
			Int64("user_id", userID).
			Str("order_id", req.OrderID).
			Int64("claimed", req.Amount).
			Int64("order_amount", snapshot.Amount).
			Int64("used_point", usedPoint).
			Msg("payment amount mismatch")
		return ConfirmResult{}, err
	}

	confirm := s.gateway.Confirm(ctx, req.PaymentKey, req.OrderID, req.Amount)
	if !confirm.OK {
		return ConfirmResult{}, fmt.Errorf("%w: %s", errs.ErrGatewayFailure, confirm.Message)
	}

	detail := gateway.ParsePaymentDetail(confirm.Raw)
	if detail.UsedPoint > 0 && detail.UsedPoint != usedPoint {
		s.logger.Warn().
			Str("order_id", req.OrderID).
			Int64("snapshot_point", usedPoint).
			Int64("gateway_point", detail.UsedPoint).
			Msg("gateway metadata points differ from pre-order, using pre-order value")
	}

	order, err := s.materializer.Materialize(ctx, MaterializeParams{
		OrderID:     req.OrderID,
		UserID:      userID,
		Items:       snapshot.Items,
		ShippingFee: s.gateway.ShippingFee(snapshot.Amount),
		PaidAmount:  req.Amount,
		UsedPoint:   usedPoint,
		PaymentKey:  req.PaymentKey,
		Provider:    model.ProviderToss,
		Method:      detail.Method,
		ReceiptURL:  detail.ReceiptURL,
		RawResponse: confirm.Raw,
		Log: &model.PaymentLog{
			LogType:         model.PaymentLogConfirm,
			RequestURL:      confirm.RequestURL,
			RequestPayload:  string(confirm.RequestPayload),
			ResponsePayload: string(confirm.Raw),
			StatusCode:      confirm.StatusCode,
			Message:         "payment confirmed",
		},
	})
	if errors.Is(err, errs.ErrDuplicatePayment) {
		s.logger.Info().Str("payment_key", req.PaymentKey).Msg("duplicate confirm, payment already materialized")
		if result, done, lookupErr := s.alreadyProcessed(ctx, userID, req.PaymentKey, req.PreOrderKey); done || lookupErr != nil {
			return result, lookupErr
		}
		s.invalidate(ctx, req.PreOrderKey)
		return ConfirmResult{OrderID: req.OrderID, AlreadyProcessed: true}, nil
	}
	if errors.Is(err, errs.ErrOrderIDConflict) {
		// 閘道已扣款但訂單寫不進去, 需要依payment key人工退款
		s.logger.Error().
			Err(err).
			Int64("user_id", userID).
			Str("order_id", req.OrderID).
			Str("payment_key", req.PaymentKey).
			Int64("amount", req.Amount).
			Msg("order id already taken after gateway approval, refund required")
		return ConfirmResult{}, err
	}
	if err != nil {
		return ConfirmResult{}, err
	}

	s.invalidate(ctx, req.PreOrderKey)
	return ConfirmResult{OrderID: order.OrderID}, nil
}

// alreadyProcessed 閘道重送或使用者重複送出, 已存在的付款不再呼叫閘道
func (s *CheckoutService) alreadyProcessed(ctx context.Context, userID int64, paymentKey, preOrderKey string) (ConfirmResult, bool, error) {
	payment, err := s.db.Payments().GetPaymentByKey(ctx, paymentKey)
	if err != nil {
		return ConfirmResult{}, false, err
	}
	if payment == nil {
		return ConfirmResult{}, false, nil
	}
	order, err := s.db.Orders().GetOrderByID(ctx, payment.OrderID)
	if err != nil {
		return ConfirmResult{}, false, err
	}
	if order.UserID != userID {
		return ConfirmResult{}, true, errs.ErrAuthorization
	}
	s.invalidate(ctx, preOrderKey)
	return ConfirmResult{OrderID: order.OrderID, AlreadyProcessed: true}, true, nil
}

// FailPayment 使用者取消或閘道失敗, 作廢預購單
func (s *CheckoutService) FailPayment(ctx context.Context, userID int64, key string) error {
	_, err := s.ownedSnapshot(ctx, userID, key)
	if errors.Is(err, errs.ErrNotFoundOrExpired) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, key)
}

/*
PayWithPointsOnly 點數全額付款
最低使用點數檢查在讀取任何資料之前
使用點數會被截到 訂單金額+運費, 餘額只在寫入交易內檢查
payment key 由預購單token產生, 重複送出時回傳第一次建立的訂單
*/
func (s *CheckoutService) PayWithPointsOnly(ctx context.Context, userID int64, key string, usedPoints int64) (PointOnlyResult, error) {
	if usedPoints < s.cfg.MinPointUsage {
		return PointOnlyResult{}, fmt.Errorf("%w: minimum %d, got %d", errs.ErrBelowMinimumPointUsage, s.cfg.MinPointUsage, usedPoints)
	}
	snapshot, err := s.ownedSnapshot(ctx, userID, key)
	if err != nil {
		return PointOnlyResult{}, err
	}
	// 快照建立後商品可能下架或選項變更
	if err := s.validator.Revalidate(ctx, snapshot.Items); err != nil {
		return PointOnlyResult{}, err
	}

	shippingFee := s.gateway.ShippingFee(snapshot.Amount)
	payable := snapshot.Amount + shippingFee
	if usedPoints < payable {
		return PointOnlyResult{}, fmt.Errorf("%w: required %d, got %d", errs.ErrInsufficientPointsForFullPayment, payable, usedPoints)
	}
	usedPoints = payable

	paymentKey := util.PointOnlyPaymentKey(key)
	var order *model.Order
	for attempt := 0; attempt < 2; attempt++ {
		orderID := util.GenerateOrderID(s.now())
		order, err = s.materializer.Materialize(ctx, MaterializeParams{
			OrderID:     orderID,
			UserID:      userID,
			Items:       snapshot.Items,
			ShippingFee: shippingFee,
			PaidAmount:  0,
			UsedPoint:   usedPoints,
			PaymentKey:  paymentKey,
			Provider:    model.ProviderPoint,
			Method:      model.PaymentMethodPoint,
			Log: &model.PaymentLog{
				LogType:    model.PaymentLogPointOnly,
				StatusCode: 200,
				Message:    fmt.Sprintf("paid with %d points", usedPoints),
			},
		})
		if !errors.Is(err, db.ErrDuplicateOrderID) || errors.Is(err, errs.ErrDuplicatePayment) {
			break
		}
		s.logger.Warn().Str("order_id", orderID).Msg("order id collision, regenerating")
	}
	if errors.Is(err, errs.ErrDuplicatePayment) {
		s.logger.Info().Str("payment_key", paymentKey).Msg("duplicate point-only submit, returning existing order")
		result, done, lookupErr := s.alreadyProcessed(ctx, userID, paymentKey, key)
		if lookupErr != nil {
			return PointOnlyResult{}, lookupErr
		}
		if !done {
			return PointOnlyResult{}, err
		}
		return pointOnlyResult(result.OrderID), nil
	}
	if err != nil {
		return PointOnlyResult{}, err
	}

	s.invalidate(ctx, key)
	return pointOnlyResult(order.OrderID), nil
}

func pointOnlyResult(orderID string) PointOnlyResult {
	return PointOnlyResult{
		OrderID:     orderID,
		RedirectURL: "/orders/complete?orderId=" + url.QueryEscape(orderID),
	}
}

/*
CreateVirtualAccountOrder 待入帳訂單
不建立付款也不記錄點數, 預購單上指定的點數不會套用
*/
func (s *CheckoutService) CreateVirtualAccountOrder(ctx context.Context, userID int64, key string) (*model.Order, error) {
	snapshot, err := s.ownedSnapshot(ctx, userID, key)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Revalidate(ctx, snapshot.Items); err != nil {
		return nil, err
	}
	params := PendingOrderParams{
		UserID:      userID,
		Items:       snapshot.Items,
		ShippingFee: s.gateway.ShippingFee(snapshot.Amount),
	}

	var order *model.Order
	for attempt := 0; attempt < 2; attempt++ {
		params.OrderID = util.GenerateOrderID(s.now())
		order, err = s.materializer.CreatePending(ctx, params)
		if !errors.Is(err, db.ErrDuplicateOrderID) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, key)
	return order, nil
}

func (s *CheckoutService) GetPointBalance(ctx context.Context, userID int64) (int64, error) {
	return s.ledger.Balance(ctx, s.db, userID)
}

// GetOrder 只能查看自己的訂單
func (s *CheckoutService) GetOrder(ctx context.Context, userID int64, orderID string) (*model.Order, error) {
	order, err := s.db.Orders().GetOrderByID(ctx, orderID)
	if errors.Is(err, db.ErrOrderNotFound) {
		return nil, errs.ErrNotFoundOrExpired
	}
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, errs.ErrAuthorization
	}
	return order, nil
}

// invalidate 刪除失敗不影響已完成的訂單, 快照仍會因TTL過期
func (s *CheckoutService) invalidate(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn().Err(err).Str("pre_order_key", key).Msg("delete pre-order snapshot failed")
	}
}
