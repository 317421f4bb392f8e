package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/domain/errs"
	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/checkout/internal/pkg/util"
	"github.com/rs/zerolog"
)

const (
	cartDepletionSavePoint = "cart_depletion"
	publishTimeout         = 5 * time.Second
)

// MaterializeParams 已通過金額檢查與閘道確認的付款
type MaterializeParams struct {
	OrderID     string
	UserID      int64
	Items       []model.OrderLine
	ShippingFee int64
	// 實際付款金額, 純點數付款為0
	PaidAmount  int64
	UsedPoint   int64
	PaymentKey  string
	Provider    string
	Method      string
	ReceiptURL  string
	RawResponse []byte
	// 與Payment同一交易寫入, PaymentID 與 OrderID 由這裡填
	Log *model.PaymentLog
}

func (p MaterializeParams) validate() error {
	if p.OrderID == "" || p.PaymentKey == "" || p.UserID == 0 {
		return errs.ErrMissingFields
	}
	if len(p.Items) == 0 {
		return errs.ErrEmptyOrder
	}
	if p.PaidAmount < 0 || p.UsedPoint < 0 || p.ShippingFee < 0 {
		return errs.ErrValidation
	}
	return nil
}

// PendingOrderParams 無付款紀錄的訂單, 等待入帳
type PendingOrderParams struct {
	OrderID     string
	UserID      int64
	Items       []model.OrderLine
	ShippingFee int64
}

/*
OrderMaterializer 把確認過的付款寫成訂單

同一個交易內:
  - Order, OrderItem, Payment, PaymentLog
  - 點數扣除與發放, 狀態轉為 PAID
  - 購物車扣除 (savepoint, 失敗只回滾這一段)

payment key 有唯一限制, 重複時回傳 errs.ErrDuplicatePayment, 呼叫端視為成功
*/
type OrderMaterializer struct {
	tx        db.TxManager
	ledger    *PointLedger
	depleter  *CartDepleter
	publisher EventPublisher
	logger    *zerolog.Logger
	now       func() time.Time
}

func NewOrderMaterializer(tx db.TxManager, ledger *PointLedger, depleter *CartDepleter, publisher EventPublisher, logger *zerolog.Logger) *OrderMaterializer {
	if tx == nil {
		panic("order materializer dependency tx manager is nil")
	}
	if ledger == nil {
		panic("order materializer dependency ledger is nil")
	}
	if depleter == nil {
		depleter = NewCartDepleter()
	}
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &OrderMaterializer{
		tx:        tx,
		ledger:    ledger,
		depleter:  depleter,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *OrderMaterializer) Materialize(ctx context.Context, p MaterializeParams) (*model.Order, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	var (
		order    *model.Order
		payment  *model.Payment
		depleted bool
	)
	err := m.tx.Do(ctx, func(uow db.UnitOfWork) error {
		// 可能因序列化衝突重跑, 每次都重新建立
		existing, err := uow.Payments().GetPaymentByKey(ctx, p.PaymentKey)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: payment key %s", errs.ErrDuplicatePayment, p.PaymentKey)
		}

		now := m.now().UTC()
		order = newOrder(p.OrderID, p.UserID, p.Items, p.ShippingFee, p.UsedPoint, now)
		if err := uow.Orders().CreateOrder(ctx, order); err != nil {
			return err
		}
		if err := uow.Orders().CreateOrderItems(ctx, order.OrderItems); err != nil {
			return err
		}

		payment = &model.Payment{
			OrderID:     order.OrderID,
			Provider:    p.Provider,
			Method:      p.Method,
			PaymentKey:  p.PaymentKey,
			Amount:      p.PaidAmount,
			Status:      model.PaymentStatusRequested,
			UsedPoint:   p.UsedPoint,
			ReceiptURL:  p.ReceiptURL,
			RawResponse: string(p.RawResponse),
		}
		if err := uow.Payments().CreatePayment(ctx, payment); err != nil {
			return err
		}

		if p.Log != nil {
			log := *p.Log
			log.PaymentID = &payment.ID
			log.OrderID = order.OrderID
			log.PaymentKey = p.PaymentKey
			if err := uow.PaymentLogs().CreatePaymentLog(ctx, &log); err != nil {
				return fmt.Errorf("write payment log: %w", err)
			}
		}

		depleted, err = m.depleteWithSavePoint(ctx, uow, order)
		if err != nil {
			return err
		}
		order.CartDepleted = depleted

		if err := m.approve(ctx, uow, order, payment, now); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, m.classify(ctx, p.PaymentKey, err)
	}

	m.logger.Info().
		Str("order_id", order.OrderID).
		Int64("user_id", order.UserID).
		Int64("total_amount", order.TotalAmount).
		Int64("used_point", payment.UsedPoint).
		Int64("earned_point", payment.EarnedPoint).
		Msg("order materialized")

	m.publishAfterCommit(ctx, order, payment, depleted)
	return order, nil
}

// approve 已核准時直接略過, 重複呼叫不會重複扣點或發點
func (m *OrderMaterializer) approve(ctx context.Context, uow db.UnitOfWork, order *model.Order, payment *model.Payment, now time.Time) error {
	if payment.IsApproved() {
		return nil
	}
	if _, err := m.ledger.Use(ctx, uow, order.UserID, payment.UsedPoint, order.OrderID); err != nil {
		return err
	}

	payment.Status = model.PaymentStatusApproved
	payment.ApprovedAt = &now
	earned, err := m.ledger.Earn(ctx, uow, order.UserID, order.TotalAmount, order.OrderID)
	if err != nil {
		return err
	}
	payment.EarnedPoint = earned
	if err := uow.Payments().UpdatePayment(ctx, payment); err != nil {
		return err
	}

	order.Status = model.OrderStatusPaid
	return uow.Orders().UpdateOrder(ctx, order)
}

// depleteWithSavePoint 失敗時只回滾購物車這一段, 訂單照常commit
// 只有回不到savepoint時才回傳錯誤, 此時交易已不可用
func (m *OrderMaterializer) depleteWithSavePoint(ctx context.Context, uow db.UnitOfWork, order *model.Order) (bool, error) {
	if err := uow.SavePoint(cartDepletionSavePoint); err != nil {
		return false, fmt.Errorf("create cart depletion savepoint: %w", err)
	}
	if _, err := m.depleter.Deplete(ctx, uow, order.UserID, orderLines(order.OrderItems)); err != nil {
		m.logger.Warn().Err(err).Str("order_id", order.OrderID).Msg("cart depletion failed, deferred to async reconciliation")
		if rbErr := uow.RollbackTo(cartDepletionSavePoint); rbErr != nil {
			return false, fmt.Errorf("rollback to cart depletion savepoint: %w", rbErr)
		}
		return false, nil
	}
	return true, nil
}

// classify 將儲存層的唯一限制錯誤轉成對外的分類
func (m *OrderMaterializer) classify(ctx context.Context, paymentKey string, err error) error {
	switch {
	case errors.Is(err, errs.ErrDuplicatePayment):
		return err
	case errors.Is(err, db.ErrDuplicatePaymentKey):
		return fmt.Errorf("%w: %v", errs.ErrDuplicatePayment, err)
	case errors.Is(err, db.ErrDuplicateOrderID):
		// 重複的確認請求同時送達時, 後到的那筆可能先撞到 order_id
		existing, lookupErr := m.paymentByKey(ctx, paymentKey)
		if lookupErr == nil && existing != nil {
			return fmt.Errorf("%w: %v", errs.ErrDuplicatePayment, err)
		}
		// 保留 db.ErrDuplicateOrderID, 自行產生order id的呼叫端會重新產生
		return fmt.Errorf("%w: %w", errs.ErrOrderIDConflict, err)
	}
	return err
}

func (m *OrderMaterializer) paymentByKey(ctx context.Context, paymentKey string) (*model.Payment, error) {
	var found *model.Payment
	err := m.tx.Do(ctx, func(uow db.UnitOfWork) error {
		p, err := uow.Payments().GetPaymentByKey(ctx, paymentKey)
		found = p
		return err
	})
	return found, err
}

// CreatePending 建立待入帳訂單, 不建立付款也不動點數
func (m *OrderMaterializer) CreatePending(ctx context.Context, p PendingOrderParams) (*model.Order, error) {
	if p.OrderID == "" || p.UserID == 0 {
		return nil, errs.ErrMissingFields
	}
	if len(p.Items) == 0 {
		return nil, errs.ErrEmptyOrder
	}

	var order *model.Order
	err := m.tx.Do(ctx, func(uow db.UnitOfWork) error {
		order = newOrder(p.OrderID, p.UserID, p.Items, p.ShippingFee, 0, m.now().UTC())
		if err := uow.Orders().CreateOrder(ctx, order); err != nil {
			return err
		}
		return uow.Orders().CreateOrderItems(ctx, order.OrderItems)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (m *OrderMaterializer) publishAfterCommit(ctx context.Context, order *model.Order, payment *model.Payment, depleted bool) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	paidAt := m.now().UTC()
	if payment.ApprovedAt != nil {
		paidAt = *payment.ApprovedAt
	}
	err := m.publisher.ProduceOrderPaidEvent(pubCtx, model.OrderPaidEvent{
		OrderID:     order.OrderID,
		UserID:      order.UserID,
		PaymentKey:  payment.PaymentKey,
		TotalAmount: order.TotalAmount,
		PaidAmount:  payment.Amount,
		UsedPoint:   payment.UsedPoint,
		EarnedPoint: payment.EarnedPoint,
		PaidAt:      paidAt,
	})
	if err != nil {
		m.logger.Error().Err(err).Str("order_id", order.OrderID).Msg("publish order paid event failed")
	}

	if depleted {
		return
	}
	err = m.publisher.ProduceCartDepletionRequestedEvent(pubCtx, model.CartDepletionRequestedEvent{
		OrderID:     order.OrderID,
		UserID:      order.UserID,
		Items:       orderLines(order.OrderItems),
		RequestedAt: m.now().UTC(),
	})
	if err != nil {
		// 訂單已commit, 只能留下紀錄人工補做
		m.logger.Error().Err(err).Str("order_id", order.OrderID).Msg("publish cart depletion request failed")
	}
}

// newOrder total_amount = 品項小計 + 運費, 建立後不再重算
func newOrder(orderID string, userID int64, lines []model.OrderLine, shippingFee, usedPoint int64, now time.Time) *model.Order {
	items := make([]model.OrderItem, 0, len(lines))
	names := make([]string, 0, len(lines))
	var subtotal int64
	for _, l := range lines {
		item := model.OrderItem{
			OrderID:     orderID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			ColorID:     l.ColorID,
			SizeID:      l.SizeID,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		}
		item.RecomputeSubtotal()
		subtotal += item.Subtotal
		items = append(items, item)
		names = append(names, l.ProductName)
	}
	return &model.Order{
		OrderID:              orderID,
		UserID:               userID,
		ProductName:          util.OrderName(names),
		TotalAmount:          subtotal + shippingFee,
		ShippingFee:          shippingFee,
		UsedPoint:            usedPoint,
		Status:               model.OrderStatusPending,
		ShippingStatus:       model.ShippingStatusPending,
		CancellationStatus:   model.RequestStatusNone,
		ExchangeRefundStatus: model.RequestStatusNone,
		OrderItems:           items,
		BaseModel:            model.BaseModel{CreatedAt: now},
	}
}

func orderLines(items []model.OrderItem) []model.OrderLine {
	lines := make([]model.OrderLine, 0, len(items))
	for _, i := range items {
		lines = append(lines, model.OrderLine{
			ProductID:   i.ProductID,
			ProductName: i.ProductName,
			Quantity:    i.Quantity,
			UnitPrice:   i.UnitPrice,
			Subtotal:    int64(i.Quantity) * i.UnitPrice,
			ColorID:     i.ColorID,
			SizeID:      i.SizeID,
		})
	}
	return lines
}
