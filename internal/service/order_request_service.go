package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RoyceAzure/lab/checkout/internal/domain/errs"
	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/RoyceAzure/lab/checkout/internal/infra/repository/db"
	"github.com/rs/zerolog"
)

type CancellationRequest struct {
	Reason model.CancellationReason `json:"reason"`
	Detail string                   `json:"detail"`
}

type ExchangeRefundRequest struct {
	Type   model.ExchangeRefundType   `json:"type"`
	Reason model.ExchangeRefundReason `json:"reason"`
	Detail string                     `json:"detail"`
}

type ShippingUpdate struct {
	Status        model.ShippingStatus `json:"status"`
	RecipientName string               `json:"recipient_name,omitempty"`
	Phone         string               `json:"phone,omitempty"`
	Address       string               `json:"address,omitempty"`
	DeliveryMemo  string               `json:"delivery_memo,omitempty"`
}

type IOrderRequestService interface {
	RequestCancellation(ctx context.Context, userID int64, orderID string, req CancellationRequest) (*model.Order, error)
	RequestExchangeRefund(ctx context.Context, userID int64, orderID string, req ExchangeRefundRequest) (*model.Order, error)
	ApproveCancellation(ctx context.Context, orderID, note string) (*model.Order, error)
	RejectCancellation(ctx context.Context, orderID, note string) (*model.Order, error)
	ApproveExchangeRefund(ctx context.Context, orderID, note string) (*model.Order, error)
	RejectExchangeRefund(ctx context.Context, orderID, note string) (*model.Order, error)
	UpdateShippingStatus(ctx context.Context, orderID string, update ShippingUpdate) (*model.Order, error)
}

var _ IOrderRequestService = (*OrderRequestService)(nil)

/*
OrderRequestService 取消與換貨/退貨申請, 以及出貨狀態
申請狀態 NONE -> PENDING -> APPROVED | REJECTED, 終態不可再變更
核准取消時同一交易內退回點數並將付款標為取消
*/
type OrderRequestService struct {
	tx     db.TxManager
	ledger *PointLedger
	logger *zerolog.Logger
	now    func() time.Time
}

func NewOrderRequestService(tx db.TxManager, ledger *PointLedger, logger *zerolog.Logger) *OrderRequestService {
	if tx == nil || ledger == nil {
		panic("order request service dependency is nil")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &OrderRequestService{tx: tx, ledger: ledger, logger: logger, now: time.Now}
}

// withOrder 鎖定訂單後執行fn, userID 為0時代表管理者操作
func (s *OrderRequestService) withOrder(ctx context.Context, userID int64, orderID string, fn func(uow db.UnitOfWork, order *model.Order) error) (*model.Order, error) {
	var order *model.Order
	err := s.tx.Do(ctx, func(uow db.UnitOfWork) error {
		o, err := uow.Orders().GetOrderForUpdate(ctx, orderID)
		if errors.Is(err, db.ErrOrderNotFound) {
			return errs.ErrNotFoundOrExpired
		}
		if err != nil {
			return err
		}
		if userID != 0 && o.UserID != userID {
			return errs.ErrAuthorization
		}
		if err := fn(uow, o); err != nil {
			return err
		}
		order = o
		return uow.Orders().UpdateOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderRequestService) RequestCancellation(ctx context.Context, userID int64, orderID string, req CancellationRequest) (*model.Order, error) {
	if !req.Reason.Valid() {
		return nil, fmt.Errorf("%w: unknown cancellation reason", errs.ErrValidation)
	}
	return s.withOrder(ctx, userID, orderID, func(_ db.UnitOfWork, o *model.Order) error {
		if !o.CanRequestCancellation() {
			return fmt.Errorf("%w: cancellation not allowed", errs.ErrInvalidState)
		}
		now := s.now().UTC()
		o.CancellationStatus = model.RequestStatusPending
		o.CancellationReason = req.Reason
		o.CancellationDetail = req.Detail
		o.CancellationRequestedAt = &now
		return nil
	})
}

func (s *OrderRequestService) RequestExchangeRefund(ctx context.Context, userID int64, orderID string, req ExchangeRefundRequest) (*model.Order, error) {
	if !req.Type.Valid() || !req.Reason.Valid() {
		return nil, fmt.Errorf("%w: unknown exchange/refund type or reason", errs.ErrValidation)
	}
	return s.withOrder(ctx, userID, orderID, func(_ db.UnitOfWork, o *model.Order) error {
		if !o.CanRequestExchangeRefund() {
			return fmt.Errorf("%w: exchange/refund not allowed", errs.ErrInvalidState)
		}
		now := s.now().UTC()
		o.ExchangeRefundStatus = model.RequestStatusPending
		o.ExchangeRefundType = req.Type
		o.ExchangeRefundReason = req.Reason
		o.ExchangeRefundDetail = req.Detail
		o.ExchangeRefundRequestedAt = &now
		return nil
	})
}

// ApproveCancellation 訂單與付款轉為取消, 退回使用的點數並收回發放的點數
func (s *OrderRequestService) ApproveCancellation(ctx context.Context, orderID, note string) (*model.Order, error) {
	return s.withOrder(ctx, 0, orderID, func(uow db.UnitOfWork, o *model.Order) error {
		if o.CancellationStatus != model.RequestStatusPending {
			return fmt.Errorf("%w: no pending cancellation", errs.ErrInvalidState)
		}
		now := s.now().UTC()
		o.CancellationStatus = model.RequestStatusApproved
		o.CancellationAdminNote = note
		o.CancellationProcessedAt = &now
		o.Status = model.OrderStatusCancelled
		return s.reverseOrder(ctx, uow, o)
	})
}

func (s *OrderRequestService) RejectCancellation(ctx context.Context, orderID, note string) (*model.Order, error) {
	if strings.TrimSpace(note) == "" {
		return nil, fmt.Errorf("%w: rejection requires an admin note", errs.ErrValidation)
	}
	return s.withOrder(ctx, 0, orderID, func(_ db.UnitOfWork, o *model.Order) error {
		if o.CancellationStatus != model.RequestStatusPending {
			return fmt.Errorf("%w: no pending cancellation", errs.ErrInvalidState)
		}
		now := s.now().UTC()
		o.CancellationStatus = model.RequestStatusRejected
		o.CancellationAdminNote = note
		o.CancellationProcessedAt = &now
		return nil
	})
}

func (s *OrderRequestService) ApproveExchangeRefund(ctx context.Context, orderID, note string) (*model.Order, error) {
	return s.withOrder(ctx, 0, orderID, func(_ db.UnitOfWork, o *model.Order) error {
		if o.ExchangeRefundStatus != model.RequestStatusPending {
			return fmt.Errorf("%w: no pending exchange/refund", errs.ErrInvalidState)
		}
		now := s.now().UTC()
		o.ExchangeRefundStatus = model.RequestStatusApproved
		o.ExchangeRefundAdminNote = note
		o.ExchangeRefundProcessedAt = &now
		return nil
	})
}

func (s *OrderRequestService) RejectExchangeRefund(ctx context.Context, orderID, note string) (*model.Order, error) {
	if strings.TrimSpace(note) == "" {
		return nil, fmt.Errorf("%w: rejection requires an admin note", errs.ErrValidation)
	}
	return s.withOrder(ctx, 0, orderID, func(_ db.UnitOfWork, o *model.Order) error {
		if o.ExchangeRefundStatus != model.RequestStatusPending {
			return fmt.Errorf("%w: no pending exchange/refund", errs.ErrInvalidState)
		}
		now := s.now().UTC()
		o.ExchangeRefundStatus = model.RequestStatusRejected
		o.ExchangeRefundAdminNote = note
		o.ExchangeRefundProcessedAt = &now
		return nil
	})
}

// UpdateShippingStatus 出貨狀態只能依序往前, 收件資訊有填才覆寫
func (s *OrderRequestService) UpdateShippingStatus(ctx context.Context, orderID string, update ShippingUpdate) (*model.Order, error) {
	return s.withOrder(ctx, 0, orderID, func(_ db.UnitOfWork, o *model.Order) error {
		if o.Status != model.OrderStatusPaid || !o.NextShippingStatus(update.Status) {
			return fmt.Errorf("%w: shipping %s -> %s", errs.ErrInvalidState, o.ShippingStatus, update.Status)
		}
		o.ShippingStatus = update.Status
		if update.RecipientName != "" {
			o.RecipientName = update.RecipientName
		}
		if update.Phone != "" {
			o.Phone = update.Phone
		}
		if update.Address != "" {
			o.Address = update.Address
		}
		if update.DeliveryMemo != "" {
			o.DeliveryMemo = update.DeliveryMemo
		}
		return nil
	})
}

// reverseOrder 已核准的付款轉為取消並回沖點數
func (s *OrderRequestService) reverseOrder(ctx context.Context, uow db.UnitOfWork, o *model.Order) error {
	payments, err := uow.Payments().GetPaymentsByOrderID(ctx, o.OrderID)
	if err != nil {
		return err
	}
	var used, earned int64
	for i := range payments {
		p := &payments[i]
		if !p.IsApproved() {
			continue
		}
		used += p.UsedPoint
		earned += p.EarnedPoint
		p.Status = model.PaymentStatusCancelled
		if err := uow.Payments().UpdatePayment(ctx, p); err != nil {
			return err
		}
	}

	if err := s.ledger.Restore(ctx, uow, o.UserID, used, o.OrderID); err != nil {
		return err
	}
	revoked, err := s.ledger.Revoke(ctx, uow, o.UserID, earned, o.OrderID)
	if err != nil {
		return err
	}
	if revoked < earned {
		s.logger.Warn().
			Str("order_id", o.OrderID).
			Int64("earned", earned).
			Int64("revoked", revoked).
			Msg("earned points partially spent, revoked up to balance")
	}
	return nil
}
