package db

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"gorm.io/gorm"
)

type PaymentRepo struct {
	db *DbDao
}

func NewPaymentRepo(db *DbDao) *PaymentRepo {
	return &PaymentRepo{db: db}
}

// CreatePayment payment_key 重複時回傳 ErrDuplicatePaymentKey
func (s *PaymentRepo) CreatePayment(ctx context.Context, payment *model.Payment) error {
	return translateError(s.db.WithContext(ctx).Create(payment).Error)
}

// GetPaymentByKey 找不到時回傳 nil, nil
func (s *PaymentRepo) GetPaymentByKey(ctx context.Context, paymentKey string) (*model.Payment, error) {
	var payment model.Payment
	err := s.db.WithContext(ctx).First(&payment, "payment_key = ?", paymentKey).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentRepo) GetPaymentsByOrderID(ctx context.Context, orderID string) ([]model.Payment, error) {
	var payments []model.Payment
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&payments).Error
	return payments, err
}

func (s *PaymentRepo) UpdatePayment(ctx context.Context, payment *model.Payment) error {
	return s.db.WithContext(ctx).Save(payment).Error
}

type PaymentLogRepo struct {
	db *DbDao
}

func NewPaymentLogRepo(db *DbDao) *PaymentLogRepo {
	return &PaymentLogRepo{db: db}
}

func (s *PaymentLogRepo) CreatePaymentLog(ctx context.Context, log *model.PaymentLog) error {
	return s.db.WithContext(ctx).Create(log).Error
}
