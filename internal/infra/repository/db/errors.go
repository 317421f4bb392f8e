package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicatePaymentKey payment_key 違反唯一限制
	ErrDuplicatePaymentKey = errors.New("duplicate payment key")
	// ErrDuplicateOrderID order_id 碰撞
	ErrDuplicateOrderID = errors.New("duplicate order id")
	// ErrDuplicateKey 其他唯一限制
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrOrderNotFound = errors.New("order not found")
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"

	constraintPaymentKey = "uq_payments_payment_key"
	constraintOrderPK    = "orders_pkey"
)

// translateError 把postgres唯一限制錯誤轉成可辨識的sentinel
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case constraintPaymentKey:
			return fmt.Errorf("%w: %s", ErrDuplicatePaymentKey, pgErr.Detail)
		case constraintOrderPK:
			return fmt.Errorf("%w: %s", ErrDuplicateOrderID, pgErr.Detail)
		}
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pgErr.ConstraintName)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}

// IsSerializationFailure SERIALIZABLE 交易衝突或死鎖, 可整筆重試
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}
