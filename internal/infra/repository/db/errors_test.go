package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	dupKey := &pgconn.PgError{Code: "23505", ConstraintName: "uq_payments_payment_key", Detail: "Key (payment_key)=(pk_1) already exists."}
	err := translateError(fmt.Errorf("insert: %w", dupKey))
	require.ErrorIs(t, err, ErrDuplicatePaymentKey)

	dupOrder := &pgconn.PgError{Code: "23505", ConstraintName: "orders_pkey"}
	require.ErrorIs(t, translateError(dupOrder), ErrDuplicateOrderID)

	other := &pgconn.PgError{Code: "23505", ConstraintName: "something_else"}
	require.ErrorIs(t, translateError(other), ErrDuplicateKey)

	plain := errors.New("connection refused")
	require.Equal(t, plain, translateError(plain))
	require.NoError(t, translateError(nil))
}

func TestIsSerializationFailure(t *testing.T) {
	require.True(t, IsSerializationFailure(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})))
	require.True(t, IsSerializationFailure(&pgconn.PgError{Code: "40P01"}))
	require.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
	require.False(t, IsSerializationFailure(errors.New("x")))
}

func TestRetryOnSerializationFailure(t *testing.T) {
	ctx := context.Background()

	attempts := 0
	err := RetryOnSerializationFailure(ctx, 3, func() error {
		attempts++
		if attempts == 1 {
			return fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)

	// 重試次數用完時回傳最後一次的衝突
	attempts = 0
	err = RetryOnSerializationFailure(ctx, 2, func() error {
		attempts++
		return &pgconn.PgError{Code: "40P01"}
	})
	require.True(t, IsSerializationFailure(err))
	require.Equal(t, 3, attempts)

	// 其他錯誤不重試
	attempts = 0
	boom := errors.New("boom")
	err = RetryOnSerializationFailure(ctx, 3, func() error {
		attempts++
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, attempts)
}

func TestRetryOnSerializationFailureStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryOnSerializationFailure(ctx, 5, func() error {
		attempts++
		cancel()
		return &pgconn.PgError{Code: "40001"}
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}
