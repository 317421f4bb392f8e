package service

import (
	"context"
	"testing"

	"github.com/RoyceAzure/lab/checkout/internal/domain/errs"
	"github.com/RoyceAzure/lab/checkout/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paidOrder 以點數與卡片各付一部分的已付款訂單
func paidOrder(t *testing.T, env *testEnv) string {
	t.Helper()
	ctx := context.Background()
	env.db.addPoints(buyerID, 10000)
	pre := env.preorder(t, buyerID, ItemRequest{ProductID: 1, Quantity: 2})
	req, err := env.svc.PreparePayment(ctx, buyerID, pre.PreOrderKey, 10000)
	require.NoError(t, err)
	res, err := env.svc.ConfirmPayment(ctx, buyerID, ConfirmRequest{
		PaymentKey: "pk_" + req.OrderID, OrderID: req.OrderID, Amount: req.Amount, PreOrderKey: pre.PreOrderKey,
	})
	require.NoError(t, err)
	return res.OrderID
}

func TestCancellationApproved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orderID := paidOrder(t, env)

	// 使用10000, 發放3500
	balance, err := env.svc.GetPointBalance(ctx, buyerID)
	require.NoError(t, err)
	require.Equal(t, int64(3500), balance)

	_, err = env.requests.RequestCancellation(ctx, strangerID, orderID, CancellationRequest{Reason: model.CancelTooExpensive})
	require.ErrorIs(t, err, errs.ErrAuthorization)
	_, err = env.requests.RequestCancellation(ctx, buyerID, orderID, CancellationRequest{Reason: "BORED"})
	require.ErrorIs(t, err, errs.ErrValidation)

	order, err := env.requests.RequestCancellation(ctx, buyerID, orderID, CancellationRequest{Reason: model.CancelTooExpensive, Detail: "found cheaper"})
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, order.CancellationStatus)
	assert.NotNil(t, order.CancellationRequestedAt)

	_, err = env.requests.RequestCancellation(ctx, buyerID, orderID, CancellationRequest{Reason: model.CancelOther})
	require.ErrorIs(t, err, errs.ErrInvalidState)

	order, err = env.requests.ApproveCancellation(ctx, orderID, "")
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)
	assert.Equal(t, model.RequestStatusApproved, order.CancellationStatus)

	payments, err := env.db.Payments().GetPaymentsByOrderID(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, model.PaymentStatusCancelled, payments[0].Status)

	// 退回10000後收回3500
	balance, err = env.svc.GetPointBalance(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), balance)

	// 終態不可再處理
	_, err = env.requests.ApproveCancellation(ctx, orderID, "")
	require.ErrorIs(t, err, errs.ErrInvalidState)
	_, err = env.requests.RejectCancellation(ctx, orderID, "late")
	require.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestCancellationRejectRequiresNote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orderID := paidOrder(t, env)

	_, err := env.requests.RequestCancellation(ctx, buyerID, orderID, CancellationRequest{Reason: model.CancelNoNeedAnymore})
	require.NoError(t, err)

	_, err = env.requests.RejectCancellation(ctx, orderID, "  ")
	require.ErrorIs(t, err, errs.ErrValidation)

	order, err := env.requests.RejectCancellation(ctx, orderID, "already packed")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, order.CancellationStatus)
	assert.Equal(t, model.OrderStatusPaid, order.Status)
	assert.Equal(t, "already packed", order.CancellationAdminNote)
}

func TestShippingAndExchangeRefund(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orderID := paidOrder(t, env)

	exchange := ExchangeRefundRequest{Type: model.ExchangeRefundTypeExchange, Reason: model.ExchangeSizeMismatch}
	_, err := env.requests.RequestExchangeRefund(ctx, buyerID, orderID, exchange)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	_, err = env.requests.UpdateShippingStatus(ctx, orderID, ShippingUpdate{Status: model.ShippingStatusDelivered})
	require.ErrorIs(t, err, errs.ErrInvalidState)

	order, err := env.requests.UpdateShippingStatus(ctx, orderID, ShippingUpdate{Status: model.ShippingStatusShipping, RecipientName: "Kim"})
	require.NoError(t, err)
	assert.Equal(t, model.ShippingStatusShipping, order.ShippingStatus)
	assert.Equal(t, "Kim", order.RecipientName)

	// 出貨後不可申請取消
	_, err = env.requests.RequestCancellation(ctx, buyerID, orderID, CancellationRequest{Reason: model.CancelOther})
	require.ErrorIs(t, err, errs.ErrInvalidState)

	_, err = env.requests.UpdateShippingStatus(ctx, orderID, ShippingUpdate{Status: model.ShippingStatusDelivered})
	require.NoError(t, err)

	order, err = env.requests.RequestExchangeRefund(ctx, buyerID, orderID, exchange)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, order.ExchangeRefundStatus)

	_, err = env.requests.RejectExchangeRefund(ctx, orderID, "")
	require.ErrorIs(t, err, errs.ErrValidation)

	order, err = env.requests.ApproveExchangeRefund(ctx, orderID, "ship new size")
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, order.ExchangeRefundStatus)

	_, err = env.requests.RequestExchangeRefund(ctx, buyerID, orderID, exchange)
	require.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestRequestOnMissingOrder(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.requests.ApproveCancellation(context.Background(), "ORD-NONE", "")
	require.ErrorIs(t, err, errs.ErrNotFoundOrExpired)
}
