package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestProductUnitPrice(t *testing.T) {
	p := Product{Price: decimal.NewFromInt(35000)}
	require.Equal(t, int64(35000), p.UnitPrice())

	p.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(5000))
	require.Equal(t, int64(30000), p.UnitPrice())

	// 折扣大於原價時不得為負
	p.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(40000))
	require.Equal(t, int64(0), p.UnitPrice())

	p = Product{Price: decimal.RequireFromString("1999.90")}
	require.Equal(t, int64(1999), p.UnitPrice())
}

func TestOptionKey(t *testing.T) {
	red, small := uint(1), uint(2)
	require.Equal(t, NewOptionKey(10, nil, nil), (&CartItem{ProductID: 10}).Key())
	require.NotEqual(t, NewOptionKey(10, &red, nil), NewOptionKey(10, nil, nil))
	require.Equal(t,
		OrderLine{ProductID: 10, ColorID: &red, SizeID: &small}.Key(),
		(&CartItem{ProductID: 10, ColorID: &red, SizeID: &small}).Key())
}

func TestOrderItemRecomputeSubtotal(t *testing.T) {
	item := OrderItem{Quantity: 3, UnitPrice: 1500, Subtotal: 1}
	require.NoError(t, item.BeforeSave(nil))
	require.Equal(t, int64(4500), item.Subtotal)
}

func TestOrderTransitions(t *testing.T) {
	o := Order{
		Status:               OrderStatusPaid,
		ShippingStatus:       ShippingStatusPending,
		CancellationStatus:   RequestStatusNone,
		ExchangeRefundStatus: RequestStatusNone,
	}
	require.True(t, o.CanRequestCancellation())
	require.False(t, o.CanRequestExchangeRefund())
	require.True(t, o.NextShippingStatus(ShippingStatusShipping))
	require.False(t, o.NextShippingStatus(ShippingStatusDelivered))

	o.ShippingStatus = ShippingStatusDelivered
	require.False(t, o.CanRequestCancellation())
	require.True(t, o.CanRequestExchangeRefund())
	require.False(t, o.NextShippingStatus(ShippingStatusPending))
}
