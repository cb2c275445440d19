package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/apnishop-api/internal/model"
)

func TestStatsService_Dashboard(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	_, err := f.svc.Checkout(ctx, f.userID, f.input(""))
	require.NoError(t, err)

	stats, err := NewStatsService(f.env.stats, nil).Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalOrders)
	assert.EqualValues(t, 1, stats.TotalProducts)
	assert.EqualValues(t, 1, stats.LowStockProducts)
	assertMoney(t, "1062", stats.TotalRevenue)
	assert.Equal(t, 1, f.env.stats.calls)
}

func TestStatsService_RevenueSkipsReturnedOrders(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	order, err := f.svc.Checkout(ctx, f.userID, f.input(""))
	require.NoError(t, err)

	for _, status := range []model.OrderStatus{
		model.OrderStatusConfirmed, model.OrderStatusProcessing, model.OrderStatusShipped, model.OrderStatusReturned,
	} {
		_, err := f.svc.UpdateStatus(ctx, order.ID, status, "")
		require.NoError(t, err, status)
	}

	stats, err := NewStatsService(f.env.stats, nil).Dashboard(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.TotalOrders)
	assertMoney(t, "0", stats.TotalRevenue)
}
