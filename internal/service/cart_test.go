package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flicky/apnishop-api/internal/apperror"
	"github.com/flicky/apnishop-api/internal/model"
)

func TestCartService_AddItem(t *testing.T) {
	env := newTestEnv(t)
	svc := env.cartService()
	ctx := context.Background()
	userID := uuid.New()
	pid := env.seedProduct(t, "Notebook", "100", "10", 100)

	cart, err := svc.AddItem(ctx, userID, pid, 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)

	cart, err = svc.AddItem(ctx, userID, pid, 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, 5, cart.TotalItems())
	assertMoney(t, "450", cart.Subtotal())
}

func TestCartService_AddItemValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := env.cartService()
	ctx := context.Background()
	pid := env.seedProduct(t, "Eraser", "5", "0", 10)

	_, err := svc.AddItem(ctx, uuid.New(), pid, 0)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.AddItem(ctx, uuid.New(), uuid.New(), 1)
	assert.ErrorIs(t, err, apperror.ErrProductNotFound)
}

func TestCartService_AddItemRejectsInactiveProduct(t *testing.T) {
	env := newTestEnv(t)
	pid := env.seedProduct(t, "Discontinued Mug", "300", "0", 7)
	env.setProductStatus(pid, model.ProductInactive)

	_, err := env.cartService().AddItem(context.Background(), uuid.New(), pid, 1)
	assert.ErrorIs(t, err, apperror.ErrProductInactive)
}

func TestCartService_SubtotalFollowsLivePrice(t *testing.T) {
	env := newTestEnv(t)
	svc := env.cartService()
	ctx := context.Background()
	userID := uuid.New()
	pid := env.seedProduct(t, "Tea", "200", "0", 10)

	_, err := svc.AddItem(ctx, userID, pid, 2)
	require.NoError(t, err)

	p, _ := env.products.GetByID(ctx, pid)
	p.Price = dec("250")
	require.NoError(t, env.products.Update(ctx, p))

	cart, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assertMoney(t, "500", cart.Subtotal())
}

func TestCartService_UpdateItem(t *testing.T) {
	env := newTestEnv(t)
	svc := env.cartService()
	ctx := context.Background()
	userID := uuid.New()
	pid := env.seedProduct(t, "Soap", "40", "0", 10)

	cart, err := svc.AddItem(ctx, userID, pid, 1)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = svc.UpdateItem(ctx, userID, itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Items[0].Quantity)

	_, err = svc.UpdateItem(ctx, userID, itemID, 0)
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = svc.UpdateItem(ctx, userID, itemID, -2)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	cart, err = svc.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)
}

func TestCartService_ItemsAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	svc := env.cartService()
	ctx := context.Background()
	owner, intruder := uuid.New(), uuid.New()
	pid := env.seedProduct(t, "Candle", "80", "0", 10)

	cart, err := svc.AddItem(ctx, owner, pid, 1)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	_, err = svc.UpdateItem(ctx, intruder, itemID, 9)
	assert.ErrorIs(t, err, apperror.ErrCartItemNotFound)
	assert.ErrorIs(t, svc.RemoveItem(ctx, intruder, itemID), apperror.ErrCartItemNotFound)

	require.NoError(t, svc.RemoveItem(ctx, owner, itemID))
	assert.ErrorIs(t, svc.RemoveItem(ctx, owner, itemID), apperror.ErrCartItemNotFound)
}

func TestCartService_Clear(t *testing.T) {
	env := newTestEnv(t)
	svc := env.cartService()
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.AddItem(ctx, userID, env.seedProduct(t, "Rice", "90", "0", 10), 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, userID, env.seedProduct(t, "Dal", "120", "0", 10), 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, userID))
	cart, err := svc.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assertMoney(t, "0", cart.Subtotal())
}
