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

func newAddress(city string) *model.Address {
	return &model.Address{
		AddressType: model.AddressHome, FullName: "Meera Iyer", Phone: "9000000001",
		AddressLine1: "4 Lake View", City: city, State: "KA", Pincode: "560001", Country: model.DefaultCountry,
	}
}

func defaults(t *testing.T, svc *AddressService, userID uuid.UUID) []uuid.UUID {
	t.Helper()
	addresses, err := svc.List(context.Background(), userID)
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, a := range addresses {
		if a.IsDefault {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestAddressService_FirstAddressIsDefault(t *testing.T) {
	env := newTestEnv(t)
	svc := env.addressService()
	ctx := context.Background()
	userID := uuid.New()

	first, err := svc.Create(ctx, userID, newAddress("Bengaluru"))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := svc.Create(ctx, userID, newAddress("Mysuru"))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	assert.Equal(t, []uuid.UUID{first.ID}, defaults(t, svc, userID))
}

func TestAddressService_CreateAsDefaultMovesFlag(t *testing.T) {
	env := newTestEnv(t)
	svc := env.addressService()
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Create(ctx, userID, newAddress("Chennai"))
	require.NoError(t, err)
	a := newAddress("Madurai")
	a.IsDefault = true
	second, err := svc.Create(ctx, userID, a)
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{second.ID}, defaults(t, svc, userID))
}

func TestAddressService_SetDefaultLeavesExactlyOne(t *testing.T) {
	env := newTestEnv(t)
	svc := env.addressService()
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Create(ctx, userID, newAddress("Delhi"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, userID, newAddress("Noida"))
	require.NoError(t, err)

	updated, err := svc.SetDefault(ctx, userID, second.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)
	assert.Equal(t, []uuid.UUID{second.ID}, defaults(t, svc, userID))

	// Another user's address cannot be targeted, and a failed attempt keeps the old default.
	_, err = svc.SetDefault(ctx, uuid.New(), second.ID)
	assert.ErrorIs(t, err, apperror.ErrAddressNotFound)
	_, err = svc.SetDefault(ctx, userID, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrAddressNotFound)
	assert.Equal(t, []uuid.UUID{second.ID}, defaults(t, svc, userID))
}

func TestAddressService_UpdateKeepsDefaultFlag(t *testing.T) {
	env := newTestEnv(t)
	svc := env.addressService()
	ctx := context.Background()
	userID := uuid.New()

	a, err := svc.Create(ctx, userID, newAddress("Kochi"))
	require.NoError(t, err)

	changed := newAddress("Thrissur")
	updated, err := svc.Update(ctx, userID, a.ID, changed)
	require.NoError(t, err)
	assert.Equal(t, "Thrissur", updated.City)
	assert.True(t, updated.IsDefault)

	_, err = svc.Update(ctx, uuid.New(), a.ID, newAddress("Nowhere"))
	assert.ErrorIs(t, err, apperror.ErrAddressNotFound)
}

func TestAddressService_DeleteReferencedAddressIsBlocked(t *testing.T) {
	f := newCheckoutFixture(t)
	ctx := context.Background()
	_, err := f.svc.Checkout(ctx, f.userID, f.input(""))
	require.NoError(t, err)

	svc := f.env.addressService()
	assert.ErrorIs(t, svc.Delete(ctx, f.userID, f.addressID), apperror.ErrAddressInUse)
	assert.ErrorIs(t, svc.Delete(ctx, uuid.New(), f.addressID), apperror.ErrAddressNotFound)

	spare, err := svc.Create(ctx, f.userID, newAddress("Goa"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, f.userID, spare.ID))
	_, err = svc.Get(ctx, f.userID, spare.ID)
	assert.ErrorIs(t, err, apperror.ErrAddressNotFound)
}
