package repository

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/pricing"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		fmt.Println("TEST_DATABASE_URL not set, skipping integration tests")
		os.Exit(0)
	}

	var err error
	testPool, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to test database: %v\n", err)
		os.Exit(1)
	}

	if _, err := Migrate(dsn); err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate test database: %v\n", err)
		testPool.Close()
		os.Exit(1)
	}

	code := m.Run()
	testPool.Close()
	os.Exit(code)
}

// cleanupTable truncates the given tables and everything that references them.
func cleanupTable(t *testing.T, tables ...string) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), "TRUNCATE "+strings.Join(tables, ", ")+" CASCADE")
	if err != nil {
		t.Fatalf("failed to cleanup tables %v: %v", tables, err)
	}
}

func cleanupAll(t *testing.T) {
	cleanupTable(t, "users", "categories", "coupons")
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func createUser(t *testing.T, email string) *model.User {
	t.Helper()
	user := &model.User{Email: email, Password: "hashed", FirstName: "Test", Role: model.RoleCustomer}
	require.NoError(t, NewUserRepository(testPool).Create(context.Background(), user))
	return user
}

func createCategory(t *testing.T, name string) *model.Category {
	t.Helper()
	c := &model.Category{Name: name, Slug: model.Slugify(name), IsActive: true}
	require.NoError(t, NewCategoryRepository(testPool).Create(context.Background(), c))
	return c
}

func createProduct(t *testing.T, categoryID uuid.UUID, name string, price string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:               name,
		Slug:               model.Slugify(name),
		CategoryID:         categoryID,
		Price:              dec(price),
		DiscountPercentage: decimal.Zero,
		Stock:              stock,
		Status:             model.DeriveStatus(model.ProductActive, stock),
	}
	require.NoError(t, NewProductRepository(testPool).Create(context.Background(), p))
	return p
}

func createAddress(t *testing.T, userID uuid.UUID, isDefault bool) *model.Address {
	t.Helper()
	a := &model.Address{
		UserID: userID, AddressType: model.AddressHome, FullName: "Asha", Phone: "9999999999",
		AddressLine1: "12 MG Road", City: "Pune", State: "MH", Pincode: "411001",
		Country: model.DefaultCountry, IsDefault: isDefault,
	}
	ctx := context.Background()
	require.NoError(t, NewTransactor(testPool).WithTx(ctx, func(tx pgx.Tx) error {
		return NewAddressRepository(testPool).Create(ctx, tx, a)
	}))
	return a
}

func createCoupon(t *testing.T, code string, limit *int) *model.Coupon {
	t.Helper()
	c := &model.Coupon{
		Code:          code,
		DiscountType:  pricing.DiscountFixed,
		DiscountValue: dec("100"),
		MinOrderValue: dec("500"),
		UsageLimit:    limit,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidTo:       time.Now().Add(24 * time.Hour),
		IsActive:      true,
	}
	require.NoError(t, NewCouponRepository(testPool).Create(context.Background(), c))
	return c
}
