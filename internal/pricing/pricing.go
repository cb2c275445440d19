// Package pricing holds the side-effect free money arithmetic used by the catalog, coupons
// and checkout. All amounts are decimal; every computed field is rounded to two places
// with round-half-up.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativePrice      = errors.New("price must not be negative")
	ErrDiscountOutOfRange = errors.New("discount percentage must be between 0 and 100")
)

var hundred = decimal.NewFromInt(100)

// MoneyPlaces is the currency precision.
const MoneyPlaces = 2

// RoundMoney rounds to currency precision, half away from zero. Amounts handled here are
// never negative, so this is round-half-up.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// DiscountedPrice returns price reduced by discountPct percent.
func DiscountedPrice(price, discountPct decimal.Decimal) (decimal.Decimal, error) {
	if price.IsNegative() {
		return decimal.Zero, ErrNegativePrice
	}
	if discountPct.IsNegative() || discountPct.GreaterThan(hundred) {
		return decimal.Zero, ErrDiscountOutOfRange
	}
	return RoundMoney(price.Sub(price.Mul(discountPct).Div(hundred))), nil
}

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixed
}

// CouponTerms is the arithmetic part of a coupon. Validity (active flag, window, usage cap)
// is decided by the caller.
type CouponTerms struct {
	Type          DiscountType
	Value         decimal.Decimal
	MinOrderValue decimal.Decimal
	MaxDiscount   decimal.NullDecimal
}

// CouponDiscount returns the discount the terms grant on orderAmount. The result never
// exceeds orderAmount.
func CouponDiscount(terms CouponTerms, orderAmount decimal.Decimal) decimal.Decimal {
	if !orderAmount.IsPositive() || orderAmount.LessThan(terms.MinOrderValue) {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch terms.Type {
	case DiscountPercentage:
		discount = orderAmount.Mul(terms.Value).Div(hundred)
		if terms.MaxDiscount.Valid && discount.GreaterThan(terms.MaxDiscount.Decimal) {
			discount = terms.MaxDiscount.Decimal
		}
	case DiscountFixed:
		discount = terms.Value
	default:
		return decimal.Zero
	}

	if discount.IsNegative() {
		return decimal.Zero
	}
	return RoundMoney(decimal.Min(discount, orderAmount))
}

// Policy carries the shipping and tax parameters.
type Policy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(500),
		FlatShippingFee:       decimal.NewFromInt(50),
		TaxRate:               decimal.RequireFromString("0.18"),
	}
}

type Totals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingCharge decimal.Decimal
	TaxAmount      decimal.Decimal
	TotalAmount    decimal.Decimal
}

// OrderTotals computes the order pricing snapshot. Each field is rounded on its own and the
// total is the exact sum of the rounded fields.
func OrderTotals(subtotal, discount decimal.Decimal, p Policy) Totals {
	subtotal = RoundMoney(subtotal)
	discount = RoundMoney(decimal.Min(discount, subtotal))

	shipping := RoundMoney(p.FlatShippingFee)
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := RoundMoney(subtotal.Sub(discount).Mul(p.TaxRate))

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		ShippingCharge: shipping,
		TaxAmount:      tax,
		TotalAmount:    subtotal.Sub(discount).Add(shipping).Add(tax),
	}
}
