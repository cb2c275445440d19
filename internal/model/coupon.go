package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/apnishop-api/internal/pricing"
)

type Coupon struct {
	ID            uuid.UUID
	Code          string
	Description   string
	DiscountType  pricing.DiscountType
	DiscountValue decimal.Decimal
	MinOrderValue decimal.Decimal
	MaxDiscount   decimal.NullDecimal
	UsageLimit    *int
	UsedCount     int
	ValidFrom     time.Time
	ValidTo       time.Time
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsValid reports whether the coupon can be redeemed at now.
func (c *Coupon) IsValid(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidTo) {
		return false
	}
	return c.UsageLimit == nil || c.UsedCount < *c.UsageLimit
}

func (c *Coupon) Terms() pricing.CouponTerms {
	return pricing.CouponTerms{
		Type:          c.DiscountType,
		Value:         c.DiscountValue,
		MinOrderValue: c.MinOrderValue,
		MaxDiscount:   c.MaxDiscount,
	}
}

// Discount returns the discount on orderAmount, or zero when the coupon is not valid at now.
func (c *Coupon) Discount(orderAmount decimal.Decimal, now time.Time) decimal.Decimal {
	if !c.IsValid(now) {
		return decimal.Zero
	}
	return pricing.CouponDiscount(c.Terms(), orderAmount)
}
