package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/flicky/apnishop-api/internal/apperror"
	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/pricing"
	"github.com/flicky/apnishop-api/internal/repository"
)

type CouponService struct {
	couponRepo repository.CouponRepository
	now        func() time.Time
}

func NewCouponService(couponRepo repository.CouponRepository) *CouponService {
	return &CouponService{couponRepo: couponRepo, now: time.Now}
}

// Validate previews the discount code would give on orderAmount. It never changes usage.
// An unknown code is an error; a known code that does not apply is valid=false.
func (s *CouponService) Validate(ctx context.Context, code string, orderAmount decimal.Decimal) (bool, decimal.Decimal, error) {
	if orderAmount.IsNegative() {
		return false, decimal.Zero, apperror.ErrValidation.WithMessage("order amount must not be negative")
	}
	coupon, err := s.couponRepo.GetByCode(ctx, nil, code)
	if err != nil {
		return false, decimal.Zero, fmt.Errorf("get coupon: %w", err)
	}
	if coupon == nil {
		return false, decimal.Zero, apperror.ErrCouponNotFound
	}

	now := s.now()
	if !coupon.IsValid(now) {
		return false, decimal.Zero, nil
	}
	return true, coupon.Discount(orderAmount, now), nil
}

// checkCoupon normalizes the code and rejects terms the coupons table would refuse.
func checkCoupon(c *model.Coupon) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	switch {
	case c.Code == "":
		return apperror.ErrValidation.WithMessage("code is required")
	case !c.DiscountType.Valid():
		return apperror.ErrValidation.WithMessage("discount_type must be PERCENTAGE or FIXED")
	case !c.DiscountValue.IsPositive():
		return apperror.ErrValidation.WithMessage("discount_value must be positive")
	case c.DiscountType == pricing.DiscountPercentage && c.DiscountValue.GreaterThan(decimal.NewFromInt(100)):
		return apperror.ErrValidation.WithMessage("percentage discount cannot exceed 100")
	case c.MinOrderValue.IsNegative():
		return apperror.ErrValidation.WithMessage("min_order_value must not be negative")
	case c.MaxDiscount.Valid && c.MaxDiscount.Decimal.IsNegative():
		return apperror.ErrValidation.WithMessage("max_discount must not be negative")
	case c.UsageLimit != nil && *c.UsageLimit < 1:
		return apperror.ErrValidation.WithMessage("usage_limit must be at least 1")
	case !c.ValidTo.After(c.ValidFrom):
		return apperror.ErrValidation.WithMessage("valid_to must be after valid_from")
	}
	return nil
}

func (s *CouponService) Create(ctx context.Context, c *model.Coupon) (*model.Coupon, error) {
	if err := checkCoupon(c); err != nil {
		return nil, err
	}
	if err := s.couponRepo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperror.ErrDuplicate.WithMessage("coupon code already exists")
		}
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	return c, nil
}

// Update replaces the terms of coupon id with c. The redemption count is kept, and a
// usage limit below it is rejected.
func (s *CouponService) Update(ctx context.Context, id uuid.UUID, c *model.Coupon) (*model.Coupon, error) {
	if err := checkCoupon(c); err != nil {
		return nil, err
	}
	current, err := s.couponRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	if current == nil {
		return nil, apperror.ErrCouponNotFound
	}
	if c.UsageLimit != nil && *c.UsageLimit < current.UsedCount {
		return nil, apperror.ErrValidation.WithMessage(
			fmt.Sprintf("usage_limit cannot be below the %d redemptions already made", current.UsedCount))
	}

	c.ID = id
	if err := s.couponRepo.Update(ctx, c); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, apperror.ErrCouponNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, apperror.ErrDuplicate.WithMessage("coupon code already exists")
		case errors.Is(err, repository.ErrInvalid):
			// Usage grew between the read and the write.
			return nil, apperror.ErrValidation.WithMessage("usage_limit cannot be below the redemptions already made")
		}
		return nil, fmt.Errorf("update coupon: %w", err)
	}
	return c, nil
}

// Deactivate stops a coupon from being redeemed. Orders that used it are unaffected.
func (s *CouponService) Deactivate(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	c, err := s.couponRepo.Deactivate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrCouponNotFound
		}
		return nil, fmt.Errorf("deactivate coupon: %w", err)
	}
	return c, nil
}

func (s *CouponService) List(ctx context.Context) ([]model.Coupon, error) {
	coupons, err := s.couponRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}
