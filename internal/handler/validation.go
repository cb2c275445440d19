package handler

import (
	"fmt"
	"reflect"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/flicky/apnishop-api/internal/model"
)

// RegisterValidators adds the domain tags used in dto binding rules to gin's validator.
// It must run before the router serves requests.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	// Decimals are validated through their string form.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	rules := map[string]validator.Func{
		"decimal_gte0": decimalRule(func(d decimal.Decimal) bool { return !d.IsNegative() }),
		"decimal_gt0":  decimalRule(func(d decimal.Decimal) bool { return d.IsPositive() }),
		"decimal_pct": decimalRule(func(d decimal.Decimal) bool {
			return !d.IsNegative() && d.LessThanOrEqual(decimal.NewFromInt(100))
		}),
		"payment_method": func(fl validator.FieldLevel) bool {
			return model.PaymentMethod(fl.Field().String()).Valid()
		},
		"payment_status": func(fl validator.FieldLevel) bool {
			return model.PaymentStatus(fl.Field().String()).Valid()
		},
		"order_status": func(fl validator.FieldLevel) bool {
			return model.OrderStatus(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

func decimalRule(ok func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return ok(d)
	}
}
