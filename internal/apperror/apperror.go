// Package apperror defines the error taxonomy surfaced to API clients.
package apperror

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindAuthorization
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuthorization:
		return "authorization"
	default:
		return "unknown"
	}
}

// Error is a client-facing error. Code is the stable machine-readable identifier; two
// errors with the same Code match under errors.Is.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	status  int
	err     error
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// HTTPStatus returns the response status for the error.
func (e *Error) HTTPStatus() int {
	if e.status != 0 {
		return e.status
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WithStatus overrides the HTTP status derived from the kind.
func (e *Error) WithStatus(status int) *Error {
	c := *e
	c.status = status
	return &c
}

// WithMessage returns a copy carrying a more specific message.
func (e *Error) WithMessage(message string) *Error {
	c := *e
	c.Message = message
	return &c
}

// Wrap returns a copy that carries cause for logging.
func (e *Error) Wrap(cause error) *Error {
	c := *e
	c.err = cause
	return &c
}

func Validation(code, message string) *Error { return New(KindValidation, code, message) }

func NotFound(code, message string) *Error { return New(KindNotFound, code, message) }

func Conflict(code, message string) *Error { return New(KindConflict, code, message) }

func Forbidden(code, message string) *Error { return New(KindAuthorization, code, message) }

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Checkout failures. Stock and coupon conflicts are reported as 400 on checkout.
var (
	ErrEmptyCart         = Validation("EmptyCart", "cart is empty")
	ErrInvalidAddress    = Validation("InvalidAddress", "shipping address is invalid")
	ErrInsufficientStock = Conflict("InsufficientStock", "insufficient stock").WithStatus(http.StatusBadRequest)
	ErrCouponExhausted   = Conflict("CouponExhausted", "coupon usage limit reached").WithStatus(http.StatusBadRequest)
	ErrInvalidStatus     = Validation("InvalidStatus", "invalid order status")
	ErrProductInactive   = Validation("ProductUnavailable", "product is not available for sale")
)

var (
	ErrValidation          = Validation("ValidationError", "invalid input")
	ErrNotFound            = NotFound("NotFound", "resource not found")
	ErrConflict            = Conflict("Conflict", "conflicting update, retry the request")
	ErrForbidden           = Forbidden("Forbidden", "access denied")
	ErrProductNotFound     = NotFound("ProductNotFound", "product not found")
	ErrCartItemNotFound    = NotFound("CartItemNotFound", "cart item not found")
	ErrAddressNotFound     = NotFound("AddressNotFound", "address not found")
	ErrCouponNotFound      = NotFound("CouponNotFound", "coupon not found")
	ErrOrderNotFound       = NotFound("OrderNotFound", "order not found")
	ErrCategoryNotFound    = NotFound("CategoryNotFound", "category not found")
	ErrWishlistNotFound    = NotFound("WishlistItemNotFound", "wishlist item not found")
	ErrAddressInUse        = Conflict("AddressInUse", "address is referenced by an order")
	ErrProductInUse        = Conflict("ProductInUse", "product is referenced by an order")
	ErrAddressRace         = Conflict("DefaultAddressConflict", "default address changed concurrently")
	ErrDuplicate           = Conflict("Duplicate", "resource already exists")
	ErrCategoryInUse       = Conflict("CategoryInUse", "category still has products")
	ErrSubCategoryNotFound = NotFound("SubCategoryNotFound", "subcategory not found")
	ErrReviewNotFound      = NotFound("ReviewNotFound", "review not found")
	ErrAlreadyReviewed     = Validation("AlreadyReviewed", "you have already reviewed this product")
)

var (
	ErrUserAlreadyExists  = Conflict("UserAlreadyExists", "user already exists")
	ErrInvalidCredentials = Validation("InvalidCredentials", "invalid email or password").WithStatus(http.StatusUnauthorized)
	ErrUserNotFound       = NotFound("UserNotFound", "user not found")
)
