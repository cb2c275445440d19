package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/flicky/apnishop-api/internal/apperror"
	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/pricing"
	"github.com/flicky/apnishop-api/internal/repository"
)

// orderNumberAttempts bounds how many fresh order numbers checkout tries before giving up.
const orderNumberAttempts = 5

const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// orderNumberCutoff is the largest multiple of len(orderNumberAlphabet) not above 256.
const orderNumberCutoff = 256 / len(orderNumberAlphabet) * len(orderNumberAlphabet)

// EventPublisher delivers order events to the notification pipeline.
type EventPublisher interface {
	Publish(ctx context.Context, event model.OrderEvent) error
}

type CheckoutInput struct {
	ShippingAddressID uuid.UUID
	PaymentMethod     model.PaymentMethod
	CouponCode        string
	CustomerNotes     string
}

type OrderRepos struct {
	Orders   repository.OrderRepository
	Carts    repository.CartRepository
	Products repository.ProductRepository
	Address  repository.AddressRepository
	Coupons  repository.CouponRepository
}

type OrderOptions struct {
	Policy pricing.Policy
	// MaxAttempts is how many times a checkout transaction runs when the database reports
	// a serialization failure or deadlock.
	MaxAttempts int
	Timeout     time.Duration
}

type OrderService struct {
	repos     OrderRepos
	tx        repository.Transactor
	publisher EventPublisher
	opts      OrderOptions
	log       *slog.Logger
	now       func() time.Time
}

func NewOrderService(repos OrderRepos, tx repository.Transactor, publisher EventPublisher, opts OrderOptions, log *slog.Logger) *OrderService {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &OrderService{repos: repos, tx: tx, publisher: publisher, opts: opts, log: log, now: time.Now}
}

// Checkout turns the user's cart into an order. Everything from reading the cart to clearing
// it happens in one transaction, so a failure at any step leaves cart, stock and coupon
// usage untouched.
func (s *OrderService) Checkout(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*model.Order, error) {
	if !in.PaymentMethod.Valid() {
		return nil, apperror.ErrValidation.WithMessage("unsupported payment method")
	}

	txCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	var (
		order *model.Order
		err   error
	)
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		order, err = s.checkout(txCtx, userID, in)
		if err == nil || !repository.IsRetryable(err) {
			break
		}
		s.log.Warn("checkout transaction conflict", "user_id", userID, "attempt", attempt, "error", err)
	}
	if err != nil {
		return nil, checkoutError(err)
	}

	s.log.Info("order placed",
		"order_id", order.ID, "order_number", order.OrderNumber, "user_id", userID, "total", order.TotalAmount.String())
	s.publish(ctx, model.EventOrderPlaced, order)
	return order, nil
}

func (s *OrderService) checkout(ctx context.Context, userID uuid.UUID, in CheckoutInput) (*model.Order, error) {
	var order *model.Order
	err := s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		cart, err := s.repos.Carts.LockCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		if cart == nil || len(cart.Items) == 0 {
			return apperror.ErrEmptyCart
		}

		address, err := s.repos.Address.GetByID(ctx, tx, userID, in.ShippingAddressID)
		if err != nil {
			return err
		}
		if address == nil {
			return apperror.ErrInvalidAddress
		}

		items := make([]model.OrderItem, 0, len(cart.Items))
		subtotal := decimal.Zero
		for _, ci := range cart.Items {
			if !ci.Product.Purchasable() {
				return apperror.ErrProductInactive.WithMessage(ci.Product.Name + " is no longer available")
			}
			item := model.NewOrderItem(&ci.Product, ci.Quantity)
			subtotal = subtotal.Add(item.Total)
			items = append(items, item)
		}

		now := s.now()
		coupon, discount, err := s.applicableCoupon(ctx, tx, in.CouponCode, subtotal, now)
		if err != nil {
			return err
		}

		order = &model.Order{
			UserID:            userID,
			ShippingAddressID: address.ID,
			Status:            model.OrderStatusPending,
			PaymentMethod:     in.PaymentMethod,
			PaymentStatus:     model.PaymentPending,
			CustomerNotes:     in.CustomerNotes,
			ShippingAddress:   address,
		}
		if coupon != nil {
			order.CouponID = uuid.NullUUID{UUID: coupon.ID, Valid: true}
		}
		order.ApplyTotals(pricing.OrderTotals(subtotal, discount, s.opts.Policy))

		if err := s.insertOrder(ctx, tx, order, now); err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
			if err := s.repos.Products.DecrementStock(ctx, tx, items[i].ProductID, items[i].Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return apperror.ErrInsufficientStock.WithMessage("insufficient stock for " + items[i].ProductName)
				}
				return err
			}
		}
		if err := s.repos.Orders.CreateItems(ctx, tx, items); err != nil {
			return err
		}
		order.Items = items

		if coupon != nil {
			if err := s.repos.Coupons.IncrementUsage(ctx, tx, coupon.ID); err != nil {
				if errors.Is(err, repository.ErrCouponExhausted) {
					return apperror.ErrCouponExhausted
				}
				return err
			}
		}

		return s.repos.Carts.RemoveOrderedLines(ctx, tx, cart.ID, cart.Items)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// applicableCoupon looks up code and returns the coupon with its discount when it applies
// to subtotal. Unknown, invalid or inapplicable codes yield no coupon and zero discount.
func (s *OrderService) applicableCoupon(ctx context.Context, tx pgx.Tx, code string, subtotal decimal.Decimal, now time.Time) (*model.Coupon, decimal.Decimal, error) {
	if code == "" {
		return nil, decimal.Zero, nil
	}
	coupon, err := s.repos.Coupons.GetByCode(ctx, tx, code)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if coupon == nil {
		s.log.Info("checkout coupon not found, ignoring", "code", code)
		return nil, decimal.Zero, nil
	}
	discount := coupon.Discount(subtotal, now)
	if !discount.IsPositive() {
		s.log.Info("checkout coupon does not apply, ignoring", "code", coupon.Code)
		return nil, decimal.Zero, nil
	}
	return coupon, discount, nil
}

// insertOrder assigns a fresh order number and inserts the order, drawing a new number
// when the previous one is already taken.
func (s *OrderService) insertOrder(ctx context.Context, tx pgx.Tx, order *model.Order, now time.Time) error {
	for range orderNumberAttempts {
		number, err := NewOrderNumber(now)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		err = s.repos.Orders.Create(ctx, tx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		s.log.Warn("order number collision", "order_number", number)
	}
	return fmt.Errorf("no free order number after %d attempts", orderNumberAttempts)
}

// NewOrderNumber returns ORD-<YYYYMMDDHHMMSS>-<6 random characters>.
func NewOrderNumber(now time.Time) (string, error) {
	return newOrderNumber(now, rand.Reader)
}

func newOrderNumber(now time.Time, random io.Reader) (string, error) {
	const suffixLen = 6
	suffix := make([]byte, 0, suffixLen)
	for len(suffix) < suffixLen {
		buf := make([]byte, suffixLen-len(suffix))
		if _, err := io.ReadFull(random, buf); err != nil {
			return "", fmt.Errorf("order number suffix: %w", err)
		}
		for _, b := range buf {
			// Bytes at or above the cutoff would favour the first characters.
			if int(b) < orderNumberCutoff {
				suffix = append(suffix, orderNumberAlphabet[int(b)%len(orderNumberAlphabet)])
			}
		}
	}
	return "ORD-" + now.UTC().Format("20060102150405") + "-" + string(suffix), nil
}

func checkoutError(err error) error {
	if _, ok := apperror.As(err); ok {
		return err
	}
	switch {
	case repository.IsRetryable(err):
		return apperror.ErrConflict.Wrap(err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("checkout timed out: %w", err)
	}
	return fmt.Errorf("checkout: %w", err)
}

// Get returns an order to its owner or to an admin. Other users get not found.
func (s *OrderService) Get(ctx context.Context, userID uuid.UUID, isAdmin bool, orderID uuid.UUID) (*model.Order, error) {
	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || (!isAdmin && order.UserID != userID) {
		return nil, apperror.ErrOrderNotFound
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	orders, err := s.repos.Orders.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) ListAll(ctx context.Context, status model.OrderStatus, page, limit int) ([]model.Order, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, apperror.ErrInvalidStatus
	}
	orders, total, err := s.repos.Orders.ListAll(ctx, status, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list all orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus moves an order along its lifecycle. Cancelled and returned orders put their
// items back in stock in the same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus, adminNotes string) (*model.Order, error) {
	if !status.Valid() {
		return nil, apperror.ErrInvalidStatus
	}

	order, err := s.repos.Orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, apperror.ErrOrderNotFound
	}
	from := order.Status
	if !from.CanTransitionTo(status) {
		return nil, apperror.ErrInvalidStatus.WithMessage(fmt.Sprintf("cannot move order from %s to %s", from, status))
	}

	order.Status = status
	order.AdminNotes = adminNotes
	err = s.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.repos.Orders.UpdateStatus(ctx, tx, order, from); err != nil {
			return err
		}
		if !status.ReleasesStock() {
			return nil
		}
		for _, item := range order.Items {
			if err := s.repos.Products.RestockTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, apperror.ErrConflict.WithMessage("order status changed concurrently, retry the request")
		}
		return nil, fmt.Errorf("update order status: %w", err)
	}
	s.log.Info("order status updated", "order_id", order.ID, "from", from, "to", status)

	switch status {
	case model.OrderStatusShipped:
		s.publish(ctx, model.EventOrderShipped, order)
	case model.OrderStatusDelivered:
		s.publish(ctx, model.EventOrderDelivered, order)
	}
	return order, nil
}

func (s *OrderService) UpdatePayment(ctx context.Context, orderID uuid.UUID, status model.PaymentStatus, paymentID string) (*model.Order, error) {
	if !status.Valid() {
		return nil, apperror.ErrValidation.WithMessage("invalid payment status")
	}
	if err := s.repos.Orders.UpdatePayment(ctx, orderID, status, paymentID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrOrderNotFound
		}
		return nil, fmt.Errorf("update payment: %w", err)
	}
	s.log.Info("order payment updated", "order_id", orderID, "payment_status", status)
	return s.Get(ctx, uuid.Nil, true, orderID)
}

// publish is best-effort: a committed order stays committed whatever happens here.
func (s *OrderService) publish(ctx context.Context, eventType string, order *model.Order) {
	if s.publisher == nil {
		return
	}
	event := model.OrderEvent{
		EventID:     uuid.New(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		OccurredAt:  s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Error("publish order event", "type", eventType, "order_id", order.ID, "error", err)
	}
}
