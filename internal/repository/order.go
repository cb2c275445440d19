package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/apnishop-api/internal/model"
)

type OrderRepository interface {
	// Create inserts the order header. It returns ErrDuplicate when the order number is
	// already taken so the caller can pick a new one.
	Create(ctx context.Context, tx pgx.Tx, order *model.Order) error
	CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	// ListAll pages through every order, newest first. An empty status matches all.
	ListAll(ctx context.Context, status model.OrderStatus, limit, offset int) ([]model.Order, int, error)
	// UpdateStatus moves the order from one status to another and stamps the matching
	// lifecycle timestamp. It fails with ErrStaleStatus when the order is no longer in from.
	UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order, from model.OrderStatus) error
	UpdatePayment(ctx context.Context, id uuid.UUID, status model.PaymentStatus, paymentID string) error
}

type pgOrderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &pgOrderRepo{pool: pool}
}

const orderColumns = `o.id, o.order_number, o.user_id, o.shipping_address_id, o.coupon_id, o.subtotal,
	o.discount_amount, o.shipping_charge, o.tax_amount, o.total_amount, o.status, o.payment_method,
	o.payment_status, o.payment_id, o.customer_notes, o.admin_notes, o.created_at, o.updated_at,
	o.confirmed_at, o.shipped_at, o.delivered_at`

func scanOrder(row pgx.Row, o *model.Order) error {
	return row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.ShippingAddressID, &o.CouponID, &o.Subtotal,
		&o.DiscountAmount, &o.ShippingCharge, &o.TaxAmount, &o.TotalAmount, &o.Status, &o.PaymentMethod,
		&o.PaymentStatus, &o.PaymentID, &o.CustomerNotes, &o.AdminNotes, &o.CreatedAt, &o.UpdatedAt,
		&o.ConfirmedAt, &o.ShippedAt, &o.DeliveredAt,
	)
}

func (r *pgOrderRepo) Create(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	err := tx.QueryRow(ctx,
		`INSERT INTO orders (id, order_number, user_id, shipping_address_id, coupon_id, subtotal,
			discount_amount, shipping_charge, tax_amount, total_amount, status, payment_method,
			payment_status, customer_notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		 ON CONFLICT (order_number) DO NOTHING
		 RETURNING created_at, updated_at`,
		order.ID, order.OrderNumber, order.UserID, order.ShippingAddressID, order.CouponID, order.Subtotal,
		order.DiscountAmount, order.ShippingCharge, order.TaxAmount, order.TotalAmount, order.Status,
		order.PaymentMethod, order.PaymentStatus, order.CustomerNotes,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrDuplicate
		case isForeignKeyViolation(err):
			return ErrReferenced
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) CreateItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	batch := &pgx.Batch{}
	for i := range items {
		items[i].ID = uuid.New()
		batch.Queue(
			`INSERT INTO order_items (id, order_id, product_id, product_name, price, quantity, total, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`,
			items[i].ID, items[i].OrderID, items[i].ProductID, items[i].ProductName,
			items[i].Price, items[i].Quantity, items[i].Total,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order := &model.Order{}
	if err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id), order); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, order_id, product_id, product_name, price, quantity, total, created_at
		 FROM order_items WHERE order_id = $1 ORDER BY product_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	order.Items, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.OrderItem, error) {
		var item model.OrderItem
		err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Price, &item.Quantity, &item.Total, &item.CreatedAt)
		return item, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan order item: %w", err)
	}

	addr := &model.Address{}
	err = scanAddress(r.pool.QueryRow(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1`, order.ShippingAddressID,
	), addr)
	if err != nil {
		return nil, fmt.Errorf("get order address: %w", err)
	}
	order.ShippingAddress = addr
	return order, nil
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.user_id = $1 ORDER BY o.created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *pgOrderRepo) ListAll(ctx context.Context, status model.OrderStatus, limit, offset int) ([]model.Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE ($1 = '' OR status = $1)`, string(status),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE ($1 = '' OR o.status = $1)
		 ORDER BY o.created_at DESC LIMIT $2 OFFSET $3`, string(status), limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	orders, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func collectOrders(rows pgx.Rows) ([]model.Order, error) {
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Order, error) {
		var o model.Order
		err := scanOrder(row, &o)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return orders, nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, order *model.Order, from model.OrderStatus) error {
	err := tx.QueryRow(ctx,
		`UPDATE orders SET
			status = $3,
			admin_notes = CASE WHEN $4 = '' THEN admin_notes ELSE $4 END,
			confirmed_at = CASE WHEN $3 = 'CONFIRMED' THEN NOW() ELSE confirmed_at END,
			shipped_at = CASE WHEN $3 = 'SHIPPED' THEN NOW() ELSE shipped_at END,
			delivered_at = CASE WHEN $3 = 'DELIVERED' THEN NOW() ELSE delivered_at END,
			updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING admin_notes, updated_at, confirmed_at, shipped_at, delivered_at`,
		order.ID, from, order.Status, order.AdminNotes,
	).Scan(&order.AdminNotes, &order.UpdatedAt, &order.ConfirmedAt, &order.ShippedAt, &order.DeliveredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStaleStatus
		}
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) UpdatePayment(ctx context.Context, id uuid.UUID, status model.PaymentStatus, paymentID string) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE orders SET payment_status = $2,
			payment_id = CASE WHEN $3 = '' THEN payment_id ELSE $3 END,
			updated_at = NOW()
		 WHERE id = $1`,
		id, status, paymentID,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
