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

type CartRepository interface {
	GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error)
	// GetCartWithItems loads the items joined with the current product rows.
	GetCartWithItems(ctx context.Context, cartID uuid.UUID) (*model.Cart, error)
	// LockCart locks the user's cart row for the rest of tx and returns it with items.
	// It returns nil when the user has no cart.
	LockCart(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.Cart, error)
	// AddItem creates the line or increments its quantity. tx may be nil.
	AddItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error
	// ClearCart removes every line of the cart. tx may be nil.
	ClearCart(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error
	// RemoveOrderedLines takes the ordered quantities out of the cart. A line whose
	// quantity grew after it was read keeps the difference, and lines added since are kept.
	RemoveOrderedLines(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, lines []model.CartItem) error
}

type pgCartRepo struct{ pool *pgxpool.Pool }

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &pgCartRepo{pool: pool}
}

func (r *pgCartRepo) GetOrCreateCart(ctx context.Context, userID uuid.UUID) (*model.Cart, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO carts (id, user_id, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())
		 ON CONFLICT (user_id) DO NOTHING`,
		uuid.New(), userID,
	)
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}

	cart := &model.Cart{}
	err = r.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

func (r *pgCartRepo) GetCartWithItems(ctx context.Context, cartID uuid.UUID) (*model.Cart, error) {
	cart := &model.Cart{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE id = $1`, cartID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	cart.Items, err = loadCartItems(ctx, r.pool, cart.ID)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (r *pgCartRepo) LockCart(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.Cart, error) {
	cart := &model.Cart{}
	err := tx.QueryRow(ctx,
		`SELECT id, user_id, created_at, updated_at FROM carts WHERE user_id = $1 FOR UPDATE`, userID,
	).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt, &cart.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}

	cart.Items, err = loadCartItems(ctx, tx, cart.ID)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// loadCartItems orders by product id so that callers touching product rows in item order
// always lock them in the same sequence.
func loadCartItems(ctx context.Context, q querier, cartID uuid.UUID) ([]model.CartItem, error) {
	rows, err := q.Query(ctx,
		`SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at, `+productColumns+`
		 FROM cart_items ci JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.product_id`, cartID,
	)
	if err != nil {
		return nil, fmt.Errorf("get cart items: %w", err)
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var item model.CartItem
		p := &item.Product
		if err := rows.Scan(
			&item.ID, &item.CartID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&p.ID, &p.Name, &p.Slug, &p.Description, &p.CategoryID, &p.SubCategoryID, &p.Price,
			&p.DiscountPercentage, &p.Stock, &p.SKU, &p.Brand, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *pgCartRepo) AddItem(ctx context.Context, tx pgx.Tx, item *model.CartItem) error {
	item.ID = uuid.New()
	query := `INSERT INTO cart_items (id, cart_id, product_id, quantity, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, NOW(), NOW())
			  ON CONFLICT (cart_id, product_id) DO UPDATE SET quantity = cart_items.quantity + $4, updated_at = NOW()
			  RETURNING id, quantity, created_at, updated_at`
	err := pick(r.pool, tx).QueryRow(ctx, query, item.ID, item.CartID, item.ProductID, item.Quantity).
		Scan(&item.ID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

func (r *pgCartRepo) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	ct, err := r.pool.Exec(ctx,
		`UPDATE cart_items ci SET quantity = $3, updated_at = NOW()
		 FROM carts c
		 WHERE ci.id = $2 AND ci.cart_id = c.id AND c.user_id = $1`,
		userID, itemID, quantity,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgCartRepo) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) error {
	ct, err := r.pool.Exec(ctx,
		`DELETE FROM cart_items ci USING carts c
		 WHERE ci.id = $2 AND ci.cart_id = c.id AND c.user_id = $1`,
		userID, itemID,
	)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgCartRepo) ClearCart(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	_, err := pick(r.pool, tx).Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (r *pgCartRepo) RemoveOrderedLines(ctx context.Context, tx pgx.Tx, cartID uuid.UUID, lines []model.CartItem) error {
	if len(lines) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, len(lines))
	qtys := make([]int32, len(lines))
	for i, line := range lines {
		ids[i], qtys[i] = line.ID, int32(line.Quantity)
	}

	q := pick(r.pool, tx)
	if _, err := q.Exec(ctx,
		`DELETE FROM cart_items ci
		 USING unnest($2::uuid[], $3::int[]) AS o(id, qty)
		 WHERE ci.cart_id = $1 AND ci.id = o.id AND ci.quantity <= o.qty`,
		cartID, ids, qtys,
	); err != nil {
		return fmt.Errorf("remove ordered cart lines: %w", err)
	}
	if _, err := q.Exec(ctx,
		`UPDATE cart_items ci SET quantity = ci.quantity - o.qty, updated_at = NOW()
		 FROM unnest($2::uuid[], $3::int[]) AS o(id, qty)
		 WHERE ci.cart_id = $1 AND ci.id = o.id AND ci.quantity > o.qty`,
		cartID, ids, qtys,
	); err != nil {
		return fmt.Errorf("reduce ordered cart lines: %w", err)
	}
	return nil
}
