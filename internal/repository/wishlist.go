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

type WishlistRepository interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	// AddItem is idempotent: adding a product twice returns the existing item.
	AddItem(ctx context.Context, wishlistID, productID uuid.UUID) (*model.WishlistItem, error)
	ListItems(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error)
	// GetItem locks the item for the rest of tx. It returns nil unless the item belongs
	// to userID.
	GetItem(ctx context.Context, tx pgx.Tx, userID, itemID uuid.UUID) (*model.WishlistItem, error)
	// RemoveItem deletes the item when it belongs to userID. tx may be nil.
	RemoveItem(ctx context.Context, tx pgx.Tx, userID, itemID uuid.UUID) error
}

type pgWishlistRepo struct{ pool *pgxpool.Pool }

func NewWishlistRepository(pool *pgxpool.Pool) WishlistRepository {
	return &pgWishlistRepo{pool: pool}
}

func (r *pgWishlistRepo) GetOrCreate(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`WITH ins AS (
			INSERT INTO wishlists (id, user_id, created_at) VALUES ($1, $2, NOW())
			ON CONFLICT (user_id) DO NOTHING
			RETURNING id
		)
		SELECT id FROM ins
		UNION ALL
		SELECT id FROM wishlists WHERE user_id = $2
		LIMIT 1`,
		uuid.New(), userID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get or create wishlist: %w", err)
	}
	return id, nil
}

func (r *pgWishlistRepo) AddItem(ctx context.Context, wishlistID, productID uuid.UUID) (*model.WishlistItem, error) {
	item := &model.WishlistItem{WishlistID: wishlistID, ProductID: productID}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO wishlist_items (id, wishlist_id, product_id, added_at) VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (wishlist_id, product_id) DO UPDATE SET added_at = wishlist_items.added_at
		 RETURNING id, added_at`,
		uuid.New(), wishlistID, productID,
	).Scan(&item.ID, &item.AddedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("add wishlist item: %w", err)
	}
	return item, nil
}

func (r *pgWishlistRepo) ListItems(ctx context.Context, userID uuid.UUID) ([]model.WishlistItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT wi.id, wi.wishlist_id, wi.product_id, wi.added_at, `+productColumns+`
		 FROM wishlist_items wi
		 JOIN wishlists w ON w.id = wi.wishlist_id
		 JOIN products p ON p.id = wi.product_id
		 WHERE w.user_id = $1
		 ORDER BY wi.added_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	var items []model.WishlistItem
	for rows.Next() {
		var item model.WishlistItem
		p := &item.Product
		if err := rows.Scan(
			&item.ID, &item.WishlistID, &item.ProductID, &item.AddedAt,
			&p.ID, &p.Name, &p.Slug, &p.Description, &p.CategoryID, &p.SubCategoryID, &p.Price,
			&p.DiscountPercentage, &p.Stock, &p.SKU, &p.Brand, &p.Status, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *pgWishlistRepo) GetItem(ctx context.Context, tx pgx.Tx, userID, itemID uuid.UUID) (*model.WishlistItem, error) {
	item := &model.WishlistItem{}
	err := tx.QueryRow(ctx,
		`SELECT wi.id, wi.wishlist_id, wi.product_id, wi.added_at
		 FROM wishlist_items wi JOIN wishlists w ON w.id = wi.wishlist_id
		 WHERE wi.id = $1 AND w.user_id = $2
		 FOR UPDATE OF wi`, itemID, userID,
	).Scan(&item.ID, &item.WishlistID, &item.ProductID, &item.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wishlist item: %w", err)
	}
	return item, nil
}

func (r *pgWishlistRepo) RemoveItem(ctx context.Context, tx pgx.Tx, userID, itemID uuid.UUID) error {
	ct, err := pick(r.pool, tx).Exec(ctx,
		`DELETE FROM wishlist_items wi USING wishlists w
		 WHERE wi.id = $1 AND wi.wishlist_id = w.id AND w.user_id = $2`, itemID, userID,
	)
	if err != nil {
		return fmt.Errorf("remove wishlist item: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
