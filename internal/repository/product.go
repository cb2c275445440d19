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

type ProductFilter struct {
	Limit      int
	Offset     int
	Search     string
	CategoryID uuid.NullUUID
	Status     model.ProductStatus
	Sort       string
	Order      string
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, f ProductFilter) ([]model.Product, int, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	// AdjustStock adds delta to stock. It fails with ErrInsufficientStock when the result
	// would be negative.
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*model.Product, error)
	DecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error
	RestockTx(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error
	ClearPrimaryImage(ctx context.Context, tx pgx.Tx, productID uuid.UUID) error
	AddImage(ctx context.Context, tx pgx.Tx, img *model.ProductImage) error
}

type pgProductRepo struct{ pool *pgxpool.Pool }

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &pgProductRepo{pool: pool}
}

const productColumns = `p.id, p.name, p.slug, p.description, p.category_id, p.subcategory_id, p.price,
	p.discount_percentage, p.stock, p.sku, p.brand, p.status, p.created_at, p.updated_at`

// adjustStockSQL keeps status consistent with the new stock in the same statement.
const adjustStockSQL = `UPDATE products p
	SET stock = p.stock + $2,
		status = CASE
			WHEN p.stock + $2 = 0 THEN 'OUT_OF_STOCK'
			WHEN p.status = 'OUT_OF_STOCK' THEN 'ACTIVE'
			ELSE p.status
		END,
		updated_at = NOW()
	WHERE p.id = $1 AND p.stock + $2 >= 0`

func scanProduct(row pgx.Row, p *model.Product) error {
	return row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.CategoryID, &p.SubCategoryID, &p.Price,
		&p.DiscountPercentage, &p.Stock, &p.SKU, &p.Brand, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
}

func (r *pgProductRepo) Create(ctx context.Context, product *model.Product) error {
	product.ID = uuid.New()
	query := `INSERT INTO products (id, name, slug, description, category_id, subcategory_id, price,
				discount_percentage, stock, sku, brand, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
			  RETURNING created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Slug, product.Description, product.CategoryID,
		product.SubCategoryID, product.Price, product.DiscountPercentage, product.Stock,
		product.SKU, product.Brand, product.Status,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrDuplicate
		case isForeignKeyViolation(err):
			return ErrNotFound
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	p := &model.Product{}
	err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.id = $1`, id), p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, url, alt_text, is_primary, display_order, created_at
		 FROM product_images WHERE product_id = $1 ORDER BY is_primary DESC, display_order, created_at`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get product images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img model.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.URL, &img.AltText, &img.IsPrimary, &img.DisplayOrder, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product image: %w", err)
		}
		p.Images = append(p.Images, img)
	}
	return p, rows.Err()
}

func (r *pgProductRepo) List(ctx context.Context, f ProductFilter) ([]model.Product, int, error) {
	allowedSorts := map[string]bool{"name": true, "price": true, "created_at": true}
	if !allowedSorts[f.Sort] {
		f.Sort = "created_at"
	}
	if f.Order != "asc" && f.Order != "desc" {
		f.Order = "desc"
	}

	where := `WHERE ($1 = '' OR p.name ILIKE '%' || $1 || '%' OR p.description ILIKE '%' || $1 || '%')
		AND ($2::uuid IS NULL OR p.category_id = $2)
		AND ($3 = '' OR p.status = $3)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p `+where,
		f.Search, f.CategoryID, string(f.Status),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products p %s ORDER BY p.%s %s LIMIT $4 OFFSET $5`,
		productColumns, where, f.Sort, f.Order)

	rows, err := r.pool.Query(ctx, query, f.Search, f.CategoryID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *pgProductRepo) Update(ctx context.Context, product *model.Product) error {
	query := `UPDATE products SET name=$2, slug=$3, description=$4, category_id=$5, subcategory_id=$6,
				price=$7, discount_percentage=$8, stock=$9, sku=$10, brand=$11, status=$12, updated_at=NOW()
			  WHERE id=$1 RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		product.ID, product.Name, product.Slug, product.Description, product.CategoryID,
		product.SubCategoryID, product.Price, product.DiscountPercentage, product.Stock,
		product.SKU, product.Brand, product.Status,
	).Scan(&product.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrNotFound
		case isUniqueViolation(err):
			return ErrDuplicate
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *pgProductRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrReferenced
		}
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgProductRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (*model.Product, error) {
	p := &model.Product{}
	err := scanProduct(r.pool.QueryRow(ctx, adjustStockSQL+` RETURNING `+productColumns, id, delta), p)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrInsufficientStock
}

func (r *pgProductRepo) DecrementStock(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error {
	ct, err := tx.Exec(ctx, adjustStockSQL, productID, -quantity)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", productID, ErrInsufficientStock)
	}
	return nil
}

func (r *pgProductRepo) RestockTx(ctx context.Context, tx pgx.Tx, productID uuid.UUID, quantity int) error {
	if _, err := tx.Exec(ctx, adjustStockSQL, productID, quantity); err != nil {
		return fmt.Errorf("restock: %w", err)
	}
	return nil
}

func (r *pgProductRepo) ClearPrimaryImage(ctx context.Context, tx pgx.Tx, productID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE product_images SET is_primary = FALSE WHERE product_id = $1 AND is_primary`, productID,
	)
	if err != nil {
		return fmt.Errorf("clear primary image: %w", err)
	}
	return nil
}

func (r *pgProductRepo) AddImage(ctx context.Context, tx pgx.Tx, img *model.ProductImage) error {
	img.ID = uuid.New()
	err := tx.QueryRow(ctx,
		`INSERT INTO product_images (id, product_id, url, alt_text, is_primary, display_order, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING created_at`,
		img.ID, img.ProductID, img.URL, img.AltText, img.IsPrimary, img.DisplayOrder,
	).Scan(&img.CreatedAt)
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return ErrNotFound
		case isUniqueViolation(err):
			return ErrDuplicate
		}
		return fmt.Errorf("add product image: %w", err)
	}
	return nil
}
