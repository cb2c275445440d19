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

type CategoryRepository interface {
	List(ctx context.Context, activeOnly bool) ([]model.Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	// Update fails with ErrNotFound for an unknown id and ErrDuplicate on a name or slug clash.
	Update(ctx context.Context, c *model.Category) error
	// Delete removes the category and its subcategories. It fails with ErrReferenced while
	// products still belong to the category.
	Delete(ctx context.Context, id uuid.UUID) error
	CreateSubCategory(ctx context.Context, sc *model.SubCategory) error
	GetSubCategory(ctx context.Context, id uuid.UUID) (*model.SubCategory, error)
	UpdateSubCategory(ctx context.Context, sc *model.SubCategory) error
	// DeleteSubCategory detaches products from the subcategory before it goes.
	DeleteSubCategory(ctx context.Context, id uuid.UUID) error
	// EnsureCategory inserts c unless a category with the same name exists. c.ID is set to
	// the stored row's id either way.
	EnsureCategory(ctx context.Context, tx pgx.Tx, c *model.Category) (bool, error)
	EnsureSubCategory(ctx context.Context, tx pgx.Tx, sc *model.SubCategory) (bool, error)
}

type pgCategoryRepo struct{ pool *pgxpool.Pool }

func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &pgCategoryRepo{pool: pool}
}

func (r *pgCategoryRepo) List(ctx context.Context, activeOnly bool) ([]model.Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, slug, description, is_active, created_at, updated_at
		 FROM categories WHERE (NOT $1 OR is_active) ORDER BY name`, activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Category, error) {
		var c model.Category
		err := row.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan category: %w", err)
	}

	subs, err := r.listSubCategories(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		categories[i].SubCategories = subs[categories[i].ID]
	}
	return categories, nil
}

func (r *pgCategoryRepo) listSubCategories(ctx context.Context, activeOnly bool) (map[uuid.UUID][]model.SubCategory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category_id, name, slug, description, is_active, created_at, updated_at
		 FROM subcategories WHERE (NOT $1 OR is_active) ORDER BY name`, activeOnly,
	)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]model.SubCategory)
	for rows.Next() {
		var sc model.SubCategory
		if err := rows.Scan(&sc.ID, &sc.CategoryID, &sc.Name, &sc.Slug, &sc.Description, &sc.IsActive, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		out[sc.CategoryID] = append(out[sc.CategoryID], sc)
	}
	return out, rows.Err()
}

func (r *pgCategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Category, error) {
	c := &model.Category{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, description, is_active, created_at, updated_at FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get category: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, category_id, name, slug, description, is_active, created_at, updated_at
		 FROM subcategories WHERE category_id = $1 ORDER BY name`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("get subcategories: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sc model.SubCategory
		if err := rows.Scan(&sc.ID, &sc.CategoryID, &sc.Name, &sc.Slug, &sc.Description, &sc.IsActive, &sc.CreatedAt, &sc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		c.SubCategories = append(c.SubCategories, sc)
	}
	return c, rows.Err()
}

func (r *pgCategoryRepo) Create(ctx context.Context, c *model.Category) error {
	c.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (id, name, slug, description, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Slug, c.Description, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *pgCategoryRepo) CreateSubCategory(ctx context.Context, sc *model.SubCategory) error {
	sc.ID = uuid.New()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO subcategories (id, category_id, name, slug, description, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW()) RETURNING created_at, updated_at`,
		sc.ID, sc.CategoryID, sc.Name, sc.Slug, sc.Description, sc.IsActive,
	).Scan(&sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return ErrDuplicate
		case isForeignKeyViolation(err):
			return ErrNotFound
		}
		return fmt.Errorf("create subcategory: %w", err)
	}
	return nil
}

func (r *pgCategoryRepo) Update(ctx context.Context, c *model.Category) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE categories SET name = $2, slug = $3, description = $4, is_active = $5, updated_at = NOW()
		 WHERE id = $1 RETURNING created_at, updated_at`,
		c.ID, c.Name, c.Slug, c.Description, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrNotFound
		case isUniqueViolation(err):
			return ErrDuplicate
		}
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

func (r *pgCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrReferenced
		}
		return fmt.Errorf("delete category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgCategoryRepo) UpdateSubCategory(ctx context.Context, sc *model.SubCategory) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE subcategories SET name = $2, slug = $3, description = $4, is_active = $5, updated_at = NOW()
		 WHERE id = $1 RETURNING category_id, created_at, updated_at`,
		sc.ID, sc.Name, sc.Slug, sc.Description, sc.IsActive,
	).Scan(&sc.CategoryID, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return ErrNotFound
		case isUniqueViolation(err):
			return ErrDuplicate
		}
		return fmt.Errorf("update subcategory: %w", err)
	}
	return nil
}

func (r *pgCategoryRepo) DeleteSubCategory(ctx context.Context, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM subcategories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSubCategory returns nil when no subcategory has id.
func (r *pgCategoryRepo) GetSubCategory(ctx context.Context, id uuid.UUID) (*model.SubCategory, error) {
	sc := &model.SubCategory{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, category_id, name, slug, description, is_active, created_at, updated_at
		 FROM subcategories WHERE id = $1`, id,
	).Scan(&sc.ID, &sc.CategoryID, &sc.Name, &sc.Slug, &sc.Description, &sc.IsActive, &sc.CreatedAt, &sc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get subcategory: %w", err)
	}
	return sc, nil
}

func (r *pgCategoryRepo) EnsureCategory(ctx context.Context, tx pgx.Tx, c *model.Category) (bool, error) {
	id := uuid.New()
	var created bool
	err := tx.QueryRow(ctx,
		`INSERT INTO categories (id, name, slug, description, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		 ON CONFLICT (name) DO NOTHING
		 RETURNING id`,
		id, c.Name, c.Slug, c.Description,
	).Scan(&c.ID)
	switch {
	case err == nil:
		created = true
	case errors.Is(err, pgx.ErrNoRows):
		if err := tx.QueryRow(ctx, `SELECT id FROM categories WHERE name = $1`, c.Name).Scan(&c.ID); err != nil {
			return false, fmt.Errorf("find category %q: %w", c.Name, err)
		}
	default:
		return false, fmt.Errorf("ensure category %q: %w", c.Name, err)
	}
	return created, nil
}

func (r *pgCategoryRepo) EnsureSubCategory(ctx context.Context, tx pgx.Tx, sc *model.SubCategory) (bool, error) {
	id := uuid.New()
	var created bool
	err := tx.QueryRow(ctx,
		`INSERT INTO subcategories (id, category_id, name, slug, description, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, TRUE, NOW(), NOW())
		 ON CONFLICT (category_id, name) DO NOTHING
		 RETURNING id`,
		id, sc.CategoryID, sc.Name, sc.Slug, sc.Description,
	).Scan(&sc.ID)
	switch {
	case err == nil:
		created = true
	case errors.Is(err, pgx.ErrNoRows):
		if err := tx.QueryRow(ctx,
			`SELECT id FROM subcategories WHERE category_id = $1 AND name = $2`, sc.CategoryID, sc.Name,
		).Scan(&sc.ID); err != nil {
			return false, fmt.Errorf("find subcategory %q: %w", sc.Name, err)
		}
	default:
		return false, fmt.Errorf("ensure subcategory %q: %w", sc.Name, err)
	}
	return created, nil
}
