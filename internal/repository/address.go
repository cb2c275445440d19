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

type AddressRepository interface {
	Create(ctx context.Context, tx pgx.Tx, a *model.Address) error
	// GetByID returns the address only if it belongs to userID. tx may be nil.
	GetByID(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*model.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Address, error)
	CountByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error)
	Update(ctx context.Context, a *model.Address) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	ClearDefault(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error
	SetDefault(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) error
}

type pgAddressRepo struct{ pool *pgxpool.Pool }

func NewAddressRepository(pool *pgxpool.Pool) AddressRepository {
	return &pgAddressRepo{pool: pool}
}

const addressColumns = `id, user_id, address_type, full_name, phone, address_line1, address_line2,
	city, state, pincode, country, is_default, created_at, updated_at`

func scanAddress(row pgx.Row, a *model.Address) error {
	return row.Scan(
		&a.ID, &a.UserID, &a.AddressType, &a.FullName, &a.Phone, &a.AddressLine1, &a.AddressLine2,
		&a.City, &a.State, &a.Pincode, &a.Country, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt,
	)
}

func (r *pgAddressRepo) Create(ctx context.Context, tx pgx.Tx, a *model.Address) error {
	a.ID = uuid.New()
	err := tx.QueryRow(ctx,
		`INSERT INTO addresses (id, user_id, address_type, full_name, phone, address_line1, address_line2,
			city, state, pincode, country, is_default, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		 RETURNING created_at, updated_at`,
		a.ID, a.UserID, a.AddressType, a.FullName, a.Phone, a.AddressLine1, a.AddressLine2,
		a.City, a.State, a.Pincode, a.Country, a.IsDefault,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create address: %w", err)
	}
	return nil
}

func (r *pgAddressRepo) GetByID(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) (*model.Address, error) {
	a := &model.Address{}
	err := scanAddress(pick(r.pool, tx).QueryRow(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND user_id = $2`, id, userID,
	), a)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	return a, nil
}

func (r *pgAddressRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Address, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	addresses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Address, error) {
		var a model.Address
		err := scanAddress(row, &a)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan address: %w", err)
	}
	return addresses, nil
}

func (r *pgAddressRepo) CountByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	var n int
	if err := pick(r.pool, tx).QueryRow(ctx,
		`SELECT COUNT(*) FROM addresses WHERE user_id = $1`, userID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count addresses: %w", err)
	}
	return n, nil
}

func (r *pgAddressRepo) Update(ctx context.Context, a *model.Address) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE addresses SET address_type=$3, full_name=$4, phone=$5, address_line1=$6, address_line2=$7,
			city=$8, state=$9, pincode=$10, country=$11, updated_at=NOW()
		 WHERE id=$1 AND user_id=$2 RETURNING is_default, created_at, updated_at`,
		a.ID, a.UserID, a.AddressType, a.FullName, a.Phone, a.AddressLine1, a.AddressLine2,
		a.City, a.State, a.Pincode, a.Country,
	).Scan(&a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update address: %w", err)
	}
	return nil
}

func (r *pgAddressRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM addresses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrReferenced
		}
		return fmt.Errorf("delete address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgAddressRepo) ClearDefault(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(ctx,
		`UPDATE addresses SET is_default = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_default`, userID,
	)
	if err != nil {
		return fmt.Errorf("clear default address: %w", err)
	}
	return nil
}

func (r *pgAddressRepo) SetDefault(ctx context.Context, tx pgx.Tx, userID, id uuid.UUID) error {
	ct, err := tx.Exec(ctx,
		`UPDATE addresses SET is_default = TRUE, updated_at = NOW() WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("set default address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
