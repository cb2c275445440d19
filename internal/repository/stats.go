package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flicky/apnishop-api/internal/model"
)

type StatsRepository interface {
	Dashboard(ctx context.Context, lowStockBelow int) (*model.Stats, error)
}

type pgStatsRepo struct{ pool *pgxpool.Pool }

func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &pgStatsRepo{pool: pool}
}

// Dashboard counts revenue over orders that were neither cancelled nor returned.
func (r *pgStatsRepo) Dashboard(ctx context.Context, lowStockBelow int) (*model.Stats, error) {
	s := &model.Stats{}
	err := r.pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM users),
		(SELECT COUNT(*) FROM products),
		(SELECT COUNT(*) FROM orders),
		(SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE status NOT IN ('CANCELLED', 'RETURNED')),
		(SELECT COUNT(*) FROM orders WHERE created_at >= NOW() - INTERVAL '7 days'),
		(SELECT COUNT(*) FROM products WHERE stock < $1)`, lowStockBelow,
	).Scan(&s.TotalUsers, &s.TotalProducts, &s.TotalOrders, &s.TotalRevenue, &s.RecentOrders7d, &s.LowStockProducts)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return s, nil
}
