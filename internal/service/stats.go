package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flicky/apnishop-api/internal/model"
	"github.com/flicky/apnishop-api/internal/repository"
)

const (
	statsCacheKey = "admin:stats"
	statsCacheTTL = 30 * time.Second
)

type StatsService struct {
	statsRepo   repository.StatsRepository
	redisClient *redis.Client
}

func NewStatsService(statsRepo repository.StatsRepository, redisClient *redis.Client) *StatsService {
	return &StatsService{statsRepo: statsRepo, redisClient: redisClient}
}

func (s *StatsService) Dashboard(ctx context.Context) (*model.Stats, error) {
	if s.redisClient != nil {
		if cached, err := s.redisClient.Get(ctx, statsCacheKey).Result(); err == nil {
			var stats model.Stats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		}
	}

	stats, err := s.statsRepo.Dashboard(ctx, model.LowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}

	if s.redisClient != nil {
		if data, err := json.Marshal(stats); err == nil {
			s.redisClient.Set(ctx, statsCacheKey, data, statsCacheTTL)
		}
	}
	return stats, nil
}
