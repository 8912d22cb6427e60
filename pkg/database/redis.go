package database

import (
	"context"
	"fmt"

	"course_qa_backend/internal/config"
	"course_qa_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// InitRedis connects the ranking cache. Callers treat a nil client as
// caching disabled, so a failed connection is not fatal for the app.
func InitRedis(cfg *config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     50,
		MinIdleConns: 5,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}

	logger.Log.Info("redis connection established")
	return rdb, nil
}
