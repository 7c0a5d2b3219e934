package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/portal/internal/config"
	"github.com/hitoshi/portal/internal/database"
	"github.com/hitoshi/portal/internal/handler"
	"github.com/hitoshi/portal/internal/storage"
)

// storageBackend はSTORAGE_DRIVERに応じて開いたストレージ媒体。
type storageBackend struct {
	medium storage.Medium
	health handler.HealthChecker
	db     *sql.DB
	close  func() error
}

// redisPinger は *redis.Client を HealthChecker に適合させる。
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// openStorage はSTORAGE_DRIVERに応じたストレージ媒体を開く。
func openStorage(cfg *config.Config) (*storageBackend, error) {
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := database.Ping(db, 5*time.Second); err != nil {
			db.Close()
			return nil, err
		}
		slog.Info("database connection established")
		return &storageBackend{
			medium: storage.NewPostgresMedium(db),
			health: db,
			db:     db,
			close:  db.Close,
		}, nil

	case config.StorageRedis:
		client, err := storage.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to configure redis: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established")
		ttl := time.Duration(cfg.ClientMaxAge) * time.Second
		return &storageBackend{
			medium: storage.NewRedisMedium(client, ttl),
			health: redisPinger{client: client},
			close:  client.Close,
		}, nil

	default:
		slog.Warn("using in-memory storage; sessions are lost on restart")
		return &storageBackend{
			medium: storage.NewMemoryMedium(),
			close:  func() error { return nil },
		}, nil
	}
}
