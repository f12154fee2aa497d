package data

import (
	"context"
	"fmt"

	"github.com/ngaut/NexusCRM-sub002/internal/conf"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/models"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/database"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/redis"
	"go.uber.org/zap"
)

// Data holds the shared storage clients. Redis is nil when disabled.
type Data struct {
	DB     *database.DB
	Redis  *redis.Client
	logger *logger.Logger
}

func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	db, err := database.New(config.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}
	if config.Database.AutoMigrate {
		if err := db.AutoMigrate(models.All()...); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	var rdb *redis.Client
	if config.Redis.Enabled {
		rdb, err = redis.New(config.Redis, log)
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to init redis: %w", err)
		}
	} else {
		log.Info("redis disabled, using in-process compaction locks")
	}

	d := &Data{DB: db, Redis: rdb, logger: log}
	cleanup := func() {
		log.Info("cleaning up data resources")
		if err := db.Close(); err != nil {
			log.Error("failed to close database", zap.Error(err))
		}
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				log.Error("failed to close redis", zap.Error(err))
			}
		}
	}
	return d, cleanup, nil
}

// HealthChecks returns the probes reported by the health endpoint
func (d *Data) HealthChecks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{
		"database": d.DB.HealthCheck,
	}
	if d.Redis != nil {
		checks["redis"] = d.Redis.Ping
	}
	return checks
}
