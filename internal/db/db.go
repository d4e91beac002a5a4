package db

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/leonpanjtar/metaforge-sub002/internal/config"
)

// Backends holds the connections a process opens from configuration.
// Redis is nil when REDIS_ADDR is unset; callers then fall back to in-process locks.
type Backends struct {
	Postgres *Postgres
	Redis    *RedisStore
}

// Open connects to Postgres and, when configured, Redis.
func Open(cfg config.Config) (*Backends, error) {
	pg, err := InitPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	b := &Backends{Postgres: pg}

	if cfg.RedisAddr == "" {
		zap.L().Info("REDIS_ADDR not set, using in-process deployment locks")
		return b, nil
	}
	rs, err := InitRedis(cfg.RedisAddr)
	if err != nil {
		pg.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}
	b.Redis = rs
	return b, nil
}

// Close releases every open connection.
func (b *Backends) Close() {
	if b == nil {
		return
	}
	b.Redis.Close()
	b.Postgres.Close()
}
