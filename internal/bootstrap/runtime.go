// Package bootstrap wires up runtime dependencies shared by the server and
// auxiliary commands.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"agora/internal/cache"
	"agora/internal/config"
	"agora/internal/database"
	"agora/internal/observability"
	"agora/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemoData populates an empty development database with demo content.
	SeedDemoData bool
}

// InitRuntime connects to the database and Redis, starts tracing when
// configured, and optionally runs development seeding. A nil Redis client is
// returned when Redis is unreachable; callers degrade to in-process fallbacks.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracing(cfg)
		if err != nil {
			// Tracing is an observability aid; startup proceeds without it.
			log.Printf("tracing initialization failed: %v", err)
		} else {
			tracingShutdown = shutdown
		}
	}

	if opts.SeedDemoData {
		if err := seedIfEmpty(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}

var tracingShutdown func(context.Context) error

// ShutdownTracing flushes buffered spans. Safe to call when tracing was never
// initialized.
func ShutdownTracing(ctx context.Context) error {
	if tracingShutdown == nil {
		return nil
	}
	return tracingShutdown(ctx)
}

// seedIfEmpty populates demo content only when no users exist, so repeated
// development restarts do not pile up data.
func seedIfEmpty(db *gorm.DB) error {
	var users int64
	if err := db.Table("users").Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	log.Println("empty database detected, seeding demo data")
	return seed.Seed(db, seed.Options{
		NumUsers: 20,
		NumPosts: 60,
	})
}
