package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"agora/internal/config"
	"agora/internal/middleware"

	"gorm.io/gorm"
)

// Schema management modes. Versioned SQL migrations are the source of truth;
// GORM AutoMigrate exists for development convenience and is fenced off in
// production-like environments.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// schemaPlan says which mechanisms ApplySchema will run for a config.
type schemaPlan struct {
	runSQL  bool
	runAuto bool
}

func planSchema(cfg *config.Config) (schemaPlan, error) {
	mode := schemaMode(cfg)
	prodLike := isProdLikeEnv(cfg.Env)

	switch mode {
	case SchemaModeSQL:
		return schemaPlan{runSQL: true}, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return schemaPlan{}, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return schemaPlan{runAuto: true}, nil
	case SchemaModeHybrid:
		return schemaPlan{runSQL: true, runAuto: !prodLike}, nil
	default:
		return schemaPlan{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

func schemaMode(cfg *config.Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		return SchemaModeHybrid
	}
	return mode
}

func isProdLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// ApplySchema brings the database up to the current schema per the configured
// mode: versioned SQL migrations, GORM AutoMigrate, or both (hybrid).
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}

	if plan.runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.runAuto {
		middleware.Logger.Info("Running GORM AutoMigrate",
			slog.String("mode", schemaMode(cfg)), slog.String("env", cfg.Env))
		if err := db.AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// SchemaStatus reports what ApplySchema would do and which migrations are
// outstanding.
type SchemaStatus struct {
	Mode            string
	Environment     string
	RunsSQL         bool
	RunsAutoMigrate bool
	AppliedVersions []int
	Pending         []Migration
}

func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:            schemaMode(cfg),
		Environment:     cfg.Env,
		RunsSQL:         plan.runSQL,
		RunsAutoMigrate: plan.runAuto,
	}
	if !plan.runSQL {
		return status, nil
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied
	status.Pending = pendingMigrations(applied)
	return status, nil
}
