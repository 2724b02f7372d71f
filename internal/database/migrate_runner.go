package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"agora/internal/middleware"

	"gorm.io/gorm"
)

// SchemaMigration is one row of the applied-migration ledger.
type SchemaMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

const ensureLedgerSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// appliedVersions returns the versions recorded in the ledger, oldest first.
// A missing ledger table reads as an empty history.
func appliedVersions(ctx context.Context, db *gorm.DB) ([]int, error) {
	var versions []int
	err := db.WithContext(ctx).Model(&SchemaMigration{}).
		Order("version ASC").Pluck("version", &versions).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || isMissingTableError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	return versions, nil
}

func isMissingTableError(err error) bool {
	return strings.Contains(err.Error(), "relation") && strings.Contains(err.Error(), "does not exist")
}

// pendingMigrations filters the registry down to versions not yet applied.
func pendingMigrations(applied []int) []Migration {
	seen := make(map[int]bool, len(applied))
	for _, v := range applied {
		seen[v] = true
	}
	var pending []Migration
	for _, m := range migrations {
		if !seen[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// checkKnownVersions refuses a ledger referencing versions this build does not
// carry; that points at a rolled-back deployment or a database shared with a
// newer build.
func checkKnownVersions(applied []int) error {
	known := make(map[int]bool, len(migrations))
	for _, m := range migrations {
		known[m.Version] = true
	}

	var unknown []int
	for _, v := range applied {
		if !known[v] {
			unknown = append(unknown, v)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	sort.Ints(unknown)
	parts := make([]string, len(unknown))
	for i, v := range unknown {
		parts[i] = fmt.Sprintf("%06d", v)
	}
	return fmt.Errorf("schema_migrations references versions unknown to this build: %s", strings.Join(parts, ", "))
}

// RunMigrations applies every pending migration in version order, recording
// each one in the ledger as it lands.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(ensureLedgerSQL).Error; err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if err := checkKnownVersions(applied); err != nil {
		return err
	}

	for _, m := range pendingMigrations(applied) {
		middleware.Logger.Info("Applying migration",
			slog.Int("version", m.Version), slog.String("name", m.Name))
		if err := db.WithContext(ctx).Exec(m.UpSQL).Error; err != nil {
			return fmt.Errorf("apply migration %06d_%s: %w", m.Version, m.Name, err)
		}
		record := SchemaMigration{Version: m.Version, Name: m.Name}
		if err := db.WithContext(ctx).Create(&record).Error; err != nil {
			return fmt.Errorf("record migration %06d_%s: %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// RollbackMigration reverts one applied migration and removes its ledger row.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}
	if !slices.Contains(applied, version) {
		return fmt.Errorf("migration %d has not been applied", version)
	}

	middleware.Logger.Info("Rolling back migration",
		slog.Int("version", version), slog.String("name", m.Name))
	if err := db.WithContext(ctx).Exec(m.DownSQL).Error; err != nil {
		return fmt.Errorf("revert migration %06d_%s: %w", version, m.Name, err)
	}
	if err := db.WithContext(ctx).Where("version = ?", version).Delete(&SchemaMigration{}).Error; err != nil {
		return fmt.Errorf("remove ledger row for migration %d: %w", version, err)
	}
	return nil
}
