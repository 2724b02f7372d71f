package database

import (
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Migration pairs a schema version with the SQL that applies and reverts it.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrations is the version-ordered registry of embedded migrations.
var migrations []Migration

func init() {
	loaded, err := loadMigrations(migrationFS)
	if err != nil {
		panic(fmt.Sprintf("broken embedded migrations: %v", err))
	}
	migrations = loaded
}

// loadMigrations reads version-prefixed script pairs from the embedded
// filesystem. Scripts are named NNNNNN_name.up.sql and every up script must
// have a matching down script.
func loadMigrations(efs embed.FS) ([]Migration, error) {
	entries, err := efs.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var out []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(name, ".up.sql")
		prefix, title, ok := strings.Cut(base, "_")
		if !ok {
			return nil, fmt.Errorf("migration %q is not named NNNNNN_name.up.sql", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %q has a non-numeric version: %w", name, err)
		}

		up, err := efs.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		down, err := efs.ReadFile("migrations/" + base + ".down.sql")
		if err != nil {
			return nil, fmt.Errorf("migration %q has no down script: %w", name, err)
		}

		out = append(out, Migration{
			Version: version,
			Name:    title,
			UpSQL:   string(up),
			DownSQL: string(down),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// GetMigrations returns the registered migrations in version order.
func GetMigrations() []Migration {
	return migrations
}

// GetMigrationByVersion returns the migration with the given version, or nil.
func GetMigrationByVersion(version int) *Migration {
	for i := range migrations {
		if migrations[i].Version == version {
			return &migrations[i]
		}
	}
	return nil
}
