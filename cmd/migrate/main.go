// Command migrate manages the database schema outside the server process:
// apply pending SQL migrations, run AutoMigrate, inspect status, or roll a
// migration back.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"agora/internal/config"
	"agora/internal/database"

	"gorm.io/gorm"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate <up|auto|status|down <version>>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	ctx := context.Background()
	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = runUp(ctx, db)
	case "auto":
		err = runAuto(ctx, db, cfg)
	case "status":
		err = printStatus(ctx, db, cfg)
	case "down":
		if flag.NArg() < 2 {
			fmt.Fprintln(os.Stderr, "usage: migrate down <version>")
			os.Exit(2)
		}
		err = runDown(ctx, db, flag.Arg(1))
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runUp(ctx context.Context, db *gorm.DB) error {
	if err := database.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Println("migrations up to date")
	return nil
}

func runAuto(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	log.Println("auto-migrate complete")
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status: %w", err)
	}

	log.Printf("mode=%s env=%s sql=%t auto=%t applied=%d pending=%d",
		status.Mode, status.Environment, status.RunsSQL, status.RunsAutoMigrate,
		len(status.AppliedVersions), len(status.Pending))
	for _, m := range status.Pending {
		log.Printf("pending: %06d_%s", m.Version, m.Name)
	}
	return nil
}

func runDown(ctx context.Context, db *gorm.DB, arg string) error {
	version, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", arg, err)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("rollback %d: %w", version, err)
	}
	log.Printf("rolled back migration %06d", version)
	return nil
}
