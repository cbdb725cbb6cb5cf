package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/artmarket-backend/pkg/config"
	"github.com/angelmondragon/artmarket-backend/pkg/db"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
	"github.com/angelmondragon/artmarket-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

func main() {
	// bootstrap logger early (then re-init after config load)
	logg := logger.New(logger.Options{ServiceName: "artmarket-migrate"})

	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "migration command: up|down|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// create and validate only touch the filesystem
	switch *cmd {
	case "create":
		if *name == "" {
			exitf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			exitf("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return

	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			exitf("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "artmarket-migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
		"dir": *dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	if dbClient.Dialect() == "sqlite" {
		if *cmd != "up" {
			exitf("-cmd=%s is not supported on sqlite; only up (model auto-migrate) is", *cmd)
		}
		if err := dbClient.DB().WithContext(ctx).AutoMigrate(migrate.Models()...); err != nil {
			exitf("sqlite auto-migrate failed: %v", err)
		}
		logg.Info(ctx, "sqlite schema migrated from models")
		return
	}

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	logg.Info(ctx, "migrate ready")
	if err := runGoose(ctx, sqlDB, *cmd, *dir, *version); err != nil {
		exitf("%v", err)
	}
}

func runGoose(ctx context.Context, sqlDB *sql.DB, cmd, dir, version string) error {
	migrator, err := migrate.New(sqlDB, dir, os.Stdout)
	if err != nil {
		return err
	}
	if cmd != "version" {
		return migrator.Run(ctx, cmd)
	}
	if version == "" {
		return fmt.Errorf("missing -version for version command")
	}
	return migrator.MigrateTo(ctx, version)
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
