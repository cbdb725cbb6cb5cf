package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/artmarket-backend/pkg/config"
	"github.com/angelmondragon/artmarket-backend/pkg/db"
	"github.com/angelmondragon/artmarket-backend/pkg/db/models"
	"github.com/angelmondragon/artmarket-backend/pkg/logger"
)

// Models lists every table this backend owns or reads, in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.ArtistProfile{},
		&models.Artwork{},
		&models.ArtworkOrder{},
		&models.ArtworkOrderItem{},
		&models.CommissionRequest{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
		&models.Notification{},
	}
}

// MaybeRunDev executes migrations automatically when the app is running in dev mode and
// the feature flag is enabled. SQLite databases are built from the models
// because the goose files use Postgres-only types.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": client.Dialect()})

	if client.Dialect() == "sqlite" {
		logg.Info(ctx, "auto-migrating sqlite schema from models")
		if err := client.DB().WithContext(ctx).AutoMigrate(Models()...); err != nil {
			return fmt.Errorf("auto-migrating sqlite schema: %w", err)
		}
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithField(ctx, "dir", DefaultDir)
	logg.Info(ctx, "running goose migrations (dev auto-run)")

	migrator, err := New(sqlDB, DefaultDir, nil)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx, "up"); err != nil {
		return err
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
