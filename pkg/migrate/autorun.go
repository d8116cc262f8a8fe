package migrate

import (
	"context"
	"fmt"

	"github.com/mvalderas/tradepost-backend/pkg/config"
	"github.com/mvalderas/tradepost-backend/pkg/db"
	"github.com/mvalderas/tradepost-backend/pkg/db/models"
	"github.com/mvalderas/tradepost-backend/pkg/logger"
	"gorm.io/gorm"
)

// AllModels lists every persisted model in dependency order so AutoMigrate
// creates referenced tables before their foreign keys.
func AllModels() []any {
	return []any{
		&models.User{},
		&models.Category{},
		&models.Listing{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentCustomer{},
		&models.PaymentTransaction{},
		&models.WebhookEvent{},
		&models.BillingPlan{},
		&models.Subscription{},
		&models.Payout{},
		&models.Notification{},
		&models.Review{},
		&models.Report{},
		&models.OutboxEvent{},
	}
}

// Run applies the schema via gorm AutoMigrate.
func Run(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto-migrating schema: %w", err)
	}
	return nil
}

// MaybeRunDev applies the schema automatically when the app is running in dev
// mode and the feature flag is enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "running schema auto-migration (dev auto-run)")

	if err := Run(client.DB()); err != nil {
		return err
	}

	logg.Info(ctx, "schema auto-migration completed")
	return nil
}
