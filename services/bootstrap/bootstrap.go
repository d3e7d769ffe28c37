package bootstrap

import (
	"context"

	"estatehub-marketplace/services/advertisement"
	"estatehub-marketplace/services/agency"
	"estatehub-marketplace/services/notification"
	"estatehub-marketplace/services/pricing"
	"estatehub-marketplace/services/product"
	"estatehub-marketplace/services/registration"
	"estatehub-marketplace/services/sweeper"
	"estatehub-marketplace/services/user"
	"estatehub-marketplace/services/wallet"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module migrates the schema and seeds reference data on startup.
var Module = fx.Module("bootstrap",
	fx.Invoke(registerStartup),
)

type startupParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	DB        *gorm.DB
	Pricing   *pricing.Service
}

func registerStartup(p startupParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.DB.WithContext(ctx).AutoMigrate(
				&wallet.Wallet{},
				&wallet.Transaction{},
				&pricing.AdTierPricing{},
				&product.Product{},
				&advertisement.ProductAdvertisement{},
				&user.User{},
				&registration.RegistrationRequest{},
				&agency.AgencyAgent{},
				&agency.AgentPermission{},
				&notification.Notification{},
				&sweeper.SweepJob{},
			); err != nil {
				zap.L().Error("schema migration failed", zap.Error(err))
				return err
			}

			if err := p.Pricing.Seed(ctx); err != nil {
				zap.L().Error("pricing seed failed", zap.Error(err))
				return err
			}

			zap.L().Info("bootstrap complete")
			return nil
		},
	})
}
