package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"estatehub-marketplace/pkg/config"
	"estatehub-marketplace/pkg/db"
	"estatehub-marketplace/pkg/gen"
	"estatehub-marketplace/pkg/logger"
	"estatehub-marketplace/pkg/redis"
	"estatehub-marketplace/pkg/sequence"
	"estatehub-marketplace/pkg/task"
	"estatehub-marketplace/services/advertisement"
	"estatehub-marketplace/services/mailer"
	"estatehub-marketplace/services/notification"
	"estatehub-marketplace/services/pricing"
	"estatehub-marketplace/services/sweeper"
	"estatehub-marketplace/services/wallet"
)

// The sweeper binary carries the asynq worker plus the daily scheduler; it
// shares the database and queue with the marketplace binary.
func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		task.Server,
		sequence.Module,
		gen.Module,
		wallet.Module,
		pricing.Module,
		mailer.Module,
		notification.Module,
		advertisement.Module,
		sweeper.Module,
		notification.Worker,
		mailer.Worker,
		sweeper.Worker,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})
