package main

import (
	"log"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"estatehub-marketplace/pkg/config"
	"estatehub-marketplace/pkg/db"
	"estatehub-marketplace/pkg/gen"
	"estatehub-marketplace/pkg/hashistack/secretmanager"
	"estatehub-marketplace/pkg/health"
	"estatehub-marketplace/pkg/httpapi"
	"estatehub-marketplace/pkg/logger"
	"estatehub-marketplace/pkg/redis"
	"estatehub-marketplace/pkg/sequence"
	"estatehub-marketplace/pkg/server"
	"estatehub-marketplace/pkg/task"
	"estatehub-marketplace/services/advertisement"
	"estatehub-marketplace/services/agency"
	"estatehub-marketplace/services/bootstrap"
	"estatehub-marketplace/services/mailer"
	"estatehub-marketplace/services/notification"
	"estatehub-marketplace/services/pricing"
	"estatehub-marketplace/services/product"
	"estatehub-marketplace/services/registration"
	"estatehub-marketplace/services/user"
	"estatehub-marketplace/services/wallet"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		sequence.Module,
		gen.Module,
		fx.Provide(
			provideTracerProvider,
			provideMeterProvider,
		),
		health.Module,
		httpapi.Module,
		wallet.Module,
		pricing.Module,
		product.Module,
		user.Module,
		agency.Module,
		mailer.Module,
		notification.Module,
		registration.Module,
		advertisement.Module,
		bootstrap.Module,
		server.ProvideGRPCServer,
		server.ProvideHTTPServer,
		fx.Invoke(
			func(*wallet.Service) {},
			func(*registration.Service) {},
			func(*advertisement.Service) {},
		),
		fxLogger,
	}

	if os.Getenv("VAULT_ADDR") != "" {
		opts = append(opts, secretmanager.Module)
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

func provideTracerProvider() trace.TracerProvider {
	return otel.GetTracerProvider()
}

func provideMeterProvider() metric.MeterProvider {
	return otel.GetMeterProvider()
}
