package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/totegamma/lngateway/internal/config"
	"github.com/totegamma/lngateway/internal/domain"
	"github.com/totegamma/lngateway/internal/infra/database"
	"github.com/totegamma/lngateway/internal/infra/gateway"
	"github.com/totegamma/lngateway/internal/infra/repository"
	"github.com/totegamma/lngateway/internal/present/rest"
	"github.com/totegamma/lngateway/internal/service"
	"github.com/totegamma/lngateway/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	ctx := context.Background()

	if conf.Server.EnableTrace {
		shutdown, err := setupTracer(ctx, conf.Server.TraceEndpoint)
		if err != nil {
			panic("failed to setup tracer: " + err.Error())
		}
		defer shutdown(ctx)
	}

	db, err := database.NewPostgres(conf.Server.PostgresDsn)
	if err != nil {
		panic("failed to connect database")
	}

	err = database.MigratePostgres(db)
	if err != nil {
		panic("failed to migrate database")
	}

	rdb := database.NewRedis(conf.Server.RedisAddr, conf.Server.RedisPassword, conf.Server.RedisDB)

	var mc *memcache.Client
	if conf.Server.MemcachedAddr != "" {
		mc = database.NewMemcached(conf.Server.MemcachedAddr)
	}

	userRepo := repository.NewUserRepository(db, mc)
	invoiceRepo := repository.NewInvoiceRepository(db)

	directory := service.NewFederationDirectory(func(descriptor domain.InviteDescriptor) (usecase.LightningBackend, error) {
		return gateway.NewFederationClient(descriptor)
	})
	for _, federation := range conf.Gateway.Federations {
		if err := directory.Register(ctx, federation); err != nil {
			slog.Error(
				"failed to register federation",
				slog.String("federation", federation.FederationID),
				slog.String("error", err.Error()),
				slog.String("module", "main"),
			)
		}
	}

	signal := service.NewSignalService(rdb)
	notifier := service.NewSettlementNotifier(signal)
	tracker := usecase.NewTracker(ctx, invoiceRepo, notifier)
	invoiceUsecase := usecase.NewInvoiceUsecase(userRepo, invoiceRepo, directory, tracker)
	recoveryUsecase := usecase.NewRecoveryUsecase(invoiceRepo, directory, tracker)

	// Re-attach subscriptions for invoices left pending by the previous run.
	go func() {
		count, err := recoveryUsecase.RecoverPending(ctx)
		if err != nil {
			slog.Error(
				"failed to recover pending invoices",
				slog.String("error", err.Error()),
				slog.String("module", "main"),
			)
			return
		}
		slog.Info(
			"pending invoice recovery finished",
			slog.Int("recovered", count),
			slog.String("module", "main"),
		)
	}()

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if conf.Server.EnableTrace {
		e.Use(otelecho.Middleware("lngateway"))
	}

	handler := rest.NewHandler(conf.Gateway, invoiceUsecase, recoveryUsecase, userRepo, directory, signal)
	handler.RegisterRoutes(e)

	e.Logger.Fatal(e.Start(conf.Server.Listen))
}
