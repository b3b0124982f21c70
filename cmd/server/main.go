package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/petshopone/fiscal-service/internal/api"
	"github.com/petshopone/fiscal-service/internal/api/cron"
	v1 "github.com/petshopone/fiscal-service/internal/api/v1"
	"github.com/petshopone/fiscal-service/internal/config"
	"github.com/petshopone/fiscal-service/internal/job"
	"github.com/petshopone/fiscal-service/internal/logger"
	"github.com/petshopone/fiscal-service/internal/postgres"
	"github.com/petshopone/fiscal-service/internal/repository"
	"github.com/petshopone/fiscal-service/internal/security"
	"github.com/petshopone/fiscal-service/internal/service"
	"github.com/petshopone/fiscal-service/internal/types"
	internalValidator "github.com/petshopone/fiscal-service/internal/validator"
	"go.uber.org/fx"

	"github.com/go-playground/validator/v10"
)

// @title Petshop One Fiscal Service
// @version 1.0
// @description NF-e import and distribution sync service
// @BasePath /v1

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC

	// Local development reads .env; in production the environment is
	// injected by the platform and the file is simply absent
	_ = godotenv.Load()
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			// Validator
			internalValidator.NewValidator,

			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Postgres
			postgres.NewDB,

			// Credential vault
			security.NewVault,

			// Repositories
			repository.NewCredentialRepository,
			repository.NewNFeImportRepository,
		),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewDefaultQuerierFactory,
			service.NewServiceParams,

			service.NewCredentialService,
			service.NewImportService,
			service.NewSyncService,
		),
	)

	// Jobs and API
	opts = append(opts,
		fx.Provide(
			job.NewRunner,
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(startServer),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	log *logger.Logger,
	_ *validator.Validate,
	credentialService service.CredentialService,
	importService service.ImportService,
	syncService service.SyncService,
	runner *job.Runner,
) api.Handlers {
	return api.Handlers{
		Health:     v1.NewHealthHandler(log),
		Fiscal:     v1.NewFiscalHandler(credentialService, importService, syncService, log),
		FiscalCron: cron.NewFiscalCronHandler(syncService, runner, log),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration) *gin.Engine {
	if cfg.Deployment.Mode == types.ModeProd {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(handlers)
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	router *gin.Engine,
	log *logger.Logger,
) {
	server := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting server", "address", cfg.Server.Address)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatalw("server failed", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down server")
			return server.Shutdown(ctx)
		},
	})
}
