package api

import (
	"github.com/gin-gonic/gin"
	"github.com/petshopone/fiscal-service/internal/api/cron"
	v1 "github.com/petshopone/fiscal-service/internal/api/v1"
	"github.com/petshopone/fiscal-service/internal/rest/middleware"
)

type Handlers struct {
	Health     *v1.HealthHandler
	Fiscal     *v1.FiscalHandler
	FiscalCron *cron.FiscalCronHandler
}

func NewRouter(handlers Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.ErrorHandler())

	router.GET("/health", handlers.Health.Health)

	// Cron routes are hit by the scheduler, outside tenant scope
	cronGroup := router.Group("/cron")
	{
		cronGroup.POST("/fiscal/sync", handlers.FiscalCron.SyncAllTenants)
	}

	v1Group := router.Group("/v1")
	v1Group.Use(middleware.TenantMiddleware)
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	fiscal := router.Group("/fiscal")

	// Credential configuration
	config := fiscal.Group("/config")
	{
		config.PUT("", handlers.Fiscal.ConfigureCredential)
		config.GET("", handlers.Fiscal.GetCredential)
		config.PUT("/active", handlers.Fiscal.SetCredentialActive)
		config.DELETE("", handlers.Fiscal.DeleteCredential)
	}

	// NFe imports
	nfeGroup := fiscal.Group("/nfe")
	{
		nfeGroup.POST("/import-by-key", handlers.Fiscal.ImportByKey)
		nfeGroup.POST("/sync", handlers.Fiscal.TriggerSync)
		nfeGroup.GET("", handlers.Fiscal.ListImports)
		nfeGroup.GET("/:id", handlers.Fiscal.GetImport)
		nfeGroup.GET("/:id/items", handlers.Fiscal.GetImportItems)
		nfeGroup.GET("/:id/xml", handlers.Fiscal.DownloadXML)
	}
}
