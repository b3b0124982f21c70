package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petshopone/fiscal-service/internal/job"
	"github.com/petshopone/fiscal-service/internal/logger"
	"github.com/petshopone/fiscal-service/internal/service"
)

// FiscalCronHandler runs the scheduled NSU sync across tenants
type FiscalCronHandler struct {
	syncService service.SyncService
	runner      *job.Runner
	log         *logger.Logger
}

func NewFiscalCronHandler(syncService service.SyncService, runner *job.Runner, log *logger.Logger) *FiscalCronHandler {
	return &FiscalCronHandler{
		syncService: syncService,
		runner:      runner,
		log:         log,
	}
}

// SyncAllTenants walks the distribution feed for every tenant with an
// active credential. Invoked by the scheduler, not by end users.
func (h *FiscalCronHandler) SyncAllTenants(c *gin.Context) {
	h.log.Infow("starting tenant sync cron job", "time", time.Now().UTC().Format(time.RFC3339))

	syncJob := job.NewSyncAllJob(h.syncService, 0)
	outcome, err := h.runner.Run(c.Request.Context(), syncJob)
	if err != nil {
		h.log.Errorw("tenant sync cron job failed",
			"outcome", outcome,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "failed",
			"outcome": outcome.String(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "completed",
		"outcome": outcome.String(),
	})
}
