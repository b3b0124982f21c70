package job

import (
	"context"

	"github.com/petshopone/fiscal-service/internal/service"
)

// Job is one unit of background work with a stable name for logs
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Outcome classifies how a job run ended
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryableFailure
	OutcomeTerminalFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryableFailure:
		return "retryable_failure"
	case OutcomeTerminalFailure:
		return "terminal_failure"
	default:
		return "unknown"
	}
}

type syncAllJob struct {
	syncService service.SyncService
	maxDocs     int
}

// NewSyncAllJob wraps the cross-tenant NSU sync as a runnable job.
// A maxDocs of zero applies the configured per-run cap.
func NewSyncAllJob(syncService service.SyncService, maxDocs int) Job {
	return &syncAllJob{syncService: syncService, maxDocs: maxDocs}
}

func (j *syncAllJob) Name() string { return "sync_all_tenants" }

func (j *syncAllJob) Run(ctx context.Context) error {
	_, err := j.syncService.SyncAllTenants(ctx, j.maxDocs)
	return err
}

type tenantSyncJob struct {
	syncService service.SyncService
	maxDocs     int
}

// NewTenantSyncJob wraps a single tenant NSU sync as a runnable job.
// The tenant comes from the context the job is run with.
func NewTenantSyncJob(syncService service.SyncService, maxDocs int) Job {
	return &tenantSyncJob{syncService: syncService, maxDocs: maxDocs}
}

func (j *tenantSyncJob) Name() string { return "tenant_nsu_sync" }

func (j *tenantSyncJob) Run(ctx context.Context) error {
	_, err := j.syncService.SyncByNSU(ctx, j.maxDocs)
	return err
}
