package job

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/petshopone/fiscal-service/internal/config"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/logger"
)

// Runner executes jobs with exponential backoff inside a wall clock
// budget. Failures the operator must fix are never retried.
type Runner struct {
	budget time.Duration
	log    *logger.Logger
}

func NewRunner(cfg *config.Configuration, log *logger.Logger) *Runner {
	return &Runner{
		budget: cfg.Fiscal.SyncBudget(),
		log:    log,
	}
}

// Run executes the job until it succeeds, fails terminally, or the
// budget is exhausted. The returned error is the last failure.
func (r *Runner) Run(ctx context.Context, job Job) (Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, r.budget)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = r.budget

	attempt := 0
	started := time.Now()

	operation := func() error {
		attempt++
		err := job.Run(ctx)
		if err == nil {
			return nil
		}

		if isTerminal(err) {
			return backoff.Permanent(err)
		}

		r.log.Warnw("job attempt failed, will retry",
			"job", job.Name(),
			"attempt", attempt,
			"error", err,
		)
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	elapsed := time.Since(started)

	switch {
	case err == nil:
		r.log.Infow("job completed",
			"job", job.Name(),
			"attempts", attempt,
			"elapsed_ms", elapsed.Milliseconds(),
		)
		return OutcomeSuccess, nil
	case isTerminal(err):
		r.log.Errorw("job failed terminally",
			"job", job.Name(),
			"attempts", attempt,
			"error", err,
		)
		return OutcomeTerminalFailure, err
	default:
		r.log.Errorw("job exhausted its retry budget",
			"job", job.Name(),
			"attempts", attempt,
			"elapsed_ms", elapsed.Milliseconds(),
			"error", err,
		)
		return OutcomeRetryableFailure, err
	}
}

// isTerminal reports whether retrying cannot help: bad input, a
// credential that needs re-uploading, or a forbidden operation. Upstream
// and system errors stay retryable.
func isTerminal(err error) bool {
	return ierr.IsValidation(err) ||
		ierr.IsInvalidOperation(err) ||
		ierr.IsInvalidToken(err) ||
		ierr.IsInvalidCertificate(err) ||
		ierr.IsPermissionDenied(err)
}
