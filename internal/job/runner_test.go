package job

import (
	"context"
	"testing"

	"github.com/petshopone/fiscal-service/internal/config"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/logger"
	"github.com/stretchr/testify/assert"
)

type scriptedJob struct {
	errs     []error
	attempts int
}

func (j *scriptedJob) Name() string { return "scripted" }

func (j *scriptedJob) Run(ctx context.Context) error {
	defer func() { j.attempts++ }()
	if j.attempts < len(j.errs) {
		return j.errs[j.attempts]
	}
	return nil
}

func newTestRunner(budgetSeconds int) *Runner {
	cfg := config.GetDefaultConfig()
	cfg.Fiscal.SyncBudgetSeconds = budgetSeconds
	return NewRunner(cfg, logger.NewNoOpLogger())
}

func TestRunnerSuccess(t *testing.T) {
	runner := newTestRunner(30)
	j := &scriptedJob{}

	outcome, err := runner.Run(context.Background(), j)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, 1, j.attempts)
}

func TestRunnerRetriesThenSucceeds(t *testing.T) {
	runner := newTestRunner(30)
	j := &scriptedJob{errs: []error{
		ierr.NewError("gateway unavailable").Mark(ierr.ErrUpstream),
	}}

	outcome, err := runner.Run(context.Background(), j)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
	assert.Equal(t, 2, j.attempts)
}

func TestRunnerTerminalFailureDoesNotRetry(t *testing.T) {
	runner := newTestRunner(30)
	j := &scriptedJob{errs: []error{
		ierr.NewError("credential token unreadable").Mark(ierr.ErrInvalidToken),
		ierr.NewError("should never run").Mark(ierr.ErrUpstream),
	}}

	outcome, err := runner.Run(context.Background(), j)
	assert.Error(t, err)
	assert.Equal(t, OutcomeTerminalFailure, outcome)
	assert.Equal(t, 1, j.attempts)
	assert.True(t, ierr.IsInvalidToken(err))
}

func TestRunnerBudgetExhausted(t *testing.T) {
	runner := newTestRunner(1)
	j := &scriptedJob{errs: []error{
		ierr.NewError("gateway unavailable").Mark(ierr.ErrUpstream),
		ierr.NewError("gateway unavailable").Mark(ierr.ErrUpstream),
		ierr.NewError("gateway unavailable").Mark(ierr.ErrUpstream),
	}}

	outcome, err := runner.Run(context.Background(), j)
	assert.Error(t, err)
	assert.Equal(t, OutcomeRetryableFailure, outcome)
	assert.True(t, ierr.IsUpstream(err))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "success", OutcomeSuccess.String())
	assert.Equal(t, "retryable_failure", OutcomeRetryableFailure.String())
	assert.Equal(t, "terminal_failure", OutcomeTerminalFailure.String())
}
