package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/petshopone/fiscal-service/internal/logger"
)

// TracedQuerier wraps a Querier with duration and error logging.
// Parameters are not logged; credential rows carry vault tokens and
// query params must never end up in log output.
type TracedQuerier struct {
	Querier
	logger *logger.Logger
	txID   string
}

// NewTracedQuerier creates a new traced querier
func NewTracedQuerier(q Querier, logger *logger.Logger, txID string) *TracedQuerier {
	return &TracedQuerier{
		Querier: q,
		logger:  logger,
		txID:    txID,
	}
}

func (tq *TracedQuerier) trace(query string, start time.Time, err error) {
	fields := []interface{}{
		"duration_ms", time.Since(start).Milliseconds(),
		"query", query,
	}
	if tq.txID != "" {
		fields = append(fields, "tx_id", tq.txID)
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
		tq.logger.Errorw("database query failed", fields...)
		return
	}
	tq.logger.Debugw("database query completed", fields...)
}

func (tq *TracedQuerier) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := tq.Querier.ExecContext(ctx, query, args...)
	tq.trace(query, start, err)
	return result, err
}

func (tq *TracedQuerier) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := tq.Querier.GetContext(ctx, dest, query, args...)
	tq.trace(query, start, err)
	return err
}

func (tq *TracedQuerier) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	start := time.Now()
	err := tq.Querier.SelectContext(ctx, dest, query, args...)
	tq.trace(query, start, err)
	return err
}

func (tq *TracedQuerier) NamedExec(query string, arg interface{}) (sql.Result, error) {
	start := time.Now()
	result, err := tq.Querier.NamedExec(query, arg)
	tq.trace(query, start, err)
	return result, err
}

func (tq *TracedQuerier) NamedQuery(query string, arg interface{}) (*sqlx.Rows, error) {
	start := time.Now()
	rows, err := tq.Querier.NamedQuery(query, arg)
	tq.trace(query, start, err)
	return rows, err
}
