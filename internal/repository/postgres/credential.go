package postgres

import (
	"context"

	"github.com/lib/pq"
	"github.com/petshopone/fiscal-service/internal/domain/credential"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/logger"
	"github.com/petshopone/fiscal-service/internal/postgres"
	"github.com/petshopone/fiscal-service/internal/types"
)

const pqUniqueViolation = "23505"

type credentialRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewCredentialRepository(db *postgres.DB, logger *logger.Logger) credential.Repository {
	return &credentialRepository{db: db, logger: logger}
}

func (r *credentialRepository) Create(ctx context.Context, cred *credential.Credential) error {
	query := `
		INSERT INTO fiscal_credentials (
			id, tenant_id, cnpj, uf, certificate_encrypted, password_encrypted,
			certificate_subject, certificate_not_after, last_nsu, active,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :tenant_id, :cnpj, :uf, :certificate_encrypted, :password_encrypted,
			:certificate_subject, :certificate_not_after, :last_nsu, :active,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating fiscal credential",
		"credential_id", cred.ID,
		"tenant_id", cred.TenantID,
	)

	if _, err := r.db.NamedExecContext(ctx, query, cred); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithMessage("credential already exists for tenant").
				WithHint("The tenant already has a fiscal credential configured").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithMessage("failed to create credential").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *credentialRepository) Update(ctx context.Context, cred *credential.Credential) error {
	query := `
		UPDATE fiscal_credentials SET
			cnpj = :cnpj,
			uf = :uf,
			certificate_encrypted = :certificate_encrypted,
			password_encrypted = :password_encrypted,
			certificate_subject = :certificate_subject,
			certificate_not_after = :certificate_not_after,
			last_nsu = :last_nsu,
			active = :active,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	result, err := r.db.NamedExecContext(ctx, query, cred)
	if err != nil {
		return ierr.WithError(err).
			WithMessage("failed to update credential").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ierr.NewError("credential not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *credentialRepository) GetByTenant(ctx context.Context) (*credential.Credential, error) {
	var cred credential.Credential
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT * FROM fiscal_credentials WHERE tenant_id = :tenant_id AND status = :status`,
		map[string]interface{}{
			"tenant_id": types.GetTenantID(ctx),
			"status":    types.StatusPublished,
		})
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to get credential").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("credential not found").
			WithHint("No fiscal credential is configured for this tenant").
			Mark(ierr.ErrNotFound)
	}

	if err := rows.StructScan(&cred); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to scan credential").
			Mark(ierr.ErrDatabase)
	}
	return &cred, nil
}

func (r *credentialRepository) UpdateLastNSU(ctx context.Context, id string, lastNSU string) error {
	result, err := r.db.NamedExecContext(ctx, `
		UPDATE fiscal_credentials SET last_nsu = :last_nsu, updated_at = NOW()
		WHERE id = :id AND tenant_id = :tenant_id`,
		map[string]interface{}{
			"id":        id,
			"last_nsu":  lastNSU,
			"tenant_id": types.GetTenantID(ctx),
		})
	if err != nil {
		return ierr.WithError(err).
			WithMessage("failed to update last NSU").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ierr.NewError("credential not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *credentialRepository) ListActive(ctx context.Context) ([]*credential.Credential, error) {
	var creds []*credential.Credential
	// Cross-tenant on purpose: feeds the sync fan-out
	rows, err := r.db.NamedQueryContext(ctx, `
		SELECT * FROM fiscal_credentials
		WHERE active = TRUE
		  AND status = :status
		  AND certificate_encrypted <> ''
		  AND password_encrypted <> ''
		ORDER BY created_at`,
		map[string]interface{}{"status": types.StatusPublished})
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to list active credentials").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	for rows.Next() {
		var cred credential.Credential
		if err := rows.StructScan(&cred); err != nil {
			return nil, ierr.WithError(err).
				WithMessage("failed to scan credential").
				Mark(ierr.ErrDatabase)
		}
		creds = append(creds, &cred)
	}
	return creds, nil
}

func (r *credentialRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NamedExecContext(ctx, `
		DELETE FROM fiscal_credentials WHERE id = :id AND tenant_id = :tenant_id`,
		map[string]interface{}{
			"id":        id,
			"tenant_id": types.GetTenantID(ctx),
		})
	if err != nil {
		return ierr.WithError(err).
			WithMessage("failed to delete credential").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ierr.NewError("credential not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if ierr.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
