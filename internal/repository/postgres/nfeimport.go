package postgres

import (
	"context"
	"time"

	"github.com/petshopone/fiscal-service/internal/domain/nfeimport"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/logger"
	"github.com/petshopone/fiscal-service/internal/postgres"
	"github.com/petshopone/fiscal-service/internal/types"
)

type nfeImportRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewNFeImportRepository(db *postgres.DB, logger *logger.Logger) nfeimport.Repository {
	return &nfeImportRepository{db: db, logger: logger}
}

func (r *nfeImportRepository) Create(ctx context.Context, imp *nfeimport.Import) error {
	query := `
		INSERT INTO nfe_imports (
			id, tenant_id, access_key, nsu, schema, import_status,
			sefaz_cstat, sefaz_xmotivo, issuer_name, issuer_cnpj,
			recipient_name, recipient_tax_id, number, issued_at,
			total_amount, situation, xml_encrypted, xml_hash, imported_at,
			imported_by, status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :tenant_id, :access_key, :nsu, :schema, :import_status,
			:sefaz_cstat, :sefaz_xmotivo, :issuer_name, :issuer_cnpj,
			:recipient_name, :recipient_tax_id, :number, :issued_at,
			:total_amount, :situation, :xml_encrypted, :xml_hash, :imported_at,
			:imported_by, :status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating nfe import",
		"import_id", imp.ID,
		"access_key", imp.AccessKey,
		"tenant_id", imp.TenantID,
	)

	if _, err := r.db.NamedExecContext(ctx, query, imp); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithMessage("import already exists for access key").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithMessage("failed to create nfe import").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *nfeImportRepository) Update(ctx context.Context, imp *nfeimport.Import) error {
	query := `
		UPDATE nfe_imports SET
			nsu = :nsu,
			schema = :schema,
			import_status = :import_status,
			sefaz_cstat = :sefaz_cstat,
			sefaz_xmotivo = :sefaz_xmotivo,
			issuer_name = :issuer_name,
			issuer_cnpj = :issuer_cnpj,
			recipient_name = :recipient_name,
			recipient_tax_id = :recipient_tax_id,
			number = :number,
			issued_at = :issued_at,
			total_amount = :total_amount,
			situation = :situation,
			xml_encrypted = :xml_encrypted,
			xml_hash = :xml_hash,
			imported_at = :imported_at,
			imported_by = :imported_by,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id AND tenant_id = :tenant_id`

	result, err := r.db.NamedExecContext(ctx, query, imp)
	if err != nil {
		return ierr.WithError(err).
			WithMessage("failed to update nfe import").
			Mark(ierr.ErrDatabase)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return ierr.NewError("nfe import not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *nfeImportRepository) Get(ctx context.Context, id string) (*nfeimport.Import, error) {
	return r.getOne(ctx,
		`SELECT * FROM nfe_imports WHERE id = :id AND tenant_id = :tenant_id`,
		map[string]interface{}{
			"id":        id,
			"tenant_id": types.GetTenantID(ctx),
		})
}

func (r *nfeImportRepository) GetByAccessKey(ctx context.Context, accessKey string) (*nfeimport.Import, error) {
	return r.getOne(ctx,
		`SELECT * FROM nfe_imports WHERE access_key = :access_key AND tenant_id = :tenant_id`,
		map[string]interface{}{
			"access_key": accessKey,
			"tenant_id":  types.GetTenantID(ctx),
		})
}

func (r *nfeImportRepository) getOne(ctx context.Context, query string, args map[string]interface{}) (*nfeimport.Import, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to get nfe import").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("nfe import not found").
			Mark(ierr.ErrNotFound)
	}

	var imp nfeimport.Import
	if err := rows.StructScan(&imp); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to scan nfe import").
			Mark(ierr.ErrDatabase)
	}
	return &imp, nil
}

func (r *nfeImportRepository) List(ctx context.Context, filter *types.ImportFilter) ([]*nfeimport.Import, error) {
	if filter == nil {
		filter = types.NewImportFilter()
	}

	query := `SELECT * FROM nfe_imports WHERE tenant_id = :tenant_id`
	args := map[string]interface{}{
		"tenant_id": types.GetTenantID(ctx),
		"limit":     filter.GetLimit(),
		"offset":    filter.GetOffset(),
	}

	if filter.ImportStatus != nil {
		query += ` AND import_status = :import_status`
		args["import_status"] = *filter.ImportStatus
	}
	if filter.AccessKey != nil {
		query += ` AND access_key = :access_key`
		args["access_key"] = *filter.AccessKey
	}

	query += ` ORDER BY created_at DESC LIMIT :limit OFFSET :offset`

	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to list nfe imports").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var imports []*nfeimport.Import
	for rows.Next() {
		var imp nfeimport.Import
		if err := rows.StructScan(&imp); err != nil {
			return nil, ierr.WithError(err).
				WithMessage("failed to scan nfe import").
				Mark(ierr.ErrDatabase)
		}
		imports = append(imports, &imp)
	}
	return imports, nil
}

func (r *nfeImportRepository) Count(ctx context.Context, filter *types.ImportFilter) (int, error) {
	query := `SELECT COUNT(*) FROM nfe_imports WHERE tenant_id = :tenant_id`
	args := map[string]interface{}{"tenant_id": types.GetTenantID(ctx)}

	if filter != nil && filter.ImportStatus != nil {
		query += ` AND import_status = :import_status`
		args["import_status"] = *filter.ImportStatus
	}

	return r.countQuery(ctx, query, args)
}

func (r *nfeImportRepository) CountImportedSince(ctx context.Context, since time.Time) (int, error) {
	return r.countQuery(ctx, `
		SELECT COUNT(*) FROM nfe_imports
		WHERE tenant_id = :tenant_id
		  AND import_status = :import_status
		  AND imported_at >= :since`,
		map[string]interface{}{
			"tenant_id":     types.GetTenantID(ctx),
			"import_status": types.ImportStatusImported,
			"since":         since,
		})
}

func (r *nfeImportRepository) countQuery(ctx context.Context, query string, args map[string]interface{}) (int, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, args)
	if err != nil {
		return 0, ierr.WithError(err).
			WithMessage("failed to count nfe imports").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return 0, ierr.WithError(err).
				WithMessage("failed to scan count").
				Mark(ierr.ErrDatabase)
		}
	}
	return count, nil
}

// ReplaceItems swaps the item set of an import inside a transaction so
// a reader never observes a partially replaced document
func (r *nfeImportRepository) ReplaceItems(ctx context.Context, importID string, items []*nfeimport.Item) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		_, err := r.db.NamedExecContext(ctx, `
			DELETE FROM nfe_import_items WHERE import_id = :import_id AND tenant_id = :tenant_id`,
			map[string]interface{}{
				"import_id": importID,
				"tenant_id": types.GetTenantID(ctx),
			})
		if err != nil {
			return ierr.WithError(err).
				WithMessage("failed to clear import items").
				Mark(ierr.ErrDatabase)
		}

		for _, item := range items {
			_, err := r.db.NamedExecContext(ctx, `
				INSERT INTO nfe_import_items (
					id, tenant_id, import_id, item_number, description, ncm, cfop,
					qty, unit, unit_price, total, gtin, created_at
				) VALUES (
					:id, :tenant_id, :import_id, :item_number, :description, :ncm, :cfop,
					:qty, :unit, :unit_price, :total, :gtin, :created_at
				)`, item)
			if err != nil {
				return ierr.WithError(err).
					WithMessage("failed to insert import item").
					Mark(ierr.ErrDatabase)
			}
		}
		return nil
	})
}

func (r *nfeImportRepository) GetItems(ctx context.Context, importID string) ([]*nfeimport.Item, error) {
	rows, err := r.db.NamedQueryContext(ctx, `
		SELECT * FROM nfe_import_items
		WHERE import_id = :import_id AND tenant_id = :tenant_id
		ORDER BY item_number`,
		map[string]interface{}{
			"import_id": importID,
			"tenant_id": types.GetTenantID(ctx),
		})
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to get import items").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var items []*nfeimport.Item
	for rows.Next() {
		var item nfeimport.Item
		if err := rows.StructScan(&item); err != nil {
			return nil, ierr.WithError(err).
				WithMessage("failed to scan import item").
				Mark(ierr.ErrDatabase)
		}
		items = append(items, &item)
	}
	return items, nil
}
