package service

import (
	"context"
	"strings"
	"time"

	"github.com/petshopone/fiscal-service/internal/domain/credential"
	"github.com/petshopone/fiscal-service/internal/domain/nfeimport"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/nfe"
	"github.com/petshopone/fiscal-service/internal/sefaz"
	"github.com/petshopone/fiscal-service/internal/types"
	"github.com/sourcegraph/conc/pool"
)

// SyncResult summarizes one NSU sync run for a tenant
type SyncResult struct {
	TenantID    string `json:"tenant_id"`
	Created     int    `json:"created"`
	Updated     int    `json:"updated"`
	Batches     int    `json:"batches"`
	LastNSU     string `json:"last_nsu"`
	RateLimited bool   `json:"rate_limited"`
}

// SyncService walks the tenant's distribution feed by NSU
type SyncService interface {
	// SyncByNSU advances the tenant's NSU checkpoint, creating import
	// rows for every document the distribution service hands back.
	// Tenants without a usable credential are skipped silently: the
	// result is nil and so is the error.
	SyncByNSU(ctx context.Context, maxDocs int) (*SyncResult, error)

	// SyncAllTenants runs SyncByNSU for every active credential
	SyncAllTenants(ctx context.Context, maxDocs int) ([]*SyncResult, error)
}

type syncService struct {
	ServiceParams
	applier *docApplier
}

func NewSyncService(params ServiceParams) SyncService {
	return &syncService{
		ServiceParams: params,
		applier:       &docApplier{ServiceParams: params},
	}
}

func (s *syncService) SyncByNSU(ctx context.Context, maxDocs int) (*SyncResult, error) {
	if maxDocs <= 0 {
		maxDocs = s.Config.Fiscal.SyncMaxDocs
	}

	// Two runs for the same tenant must not interleave checkpoint
	// updates; a session advisory lock serializes them without holding
	// a transaction open across the upstream calls, so each checkpoint
	// write commits on its own even when a later batch fails
	if s.DB != nil {
		var result *SyncResult
		err := s.DB.WithTenantLock(ctx, func(ctx context.Context) error {
			var runErr error
			result, runErr = s.run(ctx, maxDocs)
			return runErr
		})
		return result, err
	}
	return s.run(ctx, maxDocs)
}

func (s *syncService) run(ctx context.Context, maxDocs int) (*SyncResult, error) {
	tenantID := types.GetTenantID(ctx)

	cred, extracted, err := unlock(ctx, s.ServiceParams)
	if err != nil {
		// Sync is a background sweep; a tenant with no working
		// credential is not an error for the run
		if ierr.IsInvalidOperation(err) || ierr.IsInvalidToken(err) || ierr.IsInvalidCertificate(err) {
			s.Logger.Warnw("skipping sync for tenant without usable credential",
				"tenant_id", tenantID,
				"error", err,
			)
			return nil, nil
		}
		return nil, err
	}

	querier, err := s.QuerierFactory(extracted, cred.CNPJ, cred.UF)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{TenantID: tenantID, LastNSU: cred.LastNSU}

	lastNSU := cred.LastNSU
	for result.Created < maxDocs {
		batch, err := querier.QueryByLastNSU(ctx, lastNSU)
		if err != nil {
			return result, err
		}
		result.Batches++

		// Checkpoint first, before even looking at the status. Losing a
		// batch to a crash is recoverable by re-querying; replaying NSUs
		// the service already acknowledged is how tenants get
		// 656-blocked, and 137/656 responses advance ultNSU too.
		if batch.UltNSU != "" {
			lastNSU = checkpointNSU(batch.UltNSU)
			if err := s.CredentialRepo.UpdateLastNSU(ctx, cred.ID, lastNSU); err != nil {
				return result, err
			}
			result.LastNSU = lastNSU
		}

		if batch.RateLimited() {
			s.Logger.Warnw("distribution service rate limited, stopping run",
				"tenant_id", tenantID,
				"x_motivo", batch.XMotivo,
			)
			result.RateLimited = true
			break
		}
		if !batch.Found() && !batch.NoNewDocuments() {
			return result, ierr.NewError("distribution query rejected").
				WithHint(batch.XMotivo).
				WithReportableDetails(map[string]any{
					"c_stat":   batch.CStat,
					"x_motivo": batch.XMotivo,
				}).
				Mark(ierr.ErrUpstream)
		}
		if batch.NoNewDocuments() {
			break
		}

		if len(batch.Docs) == 0 {
			break
		}

		for _, doc := range batch.Docs {
			if result.Created >= maxDocs {
				break
			}
			created, err := s.applyFeedDoc(ctx, doc)
			if err != nil {
				s.Logger.Warnw("failed to apply feed document",
					"tenant_id", tenantID,
					"nsu", doc.NSU,
					"error", err,
				)
				continue
			}
			if created {
				result.Created++
			} else {
				result.Updated++
			}
		}

		if batch.UltNSU == "" || batch.UltNSU == batch.ConsMaxNSU {
			break
		}
	}

	s.Logger.Infow("nsu sync finished",
		"tenant_id", tenantID,
		"created", result.Created,
		"updated", result.Updated,
		"batches", result.Batches,
		"last_nsu", result.LastNSU,
	)
	return result, nil
}

// applyFeedDoc folds one feed document into an import row, creating
// the row when the access key is new to the tenant. Reports whether a
// row was created.
func (s *syncService) applyFeedDoc(ctx context.Context, doc sefaz.DocZip) (bool, error) {
	xmlBytes, schema, err := nfe.DecodeDocZip(doc.Payload)
	if err != nil {
		return false, err
	}

	var (
		summary  *nfe.Summary
		document *nfe.Document
		key      string
	)
	switch schema {
	case types.DocumentSchemaSummary:
		if summary, err = nfe.ParseSummary(xmlBytes); err != nil {
			return false, err
		}
		key = summary.AccessKey
	case types.DocumentSchemaFull:
		if document, err = nfe.ParseFull(xmlBytes); err != nil {
			return false, err
		}
		key = document.AccessKey
	default:
		// Events are acknowledged by the NSU checkpoint but not stored
		s.Logger.Debugw("skipping unsupported feed schema",
			"schema", doc.Schema,
			"nsu", doc.NSU,
		)
		return false, nil
	}
	if key, err = types.ValidateAccessKey(key); err != nil {
		return false, err
	}

	created := false
	imp, err := s.NFeImportRepo.GetByAccessKey(ctx, key)
	if err != nil {
		if !ierr.IsNotFound(err) {
			return false, err
		}
		imp = &nfeimport.Import{
			ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NFE_IMPORT),
			AccessKey:    key,
			ImportStatus: types.ImportStatusPending,
			BaseModel:    types.GetDefaultBaseModel(ctx),
		}
		if err := s.NFeImportRepo.Create(ctx, imp); err != nil {
			return false, err
		}
		created = true
	}

	switch schema {
	case types.DocumentSchemaSummary:
		s.applier.applySummary(imp, summary)
	case types.DocumentSchemaFull:
		if err := s.applier.applyFull(ctx, imp, document, xmlBytes); err != nil {
			return created, err
		}
	}

	imp.NSU = doc.NSU
	now := time.Now().UTC()
	imp.ImportStatus = types.ImportStatusImported
	imp.ImportedAt = &now
	imp.ImportedBy = types.GetUserID(ctx)
	imp.UpdatedAt = now
	imp.UpdatedBy = types.GetUserID(ctx)
	if err := s.NFeImportRepo.Update(ctx, imp); err != nil {
		return created, err
	}
	return created, nil
}

func (s *syncService) SyncAllTenants(ctx context.Context, maxDocs int) ([]*SyncResult, error) {
	creds, err := s.CredentialRepo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(creds) == 0 {
		return nil, nil
	}

	var (
		results = make([]*SyncResult, len(creds))
		p       = pool.New().WithMaxGoroutines(4)
	)
	for i, cred := range creds {
		i, cred := i, cred
		p.Go(func() {
			tenantCtx := tenantContext(ctx, cred)
			result, err := s.SyncByNSU(tenantCtx, maxDocs)
			if err != nil {
				// One tenant's failure must not stop the sweep
				s.Logger.Errorw("tenant sync failed",
					"tenant_id", cred.TenantID,
					"error", err,
				)
				return
			}
			results[i] = result
		})
	}
	p.Wait()

	out := make([]*SyncResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func tenantContext(ctx context.Context, cred *credential.Credential) context.Context {
	ctx = types.SetTenantID(ctx, cred.TenantID)
	return types.SetUserID(ctx, types.DefaultUserID)
}

// checkpointNSU strips leading zeros so the stored value matches what
// the next request pads back out
func checkpointNSU(nsu string) string {
	trimmed := strings.TrimLeft(nsu, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
