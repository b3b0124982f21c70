package service

import (
	"context"
	"errors"
	"time"

	"github.com/petshopone/fiscal-service/internal/domain/nfeimport"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/types"
)

const maxServerReasonLen = 500

// ImportService imports NF-e documents by access key and serves the
// stored imports
type ImportService interface {
	// ImportByKey queries the distribution service for one access key
	// and stores whatever it returns. Re-importing an already imported
	// key is a no-op that returns the existing row.
	ImportByKey(ctx context.Context, accessKey string) (*nfeimport.Import, error)

	// Get returns one import by ID
	Get(ctx context.Context, id string) (*nfeimport.Import, error)

	// GetByAccessKey returns the tenant's import for an access key
	GetByAccessKey(ctx context.Context, accessKey string) (*nfeimport.Import, error)

	// List returns imports matching the filter
	List(ctx context.Context, filter *types.ImportFilter) ([]*nfeimport.Import, error)

	// Count counts imports matching the filter
	Count(ctx context.Context, filter *types.ImportFilter) (int, error)

	// GetItems returns the product lines of an import
	GetItems(ctx context.Context, id string) ([]*nfeimport.Item, error)

	// DownloadXML decrypts the stored document and verifies its hash
	DownloadXML(ctx context.Context, id string) ([]byte, error)
}

type importService struct {
	ServiceParams
	applier *docApplier
}

func NewImportService(params ServiceParams) ImportService {
	return &importService{
		ServiceParams: params,
		applier:       &docApplier{ServiceParams: params},
	}
}

func (s *importService) ImportByKey(ctx context.Context, accessKey string) (*nfeimport.Import, error) {
	key, err := types.ValidateAccessKey(accessKey)
	if err != nil {
		return nil, err
	}

	cred, extracted, err := unlock(ctx, s.ServiceParams)
	if err != nil {
		// A corrupted token is actionable by the operator; record it on
		// the row when one already exists
		if ierr.IsInvalidToken(err) || ierr.IsInvalidCertificate(err) {
			s.markError(ctx, key, "certificate could not be decrypted, re-upload it in fiscal settings")
		}
		return nil, err
	}

	imp, err := s.getOrCreate(ctx, key)
	if err != nil {
		return nil, err
	}
	if imp.IsImported() {
		s.Logger.Infow("access key already imported", "access_key", key)
		return imp, nil
	}

	// A previously errored row re-enters the queue before processing
	if imp.ImportStatus == types.ImportStatusError {
		if err := s.transition(ctx, imp, types.ImportStatusPending); err != nil {
			return nil, err
		}
	}
	if err := s.transition(ctx, imp, types.ImportStatusProcessing); err != nil {
		return nil, err
	}

	querier, err := s.QuerierFactory(extracted, cred.CNPJ, cred.UF)
	if err != nil {
		return nil, err
	}

	result, err := querier.QueryByAccessKey(ctx, key)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// Budget ran out mid-query; leave the row retryable
			imp.SefazCStat = "TIMEOUT"
			imp.SefazXMotivo = "distribution query timed out"
			imp.ImportStatus = types.ImportStatusPending
			s.persist(ctx, imp)
			return nil, err
		}
		imp.ImportStatus = types.ImportStatusError
		imp.SefazXMotivo = truncateReason(err.Error())
		s.persist(ctx, imp)
		return nil, err
	}

	imp.SefazCStat = result.CStat
	imp.SefazXMotivo = result.XMotivo
	imp.NSU = result.UltNSU

	if !result.Found() && !result.NoNewDocuments() {
		imp.ImportStatus = types.ImportStatusError
		s.persist(ctx, imp)
		return nil, ierr.NewError("distribution query rejected").
			WithHint(result.XMotivo).
			WithReportableDetails(map[string]any{
				"c_stat":   result.CStat,
				"x_motivo": result.XMotivo,
			}).
			Mark(ierr.ErrUpstream)
	}

	for _, doc := range result.Docs {
		if doc.Payload == "" {
			continue
		}
		// One bad payload must not sink the rest of the batch
		if _, err := s.applier.apply(ctx, imp, doc); err != nil {
			s.Logger.Warnw("failed to apply docZip payload",
				"access_key", key,
				"nsu", doc.NSU,
				"error", err,
			)
		}
	}

	now := time.Now().UTC()
	imp.ImportStatus = types.ImportStatusImported
	imp.ImportedAt = &now
	imp.ImportedBy = types.GetUserID(ctx)
	if err := s.persist(ctx, imp); err != nil {
		return nil, err
	}

	s.Logger.Infow("nfe imported",
		"access_key", key,
		"has_xml", imp.HasXML(),
		"c_stat", result.CStat,
	)
	return imp, nil
}

func (s *importService) getOrCreate(ctx context.Context, key string) (*nfeimport.Import, error) {
	imp, err := s.NFeImportRepo.GetByAccessKey(ctx, key)
	if err == nil {
		return imp, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	imp = &nfeimport.Import{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NFE_IMPORT),
		AccessKey:    key,
		ImportStatus: types.ImportStatusPending,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	if err := s.NFeImportRepo.Create(ctx, imp); err != nil {
		// Lost a race with a concurrent import of the same key
		if ierr.IsAlreadyExists(err) {
			return s.NFeImportRepo.GetByAccessKey(ctx, key)
		}
		return nil, err
	}
	return imp, nil
}

func (s *importService) transition(ctx context.Context, imp *nfeimport.Import, next types.ImportStatus) error {
	if !imp.ImportStatus.CanTransitionTo(next) {
		return ierr.NewError("illegal import status transition").
			WithReportableDetails(map[string]any{
				"from": imp.ImportStatus,
				"to":   next,
			}).
			Mark(ierr.ErrInvalidOperation)
	}
	imp.ImportStatus = next
	return s.persist(ctx, imp)
}

func (s *importService) persist(ctx context.Context, imp *nfeimport.Import) error {
	imp.UpdatedAt = time.Now().UTC()
	imp.UpdatedBy = types.GetUserID(ctx)
	return s.NFeImportRepo.Update(ctx, imp)
}

func (s *importService) markError(ctx context.Context, key, reason string) {
	imp, err := s.NFeImportRepo.GetByAccessKey(ctx, key)
	if err != nil {
		return
	}
	imp.ImportStatus = types.ImportStatusError
	imp.SefazXMotivo = truncateReason(reason)
	if err := s.persist(ctx, imp); err != nil {
		s.Logger.Warnw("failed to record import error", "access_key", key, "error", err)
	}
}

func (s *importService) Get(ctx context.Context, id string) (*nfeimport.Import, error) {
	return s.NFeImportRepo.Get(ctx, id)
}

func (s *importService) GetByAccessKey(ctx context.Context, accessKey string) (*nfeimport.Import, error) {
	key, err := types.ValidateAccessKey(accessKey)
	if err != nil {
		return nil, err
	}
	return s.NFeImportRepo.GetByAccessKey(ctx, key)
}

func (s *importService) List(ctx context.Context, filter *types.ImportFilter) ([]*nfeimport.Import, error) {
	if filter == nil {
		filter = types.NewImportFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.NFeImportRepo.List(ctx, filter)
}

func (s *importService) Count(ctx context.Context, filter *types.ImportFilter) (int, error) {
	return s.NFeImportRepo.Count(ctx, filter)
}

func (s *importService) GetItems(ctx context.Context, id string) ([]*nfeimport.Item, error) {
	if _, err := s.NFeImportRepo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.NFeImportRepo.GetItems(ctx, id)
}

func (s *importService) DownloadXML(ctx context.Context, id string) ([]byte, error) {
	imp, err := s.NFeImportRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !imp.HasXML() {
		return nil, ierr.NewError("no XML stored for this import").
			WithHint("Only fully imported documents carry the XML").
			Mark(ierr.ErrNotFound)
	}

	xmlBytes, err := s.Vault.DecryptBytes(imp.XMLEncrypted)
	if err != nil {
		return nil, err
	}

	// Integrity check against the hash written at import time
	if imp.XMLHash != "" && s.Vault.Hash(string(xmlBytes)) != imp.XMLHash {
		return nil, ierr.NewError("stored XML failed integrity check").
			Mark(ierr.ErrSystem)
	}
	return xmlBytes, nil
}

func truncateReason(reason string) string {
	if len(reason) <= maxServerReasonLen {
		return reason
	}
	return reason[:maxServerReasonLen]
}
