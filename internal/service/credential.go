package service

import (
	"context"
	"strings"
	"time"

	"github.com/petshopone/fiscal-service/internal/certificate"
	"github.com/petshopone/fiscal-service/internal/domain/credential"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/types"
	"github.com/petshopone/fiscal-service/internal/validator"
)

// ConfigureCredentialRequest carries a tenant's fiscal configuration.
// PFXData and Password are only held in memory; they are encrypted
// before anything is persisted.
type ConfigureCredentialRequest struct {
	CNPJ     string `validate:"required"`
	UF       string `validate:"required"`
	PFXData  []byte `validate:"required"`
	Password string `validate:"required"`
}

func (r *ConfigureCredentialRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if len(digitsOf(r.CNPJ)) != 14 {
		return ierr.NewError("invalid CNPJ").
			WithHint("CNPJ must contain 14 digits").
			Mark(ierr.ErrValidation)
	}
	if len(normalizeUF(r.UF)) != 2 {
		return ierr.NewError("invalid UF").
			WithHint("UF must contain 2 characters").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// CredentialService manages tenant fiscal credentials
type CredentialService interface {
	// Configure creates or replaces the tenant's credential. The PFX
	// bundle is opened to prove the password before anything is stored.
	Configure(ctx context.Context, req *ConfigureCredentialRequest) (*credential.Credential, error)

	// Get returns the tenant's credential, without decrypted material
	Get(ctx context.Context) (*credential.Credential, error)

	// SetActive toggles whether sync runs pick up the credential
	SetActive(ctx context.Context, active bool) (*credential.Credential, error)

	// Delete removes the tenant's credential
	Delete(ctx context.Context) error
}

type credentialService struct {
	ServiceParams
}

func NewCredentialService(params ServiceParams) CredentialService {
	return &credentialService{ServiceParams: params}
}

func (s *credentialService) Configure(ctx context.Context, req *ConfigureCredentialRequest) (*credential.Credential, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Prove the bundle opens before persisting anything
	extracted, err := certificate.Extract(req.PFXData, req.Password)
	if err != nil {
		return nil, err
	}
	if extracted.IsExpired(time.Now().UTC()) {
		s.Logger.Warnw("configuring an expired certificate",
			"tenant_id", types.GetTenantID(ctx),
			"not_after", extracted.NotAfter,
		)
	}

	certToken, err := s.Vault.EncryptBytes(req.PFXData)
	if err != nil {
		return nil, err
	}
	passToken, err := s.Vault.Encrypt(req.Password)
	if err != nil {
		return nil, err
	}

	notAfter := extracted.NotAfter

	existing, err := s.CredentialRepo.GetByTenant(ctx)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	if existing != nil {
		existing.CNPJ = digitsOf(req.CNPJ)
		existing.UF = normalizeUF(req.UF)
		existing.CertificateEncrypted = certToken
		existing.PasswordEncrypted = passToken
		existing.CertificateSubject = extracted.Subject
		existing.CertificateNotAfter = &notAfter
		existing.Active = true
		existing.UpdatedAt = time.Now().UTC()
		existing.UpdatedBy = types.GetUserID(ctx)
		if err := s.CredentialRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		s.Logger.Infow("fiscal credential replaced",
			"credential_id", existing.ID,
			"tenant_id", existing.TenantID,
		)
		return existing, nil
	}

	cred := &credential.Credential{
		ID:                   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_FISCAL_CREDENTIAL),
		CNPJ:                 digitsOf(req.CNPJ),
		UF:                   normalizeUF(req.UF),
		CertificateEncrypted: certToken,
		PasswordEncrypted:    passToken,
		CertificateSubject:   extracted.Subject,
		CertificateNotAfter:  &notAfter,
		LastNSU:              "0",
		Active:               true,
		BaseModel:            types.GetDefaultBaseModel(ctx),
	}

	if err := s.CredentialRepo.Create(ctx, cred); err != nil {
		return nil, err
	}

	s.Logger.Infow("fiscal credential configured",
		"credential_id", cred.ID,
		"tenant_id", cred.TenantID,
	)
	return cred, nil
}

func (s *credentialService) Get(ctx context.Context) (*credential.Credential, error) {
	return s.CredentialRepo.GetByTenant(ctx)
}

func (s *credentialService) SetActive(ctx context.Context, active bool) (*credential.Credential, error) {
	cred, err := s.CredentialRepo.GetByTenant(ctx)
	if err != nil {
		return nil, err
	}
	cred.Active = active
	cred.UpdatedAt = time.Now().UTC()
	cred.UpdatedBy = types.GetUserID(ctx)
	if err := s.CredentialRepo.Update(ctx, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

func (s *credentialService) Delete(ctx context.Context) error {
	cred, err := s.CredentialRepo.GetByTenant(ctx)
	if err != nil {
		return err
	}
	return s.CredentialRepo.Delete(ctx, cred.ID)
}

// unlock decrypts the stored PFX and password and opens the bundle.
// A missing or incomplete credential reports ErrInvalidOperation;
// a token written with a different key reports ErrInvalidToken so
// callers can ask the operator to re-upload the certificate.
func unlock(ctx context.Context, params ServiceParams) (*credential.Credential, *certificate.Credential, error) {
	cred, err := params.CredentialRepo.GetByTenant(ctx)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil, ierr.NewError("fiscal credential not configured").
				WithHint("Configure the fiscal certificate before importing").
				Mark(ierr.ErrInvalidOperation)
		}
		return nil, nil, err
	}
	if !cred.IsUsable() {
		return nil, nil, ierr.NewError("fiscal credential not configured").
			WithHint("Configure the fiscal certificate before importing").
			Mark(ierr.ErrInvalidOperation)
	}

	pfx, err := params.Vault.DecryptBytes(cred.CertificateEncrypted)
	if err != nil {
		return cred, nil, err
	}
	password, err := params.Vault.Decrypt(cred.PasswordEncrypted)
	if err != nil {
		return cred, nil, err
	}

	extracted, err := certificate.Extract(pfx, password)
	if err != nil {
		return cred, nil, err
	}
	return cred, extracted, nil
}

func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeUF(uf string) string {
	uf = strings.ToUpper(strings.TrimSpace(uf))
	if len(uf) > 2 {
		uf = uf[:2]
	}
	return uf
}
