package dto

import (
	"time"

	"github.com/petshopone/fiscal-service/internal/domain/credential"
	"github.com/petshopone/fiscal-service/internal/domain/nfeimport"
	"github.com/petshopone/fiscal-service/internal/types"
)

// ConfigureCredentialRequest carries the multipart form fields of the
// credential upload. The certificate file itself is read from the
// request by the handler.
type ConfigureCredentialRequest struct {
	CNPJ     string `form:"cnpj" binding:"required"`
	UF       string `form:"uf" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// SetCredentialActiveRequest toggles sync participation
type SetCredentialActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// CredentialResponse exposes a credential without its stored secrets
type CredentialResponse struct {
	ID                  string     `json:"id"`
	CNPJ                string     `json:"cnpj"`
	UF                  string     `json:"uf"`
	CertificateSubject  string     `json:"certificate_subject,omitempty"`
	CertificateNotAfter *time.Time `json:"certificate_not_after,omitempty"`
	LastNSU             string     `json:"last_nsu"`
	Active              bool       `json:"active"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

func ToCredentialResponse(cred *credential.Credential) *CredentialResponse {
	return &CredentialResponse{
		ID:                  cred.ID,
		CNPJ:                cred.CNPJ,
		UF:                  cred.UF,
		CertificateSubject:  cred.CertificateSubject,
		CertificateNotAfter: cred.CertificateNotAfter,
		LastNSU:             cred.LastNSU,
		Active:              cred.Active,
		CreatedAt:           cred.CreatedAt,
		UpdatedAt:           cred.UpdatedAt,
	}
}

// ImportByKeyRequest asks for one NF-e by its 44 digit access key
type ImportByKeyRequest struct {
	AccessKey string `json:"access_key" binding:"required"`
}

// ImportResponse is an import row; vault tokens are excluded by the
// model's JSON tags
type ImportResponse struct {
	*nfeimport.Import
}

func ToImportResponse(imp *nfeimport.Import) *ImportResponse {
	return &ImportResponse{Import: imp}
}

// ListImportsResponse is the paginated import listing
type ListImportsResponse struct {
	Items      []*ImportResponse        `json:"items"`
	Pagination types.PaginationResponse `json:"pagination"`
}

// ImportItemsResponse carries the product lines of one import
type ImportItemsResponse struct {
	Items []*nfeimport.Item `json:"items"`
}
