package credential

import (
	"time"

	"github.com/petshopone/fiscal-service/internal/types"
)

// Credential is a tenant's fiscal configuration: CNPJ, UF and the A1
// certificate used against the distribution service. Certificate bytes
// and password are stored as vault tokens, never in the clear.
type Credential struct {
	ID   string `db:"id" json:"id"`
	CNPJ string `db:"cnpj" json:"cnpj"`
	UF   string `db:"uf" json:"uf"`

	CertificateEncrypted string     `db:"certificate_encrypted" json:"-"`
	PasswordEncrypted    string     `db:"password_encrypted" json:"-"`
	CertificateSubject   string     `db:"certificate_subject" json:"certificate_subject"`
	CertificateNotAfter  *time.Time `db:"certificate_not_after" json:"certificate_not_after,omitempty"`

	// LastNSU is the sync checkpoint; "0" means never synced
	LastNSU string `db:"last_nsu" json:"last_nsu"`
	Active  bool   `db:"active" json:"active"`

	types.BaseModel
}

// HasCertificate reports whether a certificate has been configured
func (c *Credential) HasCertificate() bool {
	return c.CertificateEncrypted != "" && c.PasswordEncrypted != ""
}

// IsUsable reports whether the credential can serve distribution queries
func (c *Credential) IsUsable() bool {
	return c.Active && c.HasCertificate()
}

// CertificateExpired reports whether the stored certificate is past its
// validity window. Unknown expiry is treated as not expired.
func (c *Credential) CertificateExpired(now time.Time) bool {
	if c.CertificateNotAfter == nil {
		return false
	}
	return now.After(*c.CertificateNotAfter)
}
