package nfeimport

import (
	"time"

	"github.com/petshopone/fiscal-service/internal/types"
	"github.com/shopspring/decimal"
)

// Import is one NF-e tracked for a tenant, keyed by access key.
// Summary metadata lives on the row; the full XML is stored encrypted
// and only present once a procNFe payload has been imported.
type Import struct {
	ID        string `db:"id" json:"id"`
	AccessKey string `db:"access_key" json:"access_key"`
	NSU       string `db:"nsu" json:"nsu,omitempty"`
	Schema    string `db:"schema" json:"schema,omitempty"`

	ImportStatus types.ImportStatus `db:"import_status" json:"import_status"`
	SefazCStat   string             `db:"sefaz_cstat" json:"sefaz_cstat,omitempty"`
	SefazXMotivo string             `db:"sefaz_xmotivo" json:"sefaz_xmotivo,omitempty"`

	IssuerName     string          `db:"issuer_name" json:"issuer_name,omitempty"`
	IssuerCNPJ     string          `db:"issuer_cnpj" json:"issuer_cnpj,omitempty"`
	RecipientName  string          `db:"recipient_name" json:"recipient_name,omitempty"`
	RecipientTaxID string          `db:"recipient_tax_id" json:"recipient_tax_id,omitempty"`
	Number         string          `db:"number" json:"number,omitempty"`
	IssuedAt       string          `db:"issued_at" json:"issued_at,omitempty"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	Situation      string          `db:"situation" json:"situation,omitempty"`

	XMLEncrypted string     `db:"xml_encrypted" json:"-"`
	XMLHash      string     `db:"xml_hash" json:"xml_hash,omitempty"`
	ImportedAt   *time.Time `db:"imported_at" json:"imported_at,omitempty"`
	ImportedBy   string     `db:"imported_by" json:"imported_by,omitempty"`

	types.BaseModel
}

// HasXML reports whether the full document has been stored
func (i *Import) HasXML() bool {
	return i.XMLEncrypted != ""
}

// IsImported reports whether the import has completed
func (i *Import) IsImported() bool {
	return i.ImportStatus == types.ImportStatusImported
}

// Item is one product line of an imported NF-e
type Item struct {
	ID          string          `db:"id" json:"id"`
	ImportID    string          `db:"import_id" json:"import_id"`
	ItemNumber  int             `db:"item_number" json:"item_number"`
	Description string          `db:"description" json:"description"`
	NCM         string          `db:"ncm" json:"ncm,omitempty"`
	CFOP        string          `db:"cfop" json:"cfop,omitempty"`
	Quantity    decimal.Decimal `db:"qty" json:"qty"`
	Unit        string          `db:"unit" json:"unit"`
	UnitPrice   decimal.Decimal `db:"unit_price" json:"unit_price"`
	Total       decimal.Decimal `db:"total" json:"total"`
	GTIN        string          `db:"gtin" json:"gtin,omitempty"`
	TenantID    string          `db:"tenant_id" json:"tenant_id"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
