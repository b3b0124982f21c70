package nfe

import (
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/xmlutil"
	"github.com/shopspring/decimal"
)

// Summary is the metadata carried by a resNFe document. The summary
// never includes line items; those only exist in the full document.
type Summary struct {
	AccessKey      string
	IssuerName     string
	IssuerCNPJ     string
	RecipientName  string
	RecipientTaxID string
	IssuedAt       string
	TotalAmount    decimal.Decimal
	Situation      string
}

// DisplayIssuer returns the issuer name, falling back to the CNPJ and
// then to a placeholder
func (s *Summary) DisplayIssuer() string {
	if s.IssuerName != "" {
		return s.IssuerName
	}
	if s.IssuerCNPJ != "" {
		return s.IssuerCNPJ
	}
	return "-"
}

// ParseSummary decodes a resNFe payload
func ParseSummary(xmlContent []byte) (*Summary, error) {
	root, err := xmlutil.Parse(xmlContent)
	if err != nil {
		return nil, err
	}

	res := root.Find("resNFe")
	if res == nil {
		return nil, ierr.NewError("resNFe element not found").
			Mark(ierr.ErrMalformedResponse)
	}

	accessKey := res.TextOf("chNFe")
	if len(accessKey) != 44 {
		return nil, ierr.NewError("resNFe carries an invalid access key").
			WithReportableDetails(map[string]any{
				"length": len(accessKey),
			}).
			Mark(ierr.ErrMalformedResponse)
	}

	summary := &Summary{
		AccessKey:   accessKey,
		IssuedAt:    res.TextOf("dhEmi"),
		TotalAmount: ParseDecimal(res.TextOf("vNF")),
		Situation:   res.TextOf("cSitNFe"),
	}

	// resNFe keys the issuer fields at the top level; take the first
	// xNome/CNPJ in document order
	summary.IssuerName = res.TextOf("xNome")
	summary.IssuerCNPJ = res.TextOf("CNPJ")

	if dest := res.Child("dest"); dest != nil {
		summary.RecipientName = dest.TextOf("xNome")
		summary.RecipientTaxID = dest.TextOf("CNPJ")
		if summary.RecipientTaxID == "" {
			summary.RecipientTaxID = dest.TextOf("CPF")
		}
	}

	return summary, nil
}
