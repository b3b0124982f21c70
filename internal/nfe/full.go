package nfe

import (
	"strings"

	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/xmlutil"
	"github.com/shopspring/decimal"
)

const (
	maxDescriptionLen = 500
	maxNCMLen         = 10
	maxCFOPLen        = 4
	defaultUnit       = "UN"
)

// Item is one usable product line from a full NF-e document
type Item struct {
	Number      int
	Description string
	NCM         string
	CFOP        string
	Quantity    decimal.Decimal
	Unit        string
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
	// GTIN is empty when the document declares no barcode ("SEM GTIN")
	GTIN string
}

// SkippedItem records a product line that could not be imported and why.
// Index is the 1-based det position in the document.
type SkippedItem struct {
	Index  int
	Reason string
}

// Skip reasons reported alongside imported items
const (
	SkipReasonMissingProduct     = "missing prod element"
	SkipReasonMissingDescription = "missing product description"
	SkipReasonNonPositiveQty     = "non-positive quantity"
)

// Document is the decoded content of a procNFe/nfeProc/NFe payload
type Document struct {
	AccessKey      string
	Number         string
	IssuerName     string
	IssuerCNPJ     string
	RecipientName  string
	RecipientTaxID string
	IssuedAt       string
	TotalAmount    decimal.Decimal
	Items          []Item
	Skipped        []SkippedItem
}

// DisplayIssuer returns the issuer name, falling back to the CNPJ and
// then to a placeholder
func (d *Document) DisplayIssuer() string {
	if d.IssuerName != "" {
		return d.IssuerName
	}
	if d.IssuerCNPJ != "" {
		return d.IssuerCNPJ
	}
	return "-"
}

// ParseFull decodes a full NF-e document. Unusable product lines are
// reported in Skipped instead of failing the document.
func ParseFull(xmlContent []byte) (*Document, error) {
	root, err := xmlutil.Parse(xmlContent)
	if err != nil {
		return nil, err
	}

	infNFe := root.Find("infNFe")
	if infNFe == nil {
		return nil, ierr.NewError("infNFe element not found").
			Mark(ierr.ErrMalformedResponse)
	}

	accessKey := strings.TrimPrefix(infNFe.Attr("Id"), "NFe")
	if len(accessKey) != 44 {
		return nil, ierr.NewError("infNFe Id is not a valid access key").
			WithReportableDetails(map[string]any{
				"length": len(accessKey),
			}).
			Mark(ierr.ErrMalformedResponse)
	}

	doc := &Document{AccessKey: accessKey}

	if emit := infNFe.Child("emit"); emit != nil {
		doc.IssuerName = emit.TextOf("xNome")
		doc.IssuerCNPJ = emit.TextOf("CNPJ")
	}

	if dest := infNFe.Child("dest"); dest != nil {
		doc.RecipientName = dest.TextOf("xNome")
		doc.RecipientTaxID = dest.TextOf("CNPJ")
		if doc.RecipientTaxID == "" {
			doc.RecipientTaxID = dest.TextOf("CPF")
		}
	}

	if ide := infNFe.Child("ide"); ide != nil {
		doc.IssuedAt = ide.TextOf("dhEmi")
		doc.Number = ide.TextOf("nNF")
	}

	if total := infNFe.Child("total"); total != nil {
		if icmsTot := total.Child("ICMSTot"); icmsTot != nil {
			doc.TotalAmount = ParseDecimal(icmsTot.TextOf("vNF"))
		}
	}

	for index, det := range infNFe.FindAll("det") {
		itemNumber := index + 1

		prod := det.Child("prod")
		if prod == nil {
			doc.Skipped = append(doc.Skipped, SkippedItem{Index: itemNumber, Reason: SkipReasonMissingProduct})
			continue
		}

		description := prod.TextOf("xProd")
		if description == "" {
			doc.Skipped = append(doc.Skipped, SkippedItem{Index: itemNumber, Reason: SkipReasonMissingDescription})
			continue
		}

		quantity := ParseDecimal(prod.TextOf("qCom"))
		if !quantity.IsPositive() {
			quantity = ParseDecimal(prod.TextOf("qTrib"))
		}
		if !quantity.IsPositive() {
			doc.Skipped = append(doc.Skipped, SkippedItem{Index: itemNumber, Reason: SkipReasonNonPositiveQty})
			continue
		}

		unitPrice := ParseDecimal(prod.TextOf("vUnCom"))
		if !unitPrice.IsPositive() {
			unitPrice = ParseDecimal(prod.TextOf("vUnTrib"))
		}

		// vProd is trusted when the document states it; otherwise it is
		// reconstructed from quantity and unit price
		total := ParseDecimal(prod.TextOf("vProd"))
		if !total.IsPositive() && unitPrice.IsPositive() {
			total = unitPrice.Mul(quantity).Round(2)
		}

		unit := prod.TextOf("uCom")
		if unit == "" {
			unit = prod.TextOf("uTrib")
		}
		if unit == "" {
			unit = defaultUnit
		}

		doc.Items = append(doc.Items, Item{
			Number:      itemNumber,
			Description: truncate(description, maxDescriptionLen),
			NCM:         truncate(prod.TextOf("NCM"), maxNCMLen),
			CFOP:        truncate(prod.TextOf("CFOP"), maxCFOPLen),
			Quantity:    quantity,
			Unit:        unit,
			UnitPrice:   unitPrice,
			Total:       total,
			GTIN:        normalizeGTIN(prod.TextOf("cEAN")),
		})
	}

	return doc, nil
}

// normalizeGTIN treats the "SEM GTIN" marker as no barcode
func normalizeGTIN(gtin string) string {
	gtin = strings.TrimSpace(gtin)
	if strings.EqualFold(gtin, "SEM GTIN") {
		return ""
	}
	return gtin
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
