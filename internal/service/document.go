package service

import (
	"context"
	"time"

	"github.com/petshopone/fiscal-service/internal/domain/nfeimport"
	"github.com/petshopone/fiscal-service/internal/nfe"
	"github.com/petshopone/fiscal-service/internal/sefaz"
	"github.com/petshopone/fiscal-service/internal/types"
)

// docApplier turns distribution payloads into import rows and items.
// It is shared by the single-key import and the NSU sync.
type docApplier struct {
	ServiceParams
}

// apply decodes a docZip and folds it into the import row in memory.
// Full documents also encrypt the XML and replace the stored items.
// The caller persists the row afterwards.
func (a *docApplier) apply(ctx context.Context, imp *nfeimport.Import, doc sefaz.DocZip) (types.DocumentSchema, error) {
	xmlBytes, schema, err := nfe.DecodeDocZip(doc.Payload)
	if err != nil {
		return types.DocumentSchemaUnknown, err
	}

	switch schema {
	case types.DocumentSchemaSummary:
		summary, err := nfe.ParseSummary(xmlBytes)
		if err != nil {
			return schema, err
		}
		a.applySummary(imp, summary)
	case types.DocumentSchemaFull:
		document, err := nfe.ParseFull(xmlBytes)
		if err != nil {
			return schema, err
		}
		if err := a.applyFull(ctx, imp, document, xmlBytes); err != nil {
			return schema, err
		}
	default:
		// Events and unknown payloads are acknowledged but not stored
		a.Logger.Debugw("skipping unsupported docZip schema",
			"schema", doc.Schema,
			"detected", schema,
			"nsu", doc.NSU,
		)
	}

	return schema, nil
}

func (a *docApplier) applySummary(imp *nfeimport.Import, summary *nfe.Summary) {
	imp.Schema = string(types.DocumentSchemaSummary)
	imp.IssuerName = summary.IssuerName
	imp.IssuerCNPJ = summary.IssuerCNPJ
	imp.RecipientName = summary.RecipientName
	imp.RecipientTaxID = summary.RecipientTaxID
	imp.IssuedAt = summary.IssuedAt
	imp.TotalAmount = summary.TotalAmount
	imp.Situation = summary.Situation
}

func (a *docApplier) applyFull(ctx context.Context, imp *nfeimport.Import, document *nfe.Document, xmlBytes []byte) error {
	// XML token and hash are written together; a row never carries a
	// hash for XML it does not hold
	token, err := a.Vault.EncryptBytes(xmlBytes)
	if err != nil {
		return err
	}
	hash := a.Vault.Hash(string(xmlBytes))

	imp.Schema = string(types.DocumentSchemaFull)
	imp.IssuerName = document.IssuerName
	imp.IssuerCNPJ = document.IssuerCNPJ
	imp.RecipientName = document.RecipientName
	imp.RecipientTaxID = document.RecipientTaxID
	imp.Number = document.Number
	imp.IssuedAt = document.IssuedAt
	imp.TotalAmount = document.TotalAmount
	imp.Situation = "1"
	imp.XMLEncrypted = token
	imp.XMLHash = hash

	for _, skipped := range document.Skipped {
		a.Logger.Warnw("skipping document item",
			"access_key", imp.AccessKey,
			"item", skipped.Index,
			"reason", skipped.Reason,
		)
	}

	items := make([]*nfeimport.Item, 0, len(document.Items))
	now := time.Now().UTC()
	for _, item := range document.Items {
		items = append(items, &nfeimport.Item{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_NFE_ITEM),
			ImportID:    imp.ID,
			ItemNumber:  item.Number,
			Description: item.Description,
			NCM:         item.NCM,
			CFOP:        item.CFOP,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
			GTIN:        item.GTIN,
			TenantID:    imp.TenantID,
			CreatedAt:   now,
		})
	}
	return a.NFeImportRepo.ReplaceItems(ctx, imp.ID, items)
}
