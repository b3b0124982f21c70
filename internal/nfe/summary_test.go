package nfe

import (
	"strings"
	"testing"

	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAccessKey = strings.Repeat("35210112345678", 3) + "90"

func TestParseSummary(t *testing.T) {
	doc := `<resNFe xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.01">
  <chNFe>` + testAccessKey + `</chNFe>
  <CNPJ>12345678000190</CNPJ>
  <xNome>FORNECEDOR PET LTDA</xNome>
  <dhEmi>2026-08-10T14:32:00-03:00</dhEmi>
  <vNF>1523.90</vNF>
  <cSitNFe>1</cSitNFe>
</resNFe>`

	summary, err := ParseSummary([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, testAccessKey, summary.AccessKey)
	assert.Equal(t, "FORNECEDOR PET LTDA", summary.IssuerName)
	assert.Equal(t, "12345678000190", summary.IssuerCNPJ)
	assert.Equal(t, "2026-08-10T14:32:00-03:00", summary.IssuedAt)
	assert.Equal(t, "1523.9", summary.TotalAmount.String())
	assert.Equal(t, "1", summary.Situation)
	assert.Equal(t, "FORNECEDOR PET LTDA", summary.DisplayIssuer())
}

func TestParseSummaryWithoutNamespace(t *testing.T) {
	doc := `<resNFe versao="1.01"><chNFe>` + testAccessKey + `</chNFe><CNPJ>12345678000190</CNPJ><vNF>10,50</vNF></resNFe>`

	summary, err := ParseSummary([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, testAccessKey, summary.AccessKey)
	assert.Equal(t, "10.5", summary.TotalAmount.String())
	// No xNome, so the CNPJ stands in
	assert.Equal(t, "12345678000190", summary.DisplayIssuer())
}

func TestParseSummaryInvalidKey(t *testing.T) {
	doc := `<resNFe><chNFe>123</chNFe></resNFe>`
	_, err := ParseSummary([]byte(doc))
	require.Error(t, err)
	assert.True(t, ierr.IsMalformedResponse(err))
}

func TestParseSummaryMissingElement(t *testing.T) {
	_, err := ParseSummary([]byte(`<procEventoNFe><chNFe>` + testAccessKey + `</chNFe></procEventoNFe>`))
	require.Error(t, err)
	assert.True(t, ierr.IsMalformedResponse(err))
}

func TestParseSummaryRecipientBlock(t *testing.T) {
	doc := `<resNFe><chNFe>` + testAccessKey + `</chNFe><xNome>EMITENTE</xNome><dest><xNome>PETSHOP ONE</xNome><CPF>12345678901</CPF></dest></resNFe>`

	summary, err := ParseSummary([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "EMITENTE", summary.IssuerName)
	assert.Equal(t, "PETSHOP ONE", summary.RecipientName)
	assert.Equal(t, "12345678901", summary.RecipientTaxID)
}
