package nfe

import (
	"strings"
	"testing"

	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullDocument(items string) string {
	return `<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe Id="NFe` + testAccessKey + `" versao="4.00">
      <ide><nNF>12345</nNF><dhEmi>2026-08-12T09:00:00-03:00</dhEmi></ide>
      <emit><CNPJ>12345678000190</CNPJ><xNome>DISTRIBUIDORA ANIMALIA</xNome></emit>
      <dest><CNPJ>98765432000109</CNPJ><xNome>PETSHOP ONE</xNome></dest>
      ` + items + `
      <total><ICMSTot><vNF>275.40</vNF></ICMSTot></total>
    </infNFe>
  </NFe>
  <protNFe><infProt><chNFe>` + testAccessKey + `</chNFe><cStat>100</cStat></infProt></protNFe>
</nfeProc>`
}

func TestParseFull(t *testing.T) {
	doc := fullDocument(`
      <det nItem="1">
        <prod>
          <cProd>RAC01</cProd>
          <cEAN>7891234567895</cEAN>
          <xProd>RACAO PREMIUM CAES ADULTOS 15KG</xProd>
          <NCM>23091000</NCM>
          <CFOP>5102</CFOP>
          <uCom>SC</uCom>
          <qCom>2.0000</qCom>
          <vUnCom>120.5000</vUnCom>
          <vProd>241.00</vProd>
        </prod>
      </det>
      <det nItem="2">
        <prod>
          <cProd>BRQ09</cProd>
          <cEAN>SEM GTIN</cEAN>
          <xProd>BRINQUEDO MORDEDOR</xProd>
          <qCom>4</qCom>
          <vUnCom>8,60</vUnCom>
          <vProd>34.40</vProd>
        </prod>
      </det>`)

	parsed, err := ParseFull([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, testAccessKey, parsed.AccessKey)
	assert.Equal(t, "12345", parsed.Number)
	assert.Equal(t, "DISTRIBUIDORA ANIMALIA", parsed.IssuerName)
	assert.Equal(t, "12345678000190", parsed.IssuerCNPJ)
	assert.Equal(t, "PETSHOP ONE", parsed.RecipientName)
	assert.Equal(t, "98765432000109", parsed.RecipientTaxID)
	assert.Equal(t, "2026-08-12T09:00:00-03:00", parsed.IssuedAt)
	assert.Equal(t, "275.4", parsed.TotalAmount.String())

	require.Len(t, parsed.Items, 2)
	assert.Empty(t, parsed.Skipped)

	first := parsed.Items[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "RACAO PREMIUM CAES ADULTOS 15KG", first.Description)
	assert.Equal(t, "23091000", first.NCM)
	assert.Equal(t, "5102", first.CFOP)
	assert.Equal(t, "SC", first.Unit)
	assert.Equal(t, "2", first.Quantity.String())
	assert.Equal(t, "120.5", first.UnitPrice.String())
	assert.Equal(t, "241", first.Total.String())
	assert.Equal(t, "7891234567895", first.GTIN)

	second := parsed.Items[1]
	assert.Equal(t, 2, second.Number)
	// "SEM GTIN" means no barcode
	assert.Empty(t, second.GTIN)
	// Comma decimal separator is accepted
	assert.Equal(t, "8.6", second.UnitPrice.String())
	// No unit declared falls back to UN
	assert.Equal(t, "UN", second.Unit)
}

func TestParseFullSkipsUnusableItems(t *testing.T) {
	doc := fullDocument(`
      <det nItem="1"><prod><xProd>SEM QUANTIDADE</xProd><qCom>0</qCom><qTrib>0</qTrib></prod></det>
      <det nItem="2"><prod><qCom>1</qCom><vUnCom>5.00</vUnCom></prod></det>
      <det nItem="3"></det>
      <det nItem="4"><prod><xProd>VALIDO</xProd><qCom>1</qCom><vUnCom>5.00</vUnCom><vProd>5.00</vProd></prod></det>`)

	parsed, err := ParseFull([]byte(doc))
	require.NoError(t, err)

	require.Len(t, parsed.Items, 1)
	assert.Equal(t, 4, parsed.Items[0].Number)

	require.Len(t, parsed.Skipped, 3)
	assert.Equal(t, SkippedItem{Index: 1, Reason: SkipReasonNonPositiveQty}, parsed.Skipped[0])
	assert.Equal(t, SkippedItem{Index: 2, Reason: SkipReasonMissingDescription}, parsed.Skipped[1])
	assert.Equal(t, SkippedItem{Index: 3, Reason: SkipReasonMissingProduct}, parsed.Skipped[2])
}

func TestParseFullQuantityAndPriceFallbacks(t *testing.T) {
	doc := fullDocument(`
      <det nItem="1">
        <prod>
          <xProd>AREIA HIGIENICA 4KG</xProd>
          <qCom>0</qCom>
          <qTrib>3</qTrib>
          <vUnCom>0</vUnCom>
          <vUnTrib>12.30</vUnTrib>
          <uTrib>PC</uTrib>
        </prod>
      </det>`)

	parsed, err := ParseFull([]byte(doc))
	require.NoError(t, err)
	require.Len(t, parsed.Items, 1)

	item := parsed.Items[0]
	assert.Equal(t, "3", item.Quantity.String())
	assert.Equal(t, "12.3", item.UnitPrice.String())
	// vProd absent, reconstructed as qty * unit price rounded to cents
	assert.Equal(t, "36.9", item.Total.String())
	assert.Equal(t, "PC", item.Unit)
}

func TestParseFullTruncatesLongFields(t *testing.T) {
	longDesc := strings.Repeat("X", 600)
	doc := fullDocument(`
      <det nItem="1"><prod><xProd>` + longDesc + `</xProd><NCM>123456789012</NCM><CFOP>510255</CFOP><qCom>1</qCom><vUnCom>1.00</vUnCom><vProd>1.00</vProd></prod></det>`)

	parsed, err := ParseFull([]byte(doc))
	require.NoError(t, err)
	require.Len(t, parsed.Items, 1)
	assert.Len(t, parsed.Items[0].Description, 500)
	assert.Len(t, parsed.Items[0].NCM, 10)
	assert.Len(t, parsed.Items[0].CFOP, 4)
}

func TestParseFullInvalidKey(t *testing.T) {
	doc := `<NFe><infNFe Id="NFe123"><ide/></infNFe></NFe>`
	_, err := ParseFull([]byte(doc))
	require.Error(t, err)
	assert.True(t, ierr.IsMalformedResponse(err))
}

func TestParseFullMissingInfNFe(t *testing.T) {
	_, err := ParseFull([]byte(`<nfeProc><protNFe/></nfeProc>`))
	require.Error(t, err)
	assert.True(t, ierr.IsMalformedResponse(err))
}

func TestParseDecimal(t *testing.T) {
	assert.Equal(t, "10.5", ParseDecimal("10.50").String())
	assert.Equal(t, "10.5", ParseDecimal("10,50").String())
	assert.Equal(t, "0", ParseDecimal("").String())
	assert.Equal(t, "0", ParseDecimal("abc").String())
	assert.Equal(t, "0", ParseDecimal("  ").String())
	assert.Equal(t, "-3.2", ParseDecimal("-3,2").String())
}
