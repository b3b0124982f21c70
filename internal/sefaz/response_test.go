package sefaz

import (
	"testing"

	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wrappedResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <nfeDistDFeInteresseResponse xmlns="http://www.portalfiscal.inf.br/nfe/wsdl/NFeDistribuicaoDFe">
      <nfeDistDFeInteresseResult>
        <retDistDFeInt xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.01">
          <tpAmb>1</tpAmb>
          <cStat>138</cStat>
          <xMotivo>Documento localizado</xMotivo>
          <ultNSU>000000000000052</ultNSU>
          <maxNSU>000000000000060</maxNSU>
          <consMaxNSU>000000000000060</consMaxNSU>
          <loteDistDFeInt>
            <docZip NSU="000000000000051" schema="resNFe_v1.01.xsd">H4sIAAAAbase64</docZip>
            <docZip NSU="000000000000052" schema="procNFe_v4.00.xsd">H4sIBBBbase64</docZip>
          </loteDistDFeInt>
        </retDistDFeInt>
      </nfeDistDFeInteresseResult>
    </nfeDistDFeInteresseResponse>
  </soap:Body>
</soap:Envelope>`

func TestParseResponseWrapped(t *testing.T) {
	result, err := ParseResponse([]byte(wrappedResponse), true)
	require.NoError(t, err)

	assert.Equal(t, "138", result.CStat)
	assert.Equal(t, "Documento localizado", result.XMotivo)
	assert.Equal(t, "000000000000052", result.UltNSU)
	assert.Equal(t, "000000000000060", result.ConsMaxNSU)
	assert.True(t, result.Found())

	require.Len(t, result.Docs, 2)
	assert.Equal(t, "000000000000051", result.Docs[0].NSU)
	assert.Equal(t, "resNFe_v1.01.xsd", result.Docs[0].Schema)
	assert.Equal(t, "H4sIAAAAbase64", result.Docs[0].Payload)
	assert.Equal(t, "procNFe_v4.00.xsd", result.Docs[1].Schema)
}

func TestParseResponseTolerant(t *testing.T) {
	// Some authorizers omit the documented wrappers; tolerant mode
	// accepts any body that carries a cStat.
	bare := `<Envelope><Body><retorno><cStat>137</cStat><xMotivo>Nenhum documento localizado</xMotivo><ultNSU>000000000000010</ultNSU></retorno></Body></Envelope>`

	result, err := ParseResponse([]byte(bare), false)
	require.NoError(t, err)
	assert.Equal(t, "137", result.CStat)
	assert.True(t, result.NoNewDocuments())
	assert.False(t, result.Found())

	// Strict mode rejects the same payload
	_, err = ParseResponse([]byte(bare), true)
	require.Error(t, err)
	assert.True(t, ierr.IsMalformedResponse(err))
}

func TestParseResponseRateLimited(t *testing.T) {
	resp := `<Envelope><Body><retDistDFeInt><cStat>656</cStat><xMotivo>Consumo indevido</xMotivo></retDistDFeInt></Body></Envelope>`
	result, err := ParseResponse([]byte(resp), false)
	require.NoError(t, err)
	assert.True(t, result.RateLimited())
}

func TestParseResponseMissingBody(t *testing.T) {
	_, err := ParseResponse([]byte(`<Envelope><Header/></Envelope>`), false)
	require.Error(t, err)
	assert.True(t, ierr.IsMalformedResponse(err))
}

func TestParseResponseMissingCStat(t *testing.T) {
	_, err := ParseResponse([]byte(`<Envelope><Body><retDistDFeInt><xMotivo>??</xMotivo></retDistDFeInt></Body></Envelope>`), false)
	require.Error(t, err)
	assert.True(t, ierr.IsMalformedResponse(err))
}

func TestParseResponseInvalidXML(t *testing.T) {
	_, err := ParseResponse([]byte(`<html>gateway error`), false)
	require.Error(t, err)
	assert.True(t, ierr.IsMalformedResponse(err))
}
