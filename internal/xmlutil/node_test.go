package xmlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIgnoresNamespaces(t *testing.T) {
	doc := []byte(`<?xml version="1.0"?>
<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">
  <soap:Body>
    <retDistDFeInt xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.01">
      <cStat>138</cStat>
      <xMotivo>Documento localizado</xMotivo>
    </retDistDFeInt>
  </soap:Body>
</soap:Envelope>`)

	root, err := Parse(doc)
	require.NoError(t, err)

	assert.Equal(t, "Envelope", root.Name)
	assert.Equal(t, "138", root.TextOf("cStat"))
	assert.Equal(t, "Documento localizado", root.TextOf("xMotivo"))

	ret := root.Find("retDistDFeInt")
	require.NotNil(t, ret)
	assert.Equal(t, "1.01", ret.Attr("versao"))
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("this is not xml <<"))
	require.Error(t, err)

	_, err = Parse([]byte(""))
	require.Error(t, err)
}

func TestFindAllAndChild(t *testing.T) {
	doc := []byte(`<root><det nItem="1"><prod><xProd>A</xProd></prod></det><det nItem="2"><prod><xProd>B</xProd></prod></det></root>`)
	root, err := Parse(doc)
	require.NoError(t, err)

	dets := root.FindAll("det")
	require.Len(t, dets, 2)
	assert.Equal(t, "1", dets[0].Attr("nItem"))
	assert.Equal(t, "B", dets[1].TextOf("xProd"))

	assert.Nil(t, root.Child("prod"))
	require.NotNil(t, dets[0].Child("prod"))
}

func TestTextHandlesWhitespace(t *testing.T) {
	doc := []byte("<root><chNFe>\n  12345678901234567890123456789012345678901234\n</chNFe></root>")
	root, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "12345678901234567890123456789012345678901234", root.TextOf("chNFe"))
}
