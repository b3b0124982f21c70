package sefaz

import (
	"strings"
	"testing"

	"github.com/petshopone/fiscal-service/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestEndpointForUF(t *testing.T) {
	// SVRS and SVAN states delegate to the national environment
	assert.Equal(t, defaultProductionURL, EndpointForUF("RS", types.EnvironmentProduction))
	assert.Equal(t, defaultProductionURL, EndpointForUF("MA", types.EnvironmentProduction))
	assert.Equal(t, defaultProductionURL, EndpointForUF("SP", types.EnvironmentProduction))

	assert.Equal(t, defaultHomologationURL, EndpointForUF("sp", types.EnvironmentHomologation))

	// Unknown UF still resolves to the national default
	assert.Equal(t, defaultProductionURL, EndpointForUF("ZZ", types.EnvironmentProduction))
	assert.Equal(t, defaultProductionURL, EndpointForUF("", types.EnvironmentProduction))
}

func TestUFCode(t *testing.T) {
	assert.Equal(t, "35", UFCode("SP"))
	assert.Equal(t, "33", UFCode("rj"))
	assert.Equal(t, "43", UFCode(" RS "))
	assert.Equal(t, "35", UFCode("XX"))
	assert.Equal(t, "35", UFCode(""))
}

func TestPadNSU(t *testing.T) {
	assert.Equal(t, "000000000000000", padNSU(""))
	assert.Equal(t, "000000000000000", padNSU("0"))
	assert.Equal(t, "000000000000042", padNSU("42"))
	assert.Equal(t, "000000000000042", padNSU(" 42 "))
	assert.Equal(t, "123456789012345", padNSU("123456789012345"))
}

func TestBuildMessages(t *testing.T) {
	c := &Client{
		cnpj: "12345678000190",
		uf:   "SP",
		env:  types.EnvironmentProduction,
	}

	dist := c.buildDistNSU(padNSU("7"))
	assert.Contains(t, dist, "<tpAmb>1</tpAmb>")
	assert.Contains(t, dist, "<cUFAutor>35</cUFAutor>")
	assert.Contains(t, dist, "<CNPJ>12345678000190</CNPJ>")
	assert.Contains(t, dist, "<distNSU><ultNSU>000000000000007</ultNSU></distNSU>")

	key := strings.Repeat("3", 44)
	cons := c.buildConsChNFe(key)
	assert.Contains(t, cons, "<consChNFe><chNFe>"+key+"</chNFe></consChNFe>")

	c.env = types.EnvironmentHomologation
	assert.Contains(t, c.buildDistNSU(padNSU("0")), "<tpAmb>2</tpAmb>")

	envelope := c.buildEnvelope(dist)
	assert.True(t, strings.HasPrefix(envelope, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, envelope, "soap:Envelope")
	assert.NotContains(t, envelope, "\n")
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "12345678000190", digitsOnly("12.345.678/0001-90"))
	assert.Equal(t, "", digitsOnly("abc"))
}
