package nfe

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"testing"

	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeDocZip(t *testing.T, xml string) string {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(xml))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestDecodeDocZip(t *testing.T) {
	cases := []struct {
		name   string
		xml    string
		schema types.DocumentSchema
	}{
		{"summary", `<resNFe><chNFe>` + testAccessKey + `</chNFe></resNFe>`, types.DocumentSchemaSummary},
		{"proc", `<nfeProc><NFe/></nfeProc>`, types.DocumentSchemaFull},
		{"bare nfe", `<NFe><infNFe/></NFe>`, types.DocumentSchemaFull},
		{"event", `<resEvento><chNFe/></resEvento>`, types.DocumentSchemaEvent},
		{"unknown", `<somethingElse/>`, types.DocumentSchemaUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := encodeDocZip(t, tc.xml)
			xmlBytes, schema, err := DecodeDocZip(payload)
			require.NoError(t, err)
			assert.Equal(t, tc.schema, schema)
			assert.Equal(t, tc.xml, string(xmlBytes))
		})
	}
}

func TestDecodeDocZipBadBase64(t *testing.T) {
	_, _, err := DecodeDocZip("!!not-base64!!")
	require.Error(t, err)
	assert.True(t, ierr.IsMalformedResponse(err))
}

func TestDecodeDocZipNotGzip(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("<resNFe/>"))
	_, _, err := DecodeDocZip(payload)
	require.Error(t, err)
	assert.True(t, ierr.IsMalformedResponse(err))
}
