package nfe

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"io"
	"strings"

	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/types"
	"github.com/petshopone/fiscal-service/internal/xmlutil"
)

// DecodeDocZip unpacks a docZip payload (base64 over gzip) and
// classifies it by the local name of its root element.
func DecodeDocZip(payload string) ([]byte, types.DocumentSchema, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, types.DocumentSchemaUnknown, ierr.WithError(err).
			WithMessage("docZip payload is not valid base64").
			Mark(ierr.ErrMalformedResponse)
	}

	reader, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, types.DocumentSchemaUnknown, ierr.WithError(err).
			WithMessage("docZip payload is not valid gzip").
			Mark(ierr.ErrMalformedResponse)
	}
	defer reader.Close()

	xmlBytes, err := io.ReadAll(reader)
	if err != nil {
		return nil, types.DocumentSchemaUnknown, ierr.WithError(err).
			WithMessage("failed to decompress docZip payload").
			Mark(ierr.ErrMalformedResponse)
	}

	root, err := xmlutil.Parse(xmlBytes)
	if err != nil {
		return nil, types.DocumentSchemaUnknown, err
	}

	return xmlBytes, schemaFromRoot(root.Name), nil
}

func schemaFromRoot(rootName string) types.DocumentSchema {
	switch rootName {
	case "resNFe":
		return types.DocumentSchemaSummary
	case "nfeProc", "procNFe", "NFe":
		return types.DocumentSchemaFull
	case "resEvento", "procEventoNFe":
		return types.DocumentSchemaEvent
	default:
		return types.DocumentSchemaUnknown
	}
}
