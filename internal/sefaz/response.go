package sefaz

import (
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/xmlutil"
)

// Status codes returned by the distribution service
const (
	CStatDocumentsFound = "138"
	CStatNoDocuments    = "137"
	CStatRateLimited    = "656"
)

// DocZip is a single compressed document returned by the service.
// Schema tells the payload type apart (resNFe, procNFe, events);
// Payload is the base64 of the gzipped XML as received.
type DocZip struct {
	NSU     string
	Schema  string
	Payload string
}

// QueryResult is the decoded body of a distribution response
type QueryResult struct {
	CStat      string
	XMotivo    string
	UltNSU     string
	ConsMaxNSU string
	Docs       []DocZip
	ElapsedMs  int64
}

// Found reports whether the query located documents
func (r *QueryResult) Found() bool {
	return r.CStat == CStatDocumentsFound
}

// NoNewDocuments reports the "nenhum documento localizado" status,
// which ends a sync run without error
func (r *QueryResult) NoNewDocuments() bool {
	return r.CStat == CStatNoDocuments
}

// RateLimited reports the "consumo indevido" status. The service asks
// the consumer to back off; it ends the current run but is not a failure.
func (r *QueryResult) RateLimited() bool {
	return r.CStat == CStatRateLimited
}

// ParseResponse decodes a SOAP response from the distribution service.
// In tolerant mode any body carrying a cStat is accepted, matching the
// slightly divergent envelopes the state authorizers produce. Strict
// mode additionally requires the documented result wrappers.
func ParseResponse(data []byte, strict bool) (*QueryResult, error) {
	root, err := xmlutil.Parse(data)
	if err != nil {
		return nil, err
	}

	body := root.Find("Body")
	if body == nil {
		return nil, ierr.NewError("soap response has no Body element").
			WithHint("The distribution service returned an unexpected response").
			Mark(ierr.ErrMalformedResponse)
	}

	scope := body
	if wrapper := findResultWrapper(body); wrapper != nil {
		scope = wrapper
	} else if strict {
		return nil, ierr.NewError("soap response missing result wrapper").
			WithHint("The distribution service returned an unexpected response").
			WithReportableDetails(map[string]any{
				"expected": []string{"nfeDistDFeInteresseResult", "retDistDFeInt"},
			}).
			Mark(ierr.ErrMalformedResponse)
	}

	result := &QueryResult{
		CStat:      scope.TextOf("cStat"),
		XMotivo:    scope.TextOf("xMotivo"),
		UltNSU:     scope.TextOf("ultNSU"),
		ConsMaxNSU: scope.TextOf("consMaxNSU"),
	}

	if result.CStat == "" {
		return nil, ierr.NewError("soap response has no cStat").
			WithHint("The distribution service returned an unexpected response").
			Mark(ierr.ErrMalformedResponse)
	}

	for _, doc := range scope.FindAll("docZip") {
		result.Docs = append(result.Docs, DocZip{
			NSU:     doc.Attr("NSU"),
			Schema:  doc.Attr("schema"),
			Payload: doc.TrimmedText(),
		})
	}

	return result, nil
}

func findResultWrapper(body *xmlutil.Node) *xmlutil.Node {
	for _, name := range []string{"nfeDistDFeInteresseResult", "retDistDFeInt", "loteDistDFeInt"} {
		if node := body.Find(name); node != nil {
			return node
		}
	}
	return nil
}
