package sefaz

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/petshopone/fiscal-service/internal/certificate"
	"github.com/petshopone/fiscal-service/internal/config"
	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"github.com/petshopone/fiscal-service/internal/logger"
	"github.com/petshopone/fiscal-service/internal/types"
	"golang.org/x/time/rate"
)

const (
	soapAction  = "nfeDistDFeInteresse"
	contentType = "text/xml; charset=utf-8"
)

// Querier is the distribution service surface the import and sync
// services depend on. Tests substitute it with a fake.
type Querier interface {
	// QueryByAccessKey fetches documents for a single access key (consChNFe)
	QueryByAccessKey(ctx context.Context, accessKey string) (*QueryResult, error)

	// QueryByLastNSU fetches the next batch after the given NSU (distNSU)
	QueryByLastNSU(ctx context.Context, lastNSU string) (*QueryResult, error)
}

// Client talks to NFeDistribuicaoDFe over mutual TLS with the
// tenant's A1 certificate.
type Client struct {
	http    *retryablehttp.Client
	limiter *rate.Limiter
	logger  *logger.Logger

	cnpj   string
	uf     string
	env    types.Environment
	strict bool
}

// NewClient builds a distribution client for one tenant credential.
// The PEM material only touches disk inside the scoped loader.
func NewClient(cfg *config.Configuration, cred *certificate.Credential, cnpj, uf string, log *logger.Logger) (*Client, error) {
	cnpj = digitsOnly(cnpj)
	if len(cnpj) != 14 {
		return nil, ierr.NewError("invalid CNPJ for distribution query").
			WithHint("CNPJ must contain 14 digits").
			Mark(ierr.ErrValidation)
	}

	var tlsCert tls.Certificate
	err := certificate.WithTLSCertificate(cred, func(cert tls.Certificate) error {
		tlsCert = cert
		return nil
	})
	if err != nil {
		return nil, err
	}

	caPool, err := x509.SystemCertPool()
	if err != nil || caPool == nil {
		caPool = x509.NewCertPool()
	}

	// SEFAZ endpoints require client renegotiation and pin TLS 1.2
	tlsConfig := &tls.Config{
		Certificates:  []tls.Certificate{tlsCert},
		RootCAs:       caPool,
		Renegotiation: tls.RenegotiateFreelyAsClient,
		MinVersion:    tls.VersionTLS12,
		MaxVersion:    tls.VersionTLS12,
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.Fiscal.MaxRetries
	httpClient.Logger = nil
	httpClient.HTTPClient = &http.Client{
		Timeout: cfg.Fiscal.RequestTimeout(),
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
			Proxy:           http.ProxyFromEnvironment,
			MaxIdleConns:    10,
			IdleConnTimeout: 30 * time.Second,
		},
	}

	perSecond := rate.Limit(float64(cfg.Fiscal.RequestsPerMinute) / 60.0)
	if perSecond <= 0 {
		perSecond = rate.Limit(20.0 / 60.0)
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(perSecond, 1),
		logger:  log,
		cnpj:    cnpj,
		uf:      normalizeUF(uf),
		env:     cfg.Fiscal.Environment,
		strict:  cfg.Fiscal.StrictResponseParsing,
	}, nil
}

func (c *Client) QueryByAccessKey(ctx context.Context, accessKey string) (*QueryResult, error) {
	key, err := types.ValidateAccessKey(accessKey)
	if err != nil {
		return nil, err
	}
	return c.query(ctx, c.buildConsChNFe(key))
}

func (c *Client) QueryByLastNSU(ctx context.Context, lastNSU string) (*QueryResult, error) {
	return c.query(ctx, c.buildDistNSU(padNSU(lastNSU)))
}

func (c *Client) query(ctx context.Context, message string) (*QueryResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("rate limiter wait aborted").
			Mark(ierr.ErrSystem)
	}

	url := EndpointForUF(c.uf, c.env)
	envelope := c.buildEnvelope(message)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(envelope)))
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to build distribution request").
			Mark(ierr.ErrSystem)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("SOAPAction", fmt.Sprintf("%q", soapAction))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warnw("distribution request failed",
			"uf", c.uf,
			"error", err,
		)
		return nil, ierr.WithError(err).
			WithMessage("distribution service request failed").
			WithHint("The fiscal webservice is unreachable, try again later").
			Mark(ierr.ErrUpstream)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to read distribution response").
			Mark(ierr.ErrUpstream)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ierr.NewError("distribution service returned an error status").
			WithHint("The fiscal webservice rejected the request").
			WithReportableDetails(map[string]any{
				"status": resp.StatusCode,
				"body":   snippet(string(body), 200),
			}).
			Mark(ierr.ErrUpstream)
	}

	result, err := ParseResponse(body, c.strict)
	if err != nil {
		return nil, err
	}
	result.ElapsedMs = time.Since(start).Milliseconds()

	c.logger.Infow("distribution response",
		"c_stat", result.CStat,
		"doc_count", len(result.Docs),
		"ult_nsu", result.UltNSU,
		"elapsed_ms", result.ElapsedMs,
	)

	return result, nil
}

// SOAP 1.1; some authorizers are whitespace-sensitive, keep the
// payload on single lines.
func (c *Client) buildEnvelope(message string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/" xmlns:dfe="http://www.portalfiscal.inf.br/nfe/wsdl/NFeDistribuicaoDFe">` +
		`<soap:Body>` + message + `</soap:Body></soap:Envelope>`
}

func (c *Client) buildDistNSU(lastNSU string) string {
	return `<dfe:nfeDadosMsg>` +
		`<distDFeInt xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.01">` +
		`<tpAmb>` + c.tpAmb() + `</tpAmb>` +
		`<cUFAutor>` + UFCode(c.uf) + `</cUFAutor>` +
		`<CNPJ>` + c.cnpj + `</CNPJ>` +
		`<distNSU><ultNSU>` + lastNSU + `</ultNSU></distNSU>` +
		`</distDFeInt></dfe:nfeDadosMsg>`
}

func (c *Client) buildConsChNFe(accessKey string) string {
	return `<dfe:nfeDadosMsg>` +
		`<distDFeInt xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.01">` +
		`<tpAmb>` + c.tpAmb() + `</tpAmb>` +
		`<cUFAutor>` + UFCode(c.uf) + `</cUFAutor>` +
		`<CNPJ>` + c.cnpj + `</CNPJ>` +
		`<consChNFe><chNFe>` + accessKey + `</chNFe></consChNFe>` +
		`</distDFeInt></dfe:nfeDadosMsg>`
}

func (c *Client) tpAmb() string {
	if c.env == types.EnvironmentHomologation {
		return "2"
	}
	return "1"
}

// padNSU left-pads an NSU to the 15 digits the schema requires
func padNSU(nsu string) string {
	nsu = strings.TrimSpace(nsu)
	if nsu == "" {
		nsu = "0"
	}
	if len(nsu) >= 15 {
		return nsu
	}
	return strings.Repeat("0", 15-len(nsu)) + nsu
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
