package certificate

import (
	"crypto/x509"
	"encoding/pem"
	"time"

	ierr "github.com/petshopone/fiscal-service/internal/errors"
	"golang.org/x/crypto/pkcs12"
)

// Credential is the PEM form of an A1 certificate extracted from a
// PKCS#12 bundle, ready for mutual TLS.
type Credential struct {
	CertificatePEM []byte
	PrivateKeyPEM  []byte

	Subject      string
	SerialNumber string
	NotBefore    time.Time
	NotAfter     time.Time
}

// IsExpired reports whether the leaf certificate is past its validity window
func (c *Credential) IsExpired(now time.Time) bool {
	return now.After(c.NotAfter)
}

// Extract opens a PKCS#12 bundle with the given password and returns
// the certificate chain and private key as PEM. Any parse or password
// failure maps to ErrInvalidCertificate so callers can surface a single
// "check your certificate and password" message.
func Extract(pfxData []byte, password string) (*Credential, error) {
	if len(pfxData) == 0 {
		return nil, ierr.NewError("certificate file is empty").
			WithHint("Upload a valid PKCS#12 (.pfx/.p12) file").
			Mark(ierr.ErrInvalidCertificate)
	}

	blocks, err := pkcs12.ToPEM(pfxData, password)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("failed to decode pkcs12 bundle").
			WithHint("Certificate file or password is invalid").
			Mark(ierr.ErrInvalidCertificate)
	}

	var certPEM, keyPEM []byte
	var certs []*x509.Certificate
	for _, block := range blocks {
		// ToPEM attaches bag attributes as headers; strip them so the
		// output is a clean concatenable PEM document.
		clean := &pem.Block{Type: block.Type, Bytes: block.Bytes}
		switch block.Type {
		case "CERTIFICATE":
			cert, parseErr := x509.ParseCertificate(block.Bytes)
			if parseErr != nil {
				continue
			}
			certs = append(certs, cert)
			certPEM = append(certPEM, pem.EncodeToMemory(clean)...)
		default:
			keyPEM = append(keyPEM, pem.EncodeToMemory(clean)...)
		}
	}

	if len(certPEM) == 0 || len(keyPEM) == 0 {
		return nil, ierr.NewError("pkcs12 bundle missing certificate or private key").
			WithHint("Certificate file or password is invalid").
			Mark(ierr.ErrInvalidCertificate)
	}

	leaf := leafCertificate(certs)

	return &Credential{
		CertificatePEM: certPEM,
		PrivateKeyPEM:  keyPEM,
		Subject:        leaf.Subject.String(),
		SerialNumber:   leaf.SerialNumber.String(),
		NotBefore:      leaf.NotBefore,
		NotAfter:       leaf.NotAfter,
	}, nil
}

// leafCertificate picks the end-entity certificate from a chain.
// Bundles from Brazilian CAs usually carry the leaf plus intermediates.
func leafCertificate(certs []*x509.Certificate) *x509.Certificate {
	for _, cert := range certs {
		if !cert.IsCA {
			return cert
		}
	}
	return certs[0]
}
