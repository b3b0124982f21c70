package certificate

import (
	"crypto/tls"
	"os"

	ierr "github.com/petshopone/fiscal-service/internal/errors"
)

// WithTLSCertificate materializes the PEM pair into files readable only
// by this process, loads them as a TLS client certificate, invokes fn,
// and removes the files before returning. The key material never
// outlives the call on disk.
func WithTLSCertificate(cred *Credential, fn func(cert tls.Certificate) error) error {
	certPath, err := writeScoped("fiscal-cert-*.pem", cred.CertificatePEM)
	if err != nil {
		return err
	}
	defer os.Remove(certPath)

	keyPath, err := writeScoped("fiscal-key-*.pem", cred.PrivateKeyPEM)
	if err != nil {
		return err
	}
	defer os.Remove(keyPath)

	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return ierr.WithError(err).
			WithMessage("failed to load extracted key pair").
			WithHint("Certificate file or password is invalid").
			Mark(ierr.ErrInvalidCertificate)
	}

	return fn(cert)
}

func writeScoped(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", ierr.WithError(err).
			WithMessage("failed to create scoped credential file").
			Mark(ierr.ErrSystem)
	}

	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", ierr.WithError(err).
			WithMessage("failed to restrict credential file permissions").
			Mark(ierr.ErrSystem)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", ierr.WithError(err).
			WithMessage("failed to write scoped credential file").
			Mark(ierr.ErrSystem)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", ierr.WithError(err).
			WithMessage("failed to close scoped credential file").
			Mark(ierr.ErrSystem)
	}

	return f.Name(), nil
}
