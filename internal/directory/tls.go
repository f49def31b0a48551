package directory

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"os"
)

// LoadTLSConfig builds the single TLS configuration shared by every
// directory connection. caPath may hold a PEM bundle or one DER certificate;
// an empty path falls back to the system roots.
//
// When skipHostnameVerify is set the peer chain is still verified against
// the trusted roots, only the hostname check is dropped.
func LoadTLSConfig(directoryURL, caPath string, skipHostnameVerify bool) (*tls.Config, error) {
	u, err := url.Parse(directoryURL)
	if err != nil {
		return nil, fmt.Errorf("parse directory url: %w", err)
	}

	var pool *x509.CertPool
	if caPath != "" {
		pool, err = loadCertPool(caPath)
		if err != nil {
			return nil, err
		}
	}

	cfg := &tls.Config{
		RootCAs:    pool,
		ServerName: u.Hostname(),
		MinVersion: tls.VersionTLS12,
	}

	if skipHostnameVerify {
		cfg.InsecureSkipVerify = true
		cfg.VerifyPeerCertificate = verifyChainOnly(pool)
	}

	return cfg, nil
}

func loadCertPool(path string) (*x509.CertPool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate %s: %w", path, err)
	}

	pool := x509.NewCertPool()
	if pool.AppendCertsFromPEM(raw) {
		return pool, nil
	}

	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		return nil, fmt.Errorf("CA certificate %s is neither PEM nor DER: %w", path, err)
	}
	pool.AddCert(cert)
	return pool, nil
}

func verifyChainOnly(roots *x509.CertPool) func([][]byte, [][]*x509.Certificate) error {
	return func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
		if len(rawCerts) == 0 {
			return errors.New("directory presented no certificate")
		}

		certs := make([]*x509.Certificate, 0, len(rawCerts))
		for _, raw := range rawCerts {
			cert, err := x509.ParseCertificate(raw)
			if err != nil {
				return fmt.Errorf("parse peer certificate: %w", err)
			}
			certs = append(certs, cert)
		}

		intermediates := x509.NewCertPool()
		for _, cert := range certs[1:] {
			intermediates.AddCert(cert)
		}

		_, err := certs[0].Verify(x509.VerifyOptions{
			Roots:         roots,
			Intermediates: intermediates,
		})
		return err
	}
}
