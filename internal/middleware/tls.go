package middleware

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"

	"github.com/cockroachdb/errors"
)

// TLSConfig returns a middleware that configures TLS for HTTPS connections.
// It must be the innermost middleware: it replaces the next transport with a
// clone carrying config.
func TLSConfig(config *tls.Config) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		// Get underlying transport or create default
		transport, ok := next.(*http.Transport)
		if !ok {
			defaultTransport, ok := http.DefaultTransport.(*http.Transport)
			if !ok {
				// Should never happen, but handle gracefully
				return next
			}
			transport = defaultTransport.Clone()
			transport.ForceAttemptHTTP2 = true
		} else {
			transport = transport.Clone()
		}

		transport.TLSClientConfig = config

		return transport
	}
}

// InsecureSkipVerify returns a TLS config that skips certificate verification.
// Hue bridges serve a self-signed certificate issued for their bridge id, not
// for their IP address, so this is the default for bridge connections.
func InsecureSkipVerify() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // Bridges use self-signed certificates
		MinVersion:         tls.VersionTLS12,
	}
}

// BridgeTrust returns a TLS config that verifies the bridge certificate chain
// against roots without checking the host name, which for a bridge is its IP
// address rather than the certificate subject.
func BridgeTrust(roots *x509.CertPool) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // Chain is verified in VerifyConnection
		MinVersion:         tls.VersionTLS12,
		VerifyConnection: func(state tls.ConnectionState) error {
			if len(state.PeerCertificates) == 0 {
				return errors.New("bridge presented no certificate")
			}

			intermediates := x509.NewCertPool()
			for _, cert := range state.PeerCertificates[1:] {
				intermediates.AddCert(cert)
			}

			_, err := state.PeerCertificates[0].Verify(x509.VerifyOptions{
				Roots:         roots,
				Intermediates: intermediates,
			})
			if err != nil {
				return errors.Wrap(err, "bridge certificate not trusted")
			}

			return nil
		},
	}
}
