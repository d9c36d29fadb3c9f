// Package tlsmaterial loads and validates the TLS key pair of the web listener.
package tlsmaterial

import (
	"crypto/rsa"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrIncomplete is returned when a certificate chain or key is missing.
var ErrIncomplete = errors.New("tlsmaterial: certificate or key missing")

// Pair assembles a tls.Certificate from a validated chain and key.
// The first certificate is the leaf.
func Pair(certs []Certificate, key *PrivateKey) (*tls.Certificate, error) {
	if len(certs) == 0 || key == nil {
		return nil, ErrIncomplete
	}

	chain := make([][]byte, 0, len(certs))
	for _, c := range certs {
		chain = append(chain, c.Raw)
	}
	return &tls.Certificate{
		Certificate: chain,
		PrivateKey:  key.Key,
		Leaf:        certs[0].Leaf,
	}, nil
}

// Matches reports whether the leaf certificate belongs to key.
func Matches(certs []Certificate, key *PrivateKey) bool {
	if len(certs) == 0 || key == nil {
		return false
	}
	pub, ok := certs[0].Leaf.PublicKey.(*rsa.PublicKey)
	if !ok {
		return false
	}
	return pub.Equal(&key.Key.PublicKey)
}

// TLSCertificate assembles the loaded chain and key.
func (m Material) TLSCertificate() (*tls.Certificate, error) {
	return Pair(m.Certificates, m.Key)
}

// EarliestExpiry returns the soonest NotAfter in certs, or the zero time.
func EarliestExpiry(certs []Certificate) time.Time {
	var earliest time.Time
	for _, c := range certs {
		if earliest.IsZero() || c.NotAfter.Before(earliest) {
			earliest = c.NotAfter
		}
	}
	return earliest
}

// Summary describes the material in a few lines for operators.
func (m Material) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "certificate file: %s\n", m.CertPath)
	for i, c := range m.Certificates {
		fmt.Fprintf(&b, "  [%d] %s (expires %s)\n", i, c.Subject(), c.NotAfter.Format(time.DateOnly))
	}
	fmt.Fprintf(&b, "key file: %s\n", m.KeyPath)
	if m.Key != nil {
		enc := ""
		if m.Key.Encrypted {
			enc = ", encrypted"
		}
		fmt.Fprintf(&b, "  RSA %d bits%s\n", m.Key.Key.N.BitLen(), enc)
		if len(m.Certificates) > 0 && !Matches(m.Certificates, m.Key) {
			b.WriteString("  warning: key does not match the leaf certificate\n")
		}
	}
	for _, p := range m.Problems {
		fmt.Fprintf(&b, "problem: %v\n", p)
	}
	return b.String()
}
