// Package tlsmaterial loads and validates the TLS key pair of the web listener.
package tlsmaterial

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoCertificates is reported when a file yields no usable certificate.
	ErrNoCertificates = errors.New("tlsmaterial: no valid certificate")

	// ErrInvalidCertificate is reported for a PEM entry that does not parse.
	ErrInvalidCertificate = errors.New("tlsmaterial: invalid certificate")

	// ErrCertificateExpired is reported for a certificate with no whole day left.
	ErrCertificateExpired = errors.New("tlsmaterial: certificate expired")
)

// Certificate is a parsed certificate that passed validation.
type Certificate struct {
	Raw      []byte
	Leaf     *x509.Certificate
	NotAfter time.Time
	Source   string
}

// Subject returns the certificate subject for display.
func (c Certificate) Subject() string {
	return c.Leaf.Subject.String()
}

// parseCertificates decodes every CERTIFICATE block in data and keeps the
// entries that parse and still have at least one day of validity left.
// Other PEM block types are ignored.
func parseCertificates(data []byte, source string, now time.Time) ([]Certificate, []error) {
	var (
		valid    []Certificate
		problems []error
		index    int
	)

	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		index++

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			problems = append(problems, fmt.Errorf("%w: %s entry %d: %v", ErrInvalidCertificate, source, index, err))
			continue
		}

		if days := daysTo(now, cert.NotAfter); days <= 0 {
			problems = append(problems, fmt.Errorf("%w: %s entry %d (%q, not after %s)",
				ErrCertificateExpired, source, index, cert.Subject.CommonName, cert.NotAfter.Format(time.RFC3339)))
			continue
		}

		valid = append(valid, Certificate{
			Raw:      cert.Raw,
			Leaf:     cert,
			NotAfter: cert.NotAfter,
			Source:   source,
		})
	}

	return valid, problems
}

// daysTo counts the midnights between from and to in from's location.
// A certificate expiring later today is 0 days away.
func daysTo(from, to time.Time) int {
	to = to.In(from.Location())
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	a := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
	b := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
