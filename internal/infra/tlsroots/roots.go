package tlsroots

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/yndnr/webhost-go/internal/assets"
	"github.com/yndnr/webhost-go/internal/infra/tlsmaterial"
)

// ErrNoCertsFound is returned for PEM input without a CERTIFICATE block.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found")

// Pool is a set of trusted CA certificates.
type Pool struct {
	certs    *x509.CertPool
	subjects []string
}

// New returns a pool seeded with the system roots when withSystem is set
// and they are available, or an empty pool otherwise.
func New(withSystem bool) *Pool {
	if withSystem {
		if sys, err := x509.SystemCertPool(); err == nil {
			return &Pool{certs: sys}
		}
	}
	return &Pool{certs: x509.NewCertPool()}
}

// FromFiles builds a pool from the system roots plus every file in paths.
// tlsmaterial.BuiltinCertPath trusts the certificate bundled with the
// server.
func FromFiles(paths ...string) (*Pool, error) {
	p := New(true)
	for _, path := range paths {
		if err := p.AddFile(path); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// AddFile trusts the certificates of a PEM file.
func (p *Pool) AddFile(path string) error {
	data, err := readPEM(path)
	if err != nil {
		return fmt.Errorf("tlsroots: %w", err)
	}
	if _, err := p.AddPEM(data); err != nil {
		return fmt.Errorf("%w in %s", err, path)
	}
	return nil
}

func readPEM(path string) ([]byte, error) {
	if path == tlsmaterial.BuiltinCertPath {
		return assets.ReadFile(assets.CertFile)
	}
	return os.ReadFile(path)
}

// AddPEM trusts every CERTIFICATE block in data and returns how many were
// added. Blocks of other types, such as keys, are ignored.
func (p *Pool) AddPEM(data []byte) (int, error) {
	n := 0
	for block, rest := pem.Decode(data); block != nil; block, rest = pem.Decode(rest) {
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return n, fmt.Errorf("tlsroots: parse certificate %d: %w", n+1, err)
		}
		p.certs.AddCert(cert)
		p.subjects = append(p.subjects, cert.Subject.CommonName)
		n++
	}
	if n == 0 {
		return 0, ErrNoCertsFound
	}
	return n, nil
}

// Subjects lists the common names added through AddFile or AddPEM.
func (p *Pool) Subjects() []string {
	return append([]string(nil), p.subjects...)
}

// CertPool returns the pool for use as tls.Config.RootCAs.
func (p *Pool) CertPool() *x509.CertPool {
	return p.certs
}
