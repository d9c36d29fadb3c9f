// Package tlsmaterial loads and validates the TLS key pair of the web listener.
package tlsmaterial

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/yndnr/webhost-go/internal/assets"
)

// Builtin paths select the key pair bundled with the binary.
const (
	BuiltinKeyPath  = "builtin://server.key"
	BuiltinCertPath = "builtin://server.crt"
)

// Material is the result of one load: the usable certificates, the usable
// key, the paths that were actually read and everything that went wrong.
type Material struct {
	Certificates []Certificate
	Key          *PrivateKey
	CertPath     string
	KeyPath      string
	Problems     []error
}

// Usable reports whether the material can serve TLS handshakes.
func (m Material) Usable() bool {
	return len(m.Certificates) > 0 && m.Key != nil
}

// Loader reads TLS key and certificate files.
type Loader struct {
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		l.now = now
	}
}

// WithLogger sets the logger for the loader.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the private key at keyPath and the certificates at certPath.
// Blank paths, missing files and unreadable files fall back to the builtin
// key pair. The passphrase decrypts encrypted keys and may be empty.
func (l *Loader) Load(keyPath, certPath, passphrase string) Material {
	var m Material

	certPath = l.resolvePath(certPath, BuiltinCertPath, "certificate")
	certData, certPath, err := l.read(certPath, BuiltinCertPath, assets.CertFile, "certificate")
	m.CertPath = certPath
	if err != nil {
		m.Problems = append(m.Problems, err)
	} else {
		certs, problems := parseCertificates(certData, certPath, l.now())
		for _, p := range problems {
			l.logger.Error("the provided TLS certificate is invalid, not supported or expired",
				"path", certPath,
				"error", p,
			)
		}
		m.Problems = append(m.Problems, problems...)
		m.Certificates = certs
	}

	if len(m.Certificates) == 0 {
		err := fmt.Errorf("%w (%s)", ErrNoCertificates, certPath)
		l.logger.Error("no valid TLS certificate found", "path", certPath)
		m.Problems = append(m.Problems, err)
	} else {
		l.logger.Info("TLS certificates loaded",
			"path", certPath,
			"count", len(m.Certificates),
			"not_after", m.Certificates[0].NotAfter,
		)
	}

	keyPath = l.resolvePath(keyPath, BuiltinKeyPath, "key")
	keyData, keyPath, err := l.read(keyPath, BuiltinKeyPath, assets.KeyFile, "key")
	m.KeyPath = keyPath
	if err != nil {
		m.Problems = append(m.Problems, err)
		return m
	}

	key, err := parsePrivateKey(keyData, []byte(passphrase), keyPath)
	if err != nil {
		l.logger.Error("the provided TLS key is invalid or not supported, use an RSA key in PEM format",
			"path", keyPath,
			"error", err,
		)
		m.Problems = append(m.Problems, err)
		return m
	}

	l.logger.Info("TLS private key loaded", "path", keyPath, "encrypted", key.Encrypted)
	m.Key = key
	return m
}

// resolvePath substitutes the builtin path for blank or missing files.
func (l *Loader) resolvePath(path, builtin, kind string) string {
	if strings.TrimSpace(path) == "" || path == builtin {
		return builtin
	}
	if _, err := os.Stat(path); err != nil {
		l.logger.Error("no TLS "+kind+" found, falling back to builtin",
			"path", path,
			"error", err,
		)
		return builtin
	}
	return path
}

// read returns the file content and the path it came from. A configured file
// that cannot be read is replaced by the bundled file.
func (l *Loader) read(path, builtin, bundled, kind string) ([]byte, string, error) {
	if path != builtin {
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		l.logger.Error("cannot read TLS "+kind+", falling back to builtin",
			"path", path,
			"error", err,
		)
	}

	data, err := assets.ReadFile(bundled)
	if err != nil {
		return nil, builtin, fmt.Errorf("tlsmaterial: read builtin %s: %w", kind, err)
	}
	return data, builtin, nil
}
