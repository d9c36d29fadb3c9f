// Package tlsmaterial loads and validates the TLS key pair of the web listener.
package tlsmaterial

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/youmark/pkcs8"
)

var (
	// ErrUnsupportedKey is reported when no PEM private key block is present.
	ErrUnsupportedKey = errors.New("tlsmaterial: no supported PEM private key")

	// ErrNotRSA is reported for private keys of another algorithm.
	ErrNotRSA = errors.New("tlsmaterial: private key is not RSA")

	// ErrBadPassphrase is reported when an encrypted key cannot be decrypted.
	ErrBadPassphrase = errors.New("tlsmaterial: cannot decrypt private key")
)

// PrivateKey is a decoded RSA private key.
type PrivateKey struct {
	PEM       []byte
	Key       *rsa.PrivateKey
	Encrypted bool
	Source    string
}

// parsePrivateKey decodes the first private key block in data.
func parsePrivateKey(data, passphrase []byte, source string) (*PrivateKey, error) {
	raw := data
	for len(data) > 0 {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}

		switch block.Type {
		case "RSA PRIVATE KEY":
			return parsePKCS1(block, passphrase, raw, source)
		case "PRIVATE KEY":
			k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedKey, source, err)
			}
			return rsaKey(k, false, raw, source)
		case "ENCRYPTED PRIVATE KEY":
			k, err := pkcs8.ParsePKCS8PrivateKey(block.Bytes, passphrase)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrBadPassphrase, source, err)
			}
			return rsaKey(k, true, raw, source)
		case "EC PRIVATE KEY", "DSA PRIVATE KEY", "OPENSSH PRIVATE KEY":
			return nil, fmt.Errorf("%w: %s holds %s", ErrNotRSA, source, block.Type)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedKey, source)
}

func parsePKCS1(block *pem.Block, passphrase, raw []byte, source string) (*PrivateKey, error) {
	der := block.Bytes
	encrypted := x509.IsEncryptedPEMBlock(block) //nolint:staticcheck // legacy OpenSSL format is still common
	if encrypted {
		var err error
		der, err = x509.DecryptPEMBlock(block, passphrase) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadPassphrase, source, err)
		}
	}

	k, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		// Legacy decryption cannot always tell a wrong passphrase from a
		// corrupt key; the padding check passes by chance.
		if encrypted {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadPassphrase, source, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUnsupportedKey, source, err)
	}
	return &PrivateKey{PEM: raw, Key: k, Encrypted: encrypted, Source: source}, nil
}

func rsaKey(k any, encrypted bool, raw []byte, source string) (*PrivateKey, error) {
	rk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s holds %T", ErrNotRSA, source, k)
	}
	return &PrivateKey{PEM: raw, Key: rk, Encrypted: encrypted, Source: source}, nil
}
