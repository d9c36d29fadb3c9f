// Package tlsmaterial loads and validates the TLS key pair of the web listener.
//
// This package handles TLS material loading and reload:
//
//   - loader.go: path fallback, Material assembly
//   - certs.go: PEM certificate parsing and expiry filtering
//   - key.go: RSA private key decoding (PKCS#1, PKCS#8, encrypted PKCS#8)
//   - watcher.go: certificate hot-reload via fsnotify
//
// Loading never fails hard. Every problem is logged with the offending path
// and collected in Material.Problems; a bad or missing file degrades to the
// bundled default material or to no material at all.
package tlsmaterial
