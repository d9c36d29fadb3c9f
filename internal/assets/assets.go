// Package assets embeds the built-in fallback material: the default web root
// and the default TLS key pair used when configured paths are unusable.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed webconfig tls
var files embed.FS

// Paths of the embedded TLS files inside the bundle.
const (
	CertFile = "tls/server.crt"
	KeyFile  = "tls/server.key"
)

// WebRoot returns the embedded web root.
func WebRoot() fs.FS {
	sub, err := fs.Sub(files, "webconfig")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	return sub
}

// ReadFile reads a bundled file such as CertFile or KeyFile.
func ReadFile(name string) ([]byte, error) {
	return files.ReadFile(name)
}
