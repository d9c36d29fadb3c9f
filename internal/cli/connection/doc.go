// Package connection talks to a running webhost-server over HTTP or HTTPS.
//
// The built-in certificate is self-signed, so callers may disable
// verification for loopback diagnostics.
package connection
