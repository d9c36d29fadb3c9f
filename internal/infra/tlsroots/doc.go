// Package tlsroots builds the set of CA certificates a client trusts when it
// talks to a webhost listener.
//
// The pool starts from the system roots or empty, and accepts PEM files,
// including the built-in server certificate, so a self-signed listener can
// be verified instead of skipped.
package tlsroots
