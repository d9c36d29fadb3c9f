// webhost-server serves a document root over HTTP and HTTPS.
//
// The plain and the secure listener follow the webserver section of the
// configuration file: a busy port moves to the next free one, missing or
// invalid TLS files fall back to the built-in key pair, and the plain
// listener is advertised through mDNS or memberlist gossip.
//
// Usage:
//
//	webhost-server [--config webhost.yaml] [serve]
//	webhost-server config print
//	webhost-server probe-port 8090
//	webhost-server check-tls --key server.key --crt server.crt
//	webhost-server status --server localhost:8090
//	webhost-server version
//
// Build information is injected with:
//
//	go build -ldflags "-X github.com/yndnr/webhost-go/internal/infra/buildinfo.Version=1.0.0"
package main
