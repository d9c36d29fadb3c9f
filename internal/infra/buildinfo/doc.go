// Package buildinfo provides build information for webhost-server.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/webhost-go/internal/infra/buildinfo.Version=v1.0.0 \
//	  -X github.com/yndnr/webhost-go/internal/infra/buildinfo.Commit=abc123"
package buildinfo
