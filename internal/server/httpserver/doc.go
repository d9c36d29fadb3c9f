// Package httpserver owns the HTTP/HTTPS listener of a webhost instance.
//
// This package implements the listener lifecycle and the thin serving layer
// around it:
//
//   - server.go: Server, the lifecycle controller (Stopped, Starting,
//     Running, Stopping, Failed) with TLS material installation
//   - events.go: Bus and Event, the started/stopped/error/port-changed
//     notifications
//   - static.go: StaticFiles, a file server whose root can be swapped live
//   - router.go: chi router with /healthz, /status, /metrics and static files
//   - middleware.go: Recover, RequestID, RateLimit, Audit
//
// Features:
//
//   - Idempotent Start and Stop
//   - TLS certificates resolved per handshake, so new material applies
//     without a restart
//   - Serve-loop failures reported to the owning control loop instead of
//     mutating state from the serving goroutine
package httpserver
