// Package webserver turns configuration into running listeners.
//
// Each instance (plain "http" and secure "https") is a Service: one
// httpserver.Server, one Reconciler and a control goroutine that applies
// submitted Settings in arrival order, hands serve-loop failures back to the
// listener and re-applies the last Settings when TLS files change.
//
// A reconciliation pass never fails. Unusable document roots, busy ports and
// invalid TLS material are logged and replaced by fallbacks so the instance
// keeps serving.
package webserver
