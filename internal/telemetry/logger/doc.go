// Package logger provides structured logging for webhost-server.
//
// Files:
//
//   - logger.go: slog handler construction and the adjustable global level
//   - redact.go: masking of passphrases and other secrets
//   - hclog.go: bridge from *log.Logger based libraries into slog
package logger
