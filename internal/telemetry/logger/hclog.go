package logger

import (
	"context"
	"io"
	"log"
	"log/slog"

	"github.com/hashicorp/go-hclog"
)

// StdLogger returns a *log.Logger for libraries that only accept one
// (mdns, memberlist). Lines are parsed for "[DEBUG]", "[INFO]", "[WARN]"
// and "[ERR]" prefixes by hclog and forwarded to l at the matching level
// with a "subsystem" attribute.
func StdLogger(l *slog.Logger, subsystem string) *log.Logger {
	intercept := hclog.NewInterceptLogger(&hclog.LoggerOptions{
		Name:   subsystem,
		Level:  hclog.Trace,
		Output: io.Discard,
	})
	intercept.RegisterSink(&slogSink{logger: l})

	return intercept.StandardLoggerIntercept(&hclog.StandardLoggerOptions{
		InferLevels: true,
	})
}

// slogSink forwards hclog records to slog.
type slogSink struct {
	logger *slog.Logger
}

// Accept implements hclog.SinkAdapter.
func (s *slogSink) Accept(name string, level hclog.Level, msg string, args ...interface{}) {
	attrs := make([]any, 0, len(args)+2)
	attrs = append(attrs, "subsystem", name)
	attrs = append(attrs, args...)
	s.logger.Log(context.Background(), slogLevel(level), msg, attrs...)
}

func slogLevel(level hclog.Level) slog.Level {
	switch level {
	case hclog.Trace, hclog.Debug:
		return slog.LevelDebug
	case hclog.Warn:
		return slog.LevelWarn
	case hclog.Error:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
