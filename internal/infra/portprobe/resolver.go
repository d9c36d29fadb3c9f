// Package portprobe finds a free TCP port for the web listener.
package portprobe

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
)

// ErrPortsExhausted is returned when every port from the requested one up to
// the ceiling is in use.
var ErrPortsExhausted = errors.New("portprobe: no free port up to ceiling")

// ListenFunc opens a probe listener. It matches net.Listen.
type ListenFunc func(network, address string) (net.Listener, error)

// Resolver finds the first free port at or above a requested port.
type Resolver struct {
	maxPort uint16
	listen  ListenFunc
	logger  *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxPort caps the search. The default is 65535.
func WithMaxPort(port uint16) Option {
	return func(r *Resolver) {
		if port > 0 {
			r.maxPort = port
		}
	}
}

// WithListenFunc replaces the probe binder.
func WithListenFunc(fn ListenFunc) Option {
	return func(r *Resolver) {
		r.listen = fn
	}
}

// WithLogger sets the logger for the resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		maxPort: 65535,
		listen:  net.Listen,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the first port >= requested that can be bound on all
// interfaces. adjusted reports whether the result differs from requested.
//
// When the ceiling is reached without a successful bind, Resolve returns the
// requested port unchanged together with ErrPortsExhausted.
func (r *Resolver) Resolve(requested uint16) (port uint16, adjusted bool, err error) {
	candidate := requested
	for {
		if r.probe(candidate) {
			break
		}
		r.logger.Warn("port already in use, will increment", "port", candidate)

		if candidate >= r.maxPort {
			r.logger.Error("no free port found",
				"requested", requested,
				"max_port", r.maxPort,
			)
			return requested, false, fmt.Errorf("%w: %d-%d", ErrPortsExhausted, requested, r.maxPort)
		}
		candidate++
	}

	if candidate != requested {
		r.logger.Warn("requested port was already in use, using another port",
			"requested", requested,
			"port", candidate,
		)
		return candidate, true, nil
	}
	return candidate, false, nil
}

func (r *Resolver) probe(port uint16) bool {
	ln, err := r.listen("tcp", net.JoinHostPort("", strconv.Itoa(int(port))))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}
