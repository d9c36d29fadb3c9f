package shutdown

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Handler handles graceful shutdown and SIGHUP reloads.
type Handler struct {
	timeout     time.Duration
	hooks       []func(context.Context) error
	reloadHooks []func()
	mu          sync.Mutex
	trigger     chan string
	triggerOnce sync.Once
	done        chan struct{}
	logger      *slog.Logger
}

// NewHandler creates a new shutdown handler.
func NewHandler(timeout time.Duration) *Handler {
	return &Handler{
		timeout: timeout,
		trigger: make(chan string, 1),
		done:    make(chan struct{}),
		logger:  slog.Default(),
	}
}

// SetLogger replaces the handler's logger.
func (h *Handler) SetLogger(logger *slog.Logger) {
	if logger != nil {
		h.logger = logger
	}
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(hook func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// OnReload registers a hook run on every SIGHUP, in registration order.
func (h *Handler) OnReload(hook func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.reloadHooks = append(h.reloadHooks, hook)
}

// Trigger starts shutdown without a signal. Only the first call counts.
func (h *Handler) Trigger(reason string) {
	h.triggerOnce.Do(func() {
		h.trigger <- reason
	})
}

// Wait waits for SIGINT, SIGTERM or Trigger and executes the shutdown hooks.
// SIGHUP runs the reload hooks and keeps waiting.
func (h *Handler) Wait() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				h.logger.Info("reload signal received")
				h.runReload()
				continue
			}
			h.logger.Info("shutdown signal received", "signal", sig.String())
		case reason := <-h.trigger:
			h.logger.Info("shutdown requested", "reason", reason)
		}
		break
	}

	return h.runShutdown()
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

func (h *Handler) runReload() {
	h.mu.Lock()
	hooks := append([](func())(nil), h.reloadHooks...)
	h.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

func (h *Handler) runShutdown() error {
	defer close(h.done)

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := append([]func(context.Context) error(nil), h.hooks...)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			h.logger.Error("shutdown hook failed", "hook", i, "error", err)
			errs = append(errs, err)
		}
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		h.logger.Warn("shutdown exceeded its deadline", "timeout", h.timeout)
	}
	return errors.Join(errs...)
}
