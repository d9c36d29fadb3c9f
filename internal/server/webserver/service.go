package webserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/yndnr/webhost-go/internal/assets"
	"github.com/yndnr/webhost-go/internal/infra/portprobe"
	"github.com/yndnr/webhost-go/internal/infra/tlsmaterial"
	"github.com/yndnr/webhost-go/internal/server/discovery"
	"github.com/yndnr/webhost-go/internal/server/httpserver"
	"github.com/yndnr/webhost-go/internal/telemetry/metric"
)

// ErrServiceStopped is returned by Submit after Run has returned.
var ErrServiceStopped = errors.New("webserver: service stopped")

// Options composes one instance.
type Options struct {
	// Name labels the instance, e.g. "http" or "https".
	Name   string
	Secure bool

	Logger   *slog.Logger
	Recorder metric.Recorder

	// Advertiser announces the plain listener. Ignored for secure instances.
	Advertiser  discovery.Advertiser
	ServiceName string

	// Status records this instance's events and is served on /status.
	Status *StatusBoard

	// Metrics serves /metrics. Optional.
	Metrics http.Handler

	RateLimit         int
	TrustedProxies    []netip.Prefix
	Audit             bool
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration

	RequireValidTLS bool
	MaxPort         uint16
	WatchTLS        bool
	TLSDebounce     time.Duration

	// Listen and Probe replace net.Listen for the listener and the port
	// resolver.
	Listen httpserver.ListenFunc
	Probe  portprobe.ListenFunc
}

// Service runs one listener instance.
type Service struct {
	name            string
	secure          bool
	logger          *slog.Logger
	server          *httpserver.Server
	bus             *httpserver.Bus
	reconciler      *Reconciler
	publisher       *discovery.Publisher
	shutdownTimeout time.Duration

	updates chan Settings
	reapply chan struct{}
	done    chan struct{}

	// Owned by the control goroutine.
	last        *Settings
	watchTLS    bool
	tlsDebounce time.Duration
	watcher     *tlsmaterial.Watcher
	watchedCert string
	watchedKey  string
}

// NewService composes an instance. Nothing listens until Run processes the
// first Submit.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metric.NoopRecorder{}
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	logger := opts.Logger.With("instance", opts.Name)

	bus := httpserver.NewBus()
	recordOn(bus, opts.Recorder)
	static := httpserver.NewStaticFiles(BuiltinDocumentRoot, assets.WebRoot())

	var status http.Handler
	if opts.Status != nil {
		status = opts.Status
		bus.Subscribe(opts.Status.Observe)
	}

	router := httpserver.NewRouter(&httpserver.RouterConfig{
		Static:         static,
		Status:         status,
		Metrics:        opts.Metrics,
		Logger:         logger,
		RateLimit:      opts.RateLimit,
		TrustedProxies: opts.TrustedProxies,
		EnableAudit:    opts.Audit,
	})

	server := httpserver.New(httpserver.Config{
		Name:              opts.Name,
		Secure:            opts.Secure,
		Handler:           router,
		Bus:               bus,
		Logger:            logger,
		ShutdownTimeout:   opts.ShutdownTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		IdleTimeout:       opts.IdleTimeout,
		Listen:            opts.Listen,
	})

	resolverOpts := []portprobe.Option{
		portprobe.WithMaxPort(opts.MaxPort),
		portprobe.WithLogger(logger),
	}
	if opts.Probe != nil {
		resolverOpts = append(resolverOpts, portprobe.WithListenFunc(opts.Probe))
	}

	s := &Service{
		name:            opts.Name,
		secure:          opts.Secure,
		logger:          logger,
		server:          server,
		bus:             bus,
		shutdownTimeout: opts.ShutdownTimeout,
		updates:         make(chan Settings, 8),
		reapply:         make(chan struct{}, 1),
		done:            make(chan struct{}),
		watchTLS:        opts.Secure && opts.WatchTLS,
		tlsDebounce:     opts.TLSDebounce,
	}

	s.reconciler = NewReconciler(ReconcilerConfig{
		Name:            opts.Name,
		Listener:        server,
		Resolver:        portprobe.New(resolverOpts...),
		Loader:          tlsmaterial.NewLoader(tlsmaterial.WithLogger(logger)),
		Static:          static,
		Bus:             bus,
		Recorder:        opts.Recorder,
		Logger:          logger,
		RequireValidTLS: opts.RequireValidTLS,
	})

	if !opts.Secure {
		s.publisher = discovery.NewPublisher(opts.Advertiser,
			discovery.WithLogger(logger),
			discovery.WithRecorder(opts.Recorder),
		)
		advertiseOn(bus, s.publisher, opts.ServiceName)
	}

	return s
}

// Name returns the instance name.
func (s *Service) Name() string { return s.name }

// Secure reports whether the instance serves TLS.
func (s *Service) Secure() bool { return s.secure }

// Server returns the instance's listener.
func (s *Service) Server() *httpserver.Server { return s.server }

// Bus returns the instance's event bus. Subscribe before Run.
func (s *Service) Bus() *httpserver.Bus { return s.bus }

// Publisher returns the discovery publisher, or nil for secure instances.
func (s *Service) Publisher() *discovery.Publisher { return s.publisher }

// Done is closed when Run has returned.
func (s *Service) Done() <-chan struct{} { return s.done }

// Submit queues settings for this instance. The Secure flag is forced to
// the instance's mode.
func (s *Service) Submit(ctx context.Context, st Settings) error {
	st.Secure = s.secure
	select {
	case s.updates <- st:
		return nil
	case <-s.done:
		return ErrServiceStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reapply asks the control loop to run the last settings again, e.g. after
// the TLS files changed. Requests coalesce while one is pending.
func (s *Service) Reapply() {
	select {
	case s.reapply <- struct{}{}:
	default:
	}
}

// Run is the control loop. It returns after ctx is cancelled and the
// listener has been stopped.
func (s *Service) Run(ctx context.Context) error {
	defer close(s.done)

	// A pass in progress is never cancelled.
	passCtx := context.WithoutCancel(ctx)

	for {
		select {
		case st := <-s.updates:
			s.apply(passCtx, st)

		case <-s.reapply:
			if s.last == nil {
				continue
			}
			s.logger.Info("re-applying settings after TLS material change")
			s.apply(passCtx, *s.last)

		case f := <-s.server.Failures():
			s.server.HandleFailure(f)

		case <-ctx.Done():
			s.shutdown()
			return nil
		}
	}
}

func (s *Service) apply(ctx context.Context, st Settings) {
	s.last = &st
	s.reconciler.Apply(ctx, st)
	if s.watchTLS {
		s.watch(st.CertPath, st.KeyPath)
	}
}

// watch follows the configured TLS files, restarting the watcher when the
// paths change.
func (s *Service) watch(certPath, keyPath string) {
	if s.watcher != nil && certPath == s.watchedCert && keyPath == s.watchedKey {
		return
	}
	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}
	s.watchedCert, s.watchedKey = certPath, keyPath

	opts := []tlsmaterial.WatcherOption{tlsmaterial.WithWatcherLogger(s.logger)}
	if s.tlsDebounce > 0 {
		opts = append(opts, tlsmaterial.WithDebounce(s.tlsDebounce))
	}
	w, err := tlsmaterial.NewWatcher(certPath, keyPath, s.Reapply, opts...)
	if err != nil {
		if !errors.Is(err, tlsmaterial.ErrNothingToWatch) {
			s.logger.Warn("cannot watch TLS material", "error", err)
		}
		return
	}
	w.StartAsync()
	s.watcher = w
}

func (s *Service) shutdown() {
	if s.watcher != nil {
		s.watcher.Stop()
		s.watcher = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.server.Stop(ctx); err != nil {
		s.logger.Warn("listener did not stop cleanly", "error", err)
	}
	if s.publisher != nil {
		s.publisher.Unregister()
	}
	s.logger.Info("instance stopped")
}
