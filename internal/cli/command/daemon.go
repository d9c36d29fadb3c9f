package command

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"reflect"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/webhost-go/internal/infra/tlsmaterial"
	"github.com/yndnr/webhost-go/internal/server/config"
	"github.com/yndnr/webhost-go/internal/server/discovery"
	"github.com/yndnr/webhost-go/internal/server/webserver"
	"github.com/yndnr/webhost-go/internal/telemetry/logger"
	"github.com/yndnr/webhost-go/internal/telemetry/metric"
)

// daemon owns the listener instances of one server process.
type daemon struct {
	flags    *GlobalFlags
	log      *slog.Logger
	registry *prom.Registry
	status   *webserver.StatusBoard
	services []*webserver.Service

	// load re-reads the configuration on reload.
	load func() (*config.ServerConfig, error)

	mu  sync.Mutex
	cfg *config.ServerConfig
	ctx context.Context

	wg sync.WaitGroup
}

// newDaemon composes the plain instance and, when enabled, the secure one.
func newDaemon(cfg *config.ServerConfig, flags *GlobalFlags, log *slog.Logger) *daemon {
	d := &daemon{
		flags:  flags,
		log:    log,
		cfg:    cfg,
		status: webserver.NewStatusBoard(),
		load:   func() (*config.ServerConfig, error) { return loadConfig(flags) },
	}

	var recorder metric.Recorder = metric.NoopRecorder{}
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		d.registry = metric.NewRegistry()
		recorder = metric.NewPrometheusRecorder(d.registry)
		d.registry.MustRegister(metric.NewExpiryCollector(d.certificateExpiry))
		metricsHandler = metric.Handler(d.registry)
	}

	base := webserver.Options{
		Logger:            log,
		Recorder:          recorder,
		Advertiser:        newAdvertiser(cfg.Discovery, log),
		ServiceName:       cfg.Discovery.Service,
		Status:            d.status,
		Metrics:           metricsHandler,
		RateLimit:         cfg.HTTP.RateLimit,
		TrustedProxies:    trustedProxies(cfg.HTTP, log),
		Audit:             cfg.HTTP.Audit,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ShutdownTimeout:   cfg.WebServer.ShutdownTimeout,
		RequireValidTLS:   cfg.WebServer.RequireValidTLS,
		MaxPort:           uint16(cfg.WebServer.MaxPort),
		WatchTLS:          cfg.WebServer.WatchTLS,
	}

	plain := base
	plain.Name = "http"
	httpSvc := webserver.NewService(plain)
	d.services = append(d.services, httpSvc)
	d.status.SetPeers(httpSvc.Publisher().Peers)

	if cfg.WebServer.SSLEnabled {
		secure := base
		secure.Name = "https"
		secure.Secure = true
		secure.Advertiser = nil
		d.services = append(d.services, webserver.NewService(secure))
	}

	return d
}

// trustedProxies parses http.trusted_proxies. Verify has already rejected
// bad entries, so a failure here only drops the forwarding headers.
func trustedProxies(cfg config.HTTPSection, log *slog.Logger) []netip.Prefix {
	prefixes, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		log.Warn("ignoring http.trusted_proxies, clients are identified by peer address", "error", err)
		return nil
	}
	return prefixes
}

// newAdvertiser selects the discovery backend. Mode "none" advertises
// nothing.
func newAdvertiser(cfg config.DiscoverySection, log *slog.Logger) discovery.Advertiser {
	switch cfg.Mode {
	case config.DiscoveryMDNS:
		return discovery.NewMDNS(discovery.MDNSConfig{
			Instance: cfg.Instance,
			Domain:   cfg.Domain,
			Logger:   log,
		})
	case config.DiscoveryGossip:
		return discovery.NewGossip(discovery.GossipConfig{
			NodeName: cfg.Instance,
			BindAddr: cfg.GossipBindAddr,
			BindPort: cfg.GossipBindPort,
			Seeds:    cfg.GossipSeeds,
			Logger:   log,
		})
	default:
		return discovery.Noop{}
	}
}

// start runs every instance and submits the initial settings.
func (d *daemon) start(ctx context.Context) {
	d.mu.Lock()
	d.ctx = ctx
	cfg := d.cfg
	d.mu.Unlock()

	for _, svc := range d.services {
		d.wg.Add(1)
		go func(svc *webserver.Service) {
			defer d.wg.Done()
			if err := svc.Run(ctx); err != nil {
				d.log.Error("instance stopped with error", "instance", svc.Name(), "error", err)
			}
		}(svc)
	}
	d.submit(ctx, cfg)
}

func (d *daemon) submit(ctx context.Context, cfg *config.ServerConfig) {
	for _, svc := range d.services {
		if err := svc.Submit(ctx, webserver.SettingsFrom(cfg.WebServer, svc.Secure())); err != nil {
			d.log.Warn("settings not delivered", "instance", svc.Name(), "error", err)
		}
	}
}

// reload re-reads the configuration and submits the webserver settings to
// every instance. An invalid configuration keeps the running one.
func (d *daemon) reload() {
	cfg, err := d.load()
	if err != nil {
		d.log.Error("configuration reload failed, keeping the current configuration", "error", err)
		return
	}

	d.mu.Lock()
	prev := d.cfg
	d.cfg = cfg
	ctx := d.ctx
	d.mu.Unlock()

	if cfg.Log.Level != prev.Log.Level {
		if err := logger.SetLevel(cfg.Log.Level); err != nil {
			d.log.Warn("log level not changed", "error", err)
		} else {
			d.log.Info("log level changed", "level", cfg.Log.Level)
		}
	}
	for _, field := range restartRequired(prev, cfg) {
		d.log.Warn("configuration change takes effect after restart", "setting", field)
	}

	if ctx == nil {
		return
	}
	d.log.Info("configuration reloaded")
	d.submit(ctx, cfg)
}

// restartRequired lists changed settings that a running process does not
// pick up.
func restartRequired(prev, next *config.ServerConfig) []string {
	var out []string
	check := func(name string, a, b any) {
		if !reflect.DeepEqual(a, b) {
			out = append(out, name)
		}
	}
	check("webserver.ssl_enabled", prev.WebServer.SSLEnabled, next.WebServer.SSLEnabled)
	check("webserver.require_valid_tls", prev.WebServer.RequireValidTLS, next.WebServer.RequireValidTLS)
	check("webserver.max_port", prev.WebServer.MaxPort, next.WebServer.MaxPort)
	check("webserver.shutdown_timeout", prev.WebServer.ShutdownTimeout, next.WebServer.ShutdownTimeout)
	check("webserver.watch_tls", prev.WebServer.WatchTLS, next.WebServer.WatchTLS)
	check("http", prev.HTTP, next.HTTP)
	check("discovery", prev.Discovery, next.Discovery)
	check("metrics", prev.Metrics, next.Metrics)
	check("log.format", prev.Log.Format, next.Log.Format)
	return out
}

// wait blocks until every instance has stopped or ctx expires.
func (d *daemon) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// certificateExpiry feeds the expiry collector from the served material.
func (d *daemon) certificateExpiry() map[string]time.Time {
	out := make(map[string]time.Time)
	for _, svc := range d.services {
		if !svc.Secure() {
			continue
		}
		if exp := tlsmaterial.EarliestExpiry(svc.Server().Certificates()); !exp.IsZero() {
			out[svc.Name()] = exp
		}
	}
	return out
}
