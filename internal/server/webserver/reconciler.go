package webserver

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/webhost-go/internal/infra/tlsmaterial"
	"github.com/yndnr/webhost-go/internal/server/httpserver"
	"github.com/yndnr/webhost-go/internal/telemetry/metric"
)

// ErrNoTLSMaterial is published when strict TLS mode refuses to start a
// secure listener without a usable key pair.
var ErrNoTLSMaterial = errors.New("webserver: no usable TLS key pair")

// Listener is the part of httpserver.Server the reconciler drives.
type Listener interface {
	Start(ctx context.Context, port uint16) error
	Stop(ctx context.Context) error
	IsListening() bool
	SetCertificates(certs []tlsmaterial.Certificate)
	SetPrivateKey(key *tlsmaterial.PrivateKey)
	Certificates() []tlsmaterial.Certificate
	PrivateKey() *tlsmaterial.PrivateKey
}

// PortResolver finds a free port at or above a requested one.
type PortResolver interface {
	Resolve(requested uint16) (port uint16, adjusted bool, err error)
}

// MaterialLoader reads the TLS key pair.
type MaterialLoader interface {
	Load(keyPath, certPath, passphrase string) tlsmaterial.Material
}

// RootSetter receives the document root to serve.
type RootSetter interface {
	SetRoot(name string, root fs.FS)
}

// ReconcilerConfig wires a Reconciler.
type ReconcilerConfig struct {
	Name     string
	Listener Listener
	Resolver PortResolver
	Loader   MaterialLoader
	Static   RootSetter
	Bus      *httpserver.Bus
	Recorder metric.Recorder
	Logger   *slog.Logger

	// RequireValidTLS skips starting a secure listener that has no usable
	// key pair and publishes EventError instead.
	RequireValidTLS bool
}

// Reconciler applies Settings to one listener.
type Reconciler struct {
	cfg    ReconcilerConfig
	logger *slog.Logger

	// requested is the effective port of the last pass; port is where the
	// listener runs or will run.
	requested uint16
	port      uint16
}

// NewReconciler creates a reconciler. Listener, Resolver and Static are
// required.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metric.NoopRecorder{}
	}
	if cfg.Loader == nil {
		cfg.Loader = tlsmaterial.NewLoader(tlsmaterial.WithLogger(cfg.Logger))
	}
	return &Reconciler{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "reconciler", "listener", cfg.Name),
	}
}

// Port returns the port chosen by the last pass.
func (r *Reconciler) Port() uint16 {
	return r.port
}

// Apply runs one reconciliation pass. It is only called from the owning
// control goroutine, never concurrently. Every failure is logged and
// recovered; Apply neither returns an error nor panics.
func (r *Reconciler) Apply(ctx context.Context, s Settings) {
	log := r.logger.With("pass", ulid.Make().String())
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			log.Error("reconciliation pass aborted", "panic", p)
		}
		r.cfg.Recorder.ObserveReconcile(r.cfg.Name, time.Since(start))
	}()

	log.Info("applying webserver settings",
		"document_root", s.DocumentRoot,
		"port", s.Port,
		"ssl_port", s.SSLPort,
		"secure", s.Secure,
	)

	name, root := resolveDocumentRoot(s.DocumentRoot, log)
	r.cfg.Static.SetRoot(name, root)
	log.Debug("document root set", "document_root", name)

	// Compare against the last requested port, not the bound one, so a
	// resolver adjustment does not force a restart on the next pass.
	port := s.EffectivePort()
	if port != r.requested {
		if err := r.cfg.Listener.Stop(ctx); err != nil {
			log.Warn("stopping listener for port change failed", "error", err)
		}
		r.requested = port
		r.port = port
	}

	if !r.cfg.Listener.IsListening() {
		chosen, adjusted, err := r.cfg.Resolver.Resolve(r.requested)
		if err != nil {
			log.Error("no free port found, trying the requested port", "port", r.requested, "error", err)
		}
		if adjusted {
			r.cfg.Recorder.IncPortAdjusted(r.cfg.Name)
		}
		r.port = chosen
	}

	startAllowed := true
	if s.Secure {
		r.installMaterial(log, s)
		if r.cfg.RequireValidTLS && !r.hasUsablePair() {
			startAllowed = false
		}
	}

	if startAllowed {
		if err := r.cfg.Listener.Start(ctx, r.port); err != nil {
			log.Error("listener start failed", "port", r.port, "error", err)
		}
	} else {
		log.Error("refusing to start secure listener without a usable key pair", "port", r.port)
		r.cfg.Bus.Publish(httpserver.Event{
			Kind:     httpserver.EventError,
			Instance: r.cfg.Name,
			Secure:   true,
			Port:     r.port,
			Err:      ErrNoTLSMaterial,
		})
	}

	r.cfg.Bus.Publish(httpserver.Event{
		Kind:     httpserver.EventPortChanged,
		Instance: r.cfg.Name,
		Secure:   s.Secure,
		Port:     r.port,
	})
	log.Info("webserver settings applied", "port", r.port, "duration", time.Since(start))
}

// installMaterial loads the key pair and installs the parts that are valid.
// Invalid parts leave the previously installed material in place.
func (r *Reconciler) installMaterial(log *slog.Logger, s Settings) {
	m := r.cfg.Loader.Load(s.KeyPath, s.CertPath, s.KeyPassphrase)
	r.cfg.Recorder.SetCertificates(r.cfg.Name, len(m.Certificates))

	if len(m.Certificates) > 0 {
		r.cfg.Listener.SetCertificates(m.Certificates)
		log.Info("TLS certificates installed",
			"crt_path", m.CertPath,
			"count", len(m.Certificates),
			"subject", m.Certificates[0].Subject(),
			"not_after", m.Certificates[0].NotAfter,
		)
	} else {
		log.Error("no valid TLS certificate, keeping the previous one", "crt_path", m.CertPath)
	}

	if m.Key != nil {
		r.cfg.Listener.SetPrivateKey(m.Key)
		log.Info("TLS private key installed", "key_path", m.KeyPath, "encrypted", m.Key.Encrypted)
	} else {
		r.cfg.Recorder.IncKeyLoadFailure(r.cfg.Name)
		log.Error("no valid TLS private key, keeping the previous one", "key_path", m.KeyPath)
	}
}

func (r *Reconciler) hasUsablePair() bool {
	_, err := tlsmaterial.Pair(r.cfg.Listener.Certificates(), r.cfg.Listener.PrivateKey())
	return err == nil
}
