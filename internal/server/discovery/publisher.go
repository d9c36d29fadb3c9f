package discovery

import (
	"log/slog"
	"sync"

	"github.com/yndnr/webhost-go/internal/telemetry/metric"
)

// Advertiser announces a service on a port.
type Advertiser interface {
	Advertise(service string, port uint16) (Registration, error)
}

// Registration is a live advertisement. Shutdown withdraws it.
type Registration interface {
	Port() uint16
	Shutdown() error
}

// Peer is a remote webhost instance learned through discovery.
type Peer struct {
	Node    string `json:"node"`
	Addr    string `json:"addr"`
	Service string `json:"service"`
	Port    uint16 `json:"port"`
}

// PeerLister is implemented by registrations that can see other instances.
type PeerLister interface {
	Peers() []Peer
}

// Publisher owns the registration of one listener.
type Publisher struct {
	advertiser Advertiser
	logger     *slog.Logger
	recorder   metric.Recorder

	mu      sync.Mutex
	service string
	reg     Registration
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the publisher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metric.Recorder) Option {
	return func(p *Publisher) {
		p.recorder = r
	}
}

// NewPublisher creates a publisher. A nil advertiser behaves like Noop.
func NewPublisher(adv Advertiser, opts ...Option) *Publisher {
	if adv == nil {
		adv = Noop{}
	}
	p := &Publisher{
		advertiser: adv,
		logger:     slog.Default(),
		recorder:   metric.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "discovery")
	return p
}

// Register advertises service on port. Registering the current service and
// port again is a no-op; a different port first withdraws the old
// registration. Failures are logged and leave no registration behind.
func (p *Publisher) Register(service string, port uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reg != nil {
		if p.service == service && p.reg.Port() == port {
			return
		}
		p.withdraw()
	}

	reg, err := p.advertiser.Advertise(service, port)
	if err != nil {
		p.recorder.IncDiscoveryRegistration("error")
		p.logger.Warn("service advertisement failed",
			"service", service,
			"port", port,
			"error", err,
		)
		return
	}

	p.recorder.IncDiscoveryRegistration("ok")
	p.service = service
	p.reg = reg
	p.logger.Info("service advertised", "service", service, "port", port)
}

// Unregister withdraws the current registration, if any.
func (p *Publisher) Unregister() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.withdraw()
}

// Port returns the advertised port, or 0 when nothing is registered.
func (p *Publisher) Port() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reg == nil {
		return 0
	}
	return p.reg.Port()
}

// Peers returns the instances visible through the current registration.
func (p *Publisher) Peers() []Peer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pl, ok := p.reg.(PeerLister); ok {
		return pl.Peers()
	}
	return nil
}

// withdraw must be called with mu held.
func (p *Publisher) withdraw() {
	if p.reg == nil {
		return
	}
	port := p.reg.Port()
	if err := p.reg.Shutdown(); err != nil {
		p.logger.Warn("service withdrawal failed", "service", p.service, "port", port, "error", err)
	}
	p.logger.Info("service withdrawn", "service", p.service, "port", port)
	p.reg = nil
}

// Noop records registrations without announcing anything.
type Noop struct{}

// Advertise implements Advertiser.
func (Noop) Advertise(_ string, port uint16) (Registration, error) {
	return noopRegistration(port), nil
}

type noopRegistration uint16

func (r noopRegistration) Port() uint16  { return uint16(r) }
func (noopRegistration) Shutdown() error { return nil }
