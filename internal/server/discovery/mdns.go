package discovery

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/hashicorp/mdns"

	"github.com/yndnr/webhost-go/internal/telemetry/logger"
)

// MDNSConfig configures multicast DNS advertisement.
type MDNSConfig struct {
	// Instance is the service instance name. Default: the hostname.
	Instance string

	// Domain is the mDNS domain. Default: "local.".
	Domain string

	// HostName is the host announced in SRV records. Default: the hostname.
	HostName string

	// IPs are announced in A/AAAA records. Default: resolved from HostName.
	IPs []net.IP

	// TXT records published with the service.
	TXT []string

	// Iface restricts multicast to one interface.
	Iface *net.Interface

	Logger *slog.Logger
}

// MDNS advertises services with multicast DNS.
type MDNS struct {
	cfg MDNSConfig
}

// NewMDNS creates an mDNS advertiser.
func NewMDNS(cfg MDNSConfig) *MDNS {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Domain == "" {
		cfg.Domain = "local."
	}
	return &MDNS{cfg: cfg}
}

// Advertise implements Advertiser by starting an mDNS responder.
func (m *MDNS) Advertise(service string, port uint16) (Registration, error) {
	zone, err := m.zone(service, port)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{
		Zone:   zone,
		Iface:  m.cfg.Iface,
		Logger: logger.StdLogger(m.cfg.Logger, "mdns"),
	})
	if err != nil {
		return nil, fmt.Errorf("start mdns responder: %w", err)
	}
	return &mdnsRegistration{server: server, port: port}, nil
}

func (m *MDNS) zone(service string, port uint16) (*mdns.MDNSService, error) {
	host := m.cfg.HostName
	if host == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("hostname: %w", err)
		}
		host = h
	}
	if !strings.HasSuffix(host, ".") {
		host += "."
	}

	instance := m.cfg.Instance
	if instance == "" {
		instance = strings.TrimSuffix(host, ".")
	}

	zone, err := mdns.NewMDNSService(instance, service, m.cfg.Domain, host, int(port), m.cfg.IPs, m.cfg.TXT)
	if err != nil {
		return nil, fmt.Errorf("build mdns service: %w", err)
	}
	return zone, nil
}

type mdnsRegistration struct {
	server *mdns.Server
	port   uint16
}

func (r *mdnsRegistration) Port() uint16 {
	return r.port
}

func (r *mdnsRegistration) Shutdown() error {
	return r.server.Shutdown()
}
