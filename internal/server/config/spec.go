package config

import (
	"net/netip"
	"strings"
	"time"
)

// ServerConfig is the root configuration for webhost-server.
type ServerConfig struct {
	WebServer WebServerSection `koanf:"webserver" yaml:"webserver"`
	HTTP      HTTPSection      `koanf:"http" yaml:"http"`
	Discovery DiscoverySection `koanf:"discovery" yaml:"discovery"`
	Metrics   MetricsSection   `koanf:"metrics" yaml:"metrics"`
	Log       LogSection       `koanf:"log" yaml:"log"`
}

// WebServerSection holds the listener settings shared by the plain and the
// secure instance. Key names follow the established webserver settings
// document, including its mixed casing.
type WebServerSection struct {
	// DocumentRoot is the directory served as static files. Empty selects
	// the built-in web root.
	DocumentRoot string `koanf:"document_root" yaml:"document_root"`

	// Port is the requested plain HTTP port; 0 selects the default.
	Port int `koanf:"port" yaml:"port"`

	// SSLPort is the requested HTTPS port; 0 selects the default.
	SSLPort int `koanf:"sslPort" yaml:"sslPort"`

	// KeyPath and CrtPath point at PEM files. Empty selects the bundled pair.
	KeyPath string `koanf:"keyPath" yaml:"keyPath"`
	CrtPath string `koanf:"crtPath" yaml:"crtPath"`

	// KeyPassPhrase decrypts an encrypted private key.
	KeyPassPhrase string `koanf:"keyPassPhrase" yaml:"keyPassPhrase"`

	// SSLEnabled runs the secure instance next to the plain one.
	SSLEnabled bool `koanf:"ssl_enabled" yaml:"ssl_enabled"`

	// RequireValidTLS refuses to start the secure listener without a usable
	// key pair instead of starting it with failing handshakes.
	RequireValidTLS bool `koanf:"require_valid_tls" yaml:"require_valid_tls"`

	// MaxPort caps the port search; 0 means 65535.
	MaxPort int `koanf:"max_port" yaml:"max_port"`

	// ShutdownTimeout bounds a graceful listener stop.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`

	// WatchTLS reloads the key pair when its files change.
	WatchTLS bool `koanf:"watch_tls" yaml:"watch_tls"`
}

// HTTPSection tunes the HTTP servers of both instances.
type HTTPSection struct {
	// RateLimit is the per client IP request rate; 0 disables limiting.
	RateLimit         int           `koanf:"rate_limit" yaml:"rate_limit"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" yaml:"read_header_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout" yaml:"idle_timeout"`
	Audit             bool          `koanf:"audit" yaml:"audit"`
	// TrustedProxies lists addresses or CIDR ranges of reverse proxies
	// whose X-Forwarded-For and X-Real-IP headers identify the client.
	TrustedProxies []string `koanf:"trusted_proxies" yaml:"trusted_proxies"`
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (s HTTPSection) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, entry := range s.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, err
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// DiscoverySection configures how the plain listener is advertised.
type DiscoverySection struct {
	// Mode is one of "mdns", "gossip" or "none".
	Mode     string `koanf:"mode" yaml:"mode"`
	Service  string `koanf:"service" yaml:"service"`
	Instance string `koanf:"instance" yaml:"instance"`
	Domain   string `koanf:"domain" yaml:"domain"`

	GossipBindAddr string   `koanf:"gossip_bind_addr" yaml:"gossip_bind_addr"`
	GossipBindPort int      `koanf:"gossip_bind_port" yaml:"gossip_bind_port"`
	GossipSeeds    []string `koanf:"gossip_seeds" yaml:"gossip_seeds"`
}

// MetricsSection toggles the /metrics endpoint.
type MetricsSection struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}
