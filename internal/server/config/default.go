package config

import "time"

// Default configuration values.
const (
	DefaultPort            = 8090
	DefaultSSLPort         = 8092
	DefaultMaxPort         = 65535
	DefaultShutdownTimeout = 5 * time.Second

	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second

	DefaultDiscoveryMode  = DiscoveryMDNS
	DefaultServiceName    = "_webhost-http._tcp"
	DefaultDomain         = "local."
	DefaultGossipBindAddr = "0.0.0.0"
	DefaultGossipBindPort = 7946

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Discovery modes.
const (
	DiscoveryMDNS   = "mdns"
	DiscoveryGossip = "gossip"
	DiscoveryNone   = "none"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		WebServer: WebServerSection{
			Port:            DefaultPort,
			SSLPort:         DefaultSSLPort,
			SSLEnabled:      true,
			MaxPort:         DefaultMaxPort,
			ShutdownTimeout: DefaultShutdownTimeout,
			WatchTLS:        true,
		},
		HTTP: HTTPSection{
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
		Discovery: DiscoverySection{
			Mode:           DefaultDiscoveryMode,
			Service:        DefaultServiceName,
			Domain:         DefaultDomain,
			GossipBindAddr: DefaultGossipBindAddr,
			GossipBindPort: DefaultGossipBindPort,
		},
		Metrics: MetricsSection{
			Enabled: true,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
