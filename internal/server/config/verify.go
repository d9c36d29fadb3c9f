package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/webhost-go/internal/telemetry/logger"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Verify validates the configuration. Only values that no reconciliation
// could recover from are rejected; missing files and busy ports are handled
// at runtime by falling back.
func Verify(cfg *ServerConfig) error {
	if err := verifyWebServer(&cfg.WebServer); err != nil {
		return err
	}
	if err := verifyHTTP(&cfg.HTTP); err != nil {
		return err
	}
	if err := verifyDiscovery(&cfg.Discovery); err != nil {
		return err
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	return nil
}

func verifyWebServer(cfg *WebServerSection) error {
	if err := verifyPort("webserver.port", cfg.Port); err != nil {
		return err
	}
	if err := verifyPort("webserver.sslPort", cfg.SSLPort); err != nil {
		return err
	}
	if err := verifyPort("webserver.max_port", cfg.MaxPort); err != nil {
		return err
	}
	if cfg.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: webserver.shutdown_timeout must not be negative", ErrInvalid)
	}
	return nil
}

func verifyHTTP(cfg *HTTPSection) error {
	if cfg.RateLimit < 0 {
		return fmt.Errorf("%w: http.rate_limit must not be negative", ErrInvalid)
	}
	if cfg.ReadHeaderTimeout < 0 || cfg.IdleTimeout < 0 {
		return fmt.Errorf("%w: http timeouts must not be negative", ErrInvalid)
	}
	if _, err := cfg.TrustedProxyPrefixes(); err != nil {
		return fmt.Errorf("%w: http.trusted_proxies: %v", ErrInvalid, err)
	}
	return nil
}

// verifyDiscovery also normalizes the mode, so later switches on it can
// compare against the lowercase constants.
func verifyDiscovery(cfg *DiscoverySection) error {
	cfg.Mode = strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch cfg.Mode {
	case DiscoveryMDNS, DiscoveryNone:
	case DiscoveryGossip:
		if err := verifyPort("discovery.gossip_bind_port", cfg.GossipBindPort); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: discovery.mode %q (want mdns, gossip or none)", ErrInvalid, cfg.Mode)
	}
	if cfg.Mode != DiscoveryNone && cfg.Service == "" {
		return fmt.Errorf("%w: discovery.service is required", ErrInvalid)
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if _, err := logger.ParseLevel(cfg.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json", "text", "console":
	default:
		return fmt.Errorf("%w: log.format %q (want json or text)", ErrInvalid, cfg.Format)
	}
	return nil
}

func verifyPort(name string, port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: %s %d out of range 0-65535", ErrInvalid, name, port)
	}
	return nil
}
