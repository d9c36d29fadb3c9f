package config

import "github.com/yndnr/webhost-go/internal/telemetry/logger"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for printing and logging configuration without exposing
// the key passphrase.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.WebServer.KeyPassPhrase = logger.Mask(cfg.WebServer.KeyPassPhrase)
	sanitized.Discovery.GossipSeeds = append([]string(nil), cfg.Discovery.GossipSeeds...)
	return &sanitized
}
