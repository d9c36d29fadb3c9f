package config

import (
	"fmt"

	"github.com/yndnr/webhost-go/internal/infra/confloader"
)

// Source names where configuration is read from. Empty paths are skipped.
// Overrides use dotted keys ("log.level") and take precedence over all
// other layers.
type Source struct {
	File      string
	DotEnv    string
	Overrides map[string]any
}

// Load reads the configuration from src over the defaults and verifies it.
func Load(src Source) (*ServerConfig, error) {
	opts := []confloader.Option{
		confloader.WithConfigFile(src.File),
		confloader.WithOverrides(src.Overrides),
	}
	if src.DotEnv != "" {
		opts = append(opts, confloader.WithDotEnv(src.DotEnv, false))
	}

	cfg := Default()
	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("verify config: %w", err)
	}
	return cfg, nil
}
