package confloader

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix prefixes every environment variable read by a Loader.
const DefaultEnvPrefix = "WEBHOST_"

// Loader merges configuration layers into a koanf instance and decodes the
// result into a struct holding the defaults.
type Loader struct {
	k *koanf.Koanf

	envPrefix    string
	filePath     string
	dotEnvPath   string
	dotEnvStrict bool
	overrides    map[string]any
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile names the YAML file to read. An empty path skips the layer.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithDotEnv copies a .env file into the process environment before the
// environment layer is read. Variables already set win. A missing file is
// an error only when strict is set.
func WithDotEnv(path string, strict bool) Option {
	return func(l *Loader) {
		l.dotEnvPath = path
		l.dotEnvStrict = strict
	}
}

// WithOverrides adds a final layer, typically from command line flags.
// Keys are dotted paths such as "log.level".
func WithOverrides(values map[string]any) Option {
	return func(l *Loader) { l.overrides = values }
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load applies every configured layer and decodes into target. Each layer
// overrides the one before it:
//
//	target defaults < YAML file < .env file < environment < overrides
func (l *Loader) Load(target any) error {
	layers := []struct {
		name string
		load func() error
	}{
		{"config file", func() error { return l.LoadFile(l.filePath) }},
		{"dotenv", l.loadDotEnvLayer},
		{"env", l.LoadEnv},
		{"overrides", func() error { return l.LoadMap(l.overrides) }},
	}
	for _, layer := range layers {
		if err := layer.load(); err != nil {
			return fmt.Errorf("load %s: %w", layer.name, err)
		}
	}

	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}

func (l *Loader) loadDotEnvLayer() error {
	if l.dotEnvPath == "" {
		return nil
	}
	err := l.LoadDotEnv(l.dotEnvPath)
	if err != nil && !l.dotEnvStrict && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadFile merges a YAML file. An empty path is a no-op.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// LoadDotEnv copies the variables of a .env file into the process
// environment without overriding existing ones.
func (l *Loader) LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("dotenv %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges PREFIX_SECTION_KEY variables.
//
// The first underscore after the prefix separates the section and the rest
// is the key, so WEBHOST_WEBSERVER_DOCUMENT_ROOT sets
// webserver.document_root. Keys already loaded keep their spelling:
// WEBHOST_WEBSERVER_SSLPORT overrides a file's webserver.sslPort.
func (l *Loader) LoadEnv() error {
	known := make(map[string]string)
	for _, key := range l.k.Keys() {
		known[strings.ToLower(key)] = key
	}

	toKey := func(name string) string {
		key := strings.ToLower(strings.TrimPrefix(name, l.envPrefix))
		key = strings.Replace(key, "_", ".", 1)
		if canonical, ok := known[key]; ok {
			return canonical
		}
		return key
	}
	return l.k.Load(env.Provider(l.envPrefix, ".", toKey), nil)
}

// LoadMap merges values whose keys may be dotted paths. A nil map is a no-op.
func (l *Loader) LoadMap(values map[string]any) error {
	if len(values) == 0 {
		return nil
	}
	return l.k.Load(mapProvider(values), nil)
}

// Unmarshal decodes the merged layers into target using koanf tags.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// Get returns the merged value at a dotted key, or nil.
func (l *Loader) Get(key string) any {
	return l.k.Get(key)
}
