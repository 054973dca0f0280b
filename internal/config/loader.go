package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment key; EnvConfigFile names the YAML
// file to load.
const (
	EnvPrefix     = "CINEREC_"
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Unprefixed variables honoured when the prefixed key is absent.
var legacyEnv = map[string]string{
	"MONGO_URI": "mongo_uri",
	"PORT":      "addr",
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if CINEREC_CONFIG is set
//  3. MONGO_URI and PORT
//  4. env (prefix CINEREC_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	for name, key := range legacyEnv {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		if key == "addr" && !strings.Contains(v, ":") {
			v = ":" + v
		}
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, name, err)
		}
	}

	// CINEREC_QUEUE_SIZE -> queue_size. Keys are flat so underscores stay.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
