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

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if AGEGRADE_CONFIG is set
//  3. env (prefix AGEGRADE_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("AGEGRADE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: AGEGRADE_ADDR, AGEGRADE_DATA_DIR, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("AGEGRADE_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "agegrade_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.RacesFile == "":
		return fmt.Errorf("%w: races_file must not be empty", ErrInvalidConfig)
	case c.ManifestFile == "":
		return fmt.Errorf("%w: manifest_file must not be empty", ErrInvalidConfig)
	case c.FreshnessSeconds <= 0:
		return fmt.Errorf("%w: freshness_seconds must be positive", ErrInvalidConfig)
	case c.FinalDelayHours <= 0:
		return fmt.Errorf("%w: final_delay_hours must be positive", ErrInvalidConfig)
	}
	return nil
}
