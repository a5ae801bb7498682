package config

import (
	"errors"
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
//  2. file (YAML) if TALLY_CONFIG is set
//  3. env (prefix TALLY_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("TALLY_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Env keys like TALLY_DB_PATH map to flat koanf keys (db_path);
	// underscores are preserved to match the struct tags.
	envProvider := env.Provider("TALLY_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "tally_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("db_path must not be empty")
	}
	if cfg.JWTSecret == "" {
		// Dev fallback; production sets TALLY_JWT_SECRET.
		cfg.JWTSecret = "tally-dev-secret"
	}
	return &cfg, nil
}
