package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "FOLIO_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FOLIO_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "FOLIO_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "source.kind", typ: kString, env: "FOLIO_SOURCE_KIND",
		apply:   func(cfg *Config, v any) { cfg.Source.Kind = v.(string) },
		extract: func(cfg Config) any { return cfg.Source.Kind },
	},
	{
		key: "source.url", typ: kString, env: "FOLIO_SOURCE_URL",
		apply:   func(cfg *Config, v any) { cfg.Source.URL = v.(string) },
		extract: func(cfg Config) any { return cfg.Source.URL },
	},
	{
		key: "source.mock_delay", typ: kString, env: "FOLIO_SOURCE_MOCK_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Source.MockDelay = v.(string) },
		extract: func(cfg Config) any { return cfg.Source.MockDelay },
	},
	{
		key: "source.cache_ttl", typ: kString, env: "FOLIO_SOURCE_CACHE_TTL",
		apply:   func(cfg *Config, v any) { cfg.Source.CacheTTL = v.(string) },
		extract: func(cfg Config) any { return cfg.Source.CacheTTL },
	},
	{
		key: "view.load_timeout", typ: kString, env: "FOLIO_VIEW_LOAD_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.View.LoadTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.View.LoadTimeout },
	},
	{
		key: "view.session_ttl", typ: kString, env: "FOLIO_VIEW_SESSION_TTL",
		apply:   func(cfg *Config, v any) { cfg.View.SessionTTL = v.(string) },
		extract: func(cfg Config) any { return cfg.View.SessionTTL },
	},
	{
		key: "view.max_sessions", typ: kInt, env: "FOLIO_VIEW_MAX_SESSIONS",
		apply:   func(cfg *Config, v any) { cfg.View.MaxSessions = v.(int) },
		extract: func(cfg Config) any { return cfg.View.MaxSessions },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
