package config

import (
	"fmt"
	"net/url"
)

// Source kinds.
const (
	SourceMock   = "mock"
	SourceSQLite = "sqlite"
	SourceHTTP   = "http"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	Source  SourceConfig
	View    ViewConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

// SourceConfig selects where profiles come from. Durations are kept as
// strings and parsed where they are used.
type SourceConfig struct {
	Kind      string
	URL       string
	MockDelay string
	CacheTTL  string
}

type ViewConfig struct {
	LoadTimeout string
	SessionTTL  string
	MaxSessions int
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4080,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Source: SourceConfig{
			Kind:      SourceMock,
			MockDelay: "1s",
			CacheTTL:  "60s",
		},
		View: ViewConfig{
			LoadTimeout: "10s",
			SessionTTL:  "15m",
			MaxSessions: 1024,
		},
	}
}

// Load reads configuration from the platform-native backend and environment
// variables.
//
// On macOS the backend is UserDefaults (domain: com.folio.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/folio/config.json.
//
// Environment variables (FOLIO_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Source.Kind {
	case SourceMock, SourceSQLite:
	case SourceHTTP:
		if cfg.Source.URL == "" {
			return fmt.Errorf("missing required config: source.url must be set when source.kind is %q (env FOLIO_SOURCE_URL)", SourceHTTP)
		}
		u, err := url.Parse(cfg.Source.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid source.url %q: want an absolute http(s) URL", cfg.Source.URL)
		}
	default:
		return fmt.Errorf("invalid source.kind %q: want one of %s, %s, %s", cfg.Source.Kind, SourceMock, SourceSQLite, SourceHTTP)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	return nil
}
