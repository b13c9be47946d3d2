package config

import (
	"strings"
	"testing"
)

// memBackend is an in-memory ConfigBackend.
type memBackend struct {
	strs map[string]string
	ints map[string]int
}

func newMemBackend() *memBackend {
	return &memBackend{strs: map[string]string{}, ints: map[string]int{}}
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strs[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memBackend) SetString(key, val string) error {
	m.strs[key] = val
	return nil
}

func (m *memBackend) SetInt(key string, val int) error {
	m.ints[key] = val
	return nil
}

func (m *memBackend) Delete(key string) error {
	delete(m.strs, key)
	delete(m.ints, key)
	return nil
}

// clearEnv blanks every FOLIO_* variable the loader reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

// TestDefaults verifies all default values are applied when the backend is empty.
func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4080 {
		t.Errorf("Server.Port = %d, want 4080", cfg.Server.Port)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Source.Kind != SourceMock {
		t.Errorf("Source.Kind = %q, want %q", cfg.Source.Kind, SourceMock)
	}
	if cfg.Source.MockDelay != "1s" {
		t.Errorf("Source.MockDelay = %q, want 1s", cfg.Source.MockDelay)
	}
	if cfg.Source.CacheTTL != "60s" {
		t.Errorf("Source.CacheTTL = %q, want 60s", cfg.Source.CacheTTL)
	}
	if cfg.View.LoadTimeout != "10s" {
		t.Errorf("View.LoadTimeout = %q, want 10s", cfg.View.LoadTimeout)
	}
	if cfg.View.SessionTTL != "15m" {
		t.Errorf("View.SessionTTL = %q, want 15m", cfg.View.SessionTTL)
	}
	if cfg.View.MaxSessions != 1024 {
		t.Errorf("View.MaxSessions = %d, want 1024", cfg.View.MaxSessions)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
}

// TestBackendValues verifies that stored keys are read from the backend.
func TestBackendValues(t *testing.T) {
	clearEnv(t)
	b := newMemBackend()
	b.ints["server.port"] = 5000
	b.strs["storage.data_dir"] = "/tmp/folio-test"
	b.strs["source.kind"] = SourceSQLite
	b.strs["view.load_timeout"] = "0"
	b.ints["view.max_sessions"] = 8

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/folio-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Source.Kind != SourceSQLite {
		t.Errorf("Source.Kind = %q", cfg.Source.Kind)
	}
	if cfg.View.LoadTimeout != "0" {
		t.Errorf("View.LoadTimeout = %q", cfg.View.LoadTimeout)
	}
	if cfg.View.MaxSessions != 8 {
		t.Errorf("View.MaxSessions = %d", cfg.View.MaxSessions)
	}
}

// TestEnvOverride verifies that environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	b := newMemBackend()
	b.ints["server.port"] = 5000
	b.strs["log.level"] = "info"

	t.Setenv("FOLIO_SERVER_PORT", "6000")
	t.Setenv("FOLIO_LOG_LEVEL", "debug")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

// TestEnvOverride_BadInt keeps the previous value when an env int is malformed.
func TestEnvOverride_BadInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("FOLIO_VIEW_MAX_SESSIONS", "lots")

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.View.MaxSessions != 1024 {
		t.Errorf("View.MaxSessions = %d, want default 1024", cfg.View.MaxSessions)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown source kind", map[string]string{"FOLIO_SOURCE_KIND": "ldap"}, "invalid source.kind"},
		{"http without url", map[string]string{"FOLIO_SOURCE_KIND": "http"}, "missing required config"},
		{"http with relative url", map[string]string{"FOLIO_SOURCE_KIND": "http", "FOLIO_SOURCE_URL": "profiles/me"}, "invalid source.url"},
		{"http with url", map[string]string{"FOLIO_SOURCE_KIND": "http", "FOLIO_SOURCE_URL": "http://localhost:4080"}, ""},
		{"port out of range", map[string]string{"FOLIO_SERVER_PORT": "70000"}, "invalid server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := loadWith(newMemBackend())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSetKey(t *testing.T) {
	b := newMemBackend()

	if err := setKeyWith(b, "source.kind", "sqlite"); err != nil {
		t.Fatalf("SetKey string: %v", err)
	}
	if b.strs["source.kind"] != "sqlite" {
		t.Errorf("source.kind = %q", b.strs["source.kind"])
	}

	if err := setKeyWith(b, "view.max_sessions", "64"); err != nil {
		t.Fatalf("SetKey int: %v", err)
	}
	if b.ints["view.max_sessions"] != 64 {
		t.Errorf("view.max_sessions = %d", b.ints["view.max_sessions"])
	}

	if err := setKeyWith(b, "view.max_sessions", "many"); err == nil {
		t.Error("expected error for non-integer value")
	}
	if err := setKeyWith(b, "source.token", "x"); err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("unknown key error = %v", err)
	}
}

func TestShowAll(t *testing.T) {
	cfg := defaults()
	infos := ShowAll(cfg)

	if len(infos) != len(ValidKeys()) {
		t.Fatalf("ShowAll returned %d keys, ValidKeys %d", len(infos), len(ValidKeys()))
	}
	byKey := make(map[string]KeyInfo, len(infos))
	for _, ki := range infos {
		byKey[ki.Key] = ki
	}
	if ki := byKey["server.port"]; ki.Value != "4080" || ki.EnvVar != "FOLIO_SERVER_PORT" {
		t.Errorf("server.port info = %+v", ki)
	}
	if ki := byKey["view.session_ttl"]; ki.Value != "15m" {
		t.Errorf("view.session_ttl info = %+v", ki)
	}
}
