package config

import (
	"testing"
)

// fakeBackend is an in-memory ConfigBackend for tests.
type fakeBackend struct {
	strings map[string]string
	ints    map[string]int
	err     error
}

func (b *fakeBackend) GetString(key string) (string, bool, error) {
	if b.err != nil {
		return "", false, b.err
	}
	v, ok := b.strings[key]
	return v, ok, nil
}

func (b *fakeBackend) GetInt(key string) (int, bool, error) {
	if b.err != nil {
		return 0, false, b.err
	}
	v, ok := b.ints[key]
	return v, ok, nil
}

func (b *fakeBackend) SetString(key, val string) error {
	if b.strings == nil {
		b.strings = make(map[string]string)
	}
	b.strings[key] = val
	return nil
}

func (b *fakeBackend) SetInt(key string, val int) error {
	if b.ints == nil {
		b.ints = make(map[string]int)
	}
	b.ints[key] = val
	return nil
}

func (b *fakeBackend) Delete(key string) error {
	delete(b.strings, key)
	delete(b.ints, key)
	return nil
}

// TestDefaults verifies defaults are applied when the backend is empty.
func TestDefaults(t *testing.T) {
	t.Setenv("FAVMARK_SERVER_PORT", "")
	t.Setenv("FAVMARK_VIEW_PAGE_SIZE", "")
	t.Setenv("FAVMARK_LOG_LEVEL", "")
	t.Setenv("FAVMARK_HOST_DB_PATH", "")
	t.Setenv("FAVMARK_STORAGE_DATA_DIR", "")

	cfg, err := loadWith(&fakeBackend{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4015 {
		t.Errorf("Server.Port = %d, want 4015", cfg.Server.Port)
	}
	if cfg.View.PageSize != 10 {
		t.Errorf("View.PageSize = %d, want 10", cfg.View.PageSize)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Host.DBPath != "" {
		t.Errorf("Host.DBPath = %q, want empty", cfg.Host.DBPath)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
}

// TestBackendValues verifies backend values override defaults.
func TestBackendValues(t *testing.T) {
	t.Setenv("FAVMARK_SERVER_PORT", "")
	t.Setenv("FAVMARK_HOST_DB_PATH", "")

	b := &fakeBackend{
		strings: map[string]string{
			"host.db_path": "/var/lib/chat/chat.db",
			"log.level":    "debug",
		},
		ints: map[string]int{
			"server.port":    5015,
			"view.page_size": 25,
		},
	}

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5015 {
		t.Errorf("Server.Port = %d, want 5015", cfg.Server.Port)
	}
	if cfg.View.PageSize != 25 {
		t.Errorf("View.PageSize = %d, want 25", cfg.View.PageSize)
	}
	if cfg.Host.DBPath != "/var/lib/chat/chat.db" {
		t.Errorf("Host.DBPath = %q", cfg.Host.DBPath)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

// TestEnvOverride verifies environment variables override backend values.
func TestEnvOverride(t *testing.T) {
	b := &fakeBackend{
		ints: map[string]int{"server.port": 5015},
	}

	t.Setenv("FAVMARK_SERVER_PORT", "6015")
	t.Setenv("FAVMARK_HOST_DB_PATH", "/env/chat.db")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6015 {
		t.Errorf("Server.Port = %d, want env override 6015", cfg.Server.Port)
	}
	if cfg.Host.DBPath != "/env/chat.db" {
		t.Errorf("Host.DBPath = %q, want env override", cfg.Host.DBPath)
	}
}

// TestInvalidEnvInteger verifies a malformed integer env var falls back to
// the backend/default value instead of failing the load.
func TestInvalidEnvInteger(t *testing.T) {
	t.Setenv("FAVMARK_SERVER_PORT", "not-a-number")

	cfg, err := loadWith(&fakeBackend{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4015 {
		t.Errorf("Server.Port = %d, want default 4015", cfg.Server.Port)
	}
}

func TestSetKeyUnknown(t *testing.T) {
	if err := SetKey("no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestValidKeys(t *testing.T) {
	keys := ValidKeys()
	want := map[string]bool{
		"server.port":      false,
		"storage.data_dir": false,
		"host.db_path":     false,
		"view.page_size":   false,
		"log.level":        false,
	}
	for _, k := range keys {
		if _, ok := want[k]; !ok {
			t.Errorf("unexpected key %q", k)
			continue
		}
		want[k] = true
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("missing key %q", k)
		}
	}
}

func TestShowAllCoversEveryKey(t *testing.T) {
	infos := ShowAll(defaults())
	if len(infos) != len(ValidKeys()) {
		t.Fatalf("ShowAll returned %d entries, want %d", len(infos), len(ValidKeys()))
	}
	for _, info := range infos {
		if info.EnvVar == "" {
			t.Errorf("key %q has no env var", info.Key)
		}
	}
}
