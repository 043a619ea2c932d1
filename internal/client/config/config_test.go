package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	t.Setenv("PARKING_CONFIG_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerURL != DefaultServerURL {
		t.Errorf("expected default server URL, got %q", cfg.ServerURL)
	}
	if cfg.HasProfile() {
		t.Error("expected no profile")
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PARKING_CONFIG_DIR", dir)

	cfg := DefaultConfig()
	cfg.UserID = "uid-1"
	cfg.UserName = "Dana"
	cfg.Set(PrefPlate, "ABC-123")
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, ConfigFile))
	if err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %o", info.Mode().Perm())
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.UserName != "Dana" || loaded.Get(PrefPlate) != "ABC-123" {
		t.Errorf("unexpected config %+v", loaded)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestSetEmptyRemovesKey(t *testing.T) {
	cfg := &Config{}
	cfg.Set(PrefContact, "555")
	cfg.Set(PrefContact, "")
	if _, ok := cfg.Prefs[PrefContact]; ok {
		t.Error("expected key to be removed")
	}
	if cfg.Get("missing") != "" {
		t.Error("expected empty value for missing key")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PARKING_CONFIG_DIR", dir)
	if err := os.WriteFile(filepath.Join(dir, ConfigFile), []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
