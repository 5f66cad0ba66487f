package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmptyPathIsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("empty path did not produce defaults: %+v", cfg)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anchord.toml")
	body := "listen = \"0.0.0.0:9000\"\nfee_per_kb = 250\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" || cfg.FeePerKB != 250 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	// Unset fields keep their defaults.
	if cfg.DIDTopic != Default().DIDTopic || cfg.MintValue != Default().MintValue {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error")
	}
}
