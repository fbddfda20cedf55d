package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout.Duration != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout.Duration)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("Store.Driver = %v, want sqlite", cfg.Store.Driver)
	}
	if cfg.Recognizer.Model != "whisper-1" {
		t.Errorf("Recognizer.Model = %v, want whisper-1", cfg.Recognizer.Model)
	}
	if cfg.Recognizer.Language != "en" {
		t.Errorf("Recognizer.Language = %v, want en", cfg.Recognizer.Language)
	}
}

func TestLoad(t *testing.T) {
	content := `
[general]
name = "test"
log_level = "debug"

[server]
port = 9090
read_timeout = "10s"

[recognizer]
api_key = "${VOXNOTE_TEST_KEY}"
language = "de"
`
	dir := t.TempDir()
	path := filepath.Join(dir, "voxnote.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	os.Setenv("VOXNOTE_TEST_KEY", "sk-test")
	defer os.Unsetenv("VOXNOTE_TEST_KEY")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.General.Name != "test" {
		t.Errorf("General.Name = %v, want test", cfg.General.Name)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout.Duration != 10*time.Second {
		t.Errorf("ReadTimeout = %v, want 10s", cfg.Server.ReadTimeout.Duration)
	}
	if cfg.Recognizer.APIKey != "sk-test" {
		t.Errorf("APIKey = %v, want sk-test (env expanded)", cfg.Recognizer.APIKey)
	}
	if cfg.Recognizer.Language != "de" {
		t.Errorf("Language = %v, want de", cfg.Recognizer.Language)
	}
	// Unset fields still get defaults
	if cfg.Server.WriteTimeout.Duration != 120*time.Second {
		t.Errorf("WriteTimeout = %v, want default 120s", cfg.Server.WriteTimeout.Duration)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/voxnote.toml"); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestDuration_RoundTrip(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil {
		t.Fatalf("UnmarshalText() error = %v", err)
	}
	if d.Duration != 90*time.Second {
		t.Errorf("Duration = %v, want 90s", d.Duration)
	}
	text, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(text) != "1m30s" {
		t.Errorf("MarshalText() = %s, want 1m30s", text)
	}
}
