package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
debug: true
server:
  port: 9090
storage:
  database_path: ./data/documents.db
search:
  alpha: 0.7
ratelimit:
  requests_per_minute: 30
watch:
  directories:
    - /srv/drop
  organization_id: local-817
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("host default = %q, want localhost", cfg.Server.Host)
	}
	if cfg.Search.Alpha != 0.7 {
		t.Errorf("alpha = %f, want 0.7", cfg.Search.Alpha)
	}
	if cfg.RateLimit.RequestsPerMinute != 30 {
		t.Errorf("rpm = %d, want 30", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.RateLimit.TokensPerHour != 500000 {
		t.Errorf("tph default = %d, want 500000", cfg.RateLimit.TokensPerHour)
	}
	if cfg.Watch.OrganizationID != "local-817" {
		t.Errorf("organization = %q, want local-817", cfg.Watch.OrganizationID)
	}

	// ./ paths resolve relative to the config file's directory.
	want := filepath.Join(dir, "data/documents.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
	if cfg.Watch.Directories[0] != "/srv/drop" {
		t.Errorf("absolute watch dir changed: %q", cfg.Watch.Directories[0])
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.Embedding.Provider != "hash" {
		t.Errorf("provider = %q, want hash", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("dimensions = %d, want 384", cfg.Embedding.Dimensions)
	}
	if cfg.Search.Alpha != 0.5 {
		t.Errorf("alpha = %f, want 0.5", cfg.Search.Alpha)
	}
	if cfg.RateLimit.AlertCooldownSeconds != 3600 {
		t.Errorf("alert cooldown = %d, want 3600", cfg.RateLimit.AlertCooldownSeconds)
	}
	if cfg.Answer.TemplateID != "default" {
		t.Errorf("template = %q, want default", cfg.Answer.TemplateID)
	}
	if len(cfg.Watch.Extensions) == 0 {
		t.Error("watch extensions default should be populated")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	var cfg Config
	ApplyDefaults(&cfg)
	cfg.Watch.Directories = []string{"/srv/drop", "/srv/contracts"}

	if err := Save(path, &cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Watch.Directories) != 2 || loaded.Watch.Directories[1] != "/srv/contracts" {
		t.Errorf("watch directories lost on round trip: %v", loaded.Watch.Directories)
	}
	if loaded.Server.Port != cfg.Server.Port {
		t.Errorf("port = %d, want %d", loaded.Server.Port, cfg.Server.Port)
	}
}

func TestRecursiveOrDefault(t *testing.T) {
	var w WatchConfig
	if !w.RecursiveOrDefault() {
		t.Error("unset should default to true")
	}
	f := false
	w.Recursive = &f
	if w.RecursiveOrDefault() {
		t.Error("explicit false should win")
	}
}
