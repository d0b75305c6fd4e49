package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load consults. Viper treats empty values as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, legacy := range legacyEnv {
		t.Setenv(legacy, "")
	}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvPrefix+"_") {
			t.Setenv(kv[:strings.Index(kv, "=")], "")
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(LoadOptions{EnvFile: "-"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTP.Addr != ":8000" {
		t.Errorf("HTTP.Addr = %q, want :8000", cfg.HTTP.Addr)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "works.db" {
		t.Errorf("Database = %s %q, want sqlite works.db", cfg.Database.Driver, cfg.Database.DSN)
	}
	if cfg.Source.BaseURL != "https://api.openalex.org/works" {
		t.Errorf("Source.BaseURL = %q", cfg.Source.BaseURL)
	}
	if cfg.Source.PerPage != 100 || cfg.Source.Page != 1 {
		t.Errorf("Source page = %d/%d, want 100/1", cfg.Source.PerPage, cfg.Source.Page)
	}
	if cfg.Source.Timeout != 60*time.Second {
		t.Errorf("Source.Timeout = %v, want 60s", cfg.Source.Timeout)
	}
	if !cfg.Sync.Atomic {
		t.Error("Sync.Atomic should default to true")
	}
	if cfg.Sync.SkipMalformed || cfg.Sync.RequireID {
		t.Error("SkipMalformed and RequireID should default to false")
	}
	if cfg.Sync.Timeout != 200*time.Second {
		t.Errorf("Sync.Timeout = %v, want 200s", cfg.Sync.Timeout)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "works.yaml", `
http:
  addr: ":9090"
database:
  driver: sqlite
  dsn: /tmp/other.db
source:
  mailto: someone@example.org
  per_page: 25
  page: 3
sync:
  atomic: false
  skip_malformed: true
log:
  level: debug
`)

	cfg, err := Load(LoadOptions{ConfigFile: path, EnvFile: "-"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Database.DSN != "/tmp/other.db" {
		t.Errorf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.Source.Mailto != "someone@example.org" || cfg.Source.PerPage != 25 || cfg.Source.Page != 3 {
		t.Errorf("Source = %+v", cfg.Source)
	}
	if cfg.Sync.Atomic || !cfg.Sync.SkipMalformed {
		t.Errorf("Sync = %+v", cfg.Sync)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml"), EnvFile: "-"})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "works.yaml", "source:\n  per_page: 25\n")

	t.Setenv("WORKS_SOURCE_PER_PAGE", "50")
	t.Setenv("WORKS_SYNC_ATOMIC", "false")
	t.Setenv("MAIL", "legacy@example.org")
	t.Setenv("API_TOKEN", "secret")

	cfg, err := Load(LoadOptions{ConfigFile: path, EnvFile: "-"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Source.PerPage != 50 {
		t.Errorf("Source.PerPage = %d, want 50 from env", cfg.Source.PerPage)
	}
	if cfg.Sync.Atomic {
		t.Error("WORKS_SYNC_ATOMIC=false should disable atomic mode")
	}
	if cfg.Source.Mailto != "legacy@example.org" {
		t.Errorf("Source.Mailto = %q, want value of MAIL", cfg.Source.Mailto)
	}
	if cfg.API.Token != "secret" {
		t.Errorf("API.Token = %q, want value of API_TOKEN", cfg.API.Token)
	}
}

func TestLoadPrefixedWinsOverLegacy(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_TOKEN", "legacy")
	t.Setenv("WORKS_API_TOKEN", "prefixed")

	cfg, err := Load(LoadOptions{EnvFile: "-"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.Token != "prefixed" {
		t.Errorf("API.Token = %q, want prefixed", cfg.API.Token)
	}
}

func TestLoadLegacyPostgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "openalex")
	t.Setenv("DB_USER", "etl")
	t.Setenv("DB_PASS", "hunter2")

	cfg, err := Load(LoadOptions{EnvFile: "-"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.Driver != "postgres" {
		t.Fatalf("Database.Driver = %q, want postgres when DB_HOST is set", cfg.Database.Driver)
	}
	want := "host=db.internal port=5433 user=etl password=hunter2 dbname=openalex sslmode=disable"
	if got := cfg.Database.DSNString(); got != want {
		t.Errorf("DSNString() = %q, want %q", got, want)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	// Register restoration, then unset so the dotenv file can populate it.
	t.Setenv("MAIL", "placeholder")
	os.Unsetenv("MAIL")

	envFile := writeFile(t, ".env", "MAIL=dotenv@example.org\n")

	cfg, err := Load(LoadOptions{EnvFile: envFile})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source.Mailto != "dotenv@example.org" {
		t.Errorf("Source.Mailto = %q, want value from .env", cfg.Source.Mailto)
	}
}

func TestLoadMissingEnvFile(t *testing.T) {
	clearEnv(t)

	if _, err := Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), ".env")}); err != nil {
		t.Fatalf("missing .env should be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"postgres without host", func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }, "database.host"},
		{"per page too large", func(c *Config) { c.Source.PerPage = 201 }, "per_page"},
		{"per page zero", func(c *Config) { c.Source.PerPage = 0 }, "per_page"},
		{"page zero", func(c *Config) { c.Source.Page = 0 }, "source.page"},
		{"no source timeout", func(c *Config) { c.Source.Timeout = 0 }, "source.timeout"},
		{"no sync timeout", func(c *Config) { c.Sync.Timeout = 0 }, "sync.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Database: DatabaseConfig{Driver: "sqlite", DSN: "works.db"},
				Source:   SourceConfig{PerPage: 100, Page: 1, Timeout: time.Minute},
				Sync:     SyncConfig{Timeout: time.Minute},
			}
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestDSNString(t *testing.T) {
	tests := []struct {
		name string
		db   DatabaseConfig
		want string
	}{
		{"explicit dsn wins", DatabaseConfig{Driver: "postgres", DSN: "postgres://x", Host: "h"}, "postgres://x"},
		{"sqlite path", DatabaseConfig{Driver: "sqlite", DSN: "works.db"}, "works.db"},
		{"minimal postgres", DatabaseConfig{Driver: "postgres", Host: "h", Port: 5432}, "host=h port=5432"},
		{"quoted password", DatabaseConfig{Driver: "postgres", Host: "h", Port: 1, Password: "a b'c"}, `host=h port=1 password='a b\'c'`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.db.DSNString(); got != tt.want {
				t.Errorf("DSNString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRedactedYAML(t *testing.T) {
	cfg := &Config{
		API:      APIConfig{Token: "tok"},
		Database: DatabaseConfig{Driver: "postgres", Host: "h", Password: "pw"},
		Agent:    AgentConfig{APIKey: "sk-ant"},
	}

	out, err := cfg.YAML()
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	text := string(out)
	for _, secret := range []string{"tok", "pw", "sk-ant"} {
		if strings.Contains(text, ": "+secret+"\n") {
			t.Errorf("YAML output leaks %q:\n%s", secret, text)
		}
	}
	if !strings.Contains(text, "host: h") {
		t.Errorf("YAML output missing host:\n%s", text)
	}
	if cfg.API.Token != "tok" {
		t.Error("Redacted() must not modify the receiver")
	}
}
