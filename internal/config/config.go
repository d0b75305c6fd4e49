// Package config loads the explicit configuration object handed to every
// component at construction. Nothing below cmd/ reads the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override, e.g. WORKS_DATABASE_DSN.
	EnvPrefix = "WORKS"
	// DefaultConfigName is looked up in the working directory when no file is given.
	DefaultConfigName = "works"
	// DefaultEnvFile is loaded into the environment before anything else.
	DefaultEnvFile = ".env"

	redacted = "********"
)

// Config holds all application configuration.
type Config struct {
	App      AppConfig      `yaml:"app"`
	HTTP     HTTPConfig     `yaml:"http"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Source   SourceConfig   `yaml:"source"`
	Sync     SyncConfig     `yaml:"sync"`
	Log      LogConfig      `yaml:"log"`
	Agent    AgentConfig    `yaml:"agent"`
}

// AppConfig holds application-wide settings.
type AppConfig struct {
	Env string `yaml:"env"` // development or production
}

// HTTPConfig holds the API server settings.
type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// APIConfig holds the shared secret guarding POST /update.
type APIConfig struct {
	Token string `yaml:"token"`
}

// DatabaseConfig holds destination store settings.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite or postgres
	DSN      string `yaml:"dsn"`    // Overrides the discrete fields below when set
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// SourceConfig holds the OpenAlex extractor settings.
type SourceConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Mailto    string        `yaml:"mailto"`
	PerPage   int           `yaml:"per_page"`
	Page      int           `yaml:"page"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // Requests per second
}

// SyncConfig holds the orchestrator policy.
type SyncConfig struct {
	Atomic        bool          `yaml:"atomic"`
	SkipMalformed bool          `yaml:"skip_malformed"`
	RequireID     bool          `yaml:"require_id"`
	Timeout       time.Duration `yaml:"timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, or file path
}

// AgentConfig holds the query agent settings.
type AgentConfig struct {
	APIURL    string        `yaml:"api_url"` // Base URL of the works HTTP API
	Model     string        `yaml:"model"`
	APIKey    string        `yaml:"api_key"`
	MaxTokens int64         `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// LoadOptions selects where configuration is read from.
type LoadOptions struct {
	ConfigFile string // Explicit config file; empty looks for ./works.{yaml,toml,json}
	EnvFile    string // Dotenv file; empty means .env, "-" disables
}

// legacyEnv maps keys to the environment names the original deployment used.
var legacyEnv = map[string]string{
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.name":     "DB_NAME",
	"database.user":     "DB_USER",
	"database.password": "DB_PASS",
	"source.mailto":     "MAIL",
	"api.token":         "API_TOKEN",
	"agent.api_key":     "ANTHROPIC_API_KEY",
}

// Load reads configuration with the following priority (highest first):
//  1. Environment variables with the WORKS_ prefix (e.g. WORKS_SYNC_ATOMIC)
//  2. Legacy environment names (DB_HOST, MAIL, API_TOKEN, ...)
//  3. The config file
//  4. Built-in defaults
//
// The dotenv file only populates variables that are not already set.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "-" {
		envFile := opts.EnvFile
		if envFile == "" {
			envFile = DefaultEnvFile
		}
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and env vars apply.
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Env: v.GetString("app.env"),
		},
		HTTP: HTTPConfig{
			Addr:         v.GetString("http.addr"),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
		},
		API: APIConfig{
			Token: v.GetString("api.token"),
		},
		Database: DatabaseConfig{
			Driver:   v.GetString("database.driver"),
			DSN:      v.GetString("database.dsn"),
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			Name:     v.GetString("database.name"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Source: SourceConfig{
			BaseURL:   v.GetString("source.base_url"),
			Mailto:    v.GetString("source.mailto"),
			PerPage:   v.GetInt("source.per_page"),
			Page:      v.GetInt("source.page"),
			Timeout:   v.GetDuration("source.timeout"),
			RateLimit: v.GetFloat64("source.rate_limit"),
		},
		Sync: SyncConfig{
			Atomic:        v.GetBool("sync.atomic"),
			SkipMalformed: v.GetBool("sync.skip_malformed"),
			RequireID:     v.GetBool("sync.require_id"),
			Timeout:       v.GetDuration("sync.timeout"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Agent: AgentConfig{
			APIURL:    v.GetString("agent.api_url"),
			Model:     v.GetString("agent.model"),
			APIKey:    v.GetString("agent.api_key"),
			MaxTokens: v.GetInt64("agent.max_tokens"),
			Timeout:   v.GetDuration("agent.timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers built-in values for every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")

	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 5*time.Minute)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("source.base_url", "https://api.openalex.org/works")
	v.SetDefault("source.per_page", 100)
	v.SetDefault("source.page", 1)
	v.SetDefault("source.timeout", 60*time.Second)
	v.SetDefault("source.rate_limit", 10.0)

	v.SetDefault("sync.atomic", true)
	v.SetDefault("sync.skip_malformed", false)
	v.SetDefault("sync.require_id", false)
	v.SetDefault("sync.timeout", 200*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("agent.api_url", "http://localhost:8000")
	v.SetDefault("agent.model", "claude-haiku-4-5")
	v.SetDefault("agent.max_tokens", 512)
	v.SetDefault("agent.timeout", 200*time.Second)
}

// applyDefaults fills values that depend on other settings.
func applyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		// The original deployment only ever set DB_HOST for PostgreSQL.
		if cfg.Database.Host != "" {
			cfg.Database.Driver = "postgres"
		} else {
			cfg.Database.Driver = "sqlite"
		}
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN == "" {
		cfg.Database.DSN = "works.db"
	}
	if cfg.App.Env == "production" && cfg.Log.Format == "console" {
		cfg.Log.Format = "json"
	}
}

// validate checks the configuration is usable.
func (c *Config) validate() error {
	var errs []error

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver))
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" && c.Database.Host == "" {
		errs = append(errs, errors.New("database.host or database.dsn is required for postgres"))
	}
	if c.Source.PerPage < 1 || c.Source.PerPage > 200 {
		errs = append(errs, fmt.Errorf("source.per_page must be between 1 and 200, got %d", c.Source.PerPage))
	}
	if c.Source.Page < 1 {
		errs = append(errs, fmt.Errorf("source.page must be positive, got %d", c.Source.Page))
	}
	if c.Source.Timeout <= 0 {
		errs = append(errs, errors.New("source.timeout must be positive"))
	}
	if c.Sync.Timeout <= 0 {
		errs = append(errs, errors.New("sync.timeout must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// DSNString returns the connection string for the configured driver.
func (d DatabaseConfig) DSNString() string {
	if d.DSN != "" || d.Driver != "postgres" {
		return d.DSN
	}

	parts := []string{
		"host=" + quoteDSN(d.Host),
		fmt.Sprintf("port=%d", d.Port),
	}
	if d.User != "" {
		parts = append(parts, "user="+quoteDSN(d.User))
	}
	if d.Password != "" {
		parts = append(parts, "password="+quoteDSN(d.Password))
	}
	if d.Name != "" {
		parts = append(parts, "dbname="+quoteDSN(d.Name))
	}
	if d.SSLMode != "" {
		parts = append(parts, "sslmode="+quoteDSN(d.SSLMode))
	}
	return strings.Join(parts, " ")
}

// quoteDSN quotes a key/value connection string value when needed.
func quoteDSN(s string) string {
	if s != "" && !strings.ContainsAny(s, ` '\`) {
		return s
	}
	s = strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
	return "'" + s + "'"
}

// Redacted returns a copy with secrets masked.
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redacted
	}
	out.API.Token = mask(c.API.Token)
	out.Database.Password = mask(c.Database.Password)
	out.Agent.APIKey = mask(c.Agent.APIKey)
	if c.Database.DSN != "" && c.Database.Driver == "postgres" {
		out.Database.DSN = redacted
	}
	return &out
}

// YAML renders the redacted configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c.Redacted())
}
