// Package config loads the server settings from defaults, an optional YAML
// file, an optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendDisk   = "disk"
	BackendSQLite = "sqlite"
)

// Credential schemes.
const (
	SchemePlain  = "plain"
	SchemeBcrypt = "bcrypt"
)

// Config holds the runtime settings of the feedline server.
type Config struct {
	Port             string        `yaml:"port"`
	StoreBackend     string        `yaml:"store_backend"`
	DataDir          string        `yaml:"data_dir"`
	DatabasePath     string        `yaml:"database_path"`
	JWTSecret        string        `yaml:"jwt_secret"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
	CookieSecure     bool          `yaml:"cookie_secure"`
	CredentialScheme string        `yaml:"credential_scheme"`
	BcryptCost       int           `yaml:"bcrypt_cost"`
	LoginRate        float64       `yaml:"login_rate"`
	LoginBurst       float64       `yaml:"login_burst"`
	LogLevel         string        `yaml:"log_level"`
}

// Defaults returns the settings used when nothing overrides them.
func Defaults() Config {
	return Config{
		Port:             "8080",
		StoreBackend:     BackendDisk,
		DataDir:          "data",
		DatabasePath:     "feedline.db",
		SessionTTL:       24 * time.Hour,
		CookieSecure:     true,
		CredentialScheme: SchemePlain,
		BcryptCost:       12,
		LoginRate:        0.2,
		LoginBurst:       5,
		LogLevel:         "info",
	}
}

// Load builds the configuration. FEEDLINE_CONFIG names an optional YAML
// file; a .env file in the working directory is read if present. Real
// environment variables win over both.
func Load() (*Config, error) {
	return load(os.Getenv("FEEDLINE_CONFIG"), ".env")
}

func load(yamlPath, dotenvPath string) (*Config, error) {
	cfg := Defaults()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", yamlPath, err)
		}
	}

	dotenv := map[string]string{}
	if dotenvPath != "" {
		vals, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			dotenv = vals
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", dotenvPath, err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok && v != ""
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	str("PORT", &cfg.Port)
	str("STORE_BACKEND", &cfg.StoreBackend)
	str("DATA_DIR", &cfg.DataDir)
	str("DATABASE_PATH", &cfg.DatabasePath)
	str("JWT_SECRET", &cfg.JWTSecret)
	str("CREDENTIAL_SCHEME", &cfg.CredentialScheme)
	str("LOG_LEVEL", &cfg.LogLevel)

	if v, ok := lookup("SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = d
	}
	// Secure unless explicitly disabled for local development.
	if v, ok := lookup("COOKIE_SECURE"); ok {
		cfg.CookieSecure = v != "false"
	}
	if v, ok := lookup("BCRYPT_COST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid BCRYPT_COST: %w", err)
		}
		cfg.BcryptCost = n
	}
	if v, ok := lookup("LOGIN_RATE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid LOGIN_RATE: %w", err)
		}
		cfg.LoginRate = f
	}
	if v, ok := lookup("LOGIN_BURST"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid LOGIN_BURST: %w", err)
		}
		cfg.LoginBurst = f
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters for HMAC-SHA256 security")
	}
	switch c.StoreBackend {
	case BackendDisk, BackendSQLite:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendDisk, BackendSQLite, c.StoreBackend)
	}
	switch c.CredentialScheme {
	case SchemePlain, SchemeBcrypt:
	default:
		return fmt.Errorf("CREDENTIAL_SCHEME must be %q or %q, got %q", SchemePlain, SchemeBcrypt, c.CredentialScheme)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 14 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 14, got %d", c.BcryptCost)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.LoginRate <= 0 || c.LoginBurst < 1 {
		return fmt.Errorf("LOGIN_RATE must be positive and LOGIN_BURST at least 1, got %g and %g", c.LoginRate, c.LoginBurst)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
