// Package config carga la configuración del servicio.
//
// La configuración sale de un único archivo YAML indicado por el flag --config o
// por la variable CONSENT_CONFIG. Si no hay archivo se usan los defaults.
// Después se aplican las variables de entorno históricas del servicio
// (PORT, DB_DSN, LOG_LEVEL, LOG_FORMAT, APP_NAME, ...), que siempre ganan.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvConfigPath = "CONSENT_CONFIG"

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
	Consent ConsentConfig `yaml:"consent"`
	Auth    AuthConfig    `yaml:"auth"`
	Records RecordsConfig `yaml:"records"`
}

type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	App    string `yaml:"app"`
}

// StorageConfig elige el backend de persistencia.
// Driver: memory | postgres | leveldb
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Path   string `yaml:"path"`

	// Migrate aplica el schema al arrancar (solo postgres).
	Migrate bool `yaml:"migrate"`
}

type ConsentConfig struct {
	CodeLength       int           `yaml:"code_length"`
	CodeAlphabet     string        `yaml:"code_alphabet"`
	CodeTTL          time.Duration `yaml:"code_ttl"`
	MaxIssueAttempts int           `yaml:"max_issue_attempts"`

	// SweepInterval = 0 desactiva el barrido de códigos vencidos.
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// AuthConfig: mode dev usa X-Debug-User-ID; mode jwt valida Bearer tokens HS256.
type AuthConfig struct {
	Mode      string `yaml:"mode"`
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
}

// RecordsConfig apunta al record store externo. Sin BaseURL se usa el store en memoria.
type RecordsConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			App:    "health-consent",
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
		Consent: ConsentConfig{
			CodeLength:       8,
			CodeAlphabet:     "0123456789",
			CodeTTL:          30 * time.Second,
			MaxIssueAttempts: 5,
		},
		Auth: AuthConfig{
			Mode: "dev",
		},
		Records: RecordsConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// Load lee path (si no está vacío), aplica env y valida.
func Load(path string) (Config, error) {
	cfg := Default()

	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := strings.TrimSpace(os.Getenv("DB_DSN")); v != "" {
		cfg.Storage.DSN = v
		if cfg.Storage.Driver == "" || cfg.Storage.Driver == "memory" {
			cfg.Storage.Driver = "postgres"
		}
	}
	if v := strings.TrimSpace(os.Getenv("STORAGE_DRIVER")); v != "" {
		cfg.Storage.Driver = v
	}
	if v := strings.TrimSpace(os.Getenv("LEVELDB_PATH")); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.Log.Format = v
	}
	if v := strings.TrimSpace(os.Getenv("APP_NAME")); v != "" {
		cfg.Log.App = v
	}
	if v := strings.TrimSpace(os.Getenv("CONSENT_CODE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Consent.CodeTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("CONSENT_CODE_LENGTH")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Consent.CodeLength = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")); v != "" {
		cfg.Auth.JWTSecret = v
		cfg.Auth.Mode = "jwt"
	}
	if v := strings.TrimSpace(os.Getenv("RECORDS_BASE_URL")); v != "" {
		cfg.Records.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("RECORDS_API_KEY")); v != "" {
		cfg.Records.APIKey = v
	}
}

var (
	ErrInvalidDriver   = errors.New("storage.driver must be memory, postgres or leveldb")
	ErrMissingDSN      = errors.New("storage.dsn required for postgres")
	ErrMissingPath     = errors.New("storage.path required for leveldb")
	ErrCodeTooShort    = errors.New("consent.code_length must be >= 6")
	ErrCodeAlphabet    = errors.New("consent.code_alphabet needs at least 10 distinct symbols")
	ErrCodeTTL         = errors.New("consent.code_ttl must be positive")
	ErrInvalidAuthMode = errors.New("auth.mode must be dev or jwt")
	ErrMissingSecret   = errors.New("auth.jwt_secret required for jwt mode")
)

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return ErrMissingDSN
		}
	case "leveldb":
		if strings.TrimSpace(c.Storage.Path) == "" {
			return ErrMissingPath
		}
	default:
		return ErrInvalidDriver
	}

	if c.Consent.CodeLength < 6 {
		return ErrCodeTooShort
	}
	if distinct(c.Consent.CodeAlphabet) < 10 {
		return ErrCodeAlphabet
	}
	if c.Consent.CodeTTL <= 0 {
		return ErrCodeTTL
	}

	switch c.Auth.Mode {
	case "dev":
	case "jwt":
		if strings.TrimSpace(c.Auth.JWTSecret) == "" {
			return ErrMissingSecret
		}
	default:
		return ErrInvalidAuthMode
	}
	return nil
}

func distinct(s string) int {
	seen := map[rune]struct{}{}
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}
