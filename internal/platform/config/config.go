package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	AuthModeJWT = "jwt"
	AuthModeDev = "dev"
)

// Config is the full runtime configuration of the API.
//
// Precedence, lowest first: defaults, YAML file, environment (including .env).
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Assistant AssistantConfig `yaml:"assistant"`
	Cache     CacheConfig     `yaml:"cache"`
	Events    EventsConfig    `yaml:"events"`
	CORS      CORSConfig      `yaml:"cors"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port              string        `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url"`
	MaxConns    int32  `yaml:"max_conns"`
	// ReconcileInterval is how often an offline service retries the primary store.
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

type AuthConfig struct {
	Mode       string    `yaml:"mode"`
	DevSubject string    `yaml:"dev_subject"`
	JWT        JWTConfig `yaml:"jwt"`
}

type AssistantConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int64  `yaml:"max_tokens"`
}

// Enabled reports whether a model provider is configured.
func (c AssistantConfig) Enabled() bool { return c.APIKey != "" }

type CacheConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

type EventsConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:              "8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:           StorageMemory,
			ReconcileInterval: 30 * time.Second,
		},
		Auth: AuthConfig{
			Mode:       AuthModeJWT,
			DevSubject: "dev|local",
			JWT:        DefaultJWTConfig(),
		},
		Assistant: AssistantConfig{
			Model:     "gpt-4o-mini",
			MaxTokens: 1000,
		},
		Cache: CacheConfig{
			TTL:             30 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Events: EventsConfig{
			SubjectPrefix: "peraluna.trips",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. A missing .env is ignored; path may be empty,
// in which case PERALUNA_CONFIG names the optional YAML file.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("PERALUNA_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Storage.Backend, "STORAGE_BACKEND")
	setString(&cfg.Storage.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Auth.Mode, "AUTH_MODE")
	setString(&cfg.Auth.DevSubject, "DEV_SUBJECT")
	setString(&cfg.Assistant.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Assistant.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.Assistant.Model, "OPENAI_MODEL")
	setString(&cfg.Events.NATSURL, "NATS_URL")
	setString(&cfg.Events.SubjectPrefix, "NATS_SUBJECT_PREFIX")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("ASSISTANT_MAX_TOKENS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("ASSISTANT_MAX_TOKENS must be an integer: %w", err)
		}
		cfg.Assistant.MaxTokens = n
	}
	if v := os.Getenv("DATABASE_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("DATABASE_MAX_CONNS must be an integer: %w", err)
		}
		cfg.Storage.MaxConns = int32(n)
	}
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"CACHE_TTL", &cfg.Cache.TTL},
		{"CACHE_CLEANUP_INTERVAL", &cfg.Cache.CleanupInterval},
		{"RECONCILE_INTERVAL", &cfg.Storage.ReconcileInterval},
		{"SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout},
	} {
		if err := setDuration(d.dst, d.key); err != nil {
			return err
		}
	}
	return applyJWTEnv(&cfg.Auth.JWT)
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of memory, postgres (got %q)", c.Storage.Backend)
	}
	switch c.Auth.Mode {
	case AuthModeDev:
		if c.Auth.DevSubject == "" {
			return fmt.Errorf("DEV_SUBJECT must not be empty in dev auth mode")
		}
	case AuthModeJWT:
		if err := c.Auth.JWT.Validate(); err != nil {
			return fmt.Errorf("invalid auth config: %w", err)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be one of jwt, dev (got %q)", c.Auth.Mode)
	}
	if c.Assistant.MaxTokens < 1 {
		return fmt.Errorf("assistant max tokens must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s must be a duration (e.g. 30s): %w", key, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	out := make([]string, 0)
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
