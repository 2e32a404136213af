// Package config carrega a configuração do gateway: valores padrão, arquivo
// YAML opcional, .env e, por último, variáveis de ambiente.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	CORS        CORSConfig        `yaml:"cors"`
	Provider    ProviderConfig    `yaml:"provider"`
	Stats       StatsConfig       `yaml:"stats"`
	Logging     LoggingConfig     `yaml:"logging"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type RateLimitConfig struct {
	// MaxRequests é o número de pedidos admitidos por cliente dentro de Window.
	MaxRequests  int           `yaml:"max_requests"`
	Window       time.Duration `yaml:"window"`
	MaxKeys      int           `yaml:"max_keys"`
	IdleTTL      time.Duration `yaml:"idle_ttl"`
	CleanupEvery time.Duration `yaml:"cleanup_every"`
	KeyHeader    string        `yaml:"key_header"`
	TrustXFF     bool          `yaml:"trust_xff"`
	AddHeaders   bool          `yaml:"add_headers"`
}

type ConcurrencyConfig struct {
	Max     int           `yaml:"max"`
	Timeout time.Duration `yaml:"timeout"`
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

type ProviderConfig struct {
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	MaxTokens  int           `yaml:"max_tokens"`
	// RPS/Burst limitam as chamadas ao provedor no processo todo. RPS <= 0 desliga.
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type StatsConfig struct {
	// Backend: "none", "memory" ou "redis".
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Prefix        string        `yaml:"prefix"`
	TTL           time.Duration `yaml:"ttl"`
	Bucket        string        `yaml:"bucket"`
	TrackKeys     bool          `yaml:"track_keys"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load lê o YAML em path (se existir), carrega .env (se existir) e aplica as
// variáveis de ambiente por cima.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("parse yaml: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	// .env não sobrescreve variáveis já exportadas
	_ = godotenv.Load()

	overrideFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:      ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Window:       60 * time.Second,
			MaxKeys:      100_000,
			IdleTTL:      15 * time.Minute,
			CleanupEvery: 2 * time.Minute,
			TrustXFF:     true,
			AddHeaders:   true,
		},
		Concurrency: ConcurrencyConfig{Max: 32},
		CORS:        CORSConfig{AllowCredentials: true},
		Provider: ProviderConfig{
			Timeout:    60 * time.Second,
			MaxRetries: 3,
			MaxTokens:  8000,
			Burst:      1,
		},
		Stats: StatsConfig{
			Backend: "memory",
			Prefix:  "summarize:stats",
			TTL:     24 * time.Hour,
			Bucket:  "minute",
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

func overrideFromEnv(cfg *Config) {
	cfg.Server.ListenAddr = getenvDefault("LISTEN_ADDR", cfg.Server.ListenAddr)
	cfg.Server.ShutdownTimeout = getenvDurationDefault("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.RateLimit.MaxRequests = getenvIntDefault("USER_PROMPT_LIMIT", cfg.RateLimit.MaxRequests)
	cfg.RateLimit.Window = getenvDurationDefault("RATE_WINDOW", cfg.RateLimit.Window)
	cfg.RateLimit.MaxKeys = getenvIntDefault("RATE_MAX_KEYS", cfg.RateLimit.MaxKeys)
	cfg.RateLimit.IdleTTL = getenvDurationDefault("RATE_IDLE_TTL", cfg.RateLimit.IdleTTL)
	cfg.RateLimit.CleanupEvery = getenvDurationDefault("RATE_CLEANUP_EVERY", cfg.RateLimit.CleanupEvery)
	cfg.RateLimit.KeyHeader = getenvDefault("RATE_KEY_HEADER", cfg.RateLimit.KeyHeader)
	cfg.RateLimit.TrustXFF = getenvBoolDefault("TRUST_XFF", cfg.RateLimit.TrustXFF)
	cfg.RateLimit.AddHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", cfg.RateLimit.AddHeaders)

	cfg.Concurrency.Max = getenvIntDefault("CONCURRENCY_MAX", cfg.Concurrency.Max)
	cfg.Concurrency.Timeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", cfg.Concurrency.Timeout)

	if v := os.Getenv("ALLOWED_ORIGIN"); v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
	}
	cfg.CORS.AllowCredentials = getenvBoolDefault("CORS_ALLOW_CREDENTIALS", cfg.CORS.AllowCredentials)

	cfg.Provider.APIKey = getenvDefault("GOOGLE_API_KEY", cfg.Provider.APIKey)
	cfg.Provider.Model = getenvDefault("CHAT_MODEL_NAME", cfg.Provider.Model)
	cfg.Provider.BaseURL = getenvDefault("PROVIDER_BASE_URL", cfg.Provider.BaseURL)
	cfg.Provider.Timeout = getenvDurationDefault("PROVIDER_TIMEOUT", cfg.Provider.Timeout)
	cfg.Provider.MaxRetries = getenvIntDefault("PROVIDER_MAX_RETRIES", cfg.Provider.MaxRetries)
	cfg.Provider.MaxTokens = getenvIntDefault("PROVIDER_MAX_TOKENS", cfg.Provider.MaxTokens)
	cfg.Provider.RPS = getenvFloatDefault("PROVIDER_RPS", cfg.Provider.RPS)
	cfg.Provider.Burst = getenvIntDefault("PROVIDER_BURST", cfg.Provider.Burst)

	cfg.Stats.Backend = strings.ToLower(getenvDefault("RATE_STATS_BACKEND", cfg.Stats.Backend))
	cfg.Stats.RedisAddr = getenvDefault("RATE_STATS_REDIS_ADDR", cfg.Stats.RedisAddr)
	cfg.Stats.RedisPassword = getenvDefault("RATE_STATS_REDIS_PASSWORD", cfg.Stats.RedisPassword)
	cfg.Stats.RedisDB = getenvIntDefault("RATE_STATS_REDIS_DB", cfg.Stats.RedisDB)
	cfg.Stats.Prefix = getenvDefault("RATE_STATS_PREFIX", cfg.Stats.Prefix)
	cfg.Stats.TTL = getenvDurationDefault("RATE_STATS_TTL", cfg.Stats.TTL)
	cfg.Stats.Bucket = getenvDefault("RATE_STATS_BUCKET", cfg.Stats.Bucket)
	cfg.Stats.TrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", cfg.Stats.TrackKeys)

	cfg.Logging.Level = getenvDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getenvDefault("LOG_FORMAT", cfg.Logging.Format)

	cfg.Telemetry.Enabled = getenvBoolDefault("OTEL_ENABLED", cfg.Telemetry.Enabled)
}

func (c *Config) Validate() error {
	if c.RateLimit.MaxRequests <= 0 {
		return errors.New("USER_PROMPT_LIMIT must be > 0")
	}
	if c.RateLimit.Window < time.Second {
		return errors.New("RATE_WINDOW must be >= 1s")
	}
	if c.Concurrency.Max < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		return errors.New("ALLOWED_ORIGIN is required")
	}
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		return errors.New("GOOGLE_API_KEY is required")
	}
	if strings.TrimSpace(c.Provider.Model) == "" {
		return errors.New("CHAT_MODEL_NAME is required")
	}
	if c.Provider.MaxRetries < 0 {
		return errors.New("PROVIDER_MAX_RETRIES must be >= 0")
	}
	switch c.Stats.Backend {
	case "none", "memory":
	case "redis":
		if strings.TrimSpace(c.Stats.RedisAddr) == "" {
			return errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_BACKEND=redis")
		}
	default:
		return fmt.Errorf("invalid RATE_STATS_BACKEND: %q", c.Stats.Backend)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvFloatDefault(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvBoolDefault(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getenvDurationDefault aceita "90s"/"2m" e também segundos inteiros ("60").
func getenvDurationDefault(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
