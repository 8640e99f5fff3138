package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Redis      RedisConfig
	NATS       NATSConfig
	JWT        JWTConfig
	Log        LogConfig
	CORS       CORSConfig
	Migrations MigrationsConfig
	RateLimit  RateLimitConfig
	Quota      QuotaConfig
	Providers  ProvidersConfig
	Gemini     BackendConfig
	Groq       BackendConfig
}

type ServerConfig struct {
	Host string
	Port int
	// TrustProxy honours X-Real-IP/X-Forwarded-For for client addresses.
	TrustProxy bool
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig is optional; an empty URL disables the audit event pipeline.
type NATSConfig struct {
	URL string
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type MigrationsConfig struct {
	Path string
}

// Rate limiter backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// RateLimitConfig controls the fixed-window limits applied to generation
// endpoints. Both the per-caller and the global scope share Window.
type RateLimitConfig struct {
	Backend       string
	CallerLimit   int
	GlobalLimit   int
	Window        time.Duration
	SweepInterval time.Duration
}

// QuotaConfig holds the FREE plan ceilings.
type QuotaConfig struct {
	FreeGenerations int
	FreeExports     int
}

type ProvidersConfig struct {
	Primary   string
	Alternate string
	Timeout   time.Duration
	RPS       float64
}

// RequestTimeout bounds one generation request: an attempt on each of the
// two backends plus the governance round trips.
func (c ProvidersConfig) RequestTimeout() time.Duration {
	return 2*c.Timeout + 5*time.Second
}

// BackendConfig describes one generation backend. A backend with an empty
// APIKey is treated as not configured.
type BackendConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:       k.String("server.host"),
			Port:       k.Int("server.port"),
			TrustProxy: k.Bool("server.trust.proxy"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			AccessSecret: k.String("jwt.access.secret"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(k.String("cors.allowed.origins")),
		},
		Migrations: MigrationsConfig{
			Path: k.String("migrations.path"),
		},
		RateLimit: RateLimitConfig{
			Backend:     strings.ToLower(k.String("ratelimit.backend")),
			CallerLimit: k.Int("ratelimit.caller.limit"),
			GlobalLimit: k.Int("ratelimit.global.limit"),
		},
		Quota: QuotaConfig{
			FreeGenerations: k.Int("quota.free.generations"),
			FreeExports:     k.Int("quota.free.exports"),
		},
		Providers: ProvidersConfig{
			Primary:   strings.ToLower(k.String("provider.primary")),
			Alternate: strings.ToLower(k.String("provider.alternate")),
			RPS:       k.Float64("provider.rps"),
		},
		Gemini: BackendConfig{
			APIKey:  k.String("gemini.api.key"),
			Model:   k.String("gemini.model"),
			BaseURL: k.String("gemini.base.url"),
		},
		Groq: BackendConfig{
			APIKey:  k.String("groq.api.key"),
			Model:   k.String("groq.model"),
			BaseURL: k.String("groq.base.url"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "quillpad"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "quillpad"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Migrations.Path == "" {
		cfg.Migrations.Path = "migrations"
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = RateLimitBackendMemory
	}
	if cfg.RateLimit.CallerLimit == 0 {
		cfg.RateLimit.CallerLimit = 10
	}
	if cfg.RateLimit.GlobalLimit == 0 {
		cfg.RateLimit.GlobalLimit = 200
	}
	// Zero is a valid ceiling, so only a missing key gets the default.
	if !k.Exists("quota.free.generations") {
		cfg.Quota.FreeGenerations = 5
	}
	if !k.Exists("quota.free.exports") {
		cfg.Quota.FreeExports = 3
	}
	if cfg.Providers.Primary == "" {
		cfg.Providers.Primary = "gemini"
	}
	if cfg.Providers.Alternate == "" {
		cfg.Providers.Alternate = "groq"
	}
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.0-flash"
	}
	if cfg.Gemini.BaseURL == "" {
		cfg.Gemini.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Groq.Model == "" {
		cfg.Groq.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Groq.BaseURL == "" {
		cfg.Groq.BaseURL = "https://api.groq.com/openai/v1"
	}

	// Parse durations
	if cfg.JWT.AccessExpiry, err = duration(k, "jwt.access.expiry", "15m"); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Window, err = duration(k, "ratelimit.window", "60s"); err != nil {
		return nil, err
	}
	if cfg.RateLimit.SweepInterval, err = duration(k, "ratelimit.sweep.interval", "1m"); err != nil {
		return nil, err
	}
	if cfg.Providers.Timeout, err = duration(k, "provider.timeout", "30s"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func duration(k *koanf.Koanf, key, def string) (time.Duration, error) {
	s := k.String(key)
	if s == "" {
		s = def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
