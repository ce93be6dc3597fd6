// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App        AppConfig        `koanf:"app"`
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	JWT        JWTConfig        `koanf:"jwt"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	CORS       CORSConfig       `koanf:"cors"`
	Log        LogConfig        `koanf:"log"`
	Otel       OtelConfig       `koanf:"otel"`
	OTP        OTPConfig        `koanf:"otp"`
	SMS        SMSConfig        `koanf:"sms"`
	Generation GenerationConfig `koanf:"generation"`
	Catalog    CatalogConfig    `koanf:"catalog"`
	Bootstrap  BootstrapConfig  `koanf:"bootstrap"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"`
	PublicKeyPath      string        `koanf:"public_key_path"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests    int           `koanf:"requests"`
	Window      time.Duration `koanf:"window"`
	Burst       int           `koanf:"burst"`
	OTPRequests int           `koanf:"otp_requests"`
	OTPBurst    int           `koanf:"otp_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type OTPConfig struct {
	CodeLength  int           `koanf:"code_length"`
	Validity    time.Duration `koanf:"validity"`
	Cooldown    time.Duration `koanf:"cooldown"`
	MaxAttempts int           `koanf:"max_attempts"`
}

type SMSConfig struct {
	Driver     string        `koanf:"driver"`
	APIURL     string        `koanf:"api_url"`
	APIKey     string        `koanf:"api_key"`
	Sender     string        `koanf:"sender"`
	Template   string        `koanf:"template"`
	Timeout    time.Duration `koanf:"timeout"`
	MaxRetries int           `koanf:"max_retries"`
}

type GenerationConfig struct {
	Provider           string        `koanf:"provider"`
	APIKey             string        `koanf:"api_key"`
	BaseURL            string        `koanf:"base_url"`
	Model              string        `koanf:"model"`
	Timeout            time.Duration `koanf:"timeout"`
	DefaultMaxTokens   int           `koanf:"default_max_tokens"`
	MaxVariants        int           `koanf:"max_variants"`
	RateLimitPerMinute int           `koanf:"rate_limit_per_minute"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

type BootstrapConfig struct {
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`
}

// Load layers built-in defaults, the optional YAML file at configPath and
// the environment, then validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	out := &Config{}
	if err := k.Unmarshal("", out); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(out); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return out, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Scribe API",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire":  "15m",
		"jwt.refresh_token_expire": "168h",
		"jwt.issuer":               "scribe",
		"jwt.audience":             "scribe-api",
		"jwt.private_key_path":     "keys/private.pem",
		"jwt.public_key_path":      "keys/public.pem",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"rate_limit.otp_requests": 5,
		"rate_limit.otp_burst":    2,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"Idempotency-Key",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "scribe-api",

		"otp.code_length":  6,
		"otp.validity":     "2m",
		"otp.cooldown":     "5m",
		"otp.max_attempts": 5,

		"sms.driver":      "log",
		"sms.sender":      "Scribe",
		"sms.template":    "Your verification code is %s",
		"sms.timeout":     "10s",
		"sms.max_retries": 3,

		"generation.provider":              "openai",
		"generation.base_url":              "https://api.openai.com/v1",
		"generation.model":                 "gpt-4o-mini",
		"generation.timeout":               "60s",
		"generation.default_max_tokens":    1024,
		"generation.max_variants":          5,
		"generation.rate_limit_per_minute": 20,

		"catalog.cache_ttl": "10m",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_REFRESH_TOKEN_EXPIRE":    "jwt.refresh_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"OTP_VALIDITY":                "otp.validity",
	"OTP_COOLDOWN":                "otp.cooldown",
	"OTP_MAX_ATTEMPTS":            "otp.max_attempts",
	"SMS_DRIVER":                  "sms.driver",
	"SMS_API_URL":                 "sms.api_url",
	"SMS_API_KEY":                 "sms.api_key",
	"SMS_SENDER":                  "sms.sender",
	"GENERATION_PROVIDER":         "generation.provider",
	"GENERATION_API_KEY":          "generation.api_key",
	"GENERATION_BASE_URL":         "generation.base_url",
	"GENERATION_MODEL":            "generation.model",
	"GENERATION_TIMEOUT":          "generation.timeout",
	"CATALOG_CACHE_TTL":           "catalog.cache_ttl",
	"BOOTSTRAP_ADMIN_EMAIL":       "bootstrap.admin_email",
	"BOOTSTRAP_ADMIN_PASSWORD":    "bootstrap.admin_password",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if c.OTP.CodeLength < 4 || c.OTP.CodeLength > 10 {
		return fmt.Errorf("otp.code_length must be between 4 and 10")
	}

	if c.OTP.Validity <= 0 || c.OTP.Cooldown <= 0 {
		return fmt.Errorf("otp.validity and otp.cooldown must be positive")
	}

	switch c.SMS.Driver {
	case "log":
	case "http":
		if c.SMS.APIURL == "" {
			return fmt.Errorf("SMS_API_URL is required for the http driver")
		}
	default:
		return fmt.Errorf("unknown sms.driver %q", c.SMS.Driver)
	}

	switch c.Generation.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf(
			"unknown generation.provider %q",
			c.Generation.Provider,
		)
	}

	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation.timeout must be positive")
	}

	if c.Generation.MaxVariants < 1 {
		return fmt.Errorf("generation.max_variants must be at least 1")
	}

	if (c.Bootstrap.AdminEmail == "") != (c.Bootstrap.AdminPassword == "") {
		return fmt.Errorf(
			"bootstrap.admin_email and bootstrap.admin_password go together",
		)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
