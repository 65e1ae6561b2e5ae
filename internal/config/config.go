package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	RedisURL    string

	DatabaseAutoMigrate bool

	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration

	// AdminUsers is a "name:argon2id-hash;..." list of back-office accounts.
	AdminUsers string

	CORSAllowedOrigins   []string
	DesignerFrameOrigins []string
	BodyLimitBytes       int64
	IdempotencyTTL       time.Duration

	SettingsNamespace    string
	SettingsCacheTTL     time.Duration
	SettingsLockTTL      time.Duration
	DefaultGroupByPrice  bool
	DefaultBlacklist     string
	DefaultWhitelist     string
	CurrencyDecimals     int
	CurrencyID           string
	DefaultTaxState      string
	RateLimitStrategy    string
	RateLimitWindow      time.Duration
	RateLimitMax         int
	RateLimitRedisPrefix string

	AuditEnabled bool
	AuditStream  string
	AuditMaxLen  int

	Obs ObsConfig
}

// ObsConfig groups logging, metrics and tracing switches.
type ObsConfig struct {
	LogFormat        string
	LogLevel         string
	MetricsEnabled   bool
	MetricsNamespace string
	MetricsBuckets   string
	TracingEnabled   bool
	TracingExporter  string
	OTLPEndpoint     string
	SamplingRatio    float64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:              valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:         strings.TrimSpace(k.String("DATABASE_URL")),
		RedisURL:            strings.TrimSpace(k.String("REDIS_URL")),
		DatabaseAutoMigrate: parseBool(k.String("DATABASE_AUTO_MIGRATE"), false),

		JWTSecret:      k.String("JWT_SECRET"),
		JWTIssuer:      valueOrDefault(k.String("JWT_ISSUER"), "toko-tierprice"),
		JWTAudience:    valueOrDefault(k.String("JWT_AUDIENCE"), "toko-admin"),
		AccessTokenTTL: parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		AdminUsers:     k.String("ADMIN_USERS"),

		CORSAllowedOrigins:   splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		DesignerFrameOrigins: splitAndTrim(k.String("DESIGNER_FRAME_ORIGINS")),
		BodyLimitBytes:       int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		IdempotencyTTL:       parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),

		SettingsNamespace:    valueOrDefault(k.String("SETTINGS_NAMESPACE"), "CrossVariantPricing.config"),
		SettingsCacheTTL:     parseDuration(k.String("SETTINGS_CACHE_TTL"), "0s"),
		SettingsLockTTL:      parseDuration(k.String("SETTINGS_LOCK_TTL"), "5s"),
		DefaultGroupByPrice:  parseBool(k.String("SETTINGS_DEFAULT_GROUP_BY_PRICE"), false),
		DefaultBlacklist:     strings.TrimSpace(k.String("SETTINGS_DEFAULT_BLACKLIST")),
		DefaultWhitelist:     strings.TrimSpace(k.String("SETTINGS_DEFAULT_WHITELIST")),
		CurrencyDecimals:     parseInt(k.String("CURRENCY_DECIMALS"), 2),
		CurrencyID:           valueOrDefault(k.String("CURRENCY_ID"), "EUR"),
		DefaultTaxState:      valueOrDefault(k.String("DEFAULT_TAX_STATE"), "gross"),
		RateLimitStrategy:    strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_STRATEGY"), "sliding")),
		RateLimitWindow:      parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:         parseInt(k.String("RATE_LIMIT_MAX"), 120),
		RateLimitRedisPrefix: valueOrDefault(k.String("RATE_LIMIT_REDIS_PREFIX"), "tierprice:rl:"),

		AuditEnabled: parseBool(k.String("AUDIT_ENABLED"), true),
		AuditStream:  valueOrDefault(k.String("AUDIT_STREAM"), "tierprice:audit"),
		AuditMaxLen:  parseInt(k.String("AUDIT_MAX_LEN"), 10000),

		Obs: ObsConfig{
			LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
			LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
			MetricsEnabled:   parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "toko"),
			MetricsBuckets:   k.String("OBS_METRICS_BUCKETS"),
			TracingEnabled:   parseBool(k.String("OBS_ENABLE_TRACING"), true),
			TracingExporter:  valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
			OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
			SamplingRatio:    parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
		},
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	switch cfg.RateLimitStrategy {
	case "sliding", "fixed", "off":
	default:
		return nil, fmt.Errorf("RATE_LIMIT_STRATEGY %q is not one of sliding, fixed, off", cfg.RateLimitStrategy)
	}
	if cfg.CurrencyDecimals < 0 || cfg.CurrencyDecimals > 8 {
		return nil, fmt.Errorf("CURRENCY_DECIMALS must be between 0 and 8, got %d", cfg.CurrencyDecimals)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// UsesDatabase reports whether products come from Postgres rather than the in-memory catalog.
func (c *Config) UsesDatabase() bool { return c.DatabaseURL != "" }

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return parsed
	}
	return fallback
}

func parseFloat(value string, fallback float64) float64 {
	if parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return parsed
	}
	return fallback
}

// MustLoad behaves like Load but panics on error. Useful for command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
