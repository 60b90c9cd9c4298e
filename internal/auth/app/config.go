package app

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	authhttp "github.com/merigaumata/authplatform/internal/auth/http"
	"github.com/merigaumata/authplatform/pkg/httpx"
	"github.com/merigaumata/authplatform/pkg/jwtx"
)

const (
	KeyStorageEphemeral  = "ephemeral"
	KeyStoragePersistent = "persistent"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is loaded from the environment and an optional .env file.
type Config struct {
	Port      int    `mapstructure:"PORT"`
	Env       string `mapstructure:"ENV"`
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	Issuer          string        `mapstructure:"AUTH_ISSUER"`
	Audience        string        `mapstructure:"AUTH_AUDIENCE"`
	KeyID           string        `mapstructure:"AUTH_KEY_ID"`
	Algorithm       string        `mapstructure:"AUTH_ALGORITHM"`
	RSABits         int           `mapstructure:"AUTH_RSA_BITS"`
	NumKeys         int           `mapstructure:"AUTH_NUM_KEYS"`
	KeyStorageMode  string        `mapstructure:"AUTH_KEY_STORAGE_MODE"`
	KeyGracePeriod  time.Duration `mapstructure:"AUTH_KEY_GRACE_PERIOD"`
	MasterKeyFile   string        `mapstructure:"AUTH_MASTER_KEY_FILE"`
	PepperFile      string        `mapstructure:"AUTH_PEPPER_FILE"`
	AccessTokenTTL  time.Duration `mapstructure:"AUTH_ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"AUTH_REFRESH_TOKEN_TTL"`

	LoginMaxAttempts   int           `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	LoginLockoutWindow time.Duration `mapstructure:"LOGIN_LOCKOUT_WINDOW"`

	// ServiceSharedSecret enables X-Service-Token on /internal routes.
	ServiceSharedSecret   string        `mapstructure:"SERVICE_SHARED_SECRET"`
	JWKSURI               string        `mapstructure:"JWKS_URI"`
	JWKSCacheTTL          time.Duration `mapstructure:"JWKS_CACHE_TTL"`
	OutboundTimeout       time.Duration `mapstructure:"OUTBOUND_TIMEOUT"`
	StrictAudience        bool          `mapstructure:"STRICT_AUDIENCE"`
	TrustForwardedHeaders bool          `mapstructure:"TRUST_FORWARDED_HEADERS"`

	// RedisAddr selects the redis kvstore; empty keeps state in memory.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DatabaseFile   string `mapstructure:"AUTH_DATABASE_FILE"`

	BootstrapAdminUsername string `mapstructure:"BOOTSTRAP_ADMIN_USERNAME"`
	BootstrapAdminPassword string `mapstructure:"BOOTSTRAP_ADMIN_PASSWORD"`

	HousekeepingInterval time.Duration `mapstructure:"HOUSEKEEPING_INTERVAL"`
	ShutdownGracePeriod  time.Duration `mapstructure:"SHUTDOWN_GRACE_PERIOD"`

	// Credential and token endpoint buckets. E2E suites raise them.
	StrictRequests   int           `mapstructure:"RATELIMIT_STRICT_REQUESTS"`
	StrictWindow     time.Duration `mapstructure:"RATELIMIT_STRICT_WINDOW"`
	StrictBurst      int           `mapstructure:"RATELIMIT_STRICT_BURST"`
	ModerateRequests int           `mapstructure:"RATELIMIT_MODERATE_REQUESTS"`
	ModerateWindow   time.Duration `mapstructure:"RATELIMIT_MODERATE_WINDOW"`
	ModerateBurst    int           `mapstructure:"RATELIMIT_MODERATE_BURST"`
}

var defaults = map[string]any{
	"PORT":       8080,
	"ENV":        "development",
	"LOG_LEVEL":  "info",
	"LOG_FORMAT": "json",

	"AUTH_ISSUER":            "auth-service",
	"AUTH_AUDIENCE":          "api-gateway",
	"AUTH_KEY_ID":            jwtx.DefaultKeyID,
	"AUTH_ALGORITHM":         jwtx.AlgorithmRS256,
	"AUTH_RSA_BITS":          2048,
	"AUTH_NUM_KEYS":          1,
	"AUTH_KEY_STORAGE_MODE":  KeyStorageEphemeral,
	"AUTH_KEY_GRACE_PERIOD":  "720h",
	"AUTH_MASTER_KEY_FILE":   "",
	"AUTH_PEPPER_FILE":       "pepper",
	"AUTH_ACCESS_TOKEN_TTL":  "15m",
	"AUTH_REFRESH_TOKEN_TTL": "720h",

	"LOGIN_MAX_ATTEMPTS":   5,
	"LOGIN_LOCKOUT_WINDOW": "15m",

	"SERVICE_SHARED_SECRET":   "",
	"JWKS_URI":                "",
	"JWKS_CACHE_TTL":          "5m",
	"OUTBOUND_TIMEOUT":        "2s",
	"STRICT_AUDIENCE":         true,
	"TRUST_FORWARDED_HEADERS": false,

	"REDIS_ADDR":     "",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"DATABASE_DRIVER":    DriverSQLite,
	"DATABASE_URL":       "",
	"AUTH_DATABASE_FILE": "auth.db",

	"BOOTSTRAP_ADMIN_USERNAME": "",
	"BOOTSTRAP_ADMIN_PASSWORD": "",

	"HOUSEKEEPING_INTERVAL": "1h",
	"SHUTDOWN_GRACE_PERIOD": "10s",

	"RATELIMIT_STRICT_REQUESTS":   httpx.StrictLimit.RequestsPerWindow,
	"RATELIMIT_STRICT_WINDOW":     httpx.StrictLimit.Window.String(),
	"RATELIMIT_STRICT_BURST":      httpx.StrictLimit.Burst,
	"RATELIMIT_MODERATE_REQUESTS": httpx.ModerateLimit.RequestsPerWindow,
	"RATELIMIT_MODERATE_WINDOW":   httpx.ModerateLimit.Window.String(),
	"RATELIMIT_MODERATE_BURST":    httpx.ModerateLimit.Burst,
}

// LoadConfig reads .env (if present), then the environment, and validates
// the result. Environment variables override .env.
func LoadConfig() (Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil && !missingConfigFile(err) {
		return Config{}, fmt.Errorf("config: read .env: %w", err)
	}

	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// missingConfigFile reports whether err only means there is no .env.
func missingConfigFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, msg string) {
		if !ok {
			errs = append(errs, errors.New("config: "+msg))
		}
	}

	check(c.Port > 0 && c.Port < 65536, "PORT must be between 1 and 65535")
	check(c.Issuer != "", "AUTH_ISSUER must be set")
	check(c.Audience != "", "AUTH_AUDIENCE must be set")
	check(slices.Contains(jwtx.SupportedAlgorithms, c.Algorithm),
		"AUTH_ALGORITHM must be one of "+strings.Join(jwtx.SupportedAlgorithms, ", "))
	check(c.Algorithm != jwtx.AlgorithmRS256 || c.RSABits >= 2048, "AUTH_RSA_BITS must be at least 2048")
	check(c.NumKeys >= 1 && c.NumKeys <= 10, "AUTH_NUM_KEYS must be between 1 and 10")
	check(c.KeyStorageMode == KeyStorageEphemeral || c.KeyStorageMode == KeyStoragePersistent,
		"AUTH_KEY_STORAGE_MODE must be ephemeral or persistent")
	check(c.KeyStorageMode != KeyStoragePersistent || c.MasterKeyFile != "",
		"AUTH_MASTER_KEY_FILE is required in persistent key mode")
	check(c.AccessTokenTTL > 0, "AUTH_ACCESS_TOKEN_TTL must be positive")
	check(c.RefreshTokenTTL > c.AccessTokenTTL, "AUTH_REFRESH_TOKEN_TTL must exceed the access token TTL")
	check(c.LoginMaxAttempts > 0, "LOGIN_MAX_ATTEMPTS must be positive")
	check(c.LoginLockoutWindow > 0, "LOGIN_LOCKOUT_WINDOW must be positive")
	check(c.OutboundTimeout > 0, "OUTBOUND_TIMEOUT must be positive")
	check(c.DatabaseDriver == DriverSQLite || c.DatabaseDriver == DriverPostgres,
		"DATABASE_DRIVER must be sqlite or postgres")
	check(c.DatabaseDriver != DriverPostgres || c.DatabaseURL != "", "DATABASE_URL is required for postgres")
	check((c.BootstrapAdminUsername == "") == (c.BootstrapAdminPassword == ""),
		"BOOTSTRAP_ADMIN_USERNAME and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	check(c.StrictRequests > 0 && c.StrictWindow > 0 && c.ModerateRequests > 0 && c.ModerateWindow > 0,
		"rate limits must be positive")

	return errors.Join(errs...)
}

// RateLimits builds the router buckets from the configured overrides.
func (c *Config) RateLimits() authhttp.RateLimits {
	limits := authhttp.DefaultRateLimits
	limits.Strict = httpx.RateLimitConfig{
		RequestsPerWindow: c.StrictRequests,
		Window:            c.StrictWindow,
		Burst:             max(c.StrictBurst, 1),
	}
	limits.Moderate = httpx.RateLimitConfig{
		RequestsPerWindow: c.ModerateRequests,
		Window:            c.ModerateWindow,
		Burst:             max(c.ModerateBurst, 1),
	}
	return limits
}
