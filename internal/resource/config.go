package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// Config is loaded from the environment and an optional .env file. Token
// policy keys match the auth service so both can share one .env.
type Config struct {
	Port        int    `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFormat   string `mapstructure:"LOG_FORMAT"`
	ServiceName string `mapstructure:"SERVICE_NAME"`

	Issuer         string `mapstructure:"AUTH_ISSUER"`
	Audience       string `mapstructure:"AUTH_AUDIENCE"`
	StrictAudience bool   `mapstructure:"STRICT_AUDIENCE"`

	JWKSURI         string        `mapstructure:"JWKS_URI"`
	JWKSCacheTTL    time.Duration `mapstructure:"JWKS_CACHE_TTL"`
	OutboundTimeout time.Duration `mapstructure:"OUTBOUND_TIMEOUT"`

	ServiceSharedSecret   string `mapstructure:"SERVICE_SHARED_SECRET"`
	TrustForwardedHeaders bool   `mapstructure:"TRUST_FORWARDED_HEADERS"`

	// RedisAddr points at the auth service's redis so blacklisted tokens
	// are refused here too. Empty disables revocation checks.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	ShutdownGracePeriod time.Duration `mapstructure:"SHUTDOWN_GRACE_PERIOD"`
}

var defaults = map[string]any{
	"PORT":                    8081,
	"ENV":                     "development",
	"LOG_LEVEL":               "info",
	"LOG_FORMAT":              "json",
	"SERVICE_NAME":            "resource-service",
	"AUTH_ISSUER":             "auth-service",
	"AUTH_AUDIENCE":           "api-gateway",
	"STRICT_AUDIENCE":         true,
	"JWKS_URI":                "",
	"JWKS_CACHE_TTL":          "5m",
	"OUTBOUND_TIMEOUT":        "2s",
	"SERVICE_SHARED_SECRET":   "",
	"TRUST_FORWARDED_HEADERS": false,
	"REDIS_ADDR":              "",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"SHUTDOWN_GRACE_PERIOD":   "10s",
}

// missingConfigFile reports whether err only means there is no .env.
func missingConfigFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// LoadConfig reads .env (if present), then the environment.
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

func (c *Config) Validate() error {
	var errs []error
	if c.JWKSURI == "" {
		errs = append(errs, errors.New("config: JWKS_URI must be set"))
	}
	if c.Issuer == "" || c.Audience == "" {
		errs = append(errs, errors.New("config: AUTH_ISSUER and AUTH_AUDIENCE must be set"))
	}
	if c.OutboundTimeout <= 0 {
		errs = append(errs, errors.New("config: OUTBOUND_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}
