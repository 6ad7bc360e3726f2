// Package config provides configuration loading for the auth API.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"` // development, production
}

// IsProduction reports whether the server runs in production mode.
func (c ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the PostgreSQL URL form used by the migrator.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	JWTExpiry         time.Duration `mapstructure:"jwt_expiry"`
	SessionSecret     string        `mapstructure:"session_secret"`
	BcryptCost        int           `mapstructure:"bcrypt_cost"`
	OAuthGoogleID     string        `mapstructure:"oauth_google_id"`
	OAuthGoogleSecret string        `mapstructure:"oauth_google_secret"`
	OAuthCallbackURL  string        `mapstructure:"oauth_callback_url"`
	AvatarBaseURL     string        `mapstructure:"avatar_base_url"`
}

// GoogleEnabled reports whether Google OAuth credentials are configured.
func (c AuthConfig) GoogleEnabled() bool {
	return c.OAuthGoogleID != "" && c.OAuthGoogleSecret != ""
}

// CORSConfig holds cross-origin configuration.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxAge         int      `mapstructure:"max_age"`
}

// RateLimitConfig holds limits for the public auth endpoints.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	BurstSize         int  `mapstructure:"burst_size"`
}

// Errors returned by Validate when a signing secret is left unset in production.
var (
	ErrMissingJWTSecret     = errors.New("config: auth.jwt_secret is required in production")
	ErrMissingSessionSecret = errors.New("config: auth.session_secret is required in production")
)

// ErrInvalidJWTExpiry is returned by Validate for a non-positive token lifetime.
var ErrInvalidJWTExpiry = errors.New("config: auth.jwt_expiry must be positive")

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	if c.Server.IsProduction() {
		if isPlaceholderSecret(c.Auth.JWTSecret) {
			return ErrMissingJWTSecret
		}
		// The session secret signs the OAuth state cookie.
		if isPlaceholderSecret(c.Auth.SessionSecret) {
			return ErrMissingSessionSecret
		}
	}
	if c.Auth.JWTExpiry <= 0 {
		return fmt.Errorf("%w, got %s", ErrInvalidJWTExpiry, c.Auth.JWTExpiry)
	}
	return nil
}

const defaultJWTSecret = "change-me"

func isPlaceholderSecret(secret string) bool {
	return secret == "" || secret == defaultJWTSecret
}

// Load reads configuration from files and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/socialauth")

	v.SetEnvPrefix("SOCIALAUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Explicitly bind secrets (nested struct issue with viper)
	v.BindEnv("auth.jwt_secret", "SOCIALAUTH_AUTH_JWT_SECRET")
	v.BindEnv("auth.session_secret", "SOCIALAUTH_AUTH_SESSION_SECRET")
	v.BindEnv("auth.oauth_google_id", "SOCIALAUTH_AUTH_OAUTH_GOOGLE_ID")
	v.BindEnv("auth.oauth_google_secret", "SOCIALAUTH_AUTH_OAUTH_GOOGLE_SECRET")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "development")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "socialauth")
	v.SetDefault("database.password", "socialauth")
	v.SetDefault("database.database", "socialauth")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", defaultJWTSecret)
	v.SetDefault("auth.jwt_expiry", "360h") // 15 days
	v.SetDefault("auth.session_secret", defaultJWTSecret)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.oauth_callback_url", "http://localhost:5000")
	v.SetDefault("auth.avatar_base_url", "https://avatar.iran.liara.run/public")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("cors.max_age", 84600)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst_size", 10)
}
