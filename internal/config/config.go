package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
)

const minSecretLength = 32

// Config holds application configuration
type Config struct {
	ServerPort  string
	Environment string
	Debug       bool
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that overwrites those headers.
	TrustProxy bool

	DatabaseType string
	DatabasePath string
	DatabaseURL  string

	SessionDuration time.Duration
	TokenDuration   time.Duration
	SessionKey      []byte
	TokenSecret     []byte
	CSRFSecret      []byte

	UploadMaxSize int64
	StatsCacheTTL time.Duration

	JoinRateBurst    int
	JoinRateInterval time.Duration
	AuthRateBurst    int
	AuthRateInterval time.Duration

	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	AppBaseURL   string

	GoogleClientID       string
	GoogleClientSecret   string
	OAuthRedirectBaseURL string

	// GeneratedSecrets names the secrets that were missing and replaced with
	// random keys. Sessions and tokens signed with them do not survive a restart.
	GeneratedSecrets []string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:  getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),
		Debug:       getEnvBool("DEBUG", false),
		TrustProxy:  getEnvBool("TRUST_PROXY", false),

		DatabaseType: getEnv("DB_TYPE", "sqlite"),
		DatabasePath: getEnv("DB_PATH", "./moneynest.db"),
		DatabaseURL:  getEnv("DATABASE_URL", ""),

		SessionDuration: getEnvDuration("SESSION_DURATION", 30*24*time.Hour),
		TokenDuration:   getEnvDuration("TOKEN_DURATION", 7*24*time.Hour),

		UploadMaxSize: int64(getEnvInt("UPLOAD_MAX_SIZE", 5*1024*1024)), // 5MB
		StatsCacheTTL: getEnvDuration("STATS_CACHE_TTL", 30*time.Second),

		JoinRateBurst:    getEnvInt("JOIN_RATE_BURST", 5),
		JoinRateInterval: getEnvDuration("JOIN_RATE_INTERVAL", time.Minute),
		AuthRateBurst:    getEnvInt("AUTH_RATE_BURST", 10),
		AuthRateInterval: getEnvDuration("AUTH_RATE_INTERVAL", 6*time.Second),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Moneynest"),
		AppBaseURL:   getEnv("APP_BASE_URL", "http://localhost:8080"),

		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		OAuthRedirectBaseURL: getEnv("OAUTH_REDIRECT_BASE_URL", ""),
	}

	cfg.SessionKey = cfg.secret("SESSION_KEY")
	cfg.TokenSecret = cfg.secret("TOKEN_SECRET")
	cfg.CSRFSecret = cfg.secret("CSRF_SECRET")

	if cfg.OAuthRedirectBaseURL == "" {
		cfg.OAuthRedirectBaseURL = cfg.AppBaseURL
	}

	return cfg
}

// IsProduction reports whether the app runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// EmailEnabled reports whether a sender address for SES is configured
func (c *Config) EmailEnabled() bool {
	return c.SESFromEmail != ""
}

// GoogleEnabled reports whether Google sign-in is configured
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

// Validate checks the loaded configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errs []error

	port, err := strconv.Atoi(c.ServerPort)
	if err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %q", c.ServerPort))
	}

	switch strings.ToLower(c.DatabaseType) {
	case "sqlite", "sqlite3":
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for %s", c.DatabaseType))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_TYPE %q", c.DatabaseType))
	}

	for name, value := range map[string][]byte{
		"SESSION_KEY":  c.SessionKey,
		"TOKEN_SECRET": c.TokenSecret,
		"CSRF_SECRET":  c.CSRFSecret,
	} {
		if len(value) < minSecretLength {
			errs = append(errs, fmt.Errorf("%s must be at least %d bytes", name, minSecretLength))
		}
	}

	if c.IsProduction() && len(c.GeneratedSecrets) > 0 {
		errs = append(errs, fmt.Errorf("missing secrets in production: %s", strings.Join(c.GeneratedSecrets, ", ")))
	}

	if c.JoinRateBurst < 1 || c.AuthRateBurst < 1 {
		errs = append(errs, errors.New("rate limit bursts must be positive"))
	}

	if c.UploadMaxSize <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) secret(key string) []byte {
	if value := os.Getenv(key); value != "" {
		return []byte(value)
	}
	c.GeneratedSecrets = append(c.GeneratedSecrets, key)
	return securecookie.GenerateRandomKey(minSecretLength)
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
