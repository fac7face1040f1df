package config

import (
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Config holds runtime configuration values for the research server.
type Config struct {
	DBPath        string
	StorageDir    string
	SigningSecret string
	ServerPort    int
	LogLevel      string
	SentryDSN     string
	Environment   string
	SessionTTL    time.Duration
	SignedURLTTL  time.Duration
	ShutdownGrace time.Duration
	RateLimit     RateLimitConfig
}

// RateLimitConfig controls the per-client HTTP rate limiter.
type RateLimitConfig struct {
	Burst             int
	RequestsPerSecond float64
	ClientTTL         time.Duration
}

const (
	defaultDBPath        = "./data/research.db"
	defaultStorageDir    = "./data/attachments"
	defaultServerPort    = 8080
	defaultLogLevel      = "info"
	defaultEnvironment   = "development"
	defaultSessionTTL    = 7 * 24 * time.Hour
	defaultSignedURLTTL  = time.Hour
	defaultShutdownGrace = 10 * time.Second

	defaultRateLimitBurst     = 20
	defaultRateLimitPerSecond = 10.0
	defaultRateLimitClientTTL = 5 * time.Minute
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnv("DB_PATH", defaultDBPath),
		StorageDir:    getEnv("STORAGE_DIR", defaultStorageDir),
		SigningSecret: os.Getenv("SIGNING_SECRET"),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		Environment:   getEnv("ENV", defaultEnvironment),
		SessionTTL:    defaultSessionTTL,
		SignedURLTTL:  defaultSignedURLTTL,
		ShutdownGrace: defaultShutdownGrace,
		RateLimit: RateLimitConfig{
			Burst:             defaultRateLimitBurst,
			RequestsPerSecond: defaultRateLimitPerSecond,
			ClientTTL:         defaultRateLimitClientTTL,
		},
	}

	if cfg.SigningSecret == "" {
		return nil, eris.New("SIGNING_SECRET is required for signed attachment URLs")
	}

	portValue := getEnv("SERVER_PORT", strconv.Itoa(defaultServerPort))
	port, err := strconv.Atoi(portValue)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid SERVER_PORT value: %s", portValue)
	}
	cfg.ServerPort = port

	if raw := os.Getenv("SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid SESSION_TTL value: %s", raw)
		}
		cfg.SessionTTL = ttl
	}

	if raw := os.Getenv("SIGNED_URL_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return nil, eris.Wrapf(err, "invalid SIGNED_URL_TTL value: %s", raw)
		}
		cfg.SignedURLTTL = ttl
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
