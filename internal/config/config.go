package config

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"crewlog/pkg/logger"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env               string
	HTTPPort          string
	WorkerMetricsPort string
	DatabaseURL       string
	// MigrateOnStart applies pending schema migrations when the database is configured.
	MigrateOnStart bool
	RedisAddr      string

	// SessionBackend and QueueBackend are "memory" or "redis".
	SessionBackend string
	SessionTTL     time.Duration
	QueueBackend   string

	JWTIssuer     string
	JWTSigningKey string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	RateLimitPerMin      int
	LoginRateLimitPerMin int

	ReminderDeadline string
	ReminderWindow   time.Duration
	// Timezone anchors the daily deadline and displayed dates.
	Timezone    string
	RosterFile  string
	CORSOrigins string

	Log logger.Config
}

// LoadLog reads the logger settings alone so the global logger can be
// installed before Load reports invalid values through it.
func LoadLog() logger.Config {
	return logger.Config{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "json"),
		Output: getEnv("LOG_OUTPUT", "stdout"),
	}
}

// Load returns application config populated from environment variables with sensible defaults.
// An empty DATABASE_URL keeps confirmed records in the log only.
func Load() App {
	return App{
		Env:                  getEnv("APP_ENV", "dev"),
		HTTPPort:             getEnv("HTTP_PORT", "8081"),
		WorkerMetricsPort:    getEnv("WORKER_METRICS_PORT", "9091"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		MigrateOnStart:       boolEnv("MIGRATE_ON_START", true),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		SessionBackend:       getEnv("SESSION_BACKEND", "memory"),
		SessionTTL:           durationEnv("SESSION_TTL", 30*24*time.Hour),
		QueueBackend:         getEnv("QUEUE_BACKEND", "memory"),
		JWTIssuer:            getEnv("JWT_ISSUER", "crewlog"),
		JWTSigningKey:        getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:            durationEnv("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:           durationEnv("REFRESH_TTL", 7*24*time.Hour),
		RateLimitPerMin:      intEnv("RATE_LIMIT_PER_MIN", 120),
		LoginRateLimitPerMin: intEnv("LOGIN_RATE_LIMIT_PER_MIN", 10),
		ReminderDeadline:     getEnv("REMINDER_DEADLINE", "10:00"),
		ReminderWindow:       durationEnv("REMINDER_WINDOW", 30*time.Minute),
		Timezone:             getEnv("TIMEZONE", "America/Santiago"),
		RosterFile:           os.Getenv("ROSTER_FILE"),
		CORSOrigins:          getEnv("CORS_ORIGINS", "*"),
		Log:                  LoadLog(),
	}
}

// Validate rejects settings the services cannot start with.
func (a App) Validate() error {
	for name, v := range map[string]string{"SESSION_BACKEND": a.SessionBackend, "QUEUE_BACKEND": a.QueueBackend} {
		if v != "memory" && v != "redis" {
			return fmt.Errorf("%s must be memory or redis, got %q", name, v)
		}
	}
	if a.IsProd() && a.JWTSigningKey == "dev-signing-secret-change" {
		return fmt.Errorf("JWT_SIGNING_KEY must be set in prod")
	}
	if _, err := time.LoadLocation(a.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	if a.ReminderWindow < 0 {
		return fmt.Errorf("REMINDER_WINDOW must not be negative")
	}
	return nil
}

// IsProd reports whether APP_ENV names a production deployment.
func (a App) IsProd() bool {
	return a.Env == "prod" || a.Env == "production"
}

// NeedsRedis reports whether any backend is Redis.
func (a App) NeedsRedis() bool {
	return a.SessionBackend == "redis" || a.QueueBackend == "redis"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			zap.L().Warn("invalid duration, using fallback", zap.String("key", key), zap.Error(err), zap.Duration("fallback", fallback))
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		zap.L().Warn("invalid bool, using fallback", zap.String("key", key), zap.Bool("fallback", fallback))
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		zap.L().Warn("invalid int, using fallback", zap.String("key", key), zap.Int("fallback", fallback))
	}
	return fallback
}
