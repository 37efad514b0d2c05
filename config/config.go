// Package config loads the challenge service configuration from the
// environment, with an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	AWS        AWSConfig
	Storage    StorageConfig
	Challenge  ChallengeConfig
	Scheduler  SchedulerConfig
	Resilience ResilienceConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string // if set, used as-is
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxConnLifetime time.Duration
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT validation settings.
type JWTConfig struct {
	Secret      string
	Issuer      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the reports bucket. An empty
// ReportsBucket disables report archiving.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	Endpoint             string
	ReportsBucket        string
	PresignExpireMinutes int
}

// StorageConfig selects the repository implementation.
type StorageConfig struct {
	Driver string
}

// ChallengeConfig holds scheduling and voting rules.
type ChallengeConfig struct {
	MaxPerPeriod    int
	CapacityWindow  string
	SlotHour        int
	SlotMinute      int
	Timezone        string
	VotePolicy      string
	VoteCapPerVoter int
}

// SchedulerConfig holds the job cron specs.
type SchedulerConfig struct {
	Enabled              bool
	WeeklyWinnerSpec     string
	MonthlyWinnerSpec    string
	VotingOpenSpec       string
	VotingCloseSpec      string
	CacheRefreshInterval time.Duration
}

// ResilienceConfig bounds the current-week retry and cache.
type ResilienceConfig struct {
	RetryAttempts  int
	RetryDelay     time.Duration
	CurrentWeekTTL time.Duration
	LocalCacheSize int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Location resolves the challenge timezone.
func (c ChallengeConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// CacheRefreshSpec is the cron spec of the cache refresh job.
func (c SchedulerConfig) CacheRefreshSpec() string {
	return "@every " + c.CacheRefreshInterval.String()
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "challenge"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 10),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
			AutoMigrate:     getEnvBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			Issuer:      getEnv("JWT_ISSUER", ""),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:             getEnv("AWS_S3_ENDPOINT", ""),
			ReportsBucket:        getEnv("AWS_S3_REPORTS_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		},
		Challenge: ChallengeConfig{
			MaxPerPeriod:    getEnvInt("MAX_PER_PERIOD", 5),
			CapacityWindow:  getEnv("CAPACITY_WINDOW", "week"),
			SlotHour:        getEnvInt("SLOT_HOUR", 18),
			SlotMinute:      getEnvInt("SLOT_MINUTE", 0),
			Timezone:        getEnv("CHALLENGE_TIMEZONE", "UTC"),
			VotePolicy:      getEnv("VOTE_POLICY", "period"),
			VoteCapPerVoter: getEnvInt("VOTE_CAP_PER_VOTER", 0),
		},
		Scheduler: SchedulerConfig{
			Enabled:              getEnvBool("SCHEDULER_ENABLED", true),
			WeeklyWinnerSpec:     getEnv("CRON_WEEKLY_WINNER", "0 0 * * MON"),
			MonthlyWinnerSpec:    getEnv("CRON_MONTHLY_WINNER", "0 0 1 * *"),
			VotingOpenSpec:       getEnv("CRON_VOTING_OPEN", "0 18 * * TUE"),
			VotingCloseSpec:      getEnv("CRON_VOTING_CLOSE", "0 0 * * MON"),
			CacheRefreshInterval: getEnvDuration("CACHE_REFRESH_INTERVAL", 5*time.Minute),
		},
		Resilience: ResilienceConfig{
			RetryAttempts:  getEnvInt("STORE_RETRY_ATTEMPTS", 3),
			RetryDelay:     time.Duration(getEnvInt("STORE_RETRY_DELAY_MS", 1000)) * time.Millisecond,
			CurrentWeekTTL: getEnvDuration("CURRENT_WEEK_CACHE_TTL", 5*time.Minute),
			LocalCacheSize: getEnvInt("LOCAL_CACHE_SIZE", 64),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.Driver != StorageMemory && c.Storage.Driver != StoragePostgres {
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageMemory, StoragePostgres))
	}
	if c.Challenge.MaxPerPeriod < 1 {
		errs = append(errs, errors.New("MAX_PER_PERIOD must be at least 1"))
	}
	if w := c.Challenge.CapacityWindow; w != "week" && w != "day" {
		errs = append(errs, fmt.Errorf("CAPACITY_WINDOW %q must be week or day", w))
	}
	if p := c.Challenge.VotePolicy; p != "period" && p != "video" {
		errs = append(errs, fmt.Errorf("VOTE_POLICY %q must be period or video", p))
	}
	if h := c.Challenge.SlotHour; h < 0 || h > 23 {
		errs = append(errs, fmt.Errorf("SLOT_HOUR %d out of range", h))
	}
	if m := c.Challenge.SlotMinute; m < 0 || m > 59 {
		errs = append(errs, fmt.Errorf("SLOT_MINUTE %d out of range", m))
	}
	if c.Challenge.VoteCapPerVoter < 0 {
		errs = append(errs, errors.New("VOTE_CAP_PER_VOTER must not be negative"))
	}
	if _, err := c.Challenge.Location(); err != nil {
		errs = append(errs, fmt.Errorf("CHALLENGE_TIMEZONE: %w", err))
	}
	if c.Resilience.RetryAttempts < 1 {
		errs = append(errs, errors.New("STORE_RETRY_ATTEMPTS must be at least 1"))
	}
	if c.Scheduler.CacheRefreshInterval <= 0 {
		errs = append(errs, errors.New("CACHE_REFRESH_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
