package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendFirestore = "firestore"
	BackendRedis     = "redis"
)

type Config struct {
	Server   ServerConfig
	Firebase FirebaseConfig
	Store    StoreConfig
	Database DatabaseConfig
	Storage  StorageConfig
	League   LeagueConfig
	App      AppConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

type FirebaseConfig struct {
	CredentialsPath string
	ProjectID       string
	WebAPIKey       string
	// DevHeaders trusts X-User-Id and X-User-Email instead of ID tokens.
	// Only honored outside production, and only when set explicitly.
	DevHeaders bool
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DatabaseConfig points at the Postgres award journal. An empty DSN disables it.
type DatabaseConfig struct {
	DSN      string
	MaxConns int
	MinConns int
}

type StorageConfig struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKeyID   string
	SecretKey     string
	PublicBaseURL string
}

type LeagueConfig struct {
	EmailDomain         string
	RewardPoints        int64
	CreditRetryAttempts int
	MatchesPerPage      int
	AvatarBaseURL       string
	ChatRatePerMin      int
	FinisherSchedule    string
	FinishAfter         time.Duration
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			WebAPIKey:       getEnv("FIREBASE_WEB_API_KEY", ""),
			DevHeaders:      getEnvAsBool("AUTH_DEV_HEADERS", false),
		},
		Store: StoreConfig{
			Backend:       getEnv("STORE_BACKEND", BackendFirestore),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Storage: StorageConfig{
			Bucket:        getEnv("S3_BUCKET", ""),
			Region:        getEnv("S3_REGION", "auto"),
			Endpoint:      getEnv("S3_ENDPOINT", ""),
			AccessKeyID:   getEnv("S3_ACCESS_KEY_ID", ""),
			SecretKey:     getEnv("S3_SECRET_ACCESS_KEY", ""),
			PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		},
		League: LeagueConfig{
			EmailDomain:         getEnv("LEAGUE_EMAIL_DOMAIN", "@hanilgo.cnehs.kr"),
			RewardPoints:        int64(getEnvAsInt("REWARD_POINTS", 100)),
			CreditRetryAttempts: getEnvAsInt("CREDIT_RETRY_ATTEMPTS", 1),
			MatchesPerPage:      getEnvAsInt("MATCHES_PER_PAGE", 5),
			AvatarBaseURL:       getEnv("AVATAR_BASE_URL", "https://ui-avatars.com/api/"),
			ChatRatePerMin:      getEnvAsInt("CHAT_RATE_PER_MIN", 20),
			FinisherSchedule:    getEnv("MATCH_FINISHER_SCHEDULE", ""),
			FinishAfter:         getEnvAsDuration("MATCH_FINISH_AFTER", 2*time.Hour),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Firebase.DevHeaders && c.App.Environment == "production" {
		return fmt.Errorf("AUTH_DEV_HEADERS is not allowed in production")
	}
	if c.Firebase.CredentialsPath == "" && !c.Firebase.DevHeaders {
		return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required unless AUTH_DEV_HEADERS=true")
	}

	switch c.Store.Backend {
	case BackendFirestore:
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required for the firestore backend")
		}
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}

	if c.League.RewardPoints <= 0 {
		return fmt.Errorf("REWARD_POINTS must be positive")
	}
	if c.League.MatchesPerPage <= 0 {
		return fmt.Errorf("MATCHES_PER_PAGE must be positive")
	}
	if c.League.CreditRetryAttempts < 1 {
		c.League.CreditRetryAttempts = 1
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		slog.Warn("invalid integer, using default", "key", key, "default", defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		slog.Warn("invalid boolean, using default", "key", key, "default", defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", key, "default", defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
