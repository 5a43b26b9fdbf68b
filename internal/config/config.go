package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Identity（外部認証サービスが発行するJWTの検証用）
	JWTSecret string
	JWTIssuer string

	// Environment
	AppEnv   string
	LogLevel slog.Level

	// Rate Limit（req/min/user）
	RateLimitGeneral int
	RateLimitLike    int

	// Thread pagination
	ThreadDefaultLimit int
	ThreadMaxLimit     int

	// Cleanup
	NotificationRetentionDays int
	CleanupInterval           time.Duration

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string
}

// IsDevelopment は開発モードかどうかを返す。
// 開発モードでは500エラーのレスポンスに詳細を含める。
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.JWTIssuer = getEnvString("JWT_ISSUER", "")
	cfg.AppEnv = getEnvString("APP_ENV", "production")
	cfg.LogLevel = parseLogLevel(getEnvString("LOG_LEVEL", "info"))
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLike = getEnvInt("RATE_LIMIT_LIKE", 30)
	cfg.ThreadDefaultLimit = getEnvInt("THREAD_DEFAULT_LIMIT", 50)
	cfg.ThreadMaxLimit = getEnvInt("THREAD_MAX_LIMIT", 100)
	cfg.NotificationRetentionDays = getEnvInt("NOTIFICATION_RETENTION_DAYS", 30)
	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	if cfg.ThreadDefaultLimit > cfg.ThreadMaxLimit {
		cfg.ThreadDefaultLimit = cfg.ThreadMaxLimit
	}

	return cfg, nil
}

func parseLogLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
