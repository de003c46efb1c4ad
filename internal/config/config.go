package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"seatdesk/internal/database"
	"seatdesk/internal/external"
	"seatdesk/internal/identity"
	"seatdesk/internal/messaging"
)

// Config содержит конфигурацию приложения
type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	// Событие, которое показывает shell
	EventID int64

	// Отбрасывать сохранённый JWT с истёкшим exp перед логином
	SessionExpiryCheck bool

	API      external.BookingConfig
	Identity identity.Config
	NATS     messaging.Config
}

// Load загружает конфигурацию из переменных окружения.
// Файл .env в текущем каталоге, если он есть, читается первым и не
// перекрывает уже заданные переменные.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to read .env file", "error", err)
	}

	return &Config{
		Port:      getEnv("PORT", "8090"),
		GinMode:   getEnv("GIN_MODE", "release"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		EventID:            getEnvInt64("SEATDESK_EVENT_ID", 1),
		SessionExpiryCheck: getEnvBool("SESSION_EXPIRY_CHECK", false),

		API: external.BookingConfig{
			BaseURL: getEnv("SEATDESK_API_URL", "http://localhost:8080"),
			Timeout: time.Duration(getEnvInt("SEATDESK_API_TIMEOUT_SEC", 30)) * time.Second,
		},

		Identity: identity.Config{
			Backend:   getEnv("IDENTITY_BACKEND", identity.BackendFile),
			FilePath:  getEnv("IDENTITY_FILE", ""),
			Namespace: getEnv("IDENTITY_NAMESPACE", "seatdesk"),
			Redis: identity.RedisConfig{
				Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvInt("REDIS_DB", 0),
			},
			Valkey: identity.ValkeyConfig{
				Addr:     getEnv("VALKEY_ADDR", "localhost:6379"),
				Password: getEnv("VALKEY_PASSWORD", ""),
			},
			Postgres: database.Config{
				Host:               getEnv("DB_HOST", "localhost"),
				Port:               getEnvInt("DB_PORT", 5432),
				User:               getEnv("DB_USER", "seatdesk"),
				Password:           getEnv("DB_PASSWORD", "seatdesk"),
				DBName:             getEnv("DB_NAME", "seatdesk"),
				SSLMode:            getEnv("DB_SSLMODE", "disable"),
				MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 4),
				MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 2),
				ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			},
		},

		NATS: messaging.Config{
			Enabled:   getEnvBool("NATS_ENABLED", false),
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "seatdesk"),
			ClientID:  getEnv("NATS_CLIENT_ID", "seatdesk-shell"),
		},
	}
}

// getEnv получает значение переменной окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленное значение переменной окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
