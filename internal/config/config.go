package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Telegram
	BotToken string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Application
	AppEnv       string
	AppPort      string
	LogLevel     string
	QuizDataPath string

	// Uploads
	UploadMaxSize   int64
	AdminTelegramID int64

	// Rate Limiting
	RateLimitPerUser  int
	RateLimitPerChat  int
	RateLimitWindowMs int
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		BotToken:   getEnv("BOT_TOKEN", ""),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "quizbot"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "quizbot_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		AppEnv:       getEnv("APP_ENV", "development"),
		AppPort:      getEnv("APP_PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		QuizDataPath: getEnv("QUIZ_DATA_PATH", "quiz_data.json"),

		UploadMaxSize: getEnvInt64("UPLOAD_MAX_SIZE", 5242880),

		RateLimitPerUser:  getEnvInt("RATE_LIMIT_PER_USER", 20),
		RateLimitPerChat:  getEnvInt("RATE_LIMIT_PER_CHAT", 120),
		RateLimitWindowMs: getEnvInt("RATE_LIMIT_WINDOW_MS", 60000),
	}

	// Parse admin telegram ID; upload stays open when unset
	adminStr := getEnv("ADMIN_TELEGRAM_ID", "")
	if adminStr != "" {
		id, err := strconv.ParseInt(adminStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
		cfg.AdminTelegramID = id
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.UploadMaxSize <= 0 {
		return fmt.Errorf("UPLOAD_MAX_SIZE must be positive")
	}
	if c.RateLimitPerUser <= 0 || c.RateLimitPerChat <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) GetRateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMs) * time.Millisecond
}

// IsAdmin reports whether the given Telegram user may manage the quiz catalog.
// With no admin configured, catalog management is open.
func (c *Config) IsAdmin(telegramID int64) bool {
	return c.AdminTelegramID == 0 || c.AdminTelegramID == telegramID
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}
