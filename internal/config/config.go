// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode       string        `mapstructure:"GIN_MODE"`
	ServerHost    string        `mapstructure:"SERVER_HOST"`
	ServerPort    string        `mapstructure:"SERVER_PORT"`
	ServerTimeout time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`

	// Database Configuration
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSource          string        `mapstructure:"DB_SOURCE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Redis Configuration (optional category cache)
	RedisEnabled     bool          `mapstructure:"REDIS_ENABLED"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	CategoryCacheTTL time.Duration `mapstructure:"CATEGORY_CACHE_TTL_SECONDS"`

	// Object Storage Configuration (S3 or R2)
	StorageBucket        string `mapstructure:"STORAGE_BUCKET"`
	StorageRegion        string `mapstructure:"STORAGE_REGION"`
	StorageEndpoint      string `mapstructure:"STORAGE_ENDPOINT"`
	StorageAccountID     string `mapstructure:"STORAGE_ACCOUNT_ID"`
	StorageCustomDomain  string `mapstructure:"STORAGE_CUSTOM_DOMAIN"`
	StoragePublicURLBase string `mapstructure:"STORAGE_PUBLIC_URL_BASE"`

	// Application Specific Configuration
	MinExpiryDays         int    `mapstructure:"MIN_EXPIRY_DAYS"`
	DefaultExpiryDays     int    `mapstructure:"DEFAULT_EXPIRY_DAYS"`
	MaxImagesPerPost      int    `mapstructure:"MAX_IMAGES_PER_POST"`
	MaxImagesPerAlert     int    `mapstructure:"MAX_IMAGES_PER_ALERT"`
	MaxImageSizeBytes     int64  `mapstructure:"MAX_IMAGE_SIZE_BYTES"`
	SupportedImageFormats string `mapstructure:"SUPPORTED_IMAGE_FORMATS"`

	// Cron Jobs
	PostExpiryJobSchedule string `mapstructure:"POST_EXPIRY_JOB_SCHEDULE"`
}

// SupportedFormats splits the comma-separated format list into normalized
// lowercase extensions.
func (c *Config) SupportedFormats() []string {
	parts := strings.Split(c.SupportedImageFormats, ",")
	formats := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			formats = append(formats, p)
		}
	}
	return formats
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()

	// Set default values
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "agromarket_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("CATEGORY_CACHE_TTL_SECONDS", 300)

	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_REGION", "auto")
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCOUNT_ID", "")
	v.SetDefault("STORAGE_CUSTOM_DOMAIN", "")
	v.SetDefault("STORAGE_PUBLIC_URL_BASE", "")

	v.SetDefault("MIN_EXPIRY_DAYS", 30)
	v.SetDefault("DEFAULT_EXPIRY_DAYS", 30)
	v.SetDefault("MAX_IMAGES_PER_POST", 5)
	v.SetDefault("MAX_IMAGES_PER_ALERT", 3)
	v.SetDefault("MAX_IMAGE_SIZE_BYTES", 5*1024*1024)
	v.SetDefault("SUPPORTED_IMAGE_FORMATS", "jpg,jpeg,png,webp")

	v.SetDefault("POST_EXPIRY_JOB_SCHEDULE", "@daily")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Convert duration fields
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.CategoryCacheTTL = time.Duration(v.GetInt("CATEGORY_CACHE_TTL_SECONDS")) * time.Second

	// Construct the GORM DSN from individual DB params. The DB_SOURCE env var
	// is primarily for golang-migrate and may be URL-formatted.
	cfg.DBSource = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode, cfg.DBTimezone)

	if cfg.MinExpiryDays < 1 {
		return nil, fmt.Errorf("MIN_EXPIRY_DAYS must be at least 1, got %d", cfg.MinExpiryDays)
	}
	if cfg.DefaultExpiryDays < cfg.MinExpiryDays {
		cfg.DefaultExpiryDays = cfg.MinExpiryDays
	}

	return &cfg, nil
}
