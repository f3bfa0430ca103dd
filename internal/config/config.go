// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Change feed backends.
const (
	ChangeFeedLocal    = "local"
	ChangeFeedRedis    = "redis"
	ChangeFeedPostgres = "postgres"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	DBMaxOpenConns int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	ChangeFeed        string `mapstructure:"CHANGE_FEED"`
	ChangeFeedChannel string `mapstructure:"CHANGE_FEED_CHANNEL"`

	FeedLimit           int `mapstructure:"FEED_LIMIT"`
	TrendingWindow      int `mapstructure:"TRENDING_WINDOW"`
	TrendingTopK        int `mapstructure:"TRENDING_TOP_K"`
	NotificationsLimit  int `mapstructure:"NOTIFICATIONS_LIMIT"`
	ViewCacheTTLSeconds int `mapstructure:"VIEW_CACHE_TTL_SECONDS"`

	LogLevel            string  `mapstructure:"LOG_LEVEL"`
	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; env vars and defaults are enough to boot.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		logrus.Infof("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))
	config.ChangeFeed = strings.ToLower(strings.TrimSpace(config.ChangeFeed))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "pulse")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")

	viper.SetDefault("CHANGE_FEED", ChangeFeedLocal)
	viper.SetDefault("CHANGE_FEED_CHANNEL", "pulse_changes")

	viper.SetDefault("FEED_LIMIT", 50)
	viper.SetDefault("TRENDING_WINDOW", 20)
	viper.SetDefault("TRENDING_TOP_K", 10)
	viper.SetDefault("NOTIFICATIONS_LIMIT", 50)
	viper.SetDefault("VIEW_CACHE_TTL_SECONDS", 300)

	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	switch c.ChangeFeed {
	case ChangeFeedLocal, ChangeFeedRedis, ChangeFeedPostgres:
	default:
		return fmt.Errorf("CHANGE_FEED must be one of local, redis, postgres (got %q)", c.ChangeFeed)
	}
	if c.ChangeFeed == ChangeFeedRedis && c.RedisURL == "" {
		return errors.New("REDIS_URL is required when CHANGE_FEED is redis")
	}
	if c.ChangeFeed == ChangeFeedPostgres && c.ChangeFeedChannel == "" {
		return errors.New("CHANGE_FEED_CHANNEL is required when CHANGE_FEED is postgres")
	}

	if c.FeedLimit <= 0 || c.TrendingWindow <= 0 || c.TrendingTopK <= 0 || c.NotificationsLimit <= 0 {
		return errors.New("FEED_LIMIT, TRENDING_WINDOW, TRENDING_TOP_K and NOTIFICATIONS_LIMIT must be positive")
	}
	if c.TrendingTopK > c.TrendingWindow {
		return errors.New("TRENDING_TOP_K cannot exceed TRENDING_WINDOW")
	}
	if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
		return errors.New("TRACING_SAMPLER_RATIO must be between 0 and 1")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must not be disabled in production")
		}
		if c.AllowedOrigins == "*" {
			logrus.Warn("ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		logrus.Warn("JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// DSN builds the postgres connection string shared by gorm and pgx.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}
