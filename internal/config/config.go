package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Trickle   TrickleConfig
	Sentry    SentryConfig
	Tenant    TenantConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdleConns   int
}

type RedisConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type StorageConfig struct {
	DataDir     string
	MaxUploadMB int64
}

// RateLimitConfig holds requests-per-minute budgets per endpoint class.
type RateLimitConfig struct {
	Enabled bool
	Auth    int
	API     int
	Upload  int
	Trickle int
}

type TrickleConfig struct {
	SessionTimeout time.Duration
}

type SentryConfig struct {
	DSN         string
	Environment string
}

type TenantConfig struct {
	Name string
}

func Load() (*Config, error) {
	// Local development convenience; a missing .env is fine
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.SetEnvPrefix("XAT")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("database.maxconnections", 25)
	viper.SetDefault("database.maxidleconns", 5)
	viper.SetDefault("auth.accessttl", "15m")
	viper.SetDefault("auth.refreshttl", "168h")
	viper.SetDefault("storage.datadir", "./data")
	viper.SetDefault("storage.maxuploadmb", 50)
	viper.SetDefault("ratelimit.enabled", true)
	viper.SetDefault("ratelimit.auth", 5)
	viper.SetDefault("ratelimit.api", 60)
	viper.SetDefault("ratelimit.upload", 10)
	viper.SetDefault("ratelimit.trickle", 120)
	viper.SetDefault("trickle.sessiontimeout", "5m")
	viper.SetDefault("tenant.name", "default")

	var cfg Config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		cfg.Sentry.DSN = dsn
	}

	return &cfg, nil
}
