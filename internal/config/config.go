package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Blocklist BlocklistConfig `mapstructure:"blocklist"`
	Geo       GeoConfig       `mapstructure:"geo"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type AuthConfig struct {
	AdminKey string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BlocklistConfig struct {
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

type GeoConfig struct {
	// Provider selects the resolver backend: "http" (ipapi-style JSON
	// endpoint) or "mmdb" (local MaxMind database file).
	Provider      string `mapstructure:"provider"`
	BaseURL       string `mapstructure:"base_url"`
	TimeoutMs     int    `mapstructure:"timeout_ms"`
	MMDBPath      string `mapstructure:"mmdb_path"`
	CacheTTLHours int    `mapstructure:"cache_ttl_hours"`
}

type DetectorConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Schedule        string   `mapstructure:"schedule"`
	WindowMinutes   int      `mapstructure:"window_minutes"`
	VolumeThreshold int64    `mapstructure:"volume_threshold"`
	SensitivePaths  []string `mapstructure:"sensitive_paths"`
}

type RateLimitConfig struct {
	LoginAnonPerMinute int `mapstructure:"login_anon_per_minute"`
	LoginAuthPerMinute int `mapstructure:"login_auth_per_minute"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`

	// RequestLogFile enables a rotating JSONL sink for request log
	// entries in addition to the database. Empty disables it.
	RequestLogFile string `mapstructure:"request_log_file"`
	MaxSizeMB      int    `mapstructure:"max_size_mb"`
	MaxBackups     int    `mapstructure:"max_backups"`
	MaxAgeDays     int    `mapstructure:"max_age_days"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. IPSENTRY_REDIS_ADDR
	viper.SetEnvPrefix("ipsentry")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("blocklist.cache_ttl_seconds", 300)
	viper.SetDefault("geo.provider", "http")
	viper.SetDefault("geo.base_url", "https://ipapi.co")
	viper.SetDefault("geo.timeout_ms", 2000)
	viper.SetDefault("geo.cache_ttl_hours", 24)
	viper.SetDefault("detector.enabled", true)
	viper.SetDefault("detector.schedule", "@hourly")
	viper.SetDefault("detector.window_minutes", 60)
	viper.SetDefault("detector.volume_threshold", 100)
	viper.SetDefault("detector.sensitive_paths", []string{"/admin", "/login"})
	viper.SetDefault("rate_limit.login_anon_per_minute", 5)
	viper.SetDefault("rate_limit.login_auth_per_minute", 10)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.max_size_mb", 100)
	viper.SetDefault("logging.max_backups", 5)
	viper.SetDefault("logging.max_age_days", 30)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
