package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Environment string        `mapstructure:"environment"`
	API         APIConfig     `mapstructure:"api"`
	Cache       CacheConfig   `mapstructure:"cache"`
	Redis       RedisConfig   `mapstructure:"redis"`
	Forms       FormsConfig   `mapstructure:"forms"`
	Server      ServerConfig  `mapstructure:"server"`
	Worker      WorkerConfig  `mapstructure:"worker"`
	Azure       AzureConfig   `mapstructure:"azure"`
	Tracing     TracingConfig `mapstructure:"tracing"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// APIConfig points the console at the procurement backend
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// Timeout of zero leaves requests unbounded; callers cancel through the context.
	Timeout time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds data-fetching cache configuration
type CacheConfig struct {
	RevalidateOnFocus  bool          `mapstructure:"revalidate_on_focus"`
	RetryOnError       bool          `mapstructure:"retry_on_error"`
	ErrorRetryCount    int           `mapstructure:"error_retry_count"`
	ErrorRetryInterval time.Duration `mapstructure:"error_retry_interval"`
	TTL                time.Duration `mapstructure:"ttl"`
}

// RedisConfig holds Redis configuration for the shared cache backend
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// FormsConfig holds settings used by the form controllers
type FormsConfig struct {
	// Timezone in which delivery dates typed by staff are interpreted.
	Timezone string `mapstructure:"timezone"`
}

// ServerConfig holds the dashboard HTTP server configuration
type ServerConfig struct {
	Address string        `mapstructure:"address"`
	Mode    string        `mapstructure:"mode"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WorkerConfig holds the scheduled report export configuration
type WorkerConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	OutputDir  string        `mapstructure:"output_dir"`
	WindowDays int           `mapstructure:"window_days"`
	Detailed   bool          `mapstructure:"detailed"`
	Format     string        `mapstructure:"format"`
}

// AzureConfig holds Azure Service Bus configuration
type AzureConfig struct {
	QueueConnStr string `mapstructure:"queue_conn_str"`
	QueueName    string `mapstructure:"queue_name"`
}

// TracingConfig holds tracing configuration
type TracingConfig struct {
	LicenseKey     string `mapstructure:"license_key"`
	AppName        string `mapstructure:"app_name"`
	LogEnabled     bool   `mapstructure:"log_enabled"`
	DistribTracing bool   `mapstructure:"distributed_tracing_enabled"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from a file or environment variables.
// An empty file searches "." and "./config" for config.yaml, then app.env.
func LoadConfig(file string) (Config, error) {
	v := viper.New()

	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok && file == "" {
			v.SetConfigName("app")
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				// Defaults and environment variables still apply
				log.Debug().Err(err).Msg("No configuration file found")
			}
		} else {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("PROCUREMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	config.API.BaseURL = strings.TrimRight(config.API.BaseURL, "/")

	return config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Backend API
	v.SetDefault("api.base_url", "http://localhost:8080")
	v.SetDefault("api.timeout", "0s")

	// Data-fetching cache
	v.SetDefault("cache.revalidate_on_focus", false)
	v.SetDefault("cache.retry_on_error", false)
	v.SetDefault("cache.error_retry_count", 3)
	v.SetDefault("cache.error_retry_interval", "5s")
	v.SetDefault("cache.ttl", "30s")

	// Redis settings
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "procurement")
	v.SetDefault("redis.ttl", "5m")

	v.SetDefault("forms.timezone", "Local")

	// Dashboard server
	v.SetDefault("server.address", "0.0.0.0:3000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.timeout", "30s")

	// Report export worker
	v.SetDefault("worker.interval", "24h")
	v.SetDefault("worker.output_dir", "./reports")
	v.SetDefault("worker.window_days", 30)
	v.SetDefault("worker.detailed", true)
	v.SetDefault("worker.format", "CSV")

	// Azure settings
	v.SetDefault("azure.queue_conn_str", "")
	v.SetDefault("azure.queue_name", "procurement-notifications")

	// Tracing settings
	v.SetDefault("tracing.license_key", "")
	v.SetDefault("tracing.app_name", "Procurement Console")
	v.SetDefault("tracing.log_enabled", false)
	v.SetDefault("tracing.distributed_tracing_enabled", true)

	// Logging settings
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Location resolves the configured timezone, falling back to the local zone
func (c FormsConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", c.Timezone).Msg("Unknown timezone, using local time")
		return time.Local
	}
	return loc
}

// RedisAddr formats the Redis address
func (c RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
