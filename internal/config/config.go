package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Forecast ForecastConfig `mapstructure:"forecast"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ForecastConfig holds forecast pipeline configuration
type ForecastConfig struct {
	ArchetypeDir        string `mapstructure:"archetype_dir"`
	DefaultArchetype    string `mapstructure:"default_archetype"`
	DetectionWindowDays int    `mapstructure:"detection_window_days"`
	PayPolicyOffsetDays int    `mapstructure:"pay_policy_offset_days"`
	TransactionDir      string `mapstructure:"transaction_dir"`
	OutputDir           string `mapstructure:"output_dir"`
}

// WorkerConfig holds render worker pool configuration
type WorkerConfig struct {
	PoolSize  int `mapstructure:"pool_size"`
	QueueSize int `mapstructure:"queue_size"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 60*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/forecast.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Forecast defaults
	viper.SetDefault("forecast.archetype_dir", "configs/archetypes")
	viper.SetDefault("forecast.default_archetype", "nonprofit")
	viper.SetDefault("forecast.detection_window_days", 90)
	viper.SetDefault("forecast.pay_policy_offset_days", 0)
	viper.SetDefault("forecast.transaction_dir", "data/transactions")
	viper.SetDefault("forecast.output_dir", "generated_forecasts")

	// Worker defaults
	viper.SetDefault("worker.pool_size", 4)
	viper.SetDefault("worker.queue_size", 64)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("forecast.archetype_dir", "ARCHETYPE_DIR")
	viper.BindEnv("forecast.default_archetype", "DEFAULT_ARCHETYPE")
	viper.BindEnv("forecast.output_dir", "OUTPUT_DIR")
	viper.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Forecast.ArchetypeDir == "" {
		return fmt.Errorf("forecast.archetype_dir is required")
	}
	if c.Forecast.DefaultArchetype == "" {
		return fmt.Errorf("forecast.default_archetype is required")
	}
	if c.Forecast.DetectionWindowDays <= 0 {
		return fmt.Errorf("forecast.detection_window_days must be positive")
	}
	if c.Forecast.PayPolicyOffsetDays < 0 {
		return fmt.Errorf("forecast.pay_policy_offset_days must not be negative")
	}

	if c.Worker.PoolSize <= 0 {
		return fmt.Errorf("worker.pool_size must be positive")
	}
	if c.Worker.QueueSize <= 0 {
		return fmt.Errorf("worker.queue_size must be positive")
	}

	return nil
}
