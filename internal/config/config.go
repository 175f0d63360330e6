package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Security  SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MigrationsPath string `mapstructure:"migrations_path"`
	MaxConnections int    `mapstructure:"max_connections"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WebSocketConfig struct {
	PingInterval int `mapstructure:"ping_interval"`
	PongTimeout  int `mapstructure:"pong_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// AlertingConfig controls the rule engine, incident batching and escalation.
type AlertingConfig struct {
	Workers              int      `mapstructure:"workers"`
	QueueSize            int      `mapstructure:"queue_size"`
	BatchWindowSeconds   int      `mapstructure:"batch_window_seconds"`
	MinAlertsForIncident int      `mapstructure:"min_alerts_for_incident"`
	SweepIntervalSeconds int      `mapstructure:"sweep_interval_seconds"`
	ImpactTemplate       string   `mapstructure:"impact_template"`
	RulesFile            string   `mapstructure:"rules_file"`
	Sources              []string `mapstructure:"sources"`
}

type SecurityConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	EnableCORS     bool     `mapstructure:"enable_cors"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("alerting.rules_file", "ALERT_RULES_FILE")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks the configuration for completeness and correctness.
func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}
	if c.Server.Host == "" {
		errors = append(errors, "server.host is required")
	}

	if c.Database.Path == "" {
		errors = append(errors, "database.path is required")
	}

	if c.Alerting.Workers < 0 {
		errors = append(errors, "alerting.workers must be non-negative")
	}
	if c.Alerting.BatchWindowSeconds <= 0 {
		errors = append(errors, "alerting.batch_window_seconds must be greater than 0")
	}
	if c.Alerting.MinAlertsForIncident <= 0 {
		errors = append(errors, "alerting.min_alerts_for_incident must be greater than 0")
	}
	if c.Alerting.SweepIntervalSeconds <= 0 {
		errors = append(errors, "alerting.sweep_interval_seconds must be greater than 0")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.path", "./data/alerting.db")
	viper.SetDefault("database.migrations_path", "./migrations")
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.auto_migrate", true)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// WebSocket defaults
	viper.SetDefault("websocket.ping_interval", 30)
	viper.SetDefault("websocket.pong_timeout", 60)
	viper.SetDefault("websocket.write_timeout", 10)

	// Alerting defaults
	viper.SetDefault("alerting.workers", 4)
	viper.SetDefault("alerting.queue_size", 1024)
	viper.SetDefault("alerting.batch_window_seconds", 30)
	viper.SetDefault("alerting.min_alerts_for_incident", 5)
	viper.SetDefault("alerting.sweep_interval_seconds", 30)
	viper.SetDefault("alerting.rules_file", "")
	viper.SetDefault("alerting.sources", []string{})

	// Security defaults
	viper.SetDefault("security.allowed_origins", []string{"*"})
	viper.SetDefault("security.enable_cors", true)
}
