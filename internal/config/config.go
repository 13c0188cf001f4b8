// Package config provides configuration management for the QuantBench application.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Feed        FeedConfig        `mapstructure:"feed" validate:"required"`
	Backtest    BacktestConfig    `mapstructure:"backtest" validate:"required"`
	WalkForward WalkForwardConfig `mapstructure:"walk_forward"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Metrics     MetricsConfig     `mapstructure:"metrics" validate:"required"`
	Report      ReportConfig      `mapstructure:"report"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration. The database
// is optional; the CLI falls back to CSV input when Enabled is false.
type DatabaseConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Host               string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required_if=Enabled true"`
	User               string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"omitempty,gt=0"`
}

// FeedConfig represents market data source configuration
type FeedConfig struct {
	CSVPath            string `mapstructure:"csv_path"`
	APIURL             string `mapstructure:"api_url" validate:"omitempty,url"`
	APIKey             string `mapstructure:"api_key"`
	StreamURL          string `mapstructure:"stream_url"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds" validate:"omitempty,gt=0"`
	RetryAttempts      int    `mapstructure:"retry_attempts" validate:"omitempty,gte=0"`
	RateLimitPerSecond int    `mapstructure:"rate_limit_per_second" validate:"omitempty,gt=0"`
	CacheTTLSeconds    int    `mapstructure:"cache_ttl_seconds" validate:"omitempty,gt=0"`
}

// BacktestConfig represents single-run backtest configuration
type BacktestConfig struct {
	Symbol            string  `mapstructure:"symbol" validate:"required"`
	Strategy          string  `mapstructure:"strategy" validate:"required"`
	InitialCapital    float64 `mapstructure:"initial_capital" validate:"required,gt=0"`
	CommissionPerFill float64 `mapstructure:"commission_per_fill" validate:"gte=0"`
	SlippageBps       float64 `mapstructure:"slippage_bps" validate:"gte=0"`
	StartDate         string  `mapstructure:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate           string  `mapstructure:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// WalkForwardConfig represents walk-forward optimization configuration
type WalkForwardConfig struct {
	InSampleDays      int               `mapstructure:"in_sample_days" validate:"omitempty,gt=0"`
	OutOfSampleDays   int               `mapstructure:"out_of_sample_days" validate:"omitempty,gt=0"`
	StepDays          int               `mapstructure:"step_days" validate:"omitempty,gt=0"`
	WindowType        string            `mapstructure:"window_type" validate:"omitempty,windowtype"`
	Objective         string            `mapstructure:"objective" validate:"omitempty,objective"`
	MinTradesRequired int               `mapstructure:"min_trades_required" validate:"gte=0"`
	Workers           int               `mapstructure:"workers" validate:"omitempty,gt=0"`
	Grid              []ParameterConfig `mapstructure:"grid" validate:"omitempty,dive"`
}

// ParameterConfig represents one axis of the optimization grid
type ParameterConfig struct {
	Name   string   `mapstructure:"name" validate:"required"`
	Type   string   `mapstructure:"type" validate:"required,oneof=int float categorical"`
	Min    float64  `mapstructure:"min"`
	Max    float64  `mapstructure:"max"`
	Step   float64  `mapstructure:"step"`
	Values []string `mapstructure:"values"`
}

// SchedulerConfig represents the periodic re-optimization schedule
type SchedulerConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	CronSpec string `mapstructure:"cron_spec" validate:"required_if=Enabled true"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// ReportConfig represents report output configuration
type ReportConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	HTML      bool   `mapstructure:"html"`
	CSV       bool   `mapstructure:"csv"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		sslMode,
	)
}
