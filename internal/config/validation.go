// Package config provides configuration management for the QuantBench application.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	v.RegisterValidation("environment", validateEnvironment)
	v.RegisterValidation("loglevel", validateLogLevel)
	v.RegisterValidation("windowtype", validateWindowType)
	v.RegisterValidation("objective", validateObjective)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateWindowType validates the walk-forward window type field
func validateWindowType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "ROLLING", "ANCHORED":
		return true
	default:
		return false
	}
}

// validateObjective validates the optimization objective field
func validateObjective(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "SHARPE_RATIO", "TOTAL_RETURN", "PROFIT_FACTOR", "WIN_RATE", "MAX_DRAWDOWN":
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Backtest.StartDate != "" && cfg.Backtest.EndDate != "" {
		startDate, err := time.Parse("2006-01-02", cfg.Backtest.StartDate)
		if err != nil {
			return fmt.Errorf("invalid backtest start_date format: %w", err)
		}
		endDate, err := time.Parse("2006-01-02", cfg.Backtest.EndDate)
		if err != nil {
			return fmt.Errorf("invalid backtest end_date format: %w", err)
		}
		if !startDate.Before(endDate) {
			return fmt.Errorf("backtest start_date must be before end_date")
		}
	}

	if cfg.Feed.CSVPath == "" && cfg.Feed.APIURL == "" && !cfg.Database.Enabled {
		return fmt.Errorf("feed requires a csv_path or api_url, or the database must be enabled")
	}

	if cfg.IsProduction() && cfg.Database.Enabled && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	if cfg.Database.Enabled && cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	for _, p := range cfg.WalkForward.Grid {
		if p.Type == "categorical" {
			if len(p.Values) == 0 {
				return fmt.Errorf("grid parameter %q requires values", p.Name)
			}
			continue
		}
		if p.Step <= 0 {
			return fmt.Errorf("grid parameter %q requires a positive step", p.Name)
		}
		if p.Min > p.Max {
			return fmt.Errorf("grid parameter %q min exceeds max", p.Name)
		}
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "windowtype":
			errMsg += fmt.Sprintf("- Field '%s' must be ROLLING or ANCHORED\n", field)
		case "objective":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: SHARPE_RATIO, TOTAL_RETURN, PROFIT_FACTOR, WIN_RATE, MAX_DRAWDOWN\n", field)
		case "oneof":
			errMsg += fmt.Sprintf("- Field '%s' has invalid value '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
