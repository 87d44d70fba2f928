package config

import "fmt"

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

const maxPort = 65535

// ValidatePort checks that port is in 1..65535.
func ValidatePort(field string, port int) error {
	if port < 1 || port > maxPort {
		return &ValidationError{Field: field, Message: "must be between 1 and 65535"}
	}
	return nil
}

// ValidateLogLevel checks if a log level is valid.
func ValidateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "warning", "error", "fatal":
		return nil
	default:
		return &ValidationError{Field: "logging.level", Message: "must be one of: debug, info, warn, error, fatal"}
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := ValidatePort("service.port", c.Service.Port); err != nil {
		return err
	}

	if err := ValidateLogLevel(c.Logging.Level); err != nil {
		return err
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.Host == "" {
			return &ValidationError{Field: "database.host", Message: "is required"}
		}
		if err := ValidatePort("database.port", c.Database.Port); err != nil {
			return err
		}
		if c.Database.Database == "" {
			return &ValidationError{Field: "database.database", Message: "is required"}
		}
	default:
		return &ValidationError{Field: "database.driver", Message: "must be one of: postgres, memory"}
	}

	switch c.Review.RefetchMode {
	case RefetchSequential, RefetchParallel:
	default:
		return &ValidationError{Field: "review.refetch_mode", Message: "must be one of: sequential, parallel"}
	}

	if c.Review.DefaultLimit < 1 {
		return &ValidationError{Field: "review.default_limit", Message: "must be positive"}
	}

	return nil
}
