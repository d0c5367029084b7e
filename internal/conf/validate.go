// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Supported export formats for automatic backups.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateLoggingSettings(&settings.Logging); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDatabaseSettings(&settings.Database); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDriveSettings(&settings.Drive); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateWorkerSettings(&settings.Worker); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Metrics.Enabled && settings.Metrics.Listen == "" {
		ve.Errors = append(ve.Errors, "metrics listen address is required when metrics are enabled")
	}

	if err := validateNotifySettings(&settings.Notify); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLoggingSettings(settings *LoggingSettings) error {
	if settings.Level == "" {
		return nil
	}
	if err := validateEnvLogLevel(settings.Level); err != nil {
		return fmt.Errorf("logging level: %w", err)
	}
	for module, level := range settings.Modules {
		if err := validateEnvLogLevel(level); err != nil {
			return fmt.Errorf("logging level for module %s: %w", module, err)
		}
	}
	return nil
}

func validateDatabaseSettings(settings *DatabaseSettings) error {
	switch settings.Driver {
	case DriverSQLite:
		if settings.SQLite.Path == "" {
			return errors.New("sqlite path is required")
		}
	case DriverMySQL:
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			return errors.New("mysql host and database are required")
		}
		if settings.MySQL.Port < 1 || settings.MySQL.Port > 65535 {
			return fmt.Errorf("mysql port must be between 1 and 65535, got %d", settings.MySQL.Port)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", settings.Driver)
	}
	return nil
}

func validateDriveSettings(settings *DriveSettings) error {
	var errs []string

	if strings.TrimSpace(settings.RootFolder) == "" {
		errs = append(errs, "drive root folder must not be empty")
	}
	if strings.ContainsAny(settings.RootFolder+settings.Subfolder, "/\\") {
		errs = append(errs, "drive folder names must not contain path separators")
	}
	if strings.TrimSpace(settings.Prefix) == "" {
		errs = append(errs, "drive backup prefix must not be empty")
	}
	for _, raw := range []string{settings.TokenURL, settings.Endpoint} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Host == "" {
			errs = append(errs, fmt.Sprintf("invalid drive URL %q", raw))
		}
	}
	if settings.RateLimit < 0 {
		errs = append(errs, "drive rate limit must not be negative")
	}
	if settings.ListLimit < 1 || settings.ListLimit > 1000 {
		errs = append(errs, fmt.Sprintf("drive list limit must be between 1 and 1000, got %d", settings.ListLimit))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateWorkerSettings(settings *WorkerSettings) error {
	if settings.Tick < time.Second {
		return fmt.Errorf("worker tick must be at least 1s, got %s", settings.Tick)
	}
	if settings.Interval <= 0 {
		return fmt.Errorf("worker interval must be positive, got %s", settings.Interval)
	}
	if settings.SchemaWait < 0 {
		return fmt.Errorf("worker schema wait must not be negative, got %s", settings.SchemaWait)
	}
	if err := validateEnvFormat(settings.Format); err != nil {
		return fmt.Errorf("worker format: %w", err)
	}
	return nil
}

func validateNotifySettings(settings *NotifySettings) error {
	for i, raw := range settings.URLs {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" {
			return fmt.Errorf("notify url #%d is not a valid service URL", i+1)
		}
	}
	if len(settings.URLs) > 0 && settings.Timeout <= 0 {
		return fmt.Errorf("notify timeout must be positive, got %s", settings.Timeout)
	}
	return nil
}
