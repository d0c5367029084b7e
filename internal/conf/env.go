// env.go - Environment variable configuration and validation for JobApply
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "JOBAPPLY_DEBUG", validateEnvBool},
		{"logging.level", "JOBAPPLY_LOG_LEVEL", validateEnvLogLevel},
		{"logging.json", "JOBAPPLY_LOG_JSON", validateEnvBool},
		{"logging.timezone", "JOBAPPLY_LOG_TIMEZONE", nil},
		{"logging.file", "JOBAPPLY_LOG_FILE", nil},

		// Database
		{"database.driver", "JOBAPPLY_DATABASE_DRIVER", validateEnvDriver},
		{"database.sqlite.path", "JOBAPPLY_SQLITE_PATH", nil},
		{"database.mysql.host", "JOBAPPLY_MYSQL_HOST", nil},
		{"database.mysql.port", "JOBAPPLY_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "JOBAPPLY_MYSQL_USERNAME", nil},
		{"database.mysql.password", "JOBAPPLY_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "JOBAPPLY_MYSQL_DATABASE", nil},

		// Google Drive
		{"drive.clientid", "JOBAPPLY_DRIVE_CLIENT_ID", nil},
		{"drive.clientsecret", "JOBAPPLY_DRIVE_CLIENT_SECRET", nil},
		{"drive.tokenurl", "JOBAPPLY_DRIVE_TOKEN_URL", validateEnvURL},
		{"drive.endpoint", "JOBAPPLY_DRIVE_ENDPOINT", validateEnvURL},
		{"drive.rootfolder", "JOBAPPLY_DRIVE_ROOT_FOLDER", nil},

		// Worker
		{"worker.tick", "JOBAPPLY_WORKER_TICK", validateEnvDuration},
		{"worker.interval", "JOBAPPLY_WORKER_INTERVAL", validateEnvDuration},
		{"worker.schemawait", "JOBAPPLY_WORKER_SCHEMA_WAIT", validateEnvDuration},
		{"worker.format", "JOBAPPLY_WORKER_FORMAT", validateEnvFormat},

		{"metrics.enabled", "JOBAPPLY_METRICS_ENABLED", validateEnvBool},
		{"metrics.listen", "JOBAPPLY_METRICS_LISTEN", nil},
		{"sentry.dsn", "JOBAPPLY_SENTRY_DSN", validateEnvURL},
		{"notify.timeout", "JOBAPPLY_NOTIFY_TIMEOUT", validateEnvDuration},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	return oneOf(strings.ToLower(value), "trace", "debug", "info", "warn", "warning", "error")
}

func validateEnvDriver(value string) error {
	return oneOf(value, DriverSQLite, DriverMySQL)
}

func validateEnvFormat(value string) error {
	return oneOf(strings.ToLower(value), FormatCSV, FormatXLSX)
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	return nil
}

func oneOf(value string, valid ...string) error {
	for _, v := range valid {
		if value == v {
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s", strings.Join(valid, ", "))
}

// configureEnvironmentVariables sets up environment variable support
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}
