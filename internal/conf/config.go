// config.go: settings struct for the JobApply backup tooling and functions to load it.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/jobapply/jobapply/internal/logger"
)

// LoggingSettings controls the central logger.
type LoggingSettings struct {
	Level    string            `yaml:"level"`    // trace, debug, info, warn, error
	JSON     bool              `yaml:"json"`     // JSON lines instead of text
	Timezone string            `yaml:"timezone"` // "Local", "UTC" or IANA name
	Modules  map[string]string `yaml:"modules"`  // per-module level overrides
	File     string            `yaml:"file"`     // optional JSON log file
}

// SQLiteSettings contains settings for the SQLite database.
type SQLiteSettings struct {
	Path string `yaml:"path"`
}

// MySQLSettings contains settings for the MySQL database.
type MySQLSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DatabaseSettings selects and configures the persistence backend.
type DatabaseSettings struct {
	Driver string         `yaml:"driver"` // "sqlite" or "mysql"
	SQLite SQLiteSettings `yaml:"sqlite"`
	MySQL  MySQLSettings  `yaml:"mysql"`
}

// DriveSettings contains Google Drive integration settings.
type DriveSettings struct {
	RootFolder   string   `yaml:"rootfolder"`   // top level folder under My Drive
	Subfolder    string   `yaml:"subfolder"`    // folder under RootFolder, empty to use RootFolder
	Prefix       string   `yaml:"prefix"`       // rotation file name prefix
	ClientID     string   `yaml:"clientid"`     // OAuth client id used when the token has no app record
	ClientSecret string   `yaml:"clientsecret"` // OAuth client secret
	TokenURL     string   `yaml:"tokenurl"`     // token endpoint, empty for Google's
	Scopes       []string `yaml:"scopes"`
	Endpoint     string   `yaml:"endpoint"`  // API base URL override, empty for Google's
	RateLimit    float64  `yaml:"ratelimit"` // API requests per second per client
	Burst        int      `yaml:"burst"`
	ListLimit    int      `yaml:"listlimit"` // default number of files listed
}

// WorkerSettings controls the auto-backup polling loop.
type WorkerSettings struct {
	Tick       time.Duration `yaml:"tick"`       // delay between ticks
	Interval   time.Duration `yaml:"interval"`   // minimum time between two backups of one user
	SchemaWait time.Duration `yaml:"schemawait"` // how long to wait for migrations at startup
	Format     string        `yaml:"format"`     // csv or xlsx
}

// MetricsSettings controls the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// SentrySettings controls error telemetry.
type SentrySettings struct {
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
	Debug       bool   `yaml:"debug"`
}

// NotifySettings configures operator notifications sent through shoutrrr.
type NotifySettings struct {
	URLs    []string      `yaml:"urls"`    // shoutrrr service URLs, empty disables notifications
	Timeout time.Duration `yaml:"timeout"` // per-send timeout
}

// Settings contains all configuration options.
type Settings struct {
	Debug    bool             `yaml:"debug"`
	Logging  LoggingSettings  `yaml:"logging"`
	Database DatabaseSettings `yaml:"database"`
	Drive    DriveSettings    `yaml:"drive"`
	Worker   WorkerSettings   `yaml:"worker"`
	Metrics  MetricsSettings  `yaml:"metrics"`
	Sentry   SentrySettings   `yaml:"sentry"`
	Notify   NotifySettings   `yaml:"notify"`
}

// LoggingConfig converts the logging section into the logger's configuration.
func (s *Settings) LoggingConfig() *logger.LoggingConfig {
	level := s.Logging.Level
	if s.Debug && (level == "" || level == logger.DefaultLogLevel) {
		level = "debug"
	}
	return &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     s.Logging.Timezone,
		JSON:         s.Logging.JSON,
		ModuleLevels: s.Logging.Modules,
		File:         s.Logging.File,
	}
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables.
// An empty configFile searches the default config paths; a missing file is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper sets defaults and env bindings and reads the configuration file.
func initViper(configFile string) error {
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Defaults and environment are enough to run.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order.
func GetDefaultConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}
	return []string{
		filepath.Join(home, ".config", "jobapply"),
		"/etc/jobapply",
		".",
	}, nil
}

// GetSettings returns the settings loaded by the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// ConfigFileUsed returns the path of the configuration file read by Load, if any.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}
