package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"default_level" mapstructure:"level"`   // default log level for all modules
	Timezone     string            `yaml:"timezone" mapstructure:"timezone"`     // "Local", "UTC", or IANA timezone name
	JSON         bool              `yaml:"json" mapstructure:"json"`             // JSON output instead of text
	ModuleLevels map[string]string `yaml:"module_levels" mapstructure:"modules"` // per-module log levels
	File         string            `yaml:"file" mapstructure:"file"`             // optional JSON log file, written in addition to the console
}

// DefaultLogLevel matches the default in conf/defaults.go.
const DefaultLogLevel = "info"

// DefaultConfig returns the console configuration used before settings are loaded.
func DefaultConfig() *LoggingConfig {
	return &LoggingConfig{
		DefaultLevel: DefaultLogLevel,
		Timezone:     "Local",
	}
}
