// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Backup folder layout and naming used by the web app and the worker.
const (
	DefaultRootFolder = "JobApply"
	DefaultSubfolder  = "backups"
	DefaultPrefix     = "autobackup"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.json", false)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.file", "")

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.sqlite.path", "jobapply.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", 3306)
	viper.SetDefault("database.mysql.username", "")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.database", "jobapply")

	viper.SetDefault("drive.rootfolder", DefaultRootFolder)
	viper.SetDefault("drive.subfolder", DefaultSubfolder)
	viper.SetDefault("drive.prefix", DefaultPrefix)
	viper.SetDefault("drive.clientid", "")
	viper.SetDefault("drive.clientsecret", "")
	viper.SetDefault("drive.tokenurl", "")
	viper.SetDefault("drive.scopes", []string{"https://www.googleapis.com/auth/drive.file"})
	viper.SetDefault("drive.endpoint", "")
	viper.SetDefault("drive.ratelimit", 5.0)
	viper.SetDefault("drive.burst", 10)
	viper.SetDefault("drive.listlimit", 30)

	viper.SetDefault("worker.tick", 30*time.Second)
	viper.SetDefault("worker.interval", 5*time.Minute)
	viper.SetDefault("worker.schemawait", 120*time.Second)
	viper.SetDefault("worker.format", "csv")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", "localhost:9090")

	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.debug", false)

	viper.SetDefault("notify.urls", []string{})
	viper.SetDefault("notify.timeout", 10*time.Second)
}
