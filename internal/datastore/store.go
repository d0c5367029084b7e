package datastore

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/datastore/entities"
	"github.com/jobapply/jobapply/internal/errors"
	"github.com/jobapply/jobapply/internal/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// Store wraps the GORM connection shared by the repositories.
type Store struct {
	DB     *gorm.DB
	driver string
}

// Open connects to the configured database. It does not migrate.
func Open(settings *conf.DatabaseSettings) (*Store, error) {
	var dialector gorm.Dialector
	var connectionInfo string

	switch settings.Driver {
	case conf.DriverSQLite:
		path := settings.SQLite.Path
		if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.New(err).
					Component(componentDatastore).
					Category(errors.CategoryFileIO).
					Context("path", dir).
					Build()
			}
		}
		dialector = sqlite.Open(path)
		connectionInfo = path
	case conf.DriverMySQL:
		m := settings.MySQL
		dialector = mysql.Open(MySQLDSN(&m))
		connectionInfo = fmt.Sprintf("%s:%d/%s", m.Host, m.Port, m.Database)
	default:
		return nil, errors.Newf("unsupported database driver %q", settings.Driver).
			Component(componentDatastore).
			Category(errors.CategoryConfiguration).
			Build()
	}

	gormLogger := logger.NewGormLoggerAdapter(GetLogger(), slowQueryThreshold)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, dbError(fmt.Errorf("failed to open %s database: %w", settings.Driver, err), "open",
			"driver", settings.Driver)
	}

	GetLogger().Debug("database connection opened",
		logger.String("driver", settings.Driver),
		logger.String("connection", connectionInfo))

	return &Store{DB: db, driver: settings.Driver}, nil
}

// MySQLDSN formats the connection string for m. Passwords may contain
// '@', '/' or ':'.
func MySQLDSN(m *conf.MySQLSettings) string {
	cfg := gomysql.NewConfig()
	cfg.User = m.Username
	cfg.Passwd = m.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	cfg.DBName = m.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// NewStore wraps an existing connection.
func NewStore(db *gorm.DB, driver string) *Store {
	return &Store{DB: db, driver: driver}
}

// Driver returns the database driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Migrate creates or updates all tables.
func (s *Store) Migrate(ctx context.Context) error {
	start := time.Now()
	models := []any{
		&entities.BackupSettings{},
		&entities.RemoteAccount{},
		&entities.RemoteToken{},
		&entities.OAuthApp{},
		&entities.JobApplication{},
		&entities.InterviewEvent{},
	}
	if err := s.DB.WithContext(ctx).AutoMigrate(models...); err != nil {
		return dbError(fmt.Errorf("failed to auto-migrate %s database: %w", s.driver, err), "migrate")
	}
	GetLogger().Debug("database migration completed",
		logger.String("driver", s.driver),
		logger.Int("tables", len(models)),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// HasSettingsTable reports whether the backup settings table exists yet.
func (s *Store) HasSettingsTable(ctx context.Context) bool {
	return s.DB.WithContext(ctx).Migrator().HasTable(&entities.BackupSettings{})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return dbError(err, "close")
	}
	return sqlDB.Close()
}
