package gormstore

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// ErrUnsupportedDriver is returned by Open for unknown driver names.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Open connects to the database named by driver and dsn.
func Open(driver string, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	return db, nil
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// ResolveURL maps a database url onto a driver name and a dialector DSN.
// postgres:// urls pass through, mysql:// urls become go-sql-driver DSNs and
// sqlite:// urls or bare paths become file paths whose directory is created.
func ResolveURL(databaseURL string) (string, string, error) {
	trimmed := strings.TrimSpace(databaseURL)
	switch {
	case strings.HasPrefix(trimmed, "postgres://"), strings.HasPrefix(trimmed, "postgresql://"):
		return DriverPostgres, trimmed, nil
	case strings.HasPrefix(trimmed, "mysql://"):
		dsn, err := mysqlDSN(trimmed)
		return DriverMySQL, dsn, err
	case strings.HasPrefix(trimmed, "sqlite://"):
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return "", "", fmt.Errorf("parse sqlite url: %w", err)
		}
		path := parsed.Path
		if path == "" {
			path = parsed.Host
		}
		if path == "" || path == "/" {
			path = "teetime.db"
		}
		sqlitePath, err := normalizeSQLitePath(path)
		return DriverSQLite, sqlitePath, err
	case trimmed == "":
		return "", "", fmt.Errorf("%w: empty database url", ErrUnsupportedDriver)
	}
	sqlitePath, err := normalizeSQLitePath(trimmed)
	return DriverSQLite, sqlitePath, err
}

// OpenURL resolves databaseURL and opens it.
func OpenURL(databaseURL string) (*gorm.DB, string, error) {
	driver, dsn, err := ResolveURL(databaseURL)
	if err != nil {
		return nil, "", err
	}
	db, err := Open(driver, dsn)
	if err != nil {
		return nil, "", err
	}
	return db, driver, nil
}

func mysqlDSN(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse mysql url: %w", err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("%w: mysql url needs a host", ErrUnsupportedDriver)
	}
	query := parsed.Query()
	if query.Get("parseTime") == "" {
		query.Set("parseTime", "true")
	}
	if query.Get("charset") == "" {
		query.Set("charset", "utf8mb4")
	}
	credentials := ""
	if parsed.User != nil {
		credentials = parsed.User.String() + "@"
	}
	return fmt.Sprintf("%stcp(%s)%s?%s", credentials, parsed.Host, parsed.Path, query.Encode()), nil
}

func normalizeSQLitePath(path string) (string, error) {
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "/") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", err
		}
		return path, nil
	}
	relative := filepath.Join(".", path)
	if err := os.MkdirAll(filepath.Dir(relative), 0o755); err != nil {
		return "", err
	}
	return relative, nil
}
