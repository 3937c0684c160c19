package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUnsupportedScheme = errors.New("unsupported database url scheme")

// Options tune how Open builds the gorm session.
type Options struct {
	// LogLevel of the gorm SQL logger. Zero means logger.Silent.
	LogLevel logger.LogLevel
	// SlowThreshold for the gorm SQL logger. Zero means one second.
	SlowThreshold time.Duration
}

func (o Options) gormConfig() *gorm.Config {
	level := o.LogLevel
	if level == 0 {
		level = logger.Silent
	}
	slow := o.SlowThreshold
	if slow == 0 {
		slow = time.Second
	}
	return &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             slow,
				LogLevel:                  level,
				IgnoreRecordNotFoundError: true,
				ParameterizedQueries:      true,
				Colorful:                  false,
			},
		),
	}
}

// Open normalizes databaseURL and opens it with the matching gorm driver.
// SQLite and PostgreSQL are supported.
func Open(databaseURL string, opts Options) (*gorm.DB, error) {
	databaseURL = NormalizeDatabaseURL(databaseURL)

	if IsSQLiteURL(databaseURL) {
		path, ok := SQLitePathFromURL(databaseURL)
		if !ok {
			return nil, fmt.Errorf("open %q: no sqlite file path: %w", databaseURL, ErrUnsupportedScheme)
		}
		return OpenSQLite(path, opts)
	}

	dsn, ok := postgresDSN(databaseURL)
	if !ok {
		return nil, fmt.Errorf("open %q: %w", redact(databaseURL), ErrUnsupportedScheme)
	}
	conn, err := gorm.Open(postgres.Open(dsn), opts.gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return conn, nil
}

// OpenSQLite opens the SQLite database file at path.
func OpenSQLite(path string, opts Options) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(path), opts.gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite DB %s: %w", path, err)
	}
	return conn, nil
}

// redact hides everything but the scheme so credentials never reach the logs.
func redact(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return databaseURL
	}
	return scheme + "://..."
}
