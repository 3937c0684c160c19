// Package config loads the environment-driven settings shared by the unintend tools.
//
// Values are read once at process start through viper. Every key is the name of the
// environment variable that sets it, so cobra flags bound to the same key override the
// environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

const (
	DatabaseURLKey       = "DATABASE_URL"
	RenderDatabaseURLKey = "RENDER_DATABASE_URL"
	UploadsDirKey        = "UPLOADS_DIR"
	SQLiteDBPathKey      = "SQLITE_DB_PATH"
	ForceDBInitKey       = "FORCE_DB_INIT"
	InitialDBURLKey      = "INITIAL_DB_URL"
	InitialDBPathKey     = "INITIAL_DB_PATH"
	BackupKey            = "DB_BACKUP"
	MaxBackupsKey        = "DB_MAX_BACKUPS"
	VerifySeedKey        = "VERIFY_DB_SEED"
	DownloadTimeoutKey   = "INITIAL_DB_TIMEOUT"

	DefaultMaxBackups = 5
)

var ErrInvalidValue = errors.New("invalid configuration value")

var truthy = map[string]bool{"1": true, "true": true, "yes": true}

// Config holds every setting the bootstrap and health commands consume.
type Config struct {
	// DatabaseURL is the raw application connection string.
	DatabaseURL string
	// RenderDatabaseURL is consulted by the application when DatabaseURL is empty.
	RenderDatabaseURL string
	// UploadsDir overrides the uploads directory; bootstrap creates it when set.
	UploadsDir string
	// SQLiteDBPath overrides the database file path parsed from DatabaseURL.
	SQLiteDBPath string
	// ForceDBInit allows an existing database file to be replaced.
	ForceDBInit bool
	// InitialDBURL is a remote seed database, tried before InitialDBPath.
	InitialDBURL string
	// InitialDBPath is a local seed database file.
	InitialDBPath string
	// BackupExisting copies an existing database aside before a forced overwrite.
	BackupExisting bool
	// MaxBackups is how many backups survive pruning.
	MaxBackups int
	// VerifySeed runs an integrity check on the seeded file.
	VerifySeed bool
	// DownloadTimeout bounds the seed download. Zero means no limit.
	DownloadTimeout time.Duration
}

// New returns a viper instance bound to the process environment with defaults set.
func New() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(MaxBackupsKey, DefaultMaxBackups)
	return v
}

// Load reads a Config out of v. Malformed numbers and durations are errors rather than
// zero values: a timeout needs a unit ("30s") and DB_MAX_BACKUPS must be a whole number
// of zero or more.
func Load(v *viper.Viper) (Config, error) {
	maxBackups, err := cast.ToIntE(str(v, MaxBackupsKey))
	if err != nil || maxBackups < 0 {
		return Config{}, fmt.Errorf("%s=%q: %w", MaxBackupsKey, str(v, MaxBackupsKey), ErrInvalidValue)
	}

	var timeout time.Duration
	if raw := str(v, DownloadTimeoutKey); raw != "" {
		timeout, err = time.ParseDuration(raw)
		if err != nil || timeout < 0 {
			return Config{}, fmt.Errorf("%s=%q, want a duration such as 30s: %w", DownloadTimeoutKey, raw, ErrInvalidValue)
		}
	}

	return Config{
		DatabaseURL:       str(v, DatabaseURLKey),
		RenderDatabaseURL: str(v, RenderDatabaseURLKey),
		UploadsDir:        str(v, UploadsDirKey),
		SQLiteDBPath:      str(v, SQLiteDBPathKey),
		ForceDBInit:       IsTruthy(str(v, ForceDBInitKey)),
		InitialDBURL:      str(v, InitialDBURLKey),
		InitialDBPath:     str(v, InitialDBPathKey),
		BackupExisting:    IsTruthy(str(v, BackupKey)),
		MaxBackups:        maxBackups,
		VerifySeed:        IsTruthy(str(v, VerifySeedKey)),
		DownloadTimeout:   timeout,
	}, nil
}

// IsTruthy reports whether s is one of 1, true or yes, ignoring case and surrounding space.
func IsTruthy(s string) bool {
	return truthy[strings.ToLower(strings.TrimSpace(s))]
}

func str(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}
