// Package bootstrap seeds the application's SQLite database file before first start.
//
// A Seeder runs once per deploy, ahead of the application process. When the configured
// database is a SQLite file that does not exist yet (or FORCE_DB_INIT is set), it is
// populated from INITIAL_DB_URL or, failing that, INITIAL_DB_PATH. Nothing is retried;
// the target file is only ever replaced by a complete copy.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"unintend/config"
	"unintend/db"
	"unintend/storage"
)

var ErrSourceMissing = errors.New("initial database source does not exist")

// Seeder ensures the SQLite database file is present.
type Seeder struct {
	Config     config.Config
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
	// Getwd resolves relative paths. Defaults to os.Getwd.
	Getwd func() (string, error)
	// Now stamps backup file names. Defaults to time.Now.
	Now func() time.Time
	// Verify checks a written seed before it is moved into place. Defaults to an
	// integrity check through gorm.
	Verify func(ctx context.Context, path string) error
}

// NewSeeder returns a Seeder with production defaults.
func NewSeeder(cfg config.Config, logger *zap.SugaredLogger) *Seeder {
	return &Seeder{
		Config:     cfg,
		HTTPClient: &http.Client{Timeout: cfg.DownloadTimeout},
		Logger:     logger,
	}
}

// Run performs the bootstrap and reports where it ended up. A MissingSource outcome is
// returned together with ErrSourceMissing; download and copy failures return an error
// and the outcome they were heading for.
func (s *Seeder) Run(ctx context.Context) (Outcome, error) {
	log := s.logger()
	cfg := s.Config

	dbPath, ok := db.SQLitePathFromURL(cfg.DatabaseURL)
	if cfg.SQLiteDBPath != "" {
		dbPath, ok = cfg.SQLiteDBPath, true
	}
	if !ok {
		log.Info("DATABASE_URL is not sqlite; nothing to init")
		return NotApplicable, nil
	}

	dbPath, err := s.absolute(dbPath)
	if err != nil {
		return NotApplicable, err
	}

	if cfg.UploadsDir != "" {
		if err := storage.EnsureDir(cfg.UploadsDir); err != nil {
			return NotApplicable, err
		}
	}

	exists, err := fileExists(dbPath)
	if err != nil {
		return NotApplicable, err
	}
	if exists && !cfg.ForceDBInit {
		log.Infof("SQLite DB already exists: %s (set FORCE_DB_INIT=1 to overwrite)", dbPath)
		return AlreadyPresent, nil
	}

	switch {
	case cfg.InitialDBURL != "":
		s.prepareOverwrite(dbPath, exists)
		log.Infof("Downloading initial DB from INITIAL_DB_URL -> %s", dbPath)
		if err := download(ctx, s.httpClient(), cfg.InitialDBURL, dbPath, s.seedCheck(ctx, dbPath)); err != nil {
			return Downloaded, fmt.Errorf("download initial DB: %w", err)
		}
		return Downloaded, nil

	case cfg.InitialDBPath != "":
		src, err := s.absolute(cfg.InitialDBPath)
		if err != nil {
			return Copied, err
		}
		srcExists, err := fileExists(src)
		if err != nil {
			return Copied, err
		}
		if !srcExists {
			log.Errorf("INITIAL_DB_PATH does not exist: %s", src)
			return MissingSource, fmt.Errorf("%w: %s", ErrSourceMissing, src)
		}
		s.prepareOverwrite(dbPath, exists)
		log.Infof("Copying initial DB from %s -> %s", src, dbPath)
		if err := copyFile(src, dbPath, s.seedCheck(ctx, dbPath)); err != nil {
			return Copied, fmt.Errorf("copy initial DB: %w", err)
		}
		return Copied, nil
	}

	log.Warn("No existing SQLite DB found and no INITIAL_DB_URL/INITIAL_DB_PATH provided. " +
		"The app will start with an empty DB.")
	return NoSourceConfigured, nil
}

// prepareOverwrite announces a forced overwrite and takes a backup when configured.
// A failed backup is logged and does not stop the seed.
func (s *Seeder) prepareOverwrite(dbPath string, exists bool) {
	if !exists {
		return
	}
	log := s.logger()
	log.Infof("FORCE_DB_INIT=1: overwriting existing SQLite DB at %s", dbPath)
	if !s.Config.BackupExisting {
		return
	}
	if info, err := os.Stat(dbPath); err == nil {
		log.Infof("existing database file size: %d bytes", info.Size())
	}
	backupPath, err := backupDatabase(dbPath, s.now())
	if err != nil {
		log.Warnf("%v", err)
		return
	}
	log.Infof("existing database backed up to %s", backupPath)
	pruneOldBackups(log, dbPath, s.Config.MaxBackups)
}

// seedCheck returns the check run on a written seed before it replaces dbPath, or nil
// when verification is off. A seed that fails it never reaches dbPath.
func (s *Seeder) seedCheck(ctx context.Context, dbPath string) checkFunc {
	if !s.Config.VerifySeed {
		return nil
	}
	verify := s.Verify
	if verify == nil {
		verify = VerifySQLite
	}
	return func(tmpPath string) error {
		if err := verify(ctx, tmpPath); err != nil {
			return fmt.Errorf("seed for %s failed verification, existing file left untouched: %w", dbPath, err)
		}
		s.logger().Infof("seed for %s passed integrity check", dbPath)
		return nil
	}
}

// VerifySQLite opens path as a SQLite database and runs an integrity check on it.
func VerifySQLite(ctx context.Context, path string) error {
	conn, err := db.OpenSQLite(path, db.Options{})
	if err != nil {
		return err
	}
	store := db.NewSQLStore(conn)
	defer func() {
		_ = store.Close()
	}()
	return store.IntegrityCheck(ctx)
}

// absolute anchors a relative path at the working directory and resolves symlinks in it.
// Absolute paths are only cleaned.
func (s *Seeder) absolute(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	getwd := s.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	wd, err := getwd()
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return resolveSymlinks(filepath.Join(wd, path)), nil
}

// resolveSymlinks evaluates symlinks in the longest existing prefix of the absolute path
// p and appends the rest unchanged, so a path whose file is not there yet still resolves
// through a symlinked directory.
func resolveSymlinks(p string) string {
	existing, rest := p, ""
	for {
		if resolved, err := filepath.EvalSymlinks(existing); err == nil {
			return filepath.Join(resolved, rest)
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return p
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}
}

func (s *Seeder) logger() *zap.SugaredLogger {
	if s.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.Logger
}

func (s *Seeder) httpClient() *http.Client {
	if s.HTTPClient == nil {
		return http.DefaultClient
	}
	return s.HTTPClient
}

func (s *Seeder) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", path, err)
}
