package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"unintend/bootstrap"
	"unintend/config"
	"unintend/db"
	"unintend/logging"
)

// exitError carries a process exit status out of a cobra command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	v := config.New()
	log := logging.New(stdout, stderr, zapcore.InfoLevel).Named("init")
	defer func() {
		_ = log.Sync()
	}()

	rootCmd := newRootCmd(v, log)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(context.Background())
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		if exit.code != 0 && !errors.Is(err, bootstrap.ErrSourceMissing) {
			log.Errorf("%v", err)
		}
		return exit.code
	}
	log.Errorf("command failed: %v", err)
	return 1
}

func newRootCmd(v *viper.Viper, log *zap.SugaredLogger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "init-storage",
		Short:         "Seed the SQLite database on the persistent disk before the app starts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			seeder := bootstrap.NewSeeder(cfg, log)
			outcome, err := seeder.Run(cmd.Context())
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			if code := outcome.ExitCode(); code != 0 {
				return &exitError{code: code, err: fmt.Errorf("bootstrap ended in %s", outcome)}
			}
			return nil
		},
	}

	flags := rootCmd.Flags()
	flags.String("db-path", "", "Path to the SQLite database file (overrides DATABASE_URL)")
	flags.String("uploads-dir", "", "Uploads directory to create")
	flags.Bool("force", false, "Overwrite an existing database file")
	flags.String("initial-db-url", "", "URL to download the seed database from")
	flags.String("initial-db-path", "", "Local seed database file to copy")
	flags.Bool("backup", false, "Back up an existing database file before overwriting it")
	flags.Int("max-backups", config.DefaultMaxBackups, "Maximum number of backups to retain")
	flags.Bool("verify", false, "Run an integrity check on the seeded database")
	flags.Duration("download-timeout", 0, "Timeout for downloading the seed database (0 means none)")

	bindFlag(v, config.SQLiteDBPathKey, flags.Lookup("db-path"))
	bindFlag(v, config.UploadsDirKey, flags.Lookup("uploads-dir"))
	bindFlag(v, config.ForceDBInitKey, flags.Lookup("force"))
	bindFlag(v, config.InitialDBURLKey, flags.Lookup("initial-db-url"))
	bindFlag(v, config.InitialDBPathKey, flags.Lookup("initial-db-path"))
	bindFlag(v, config.BackupKey, flags.Lookup("backup"))
	bindFlag(v, config.MaxBackupsKey, flags.Lookup("max-backups"))
	bindFlag(v, config.VerifySeedKey, flags.Lookup("verify"))
	bindFlag(v, config.DownloadTimeoutKey, flags.Lookup("download-timeout"))

	rootCmd.AddCommand(newPingCmd(v, log))
	return rootCmd
}

func newPingCmd(v *viper.Viper, log *zap.SugaredLogger) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Open the application database and check that it answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			databaseURL := db.ResolveDatabaseURL(cfg.DatabaseURL, cfg.RenderDatabaseURL)

			conn, err := db.Open(databaseURL, db.Options{})
			if err != nil {
				return err
			}
			store := db.NewSQLStore(conn)
			defer func() {
				if err := store.Close(); err != nil {
					log.Warnf("%v", err)
				}
			}()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			log.Infof("database is reachable (%s)", conn.Name())
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for the database")
	return cmd
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag.Name, err))
	}
}
