package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/naturalys/internal/config"
	"github.com/naturalys/internal/db"
	"github.com/naturalys/internal/logging"
	"github.com/naturalys/internal/migrate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Naturalys database migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newUpCmd())
	return root
}

func newUpCmd() *cobra.Command {
	cfg := config.Load()
	var (
		dir      string
		strict   bool
		restOnly bool
	)

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runUp(ctx, cfg, dir, strict, restOnly, logger)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", cfg.MigrationsDir, "directory containing NNNNNN_name.up.sql files")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when a migration needs to be applied manually")
	cmd.Flags().BoolVar(&restOnly, "rest-only", false, "skip the database connection and only use the REST endpoint")
	return cmd
}

func runUp(ctx context.Context, cfg config.AppConfig, dir string, strict, restOnly bool, logger *zap.Logger) error {
	migrations, err := migrate.Discover(dir)
	if err != nil {
		return err
	}
	if len(migrations) == 0 {
		logger.Warn("no migrations found", zap.String("dir", dir))
		return nil
	}
	logger.Info("migrations found", zap.Int("count", len(migrations)), zap.String("dir", dir))

	sdb, executors, err := openExecutors(cfg, restOnly, logger)
	if err != nil {
		return err
	}
	if sdb != nil {
		defer sdb.Close()
	}

	runner := migrate.NewRunner(sdb, os.Stdout, logger, executors...)
	report, err := runner.Up(ctx, migrations)
	if errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("migrations finished",
		zap.Int("applied", report.Applied()),
		zap.Int("manual", len(report.Pending())))
	if err != nil {
		logger.Warn("some migrations need manual application", zap.Error(err))
		if strict {
			return err
		}
	}
	return nil
}

// openExecutors 按配置组装执行方式。数据库不可用但配置了 REST 入口时退回仅 REST，
// 此时不记录已执行的版本。
func openExecutors(cfg config.AppConfig, restOnly bool, logger *zap.Logger) (*sqlx.DB, []migrate.Executor, error) {
	var (
		sdb       *sqlx.DB
		executors []migrate.Executor
	)
	if !restOnly {
		var err error
		sdb, err = openDatabase(cfg)
		switch {
		case err == nil:
			executors = append(executors, migrate.DBExecutor{DB: sdb})
		case cfg.BackendRESTURL != "":
			logger.Warn("database unavailable, continuing with REST only; applied versions will not be tracked", zap.Error(err))
		default:
			return nil, nil, err
		}
	}
	if cfg.BackendRESTURL != "" {
		executors = append(executors, migrate.RESTExecutor{
			BaseURL: cfg.BackendRESTURL,
			APIKey:  cfg.BackendAPIKey,
			Client:  &http.Client{Timeout: cfg.UploadTimeout},
		})
	}
	return sdb, executors, nil
}

func openDatabase(cfg config.AppConfig) (*sqlx.DB, error) {
	gdb, err := db.Open(cfg.DatabaseDriver, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	sdb, err := db.NewSQLX(gdb)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return sdb, nil
}
