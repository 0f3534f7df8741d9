package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/parohia/parohia/internal/api"
	"github.com/parohia/parohia/internal/app"
	"github.com/parohia/parohia/internal/app/maintenance"
	"github.com/parohia/parohia/internal/database"
	"github.com/parohia/parohia/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "parohia-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("parohia-server", flag.ContinueOnError)
	configPath := flags.String("config", "", "path to a config.yaml file or the directory containing it")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(*configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db)

	stack, err := buildRuntime(cfg, db)
	if err != nil {
		return err
	}

	cleaner := maintenance.NewCleaner(stack.Sessions, stack.Audit,
		maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		maintenance.WithSessionSchedule(cfg.Maintenance.SessionPurgeSchedule),
		maintenance.WithAuditSchedule(cfg.Maintenance.AuditTrimSchedule),
	)
	if err := cleaner.Start(); err != nil {
		return fmt.Errorf("start maintenance jobs: %w", err)
	}
	defer cleaner.Stop()

	router, err := api.NewRouter(stack.routerDeps(db))
	if err != nil {
		return fmt.Errorf("initialise router: %w", err)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// loadApplicationConfig accepts either a directory containing config.yaml or
// the file itself.
func loadApplicationConfig(path string) (*app.Config, error) {
	if path == "" {
		return app.LoadConfig()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config path %q: %w", path, err)
	}
	if info.IsDir() {
		return app.LoadConfig(path)
	}
	return app.LoadConfig(filepath.Dir(path))
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	db, err := database.Open(convertDatabaseConfig(cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrateAndSeed(db); err != nil {
		closeDatabase(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

func convertDatabaseConfig(cfg app.DatabaseConfig) database.Config {
	out := database.Config{
		Driver: cfg.Driver,
		Path:   cfg.Path,
		DSN:    cfg.DSN,
	}

	switch cfg.Driver {
	case "postgres":
		out.Host = cfg.Postgres.Host
		out.Port = cfg.Postgres.Port
		out.Name = cfg.Postgres.Database
		out.User = cfg.Postgres.Username
		out.Password = cfg.Postgres.Password
	case "mysql":
		out.Host = cfg.MySQL.Host
		out.Port = cfg.MySQL.Port
		out.Name = cfg.MySQL.Database
		out.User = cfg.MySQL.Username
		out.Password = cfg.MySQL.Password
	}

	return out
}

func closeDatabase(db *gorm.DB) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("database close", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("database close", zap.Error(err))
	}
}
