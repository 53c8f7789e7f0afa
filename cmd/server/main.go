package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mydemos/lms/internal/api"
	"github.com/mydemos/lms/internal/config"
	"github.com/mydemos/lms/internal/db"
	"github.com/mydemos/lms/internal/email"
)

var (
	cfgFile string
	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:               "lms",
		Short:             "Library management system web application",
		PersistentPreRunE: initConfig,
		RunE:              runServe,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./appsettings.{json,yaml})")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json, logfmt)")
	rootCmd.PersistentFlags().String("environment", config.EnvironmentProduction, "hosting environment (Development, Production)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE:  runServe,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE:  runMigrate,
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create the default roles and the admin account",
		RunE:  runSeed,
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	v := config.New(cfgFile)
	bindFlag(v, cmd, "logging.level", "log-level")
	bindFlag(v, cmd, "logging.format", "log-format")
	bindFlag(v, cmd, "environment", "environment")

	var err error
	cfg, err = config.Load(v)
	if err != nil {
		return err
	}

	setupLogging(cfg.Logging)
	log.Debug("Configuration loaded", "environment", cfg.Environment, "server_port", cfg.Server.Port, "log_level", cfg.Logging.Level)
	return nil
}

// bindFlag lets an explicitly set flag override the config file and
// environment.
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		_ = v.BindPFlag(key, f)
	}
}

func setupLogging(cfg config.LoggingConfig) {
	// Set log level
	switch cfg.Level {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Warn("Invalid log level, using info", "level", cfg.Level)
		log.SetLevel(log.InfoLevel)
	}

	// Configure output format
	switch cfg.Format {
	case "json":
		log.SetFormatter(log.JSONFormatter)
	case "logfmt":
		log.SetFormatter(log.LogfmtFormatter)
	default:
		log.SetFormatter(log.TextFormatter)
		log.SetReportCaller(true)
	}
	log.SetReportTimestamp(true)

	// Add service info context
	log.SetPrefix("[lms] ")
}

func openDatabase(ctx context.Context) (*db.Database, error) {
	provider, err := db.ProviderFromConnectionString(cfg.ConnectionStrings.MyDefaultConnectionString, db.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to select database provider: %w", err)
	}

	log.Debug("Initializing database connection", "provider", provider.Name())
	return db.Connect(ctx, provider)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	database, err := openDatabase(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	log.Info("Database is up to date", "provider", database.Provider().Name())
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	h, err := api.NewHandler(cfg, database, email.NewLogSender())
	if err != nil {
		return err
	}
	if err := h.Users().Seed(ctx, cfg.Auth.AdminUserName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("failed to seed identity data: %w", err)
	}

	log.Info("Identity data seeded", "admin", cfg.Auth.AdminUserName)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	database, err := openDatabase(ctx)
	if err != nil {
		return err
	}
	defer database.Close()
	log.Debug("Database connection established")

	// Initialize API handlers
	log.Debug("Initializing API handlers")
	h, err := api.NewHandler(cfg, database, email.NewLogSender())
	if err != nil {
		return err
	}
	if err := h.Users().Seed(ctx, cfg.Auth.AdminUserName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("failed to seed identity data: %w", err)
	}

	router := api.SetupRoutes(h)
	log.Debug("Routes configured")

	// Create HTTP server
	log.Debug("Creating HTTP server", "port", cfg.Server.Port, "read_timeout", cfg.Server.ReadTimeout, "write_timeout", cfg.Server.WriteTimeout, "idle_timeout", cfg.Server.IdleTimeout)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting LMS server", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	log.Debug("Creating shutdown context", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	} else {
		log.Debug("Server shutdown completed gracefully")
	}

	log.Info("Server exited")
	return nil
}
