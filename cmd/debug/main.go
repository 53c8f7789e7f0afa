package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mydemos/lms/cmd/debug/models"
	"github.com/mydemos/lms/internal/config"
	"github.com/mydemos/lms/internal/db"
)

func main() {
	var (
		cfgFile   string
		connStr   string
		startView string
		logLevel  string
	)

	cmd := &cobra.Command{
		Use:          "lms-debug",
		Short:        "Terminal browser for the LMS database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch logLevel {
			case "debug":
				log.SetLevel(log.DebugLevel)
			case "warn":
				log.SetLevel(log.WarnLevel)
			case "error":
				log.SetLevel(log.ErrorLevel)
			default:
				log.SetLevel(log.InfoLevel)
			}

			// Setup file logging for debug
			if len(os.Getenv("DEBUG")) > 0 {
				f, err := tea.LogToFile("debug.log", "debug")
				if err != nil {
					return fmt.Errorf("failed to open debug log: %w", err)
				}
				defer f.Close()
			}

			if connStr == "" {
				cfg, err := config.Load(config.New(cfgFile))
				if err != nil {
					return err
				}
				connStr = cfg.ConnectionStrings.MyDefaultConnectionString
			}

			provider, err := db.ProviderFromConnectionString(connStr, db.PoolConfig{})
			if err != nil {
				return err
			}
			database, err := db.Connect(cmd.Context(), provider)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer database.Close()

			app := models.NewApp(database, models.ParseView(startView))
			program := tea.NewProgram(app, tea.WithAltScreen())

			log.Info("Starting LMS Debug Tool", "provider", provider.Name(), "start_view", startView)
			if _, err := program.Run(); err != nil {
				return fmt.Errorf("error running debug tool: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfgFile, "config", "", "config file to read the connection string from")
	cmd.Flags().StringVar(&connStr, "db", "", "connection string (overrides the config file)")
	cmd.Flags().StringVar(&startView, "view", "menu", "starting view (menu, tables, overview)")
	cmd.Flags().StringVar(&logLevel, "log", "info", "log level (debug, info, warn, error)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
