package main

import (
	"fmt"

	"github.com/jonathan/webform-converter/internal/config"
	"github.com/jonathan/webform-converter/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort        int
	serveConfigPath  string
	serveDatabaseURL string
	serveMigrate     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start an HTTP server that exposes REST endpoints for converting webforms and replaying
submissions. Requires DATABASE_URL and JWT_SECRET; set ADMIN_PASSWORD_HASH to enable token issuance.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", config.DefaultPort, "Port to listen on")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to a JSON or YAML config file (values can be overridden by other flags)")
	serveCmd.Flags().StringVar(&serveDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply database migrations before serving")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(serveConfigPath, false, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") || cfg.Port == 0 {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = serveDatabaseURL
	}
	cfg = cfg.MergeWithDefaults(config.Config{})

	cfg.DatabaseURL = databaseURL(cfg.DatabaseURL)
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if serveMigrate {
		if err := migrate(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}
