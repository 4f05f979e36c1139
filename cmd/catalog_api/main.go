// Package main provides the entry point for the Entity Catalog HTTP API server and CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/jonathan/entity-catalog/internal/catalog"
	"github.com/jonathan/entity-catalog/internal/config"
	"github.com/jonathan/entity-catalog/internal/db"
	"github.com/jonathan/entity-catalog/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "catalog_api",
	Short: "Entity Catalog HTTP API Server",
	Long: "Entity Catalog serves entity statistics, the domain tree and per sub-domain entity trees " +
		"built from catalog paths, with time-expiring caches in front of PostgreSQL.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or JSON config file")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads and validates configuration from --config and the environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openCatalog connects to the database, creates the schema when auto_migrate
// is on, and wraps the connection in a caching catalog service.
func openCatalog(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*db.DB, *catalog.Service, error) {
	database, err := db.Connect(ctx, cfg.Database.URL, cfg.Database.Schema)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := database.EnsureSchema(ctx); err != nil {
			// Matches the development behaviour of carrying on without tables.
			logger.WithError(err).Warn("failed to create catalog tables")
		} else {
			logger.WithField("schema", cfg.Database.Schema).Info("catalog tables ready")
		}
	}

	svc := catalog.NewService(database, catalog.Options{
		TTL:    cfg.Cache.TTL,
		Logger: logger,
	})
	return database, svc, nil
}

// setup is the shared prologue of every database-backed command.
func setup(ctx context.Context) (*config.Config, *logrus.Logger, *db.DB, *catalog.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger := logging.New(cfg.Log)

	database, svc, err := openCatalog(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return cfg, logger, database, svc, nil
}
