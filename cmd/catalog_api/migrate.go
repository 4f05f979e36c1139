package main

import (
	"fmt"

	"github.com/jonathan/entity-catalog/internal/db"
	"github.com/jonathan/entity-catalog/internal/logging"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the catalog schema and tables",
	Long:  "Creates the configured schema and the entities, catalog and entity source tables when they do not exist.",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log)

	database, err := db.Connect(cmd.Context(), cfg.Database.URL, cfg.Database.Schema)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := database.EnsureSchema(cmd.Context()); err != nil {
		return err
	}

	logger.WithField("schema", database.Schema()).Info("catalog tables ready")
	return nil
}
