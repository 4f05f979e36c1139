package main

import (
	"github.com/jonathan/entity-catalog/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the entity statistics, tree and detail endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, database, svc, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"env":       cfg.Env,
		"schema":    cfg.Database.Schema,
		"cache_ttl": cfg.Cache.TTL,
	}).Info("configuration loaded")

	srv := server.New(cfg, database, svc, logger)
	return srv.Start()
}
