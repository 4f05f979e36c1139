// Package logging builds the application logger from configuration.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/jonathan/entity-catalog/internal/config"
	log "github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr with the configured level and format.
// Unknown levels fall back to info.
func New(cfg config.LogConfig) *log.Logger {
	return NewWithOutput(cfg, os.Stderr)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(cfg config.LogConfig, out io.Writer) *log.Logger {
	logger := log.New()
	logger.SetOutput(out)

	level, err := log.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	return logger
}
