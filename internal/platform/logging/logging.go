package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/peraluna/trip-planner-api/internal/platform/config"
)

// New builds the process logger from config. Format is "json" or "text".
func New(cfg config.LogConfig) (*log.Logger, error) {
	return NewWithOutput(cfg, os.Stdout)
}

func NewWithOutput(cfg config.LogConfig, out io.Writer) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(out)

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(lvl)

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		logger.SetFormatter(&log.JSONFormatter{})
	case "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}
