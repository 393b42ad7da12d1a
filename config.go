package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"

	"github.com/santiaoqiao/sheetmap/excel"
)

// Config holds the defaults read from SHEETMAP_* environment variables. The
// variables may also come from a .env file, which lookup DSNs can reference
// as well.
type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" default:"warn"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	Pretty    bool   `envconfig:"PRETTY" default:"false"`
}

// loadConfig reads envFiles, .env by default, without overriding variables
// already set. A missing file is skipped.
func loadConfig(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("sheetmap", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) setupLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("bad log level %q: %w", c.LogLevel, err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	switch c.LogFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	default:
		return fmt.Errorf("bad log format %q (must be text or json)", c.LogFormat)
	}
	excel.SetLogger(log.StandardLogger())
	return nil
}
