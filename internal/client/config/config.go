package config

import (
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/filex"
	"github.com/spf13/cobra"
)

const (
	DataDirName  = ".sanposhin"
	DatabaseFile = "sanposhin.db"
)

// Config holds runtime settings for the CLI.
type Config struct {
	ServerURL           string
	HealthAddr          string
	DatabasePath        string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	LogLevel            string
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.HealthAddr = "127.0.0.1:50051"
	c.DatabasePath = ""
	c.OnlineCheckInterval = 10 * time.Second
	c.RequestTimeout = 15 * time.Second
	c.LogLevel = "warn"
}

// Load builds the configuration for cmd: defaults, then the JSON file, then
// any flag the user set. Flags must have been registered with BindFlags.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, configPath(cmd)); err != nil {
		return nil, err
	}
	if err := applyFlags(cfg, cmd); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveDatabasePath returns DatabasePath, creating the default data
// directory under the working directory when none is configured.
func (c *Config) ResolveDatabasePath() (string, error) {
	if c.DatabasePath != "" {
		return c.DatabasePath, nil
	}
	dir, err := filex.EnsureSubDir("", DataDirName)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DatabaseFile), nil
}
