package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/flagx"
	"github.com/spf13/cobra"
)

const (
	flagConfig        = "config"
	flagServer        = "server"
	flagHealth        = "health-addr"
	flagDatabase      = "db"
	flagCheckInterval = "check-interval"
	flagTimeout       = "timeout"
	flagLogLevel      = "log-level"
)

// BindFlags registers the configuration flags on cmd and its children.
func BindFlags(cmd *cobra.Command) {
	var d Config
	d.LoadDefaults()

	pf := cmd.PersistentFlags()
	pf.StringP(flagConfig, "c", "", "path to a JSON config file (or $"+flagx.ConfigPathEnv+")")
	pf.StringP(flagServer, "a", d.ServerURL, "base URL of the sanposhin API")
	pf.String(flagHealth, d.HealthAddr, "host:port of the gRPC health endpoint")
	pf.String(flagDatabase, d.DatabasePath, "path of the local SQLite database (default ./"+DataDirName+"/"+DatabaseFile+")")
	pf.DurationP(flagCheckInterval, "i", d.OnlineCheckInterval, "how often connectivity is checked")
	pf.Duration(flagTimeout, d.RequestTimeout, "timeout of a single API request")
	pf.String(flagLogLevel, d.LogLevel, "log level: debug, info, warn or error")
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString(flagConfig)
	if path == "" {
		path = os.Getenv(flagx.ConfigPathEnv)
	}
	return path
}

// applyFlags overlays only the flags given on the command line, so values
// from the JSON file survive flag defaults.
func applyFlags(cfg *Config, cmd *cobra.Command) error {
	fs := cmd.Flags()

	strs := map[string]*string{
		flagServer:   &cfg.ServerURL,
		flagHealth:   &cfg.HealthAddr,
		flagDatabase: &cfg.DatabasePath,
		flagLogLevel: &cfg.LogLevel,
	}
	for name, dst := range strs {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetString(name)
		if err != nil {
			return err
		}
		*dst = v
	}

	durations := map[string]*time.Duration{
		flagCheckInterval: &cfg.OnlineCheckInterval,
		flagTimeout:       &cfg.RequestTimeout,
	}
	for name, dst := range durations {
		if !fs.Changed(name) {
			continue
		}
		v, err := fs.GetDuration(name)
		if err != nil {
			return err
		}
		*dst = v
	}
	return nil
}
