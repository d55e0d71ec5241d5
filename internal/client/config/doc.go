// Package config loads runtime configuration for the sanposhin CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file named by --config, or $SANPOSHIN_CONFIG.
//  3. Persistent command-line flags, applied only when set explicitly.
//
// # JSON schema
//
// Durations use timex.Duration, so "10s" and integer nanoseconds both work:
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "health_addr": "127.0.0.1:50051",
//	  "database_path": "/home/me/.sanposhin/sanposhin.db",
//	  "online_check_interval": "10s",
//	  "request_timeout": "15s",
//	  "log_level": "info"
//	}
package config
