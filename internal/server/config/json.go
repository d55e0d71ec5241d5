package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/sanposhin/internal/flagx"
	"github.com/dmitrijs2005/sanposhin/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations use timex.Duration so
// both "90s" and integer nanoseconds are accepted.
type JsonConfig struct {
	HTTPAddr                    string         `json:"http_addr"`
	GRPCHealthAddr              string         `json:"grpc_health_addr"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	S3PublicBaseURL             string         `json:"s3_public_base_url"`
	AnthropicAPIKey             string         `json:"anthropic_api_key"`
	AnthropicModel              string         `json:"anthropic_model"`
	AnthropicBaseURL            string         `json:"anthropic_base_url"`
	AnthropicTimeout            timex.Duration `json:"anthropic_timeout"`
	RateLimitStore              string         `json:"rate_limit_store"`
	LogLevel                    string         `json:"log_level"`
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

// parseJson overlays values from the JSON file named by -c/-config (or
// $SANPOSHIN_CONFIG) onto config. Keys that are absent keep their current
// value. An unreadable file or invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.HTTPAddr, c.HTTPAddr)
	overlay(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration.Duration)
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	overlay(&config.AnthropicAPIKey, c.AnthropicAPIKey)
	overlay(&config.AnthropicModel, c.AnthropicModel)
	overlay(&config.AnthropicBaseURL, c.AnthropicBaseURL)
	overlay(&config.AnthropicTimeout, c.AnthropicTimeout.Duration)
	overlay(&config.RateLimitStore, c.RateLimitStore)
	overlay(&config.LogLevel, c.LogLevel)
}
