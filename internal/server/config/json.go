package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/koulio-auth/internal/flagx"
	"github.com/dmitrijs2005/koulio-auth/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// both "24h"-style strings and integer nanoseconds. Only non-zero values
// override the current configuration.
type JsonConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	DBQueryTimeout               timex.Duration `json:"db_query_timeout"`
	ShutdownTimeout              timex.Duration `json:"shutdown_timeout"`
	GinMode                      string         `json:"gin_mode"`
	LogLevel                     string         `json:"log_level"`
	OTELEndpoint                 string         `json:"otel_endpoint"`
}

// parseJson loads the file named by -c/-config, if any, into config.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.GinMode, c.GinMode)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.OTELEndpoint, c.OTELEndpoint)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.DBQueryTimeout.Duration != 0 {
		config.DBQueryTimeout = c.DBQueryTimeout.Duration
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
