package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/koulio-auth/internal/flagx"
	"github.com/dmitrijs2005/koulio-auth/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify the timeout either as
// a string like "5s" or as integer nanoseconds.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	RequestTimeout timex.Duration `json:"request_timeout"`
	Retries        *uint64        `json:"retries"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config. Absent keys keep their current values.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.RequestTimeout.Duration != 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.Retries != nil {
		cfg.Retries = *jc.Retries
	}
	return nil
}
