// Package config loads runtime configuration for the koulio CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment variables KOULIO_SERVER_URL, KOULIO_REQUEST_TIMEOUT and
//     KOULIO_RETRIES.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:5000",
//	  "request_timeout": "10s",
//	  "retries": 2
//	}
package config
