package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/koulio-auth/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     base URL of the auth server
//	-t duration   per-request timeout, e.g. 5s
//	-r uint       retries for idempotent requests
//
// The args are filtered with flagx.FilterArgs first, so flags meant for
// other components (like -c) do not trip the parser.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-t", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the auth server")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "per-request timeout")
	fs.Uint64Var(&cfg.Retries, "r", cfg.Retries, "retries for idempotent requests")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
