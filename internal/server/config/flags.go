package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/koulio-auth/internal/flagx"
)

var serverFlags = []string{"-a", "-d", "-s", "-t", "-r", "-b", "-q", "-m", "-l", "-o"}

// parseFlags populates Config fields from command-line flags.
//
//	-a string     HTTP bind address (e.g. ":5000")
//	-d string     PostgreSQL DSN
//	-s string     JWT HMAC secret key
//	-t duration   access token validity (e.g. "24h")
//	-r duration   refresh token validity (e.g. "720h")
//	-b int        bcrypt cost
//	-q duration   per-request database timeout
//	-m string     gin mode (debug, release, test)
//	-l string     log level
//	-o string     OTLP/HTTP traces endpoint
//
// Arguments not listed above are filtered out first, so the JSON config flag
// does not trip the parser.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret key")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.DurationVar(&config.RefreshTokenValidityDuration, "r", config.RefreshTokenValidityDuration, "refresh token validity")
	fs.IntVar(&config.BcryptCost, "b", config.BcryptCost, "bcrypt cost")
	fs.DurationVar(&config.DBQueryTimeout, "q", config.DBQueryTimeout, "database query timeout")
	fs.StringVar(&config.GinMode, "m", config.GinMode, "gin mode")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.OTELEndpoint, "o", config.OTELEndpoint, "OTLP traces endpoint")

	return fs.Parse(flagx.FilterArgs(args, serverFlags))
}
