package config

import (
	"flag"

	"github.com/dmitrijs2005/docvault/internal/flagx"
)

// parseFlags overlays cfg with short command-line flags:
//
//	-d string   PostgreSQL DSN
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket
//	-g string   S3 region
//	-e string   S3 base endpoint
//	-k string   OAuth client id
//	-r string   OAuth redirect listen address
//	-s string   secure store directory
//	-n int      page size
//	-l string   log level
//
// Only these flags are looked at; everything else in args is ignored.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-d", "-u", "-p", "-b", "-g", "-e", "-k", "-r", "-s", "-n", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.S3AccessKey, "u", cfg.S3AccessKey, "S3 access key")
	fs.StringVar(&cfg.S3SecretKey, "p", cfg.S3SecretKey, "S3 secret key")
	fs.StringVar(&cfg.S3Bucket, "b", cfg.S3Bucket, "S3 bucket")
	fs.StringVar(&cfg.S3Region, "g", cfg.S3Region, "S3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "e", cfg.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&cfg.OAuthClientID, "k", cfg.OAuthClientID, "OAuth client id")
	fs.StringVar(&cfg.OAuthRedirectAddr, "r", cfg.OAuthRedirectAddr, "OAuth redirect listen address")
	fs.StringVar(&cfg.SecureStorePath, "s", cfg.SecureStorePath, "secure store directory")
	fs.IntVar(&cfg.PageSize, "n", cfg.PageSize, "items per page")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
