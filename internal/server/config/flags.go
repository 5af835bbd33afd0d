package config

import (
	"flag"
	"os"

	"github.com/bloomlabs/bloom/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-k string   hex-encoded master key
//	-u string   public base URL
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-u"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.MasterKey, "k", config.MasterKey, "hex-encoded master key")
	fs.StringVar(&config.BaseURL, "u", config.BaseURL, "public base URL")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
