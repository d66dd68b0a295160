package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/eventsignup/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-k string   database driver ("pgx" or "sqlite")
//	-d string   database DSN
//	-s string   session cookie HMAC secret
//	-m int      maximum number of participants
//	-l int      session lifetime, seconds
//
// os.Args is filtered with flagx.FilterArgs first, so -c/-config and flags of
// other components do not make parsing fail.
func parseFlags(config *Config) error {
	return parseFlagArgs(config, os.Args[1:])
}

func parseFlagArgs(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-k", "-d", "-s", "-m", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDriver, "k", config.DatabaseDriver, "database driver (pgx|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.IntVar(&config.MaxParticipants, "m", config.MaxParticipants, "maximum number of participants")
	lifetime := fs.Int("l", int(config.SessionLifetime.Seconds()), "session lifetime (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.SessionLifetime = time.Duration(*lifetime) * time.Second
	return nil
}
