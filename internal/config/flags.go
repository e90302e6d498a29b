package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/libcirc/internal/flagx"
)

// parseFlags populates Config fields from short command-line flags.
//
//	-d string   store driver: postgres, sqlite or memory
//	-s string   database DSN
//	-k string   session signing key
//	-t int      session TTL, minutes
//	-w int      per-book lock timeout, seconds
//	-r int      conflict retry attempts
//	-m string   AMQP URL for event publishing
//	-f string   catalog seed file
//	-l string   log level
//
// Arguments other than these are ignored so -c and positional arguments do
// not upset the flag set.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-d", "-s", "-k", "-t", "-w", "-r", "-m", "-f", "-l"})

	fs := flag.NewFlagSet("libcirc", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Driver, "d", cfg.Driver, "store driver")
	fs.StringVar(&cfg.DatabaseDSN, "s", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.SecretKey, "k", cfg.SecretKey, "session signing key")
	sessionTTL := fs.Int("t", int(cfg.SessionTTL.Minutes()), "session TTL (in minutes)")
	lockTimeout := fs.Int("w", int(cfg.LockTimeout.Seconds()), "book lock timeout (in seconds)")
	fs.IntVar(&cfg.RetryAttempts, "r", cfg.RetryAttempts, "conflict retry attempts")
	fs.StringVar(&cfg.AMQPURL, "m", cfg.AMQPURL, "AMQP URL")
	fs.StringVar(&cfg.SeedFile, "f", cfg.SeedFile, "catalog seed file")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// only overwrite durations that were given, keeping sub-unit file values
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			cfg.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		case "w":
			cfg.LockTimeout = time.Duration(*lockTimeout) * time.Second
		}
	})
	return nil
}
