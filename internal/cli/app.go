// Package cli is the interactive front end: a line-oriented REPL that
// prompts for credentials and book requests and drives a session.Machine.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/libcirc/internal/auth"
	"github.com/dmitrijs2005/libcirc/internal/catalog"
	"github.com/dmitrijs2005/libcirc/internal/circulation"
	"github.com/dmitrijs2005/libcirc/internal/config"
	"github.com/dmitrijs2005/libcirc/internal/events"
	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/session"
	"github.com/dmitrijs2005/libcirc/internal/store"
)

// ErrStartup marks failures that keep the tool from starting.
var ErrStartup = errors.New("startup failed")

type App struct {
	config    *config.Config
	logger    logging.Logger
	store     store.Store
	publisher events.Publisher
	machine   *session.Machine
	reader    *bufio.Reader
	out       io.Writer
}

// Test seams for the outside world.
var (
	openStore    = store.Open
	newPublisher = func(url, exchange string) (events.Publisher, error) {
		return events.NewRabbitPublisher(url, exchange)
	}
)

// NewApp opens the store, seeds the catalog and wires the session machine.
// Any error wraps ErrStartup.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out io.Writer) (*App, error) {
	logger := logging.NewJSONLogger(os.Stderr, c.LogLevel)

	s, err := openStore(ctx, store.Options{
		Driver:          c.Driver,
		DSN:             c.DatabaseDSN,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open store: %w", ErrStartup, err)
	}

	if c.SeedFile != "" {
		books, err := catalog.LoadSeedFile(c.SeedFile)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("%w: %w", ErrStartup, err)
		}
		added, err := catalog.Seed(ctx, s, books)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("%w: %w", ErrStartup, err)
		}
		logger.Info(ctx, "catalog seeded", "file", c.SeedFile, "added", added, "listed", len(books))
	}

	var pub events.Publisher = events.Nop{}
	if c.AMQPURL != "" {
		p, err := newPublisher(c.AMQPURL, c.AMQPExchange)
		if err != nil {
			logger.Warn(ctx, "event publishing disabled", "error", err)
		} else {
			pub = p
		}
	}

	gateway := auth.NewGateway(s, []byte(c.SecretKey), c.SessionTTL, logger)
	engine := circulation.NewEngine(s, pub, logger, circulation.Options{
		LockTimeout:    c.LockTimeout,
		RetryAttempts:  c.RetryAttempts,
		RetryBaseDelay: c.RetryBaseDelay,
	})

	return &App{
		config:    c,
		logger:    logger,
		store:     s,
		publisher: pub,
		machine:   session.NewMachine(gateway, engine, logger),
		reader:    bufio.NewReader(in),
		out:       out,
	}, nil
}

// Run serves the REPL until input ends or the user exits, then releases the
// store and the publisher.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Library circulation (type 'help' for commands)")
	runREPL(ctx, a, a.status, a.reader, a.out)

	if err := a.Close(); err != nil {
		a.logger.Error(ctx, "shutdown", "error", err)
	}
}

func (a *App) Close() error {
	return errors.Join(a.publisher.Close(), a.store.Close())
}

func (a *App) isLoggedIn() bool {
	return a.machine.State() == session.Authenticated
}

func (a *App) status() string {
	if sess := a.machine.Session(); sess != nil {
		return "(" + sess.UserName + ")"
	}
	return ""
}
