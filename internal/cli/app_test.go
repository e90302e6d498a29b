package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/config"
	"github.com/dmitrijs2005/libcirc/internal/events"
	"github.com/dmitrijs2005/libcirc/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	seed := filepath.Join(t.TempDir(), "books.yaml")
	require.NoError(t, os.WriteFile(seed, []byte("books:\n  - id: 1\n    title: Dune\n    total: 5\n"), 0o600))

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Driver = store.DriverMemory
	cfg.SeedFile = seed
	cfg.LogLevel = "error"
	return cfg
}

func pipedInput(t *testing.T) {
	t.Helper()
	old := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = old })
}

func TestApp_Session(t *testing.T) {
	pipedInput(t)

	script := strings.Join([]string{
		"borrow 1 1",
		"register", "Alice", "alice", "wonderland",
		"login", "alice", "wrong",
		"login", "alice", "wonderland",
		"borrow 1 3",
		"borrow", "x", "1", "3",
		"return 1 1",
		"return", "1", "9",
		"return 1 0",
		"available 1",
		"loans",
		"logout",
		"exit",
	}, "\n") + "\n"

	var out bytes.Buffer
	app, err := NewApp(context.Background(), testConfig(t), strings.NewReader(script), &out)
	require.NoError(t, err)
	app.Run(context.Background())

	got := out.String()
	for _, want := range []string{
		"Please log in first",
		"Registered - you can log in now",
		"Invalid username or password",
		"Welcome, Alice",
		`Borrowed 3 of "Dune" (#1) - you now hold 3, 2 left on the shelf`,
		`"x" is not a number`,
		"We only have 2 copies of book #1",
		`Returned 1 of "Dune" (#1) - you still hold 2`,
		"You're returning more than you hold (2)",
		"#1 Dune: 3 of 5 available",
		"book #1: 2",
		"See you soon",
	} {
		assert.Contains(t, got, want)
	}
	assert.Contains(t, got, "lib (alice)> ")
	assert.NotContains(t, got, "> \n", "prompt keeps the cursor on its line")
}

func TestApp_DuplicateRegistration(t *testing.T) {
	pipedInput(t)

	script := "register\nAlice\nalice\npw\nregister\nOther\nalice\npw2\n"
	var out bytes.Buffer
	app, err := NewApp(context.Background(), testConfig(t), strings.NewReader(script), &out)
	require.NoError(t, err)
	app.Run(context.Background())

	assert.Contains(t, out.String(), "That username is taken")
}

func TestNewApp_StoreFailure(t *testing.T) {
	old := openStore
	t.Cleanup(func() { openStore = old })
	openStore = func(context.Context, store.Options) (store.Store, error) {
		return nil, common.ErrConnectionLost
	}

	_, err := NewApp(context.Background(), testConfig(t), strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrStartup)
	assert.ErrorIs(t, err, common.ErrConnectionLost)
}

func TestNewApp_PassesPoolSettings(t *testing.T) {
	old := openStore
	t.Cleanup(func() { openStore = old })
	var got store.Options
	openStore = func(_ context.Context, opts store.Options) (store.Store, error) {
		got = opts
		return store.NewMemoryStore(), nil
	}

	cfg := testConfig(t)
	cfg.MaxOpenConns = 7
	cfg.ConnMaxLifetime = time.Hour
	cfg.ConnMaxIdleTime = 90 * time.Second

	app, err := NewApp(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	assert.Equal(t, store.Options{
		Driver:          cfg.Driver,
		DSN:             cfg.DatabaseDSN,
		MaxOpenConns:    7,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 90 * time.Second,
	}, got)
}

func TestNewApp_BadSeedFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.SeedFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := NewApp(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrStartup)
}

type closingPublisher struct {
	events.Nop
	closed bool
}

func (p *closingPublisher) Close() error {
	p.closed = true
	return nil
}

func TestNewApp_Publisher(t *testing.T) {
	old := newPublisher
	t.Cleanup(func() { newPublisher = old })

	pub := &closingPublisher{}
	var gotURL, gotExchange string
	newPublisher = func(url, exchange string) (events.Publisher, error) {
		gotURL, gotExchange = url, exchange
		return pub, nil
	}

	cfg := testConfig(t)
	cfg.AMQPURL = "amqp://localhost"
	app, err := NewApp(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "amqp://localhost", gotURL)
	assert.Equal(t, "libcirc.circulation", gotExchange)

	require.NoError(t, app.Close())
	assert.True(t, pub.closed)
}

func TestNewApp_PublisherUnavailableIsNotFatal(t *testing.T) {
	old := newPublisher
	t.Cleanup(func() { newPublisher = old })
	newPublisher = func(string, string) (events.Publisher, error) { return nil, errors.New("refused") }

	cfg := testConfig(t)
	cfg.AMQPURL = "amqp://localhost"
	app, err := NewApp(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	assert.IsType(t, events.Nop{}, app.publisher)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "We only have 2 copies of book #1 - try again",
		describe(&common.InsufficientStockError{BookID: 1, Requested: 3, Available: 2}))
	assert.Equal(t, "There is no record of that loan - try again", describe(common.ErrNoSuchLoan))
	assert.Equal(t, "The book is busy right now - try again", describe(common.ErrTransactionConflict))
	assert.Equal(t, "Error: boom", describe(errors.New("boom")))
}

func TestSessionTTLFromConfig(t *testing.T) {
	pipedInput(t)

	cfg := testConfig(t)
	cfg.SessionTTL = time.Nanosecond
	script := "register\nBob\nbob\npw\nlogin\nbob\npw\nloans\n"

	var out bytes.Buffer
	app, err := NewApp(context.Background(), cfg, strings.NewReader(script), &out)
	require.NoError(t, err)
	app.Run(context.Background())

	assert.Contains(t, out.String(), "Your session has expired")
}
