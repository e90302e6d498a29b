// Package session sequences what a client may do: register or log in while
// anonymous, borrow and return while authenticated, and nothing after exit.
//
// An operation that is not allowed in the current state fails without a
// transition. A lost store connection or an expired session drops the
// machine back to Anonymous; validation errors keep the session.
package session

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/libcirc/internal/circulation"
	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/models"
)

type State int

const (
	Anonymous State = iota
	Authenticated
	Exited
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

var ErrExited = errors.New("session has exited")

type Authenticator interface {
	Register(ctx context.Context, userName, password, name string) (*models.Client, error)
	Authenticate(ctx context.Context, userName, password string) (*models.Session, error)
	Validate(sess *models.Session) error
}

type Circulation interface {
	Borrow(ctx context.Context, sess *models.Session, bookID int64, qty int) (circulation.Receipt, error)
	Return(ctx context.Context, sess *models.Session, bookID int64, qty int) (circulation.Receipt, error)
	Availability(ctx context.Context, bookID int64) (*models.Book, models.Stock, error)
	Loans(ctx context.Context, sess *models.Session) ([]models.Loan, error)
}

// Machine is not safe for concurrent use; each client session owns one.
type Machine struct {
	auth    Authenticator
	circ    Circulation
	logger  logging.Logger
	state   State
	session *models.Session
}

func NewMachine(a Authenticator, c Circulation, logger logging.Logger) *Machine {
	return &Machine{auth: a, circ: c, logger: logger.With("component", "session")}
}

func (m *Machine) State() State { return m.state }

// Session is the current session, nil unless Authenticated.
func (m *Machine) Session() *models.Session { return m.session }

// Register creates a client. The machine stays Anonymous; the new client
// logs in separately.
func (m *Machine) Register(ctx context.Context, userName, password, name string) (*models.Client, error) {
	if err := m.require(Anonymous); err != nil {
		return nil, err
	}
	return m.auth.Register(ctx, userName, password, name)
}

func (m *Machine) Login(ctx context.Context, userName, password string) (*models.Session, error) {
	if err := m.require(Anonymous); err != nil {
		return nil, err
	}
	sess, err := m.auth.Authenticate(ctx, userName, password)
	if err != nil {
		return nil, err
	}
	m.transition(ctx, Authenticated, sess)
	return sess, nil
}

func (m *Machine) Borrow(ctx context.Context, bookID int64, qty int) (circulation.Receipt, error) {
	if err := m.active(ctx); err != nil {
		return circulation.Receipt{}, err
	}
	r, err := m.circ.Borrow(ctx, m.session, bookID, qty)
	return r, m.settle(ctx, err)
}

func (m *Machine) Return(ctx context.Context, bookID int64, qty int) (circulation.Receipt, error) {
	if err := m.active(ctx); err != nil {
		return circulation.Receipt{}, err
	}
	r, err := m.circ.Return(ctx, m.session, bookID, qty)
	return r, m.settle(ctx, err)
}

func (m *Machine) Loans(ctx context.Context) ([]models.Loan, error) {
	if err := m.active(ctx); err != nil {
		return nil, err
	}
	loans, err := m.circ.Loans(ctx, m.session)
	return loans, m.settle(ctx, err)
}

// Availability may be asked by anyone who has not exited.
func (m *Machine) Availability(ctx context.Context, bookID int64) (*models.Book, models.Stock, error) {
	if m.state == Exited {
		return nil, models.Stock{}, ErrExited
	}
	b, st, err := m.circ.Availability(ctx, bookID)
	return b, st, m.settle(ctx, err)
}

func (m *Machine) Logout(ctx context.Context) error {
	if err := m.require(Authenticated); err != nil {
		return err
	}
	m.transition(ctx, Anonymous, nil)
	return nil
}

// Exit is allowed from every state and is final.
func (m *Machine) Exit(ctx context.Context) {
	if m.state != Exited {
		m.transition(ctx, Exited, nil)
	}
}

func (m *Machine) require(want State) error {
	switch {
	case m.state == want:
		return nil
	case m.state == Exited:
		return ErrExited
	case want == Anonymous:
		return common.ErrAlreadyLoggedIn
	default:
		return common.ErrNotLoggedIn
	}
}

// active checks that an authenticated, unexpired session is present.
func (m *Machine) active(ctx context.Context) error {
	if err := m.require(Authenticated); err != nil {
		return err
	}
	if err := m.auth.Validate(m.session); err != nil {
		m.logger.Info(ctx, "session ended", "user", m.session.UserName, "reason", err)
		m.transition(ctx, Anonymous, nil)
		return err
	}
	return nil
}

// settle ends the session on errors after which it cannot continue.
func (m *Machine) settle(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if m.state == Authenticated &&
		(errors.Is(err, common.ErrConnectionLost) || errors.Is(err, common.ErrSessionExpired)) {
		m.logger.Warn(ctx, "session ended", "user", m.session.UserName, "error", err)
		m.transition(ctx, Anonymous, nil)
	}
	return err
}

func (m *Machine) transition(ctx context.Context, to State, sess *models.Session) {
	m.logger.Debug(ctx, "state change", "from", m.state.String(), "to", to.String())
	m.state = to
	m.session = sess
}
