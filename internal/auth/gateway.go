// Package auth registers clients, checks their credentials and issues the
// sessions that every circulation call carries.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/libcirc/internal/common"
	"github.com/dmitrijs2005/libcirc/internal/cryptox"
	"github.com/dmitrijs2005/libcirc/internal/logging"
	"github.com/dmitrijs2005/libcirc/internal/models"
	"github.com/dmitrijs2005/libcirc/internal/store"
)

type Gateway struct {
	store     store.Store
	secretKey []byte
	ttl       time.Duration
	logger    logging.Logger
	now       func() time.Time
}

func NewGateway(s store.Store, secretKey []byte, ttl time.Duration, logger logging.Logger) *Gateway {
	return &Gateway{
		store:     s,
		secretKey: secretKey,
		ttl:       ttl,
		logger:    logger.With("component", "auth"),
		now:       time.Now,
	}
}

// Register creates a client. An existing username yields
// common.ErrDuplicateUsername and leaves the stored client unchanged.
func (g *Gateway) Register(ctx context.Context, userName, password, name string) (*models.Client, error) {
	userName = strings.TrimSpace(userName)
	name = strings.TrimSpace(name)
	if userName == "" || password == "" || name == "" {
		return nil, fmt.Errorf("%w: username, password and name are required", common.ErrInvalidInput)
	}

	pw := []byte(password)
	defer common.WipeByteArray(pw)

	salt := cryptox.NewSalt()
	client := &models.Client{
		UserName: userName,
		Name:     name,
		Salt:     salt,
		Verifier: cryptox.DeriveVerifier(pw, salt),
	}

	err := g.store.WithTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.FindClient(ctx, userName)
		switch {
		case err == nil:
			return common.ErrDuplicateUsername
		case !errors.Is(err, common.ErrNotFound):
			return err
		}
		return tx.InsertClient(ctx, client)
	})
	switch {
	case errors.Is(err, common.ErrDuplicateUsername), errors.Is(err, common.ErrDuplicateKey):
		g.logger.Info(ctx, "registration rejected", "user", userName, "reason", "duplicate")
		return nil, fmt.Errorf("%w: %s", common.ErrDuplicateUsername, userName)
	case err != nil:
		return nil, fmt.Errorf("register %s: %w", userName, err)
	}

	g.logger.Info(ctx, "client registered", "user", userName)
	return client, nil
}

// Authenticate checks the password and opens a session. An unknown username
// and a wrong password are indistinguishable to the caller.
func (g *Gateway) Authenticate(ctx context.Context, userName, password string) (*models.Session, error) {
	pw := []byte(password)
	defer common.WipeByteArray(pw)

	client, err := g.store.FindClient(ctx, strings.TrimSpace(userName))
	if errors.Is(err, common.ErrNotFound) {
		// keep the timing of a miss close to a wrong password
		cryptox.CheckPassword(pw, cryptox.NewSalt(), nil)
		g.logger.Info(ctx, "login failed", "user", userName)
		return nil, common.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find client: %w", err)
	}

	if !cryptox.CheckPassword(pw, client.Salt, client.Verifier) {
		g.logger.Info(ctx, "login failed", "user", userName)
		return nil, common.ErrInvalidCredentials
	}

	issued := g.now()
	id := uuid.NewString()
	token, err := GenerateToken(id, client.UserName, client.Name, g.secretKey, issued, g.ttl)
	if err != nil {
		return nil, err
	}

	g.logger.Info(ctx, "login", "user", client.UserName, "session", id)
	return &models.Session{
		ID:        id,
		UserName:  client.UserName,
		Name:      client.Name,
		Token:     token,
		ExpiresAt: issued.Add(g.ttl),
	}, nil
}

// Validate reports common.ErrSessionExpired for a session whose token has
// expired, was not issued by this gateway or does not match the session.
func (g *Gateway) Validate(sess *models.Session) error {
	if sess == nil {
		return common.ErrNotLoggedIn
	}
	claims, err := ParseToken(sess.Token, g.secretKey, g.now)
	if err != nil {
		return err
	}
	if claims.ID != sess.ID || claims.Subject != sess.UserName {
		return fmt.Errorf("%w: token does not belong to session", common.ErrSessionExpired)
	}
	return nil
}
