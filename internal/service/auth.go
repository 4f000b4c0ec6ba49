// Package service contains application services for authentication and todos.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugo-r/server-challenge/internal/errs"
	"github.com/hugo-r/server-challenge/internal/limiter"
	"github.com/hugo-r/server-challenge/internal/model"
	"github.com/hugo-r/server-challenge/internal/repository"
)

// AuthService defines login and session validation.
type AuthService interface {
	// LoginWithIP applies rate-limiting, checks credentials and issues a session token.
	LoginWithIP(ctx context.Context, name, secret, ip string) (model.SessionToken, model.User, error)
	// ValidateSession resolves a session token back to its user.
	ValidateSession(ctx context.Context, token string) (model.User, error)
}

// TokenCodec signs and verifies session tokens.
type TokenCodec interface {
	Encode(userID int64) (model.SessionToken, error)
	Decode(token string) (int64, error)
}

type AuthServiceImpl struct {
	users repository.UserRepository
	codec TokenCodec
	lim   limiter.Limiter
}

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, codec TokenCodec, lim limiter.Limiter) *AuthServiceImpl {
	if lim == nil {
		lim = limiter.Nop{}
	}
	return &AuthServiceImpl{users: users, codec: codec, lim: lim}
}

// LoginWithIP authenticates with rate limiting by (name, ip).
func (s *AuthServiceImpl) LoginWithIP(ctx context.Context, name, secret, ip string) (model.SessionToken, model.User, error) {
	if name == "" || secret == "" {
		return model.SessionToken{}, model.User{}, errs.ErrMissingFields
	}

	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, name, ipHash)
	if err != nil {
		return model.SessionToken{}, model.User{}, fmt.Errorf("limiter allow: %w", err)
	}
	if !allowed {
		return model.SessionToken{}, model.User{}, errs.ErrRateLimited
	}

	u, err := s.users.GetByCredentials(ctx, name, secret)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			return model.SessionToken{}, model.User{}, fmt.Errorf("lookup user: %w", err)
		}
		if blocked, _, ferr := s.lim.Failure(ctx, name, ipHash); ferr == nil && blocked {
			return model.SessionToken{}, model.User{}, errs.ErrRateLimited
		}
		return model.SessionToken{}, model.User{}, errs.ErrInvalidCredentials
	}

	// best-effort
	_ = s.lim.Success(ctx, name, ipHash)

	tok, err := s.codec.Encode(u.ID)
	if err != nil {
		return model.SessionToken{}, model.User{}, fmt.Errorf("issue session: %w", err)
	}
	return tok, *u, nil
}

// ValidateSession decodes token and loads its user. A valid signature for a
// user that no longer resolves is still an invalid session.
func (s *AuthServiceImpl) ValidateSession(ctx context.Context, token string) (model.User, error) {
	id, err := s.codec.Decode(token)
	if err != nil {
		return model.User{}, err
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.User{}, fmt.Errorf("%w: unknown user %d", errs.ErrInvalidSession, id)
		}
		return model.User{}, fmt.Errorf("load session user: %w", err)
	}
	return *u, nil
}
