package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hugo-r/server-challenge/internal/crypto"
	"github.com/hugo-r/server-challenge/internal/errs"
	"github.com/hugo-r/server-challenge/internal/model"
)

// UserRepo implements UserRepository using PostgreSQL. It never writes.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `
SELECT id, name, secret
FROM users WHERE id=$1`
	var u model.User
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Name, &u.Secret); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("select user %d: %w", id, err)
	}
	return &u, nil
}

// GetByCredentials selects a user by name and compares the secret in constant time.
func (r *UserRepo) GetByCredentials(ctx context.Context, name, secret string) (*model.User, error) {
	const q = `
SELECT id, name, secret
FROM users WHERE name=$1`
	var u model.User
	if err := r.db.Pool.QueryRow(ctx, q, name).Scan(&u.ID, &u.Name, &u.Secret); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("select user by name: %w", err)
	}
	if !crypto.SecretEqual(u.Secret, secret) {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}
