// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/hugo-r/server-challenge/internal/model"
)

// UserRepository is the read-only credential store.
type UserRepository interface {
	// GetByID loads a user by ID; used to restore a session.
	GetByID(ctx context.Context, id int64) (*model.User, error)
	// GetByCredentials loads the user whose name and secret both match exactly.
	GetByCredentials(ctx context.Context, name, secret string) (*model.User, error)
}
