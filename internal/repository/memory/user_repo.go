// Package memory contains in-process implementations of repository interfaces.
package memory

import (
	"context"

	"github.com/hugo-r/server-challenge/internal/crypto"
	"github.com/hugo-r/server-challenge/internal/errs"
	"github.com/hugo-r/server-challenge/internal/model"
)

// DemoUsers is the built-in credential list used when no other source is configured.
var DemoUsers = []model.User{
	{ID: 1, Name: "bia", Secret: "b"},
	{ID: 2, Name: "hugo", Secret: "h"},
}

// UserRepo implements UserRepository over a static list.
type UserRepo struct {
	users []model.User
}

// NewUserRepo copies users; the list never changes afterwards.
func NewUserRepo(users []model.User) *UserRepo {
	return &UserRepo{users: append([]model.User(nil), users...)}
}

// GetByID finds a user by ID.
func (r *UserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	for i := range r.users {
		if r.users[i].ID == id {
			u := r.users[i]
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

// GetByCredentials finds a user whose name and secret match exactly.
func (r *UserRepo) GetByCredentials(_ context.Context, name, secret string) (*model.User, error) {
	for i := range r.users {
		if r.users[i].Name == name && crypto.SecretEqual(r.users[i].Secret, secret) {
			u := r.users[i]
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}
