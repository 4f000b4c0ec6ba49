package repository

import (
	"context"

	"github.com/hugo-r/server-challenge/internal/model"
)

// TodoRepository provides per-user access to todos. Every lookup is scoped
// by userID; a todo of another user is reported as errs.ErrNotFound.
type TodoRepository interface {
	// NextID returns the next value of the global, never-reused id sequence.
	NextID() int64

	// Create stores a new INCOMPLETE todo with a trimmed description.
	Create(ctx context.Context, userID int64, description string) (model.Todo, error)

	// List returns the user's todos, filtered and ordered per q.
	List(ctx context.Context, userID int64, q model.ListQuery) ([]model.Todo, error)

	// Update merges patch over an INCOMPLETE todo.
	Update(ctx context.Context, userID, todoID int64, patch model.TodoPatch) (model.Todo, error)

	// Delete removes a todo.
	Delete(ctx context.Context, userID, todoID int64) error
}
