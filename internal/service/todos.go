package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hugo-r/server-challenge/internal/errs"
	"github.com/hugo-r/server-challenge/internal/model"
	"github.com/hugo-r/server-challenge/internal/repository"
)

// TodoService defines per-user operations over todos.
type TodoService interface {
	// Create adds an INCOMPLETE todo for the user.
	Create(ctx context.Context, userID int64, description string) (model.Todo, error)
	// List returns the user's todos, filtered and ordered.
	List(ctx context.Context, userID int64, q model.ListQuery) ([]model.Todo, error)
	// Update merges a patch into an INCOMPLETE todo.
	Update(ctx context.Context, userID, todoID int64, patch model.TodoPatch) (model.Todo, error)
	// Delete removes a todo.
	Delete(ctx context.Context, userID, todoID int64) error
}

type TodoServiceImpl struct {
	repo repository.TodoRepository
}

// NewTodoService constructs TodoService over repo.
func NewTodoService(repo repository.TodoRepository) *TodoServiceImpl {
	return &TodoServiceImpl{repo: repo}
}

func checkIDs(userID int64, todoID ...int64) error {
	if userID <= 0 {
		return fmt.Errorf("%w: user id %d", errs.ErrInvalidArgument, userID)
	}
	for _, id := range todoID {
		if id <= 0 {
			return fmt.Errorf("%w: todo id %d", errs.ErrInvalidArgument, id)
		}
	}
	return nil
}

// Create validates input and delegates to the repository.
func (s *TodoServiceImpl) Create(ctx context.Context, userID int64, description string) (model.Todo, error) {
	if err := checkIDs(userID); err != nil {
		return model.Todo{}, err
	}
	if strings.TrimSpace(description) == "" {
		return model.Todo{}, errs.ErrInvalidDescription
	}
	return s.repo.Create(ctx, userID, description)
}

// List validates the query enums; an empty OrderBy means DATE_ADDED.
func (s *TodoServiceImpl) List(ctx context.Context, userID int64, q model.ListQuery) ([]model.Todo, error) {
	if err := checkIDs(userID); err != nil {
		return nil, err
	}
	f, err := model.ParseFilter(string(q.Filter))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}
	o, err := model.ParseOrderBy(string(q.OrderBy))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}
	return s.repo.List(ctx, userID, model.ListQuery{Filter: f, OrderBy: o})
}

// Update validates ids and the target state; blank fields are left to the
// repository, which treats them as omitted.
func (s *TodoServiceImpl) Update(ctx context.Context, userID, todoID int64, patch model.TodoPatch) (model.Todo, error) {
	if err := checkIDs(userID, todoID); err != nil {
		return model.Todo{}, err
	}
	if patch.State != nil && *patch.State != "" {
		if _, err := model.ParseState(string(*patch.State)); err != nil {
			return model.Todo{}, fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
		}
	}
	return s.repo.Update(ctx, userID, todoID, patch)
}

// Delete validates ids and delegates.
func (s *TodoServiceImpl) Delete(ctx context.Context, userID, todoID int64) error {
	if err := checkIDs(userID, todoID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, userID, todoID)
}
