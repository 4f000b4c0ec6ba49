// Package convert maps domain todos to and from their JSON wire form.
package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/hugo-r/server-challenge/internal/errs"
	"github.com/hugo-r/server-challenge/internal/model"
)

// DateLayout is RFC 3339 in UTC with millisecond precision.
const DateLayout = "2006-01-02T15:04:05.000Z07:00"

// TodoJSON is the wire form of a todo.
type TodoJSON struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	State       string `json:"state"`
	DateAdded   string `json:"dateAdded"`
}

// TodoList is the body of GET /todos.
type TodoList struct {
	Todos []TodoJSON `json:"todos"`
}

// CreateRequest is the body of PUT /todos.
type CreateRequest struct {
	Description string `json:"description" form:"description"`
}

// PatchRequest is the body of PATCH /todo/:id. Empty fields are omitted fields.
type PatchRequest struct {
	State       string `json:"state" form:"state"`
	Description string `json:"description" form:"description"`
}

// ToTodoJSON converts a domain todo.
func ToTodoJSON(t model.Todo) TodoJSON {
	return TodoJSON{
		ID:          t.ID,
		Description: t.Description,
		State:       string(t.State),
		DateAdded:   t.DateAdded.UTC().Format(DateLayout),
	}
}

// ToTodoList converts a listing; the result always marshals to an array.
func ToTodoList(ts []model.Todo) TodoList {
	out := make([]TodoJSON, 0, len(ts))
	for _, t := range ts {
		out = append(out, ToTodoJSON(t))
	}
	return TodoList{Todos: out}
}

// FromTodoJSON converts the wire form back; used by clients.
func FromTodoJSON(in TodoJSON) (model.Todo, error) {
	st, err := model.ParseState(in.State)
	if err != nil {
		return model.Todo{}, err
	}
	added, err := time.Parse(time.RFC3339, in.DateAdded)
	if err != nil {
		return model.Todo{}, fmt.Errorf("invalid dateAdded: %w", err)
	}
	return model.Todo{ID: in.ID, Description: in.Description, State: st, DateAdded: added}, nil
}

// FromPatchRequest builds a patch; blank fields stay nil.
func FromPatchRequest(in PatchRequest) (model.TodoPatch, error) {
	var p model.TodoPatch
	if s := strings.TrimSpace(in.State); s != "" {
		st, err := model.ParseState(s)
		if err != nil {
			return model.TodoPatch{}, fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
		}
		p.State = &st
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		p.Description = &d
	}
	return p, nil
}
