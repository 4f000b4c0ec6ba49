// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"time"
)

// User is an account known to the credential store. Fixed for the process lifetime.
type User struct {
	ID     int64
	Name   string
	Secret string
}

// SessionToken is the signed cookie value issued on login.
type SessionToken struct {
	Value     string
	ExpiresAt time.Time // zero when the token carries no expiry
}

// State is the lifecycle state of a todo. COMPLETE is terminal.
type State string

const (
	StateIncomplete State = "INCOMPLETE"
	StateComplete   State = "COMPLETE"
)

// ParseState validates a state name.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StateIncomplete, StateComplete:
		return State(s), nil
	}
	return "", fmt.Errorf("unknown state %q", s)
}

// Todo is a single to-do item owned by exactly one user.
type Todo struct {
	ID          int64 // assigned from the global sequence
	Description string
	State       State
	DateAdded   time.Time
}

// TodoPatch carries the optional fields of an update; nil means "keep".
type TodoPatch struct {
	State       *State
	Description *string
}

// Filter restricts a listing by state. FilterAll disables filtering.
type Filter string

const (
	FilterAll        Filter = ""
	FilterComplete   Filter = Filter(StateComplete)
	FilterIncomplete Filter = Filter(StateIncomplete)
)

// ParseFilter accepts "", "all", COMPLETE and INCOMPLETE.
func ParseFilter(s string) (Filter, error) {
	switch s {
	case "", "all":
		return FilterAll, nil
	case string(FilterComplete), string(FilterIncomplete):
		return Filter(s), nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Match reports whether a todo passes the filter.
func (f Filter) Match(t Todo) bool {
	return f == FilterAll || State(f) == t.State
}

// OrderBy selects the sort key of a listing.
type OrderBy string

const (
	OrderByDateAdded   OrderBy = "DATE_ADDED"
	OrderByDescription OrderBy = "DESCRIPTION"
)

// ParseOrderBy defaults to DATE_ADDED when s is empty.
func ParseOrderBy(s string) (OrderBy, error) {
	switch OrderBy(s) {
	case "":
		return OrderByDateAdded, nil
	case OrderByDateAdded, OrderByDescription:
		return OrderBy(s), nil
	}
	return "", fmt.Errorf("unknown order %q", s)
}

// ListQuery parameterizes a listing.
type ListQuery struct {
	Filter  Filter
	OrderBy OrderBy
}
