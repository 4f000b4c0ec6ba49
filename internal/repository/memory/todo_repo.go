package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hugo-r/server-challenge/internal/cache"
	"github.com/hugo-r/server-challenge/internal/errs"
	"github.com/hugo-r/server-challenge/internal/model"
)

const todoSegment = "todos"

// TodoKey is the storage id of a todo: owner and todo id.
type TodoKey struct {
	UserID int64
	TodoID int64
}

func (k TodoKey) String() string { return fmt.Sprintf("%d_%d", k.UserID, k.TodoID) }

// TodoCache is the cache instance a TodoRepo stores into.
type TodoCache = cache.Cache[TodoKey, model.Todo]

// TodoRepo implements TodoRepository on top of the expiring cache.
//
// The cache cannot enumerate, so the repo keeps an ordered index of the keys
// it believes live. Entries that expired under it are skipped on List.
type TodoRepo struct {
	store *TodoCache
	ttl   time.Duration
	seq   atomic.Int64
	now   func() time.Time

	mu   sync.Mutex
	live []TodoKey // creation order
}

// NewTodoRepo constructs a repository; ttl applies to every write.
func NewTodoRepo(store *TodoCache, ttl time.Duration) *TodoRepo {
	return &TodoRepo{store: store, ttl: ttl, now: time.Now}
}

func cacheKey(k TodoKey) cache.Key[TodoKey] {
	return cache.Key[TodoKey]{Segment: todoSegment, ID: k}
}

// NextID returns 1, 2, 3... shared by all users.
func (r *TodoRepo) NextID() int64 { return r.seq.Add(1) }

// Create trims the description, assigns an id and stores the todo.
func (r *TodoRepo) Create(_ context.Context, userID int64, description string) (model.Todo, error) {
	desc := strings.TrimSpace(description)
	if desc == "" {
		return model.Todo{}, errs.ErrInvalidDescription
	}

	t := model.Todo{
		ID:          r.NextID(),
		Description: desc,
		State:       model.StateIncomplete,
		DateAdded:   r.now(),
	}
	key := TodoKey{UserID: userID, TodoID: t.ID}
	if err := r.store.Set(cacheKey(key), t, r.ttl); err != nil {
		return model.Todo{}, fmt.Errorf("store todo %s: %w", key, err)
	}

	r.mu.Lock()
	r.live = append(r.live, key)
	r.mu.Unlock()

	return t, nil
}

// List returns the user's live todos, filtered then ordered.
func (r *TodoRepo) List(_ context.Context, userID int64, q model.ListQuery) ([]model.Todo, error) {
	r.mu.Lock()
	keys := make([]TodoKey, 0, len(r.live))
	for _, k := range r.live {
		if k.UserID == userID {
			keys = append(keys, k)
		}
	}
	r.mu.Unlock()

	out := make([]model.Todo, 0, len(keys))
	for _, k := range keys {
		t, err := r.store.Get(cacheKey(k))
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load todo %s: %w", k, err)
		}
		if q.Filter.Match(t) {
			out = append(out, t)
		}
	}

	sortTodos(out, q.OrderBy)
	return out, nil
}

func sortTodos(todos []model.Todo, by model.OrderBy) {
	switch by {
	case model.OrderByDescription:
		slices.SortStableFunc(todos, func(a, b model.Todo) int {
			return cmp.Compare(a.Description, b.Description)
		})
	default:
		slices.SortStableFunc(todos, func(a, b model.Todo) int {
			return a.DateAdded.Compare(b.DateAdded)
		})
	}
}

// Update applies patch to an INCOMPLETE todo. COMPLETE todos are frozen.
func (r *TodoRepo) Update(_ context.Context, userID, todoID int64, patch model.TodoPatch) (model.Todo, error) {
	key := TodoKey{UserID: userID, TodoID: todoID}
	t, err := r.store.Update(cacheKey(key), r.ttl, func(cur model.Todo) (model.Todo, error) {
		if cur.State == model.StateComplete {
			return cur, errs.ErrAlreadyComplete
		}
		if patch.State != nil && *patch.State != "" {
			cur.State = *patch.State
		}
		if patch.Description != nil {
			if d := strings.TrimSpace(*patch.Description); d != "" {
				cur.Description = d
			}
		}
		return cur, nil
	})
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrAlreadyComplete) {
			return model.Todo{}, err
		}
		return model.Todo{}, fmt.Errorf("update todo %s: %w", key, err)
	}
	return t, nil
}

// Delete removes the todo from the index and the cache.
// The index decides existence.
func (r *TodoRepo) Delete(_ context.Context, userID, todoID int64) error {
	key := TodoKey{UserID: userID, TodoID: todoID}

	r.mu.Lock()
	i := slices.Index(r.live, key)
	if i < 0 {
		r.mu.Unlock()
		return errs.ErrNotFound
	}
	r.live = slices.Delete(r.live, i, i+1)
	r.mu.Unlock()

	if err := r.store.Drop(cacheKey(key)); err != nil {
		return fmt.Errorf("drop todo %s: %w", key, err)
	}
	return nil
}
