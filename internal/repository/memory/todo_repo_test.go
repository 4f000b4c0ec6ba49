package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hugo-r/server-challenge/internal/cache"
	"github.com/hugo-r/server-challenge/internal/errs"
	"github.com/hugo-r/server-challenge/internal/model"
	"github.com/hugo-r/server-challenge/internal/repository"
)

var _ repository.TodoRepository = (*TodoRepo)(nil)

func newRepo(t *testing.T) *TodoRepo {
	t.Helper()
	c := cache.New[TodoKey, model.Todo](cache.Config{})
	t.Cleanup(func() { _ = c.Close() })
	return NewTodoRepo(c, time.Hour)
}

// tick makes DateAdded deterministic and strictly increasing.
func tick(r *TodoRepo) {
	base := time.Unix(1_700_000_000, 0)
	var n int64
	var mu sync.Mutex
	r.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func ptr[T any](v T) *T { return &v }

func ids(todos []model.Todo) []int64 {
	out := make([]int64, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.ID)
	}
	return out
}

func TestTodoRepo_Create_TrimsAndAssigns(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	td, err := r.Create(ctx, 1, "  buy milk \n")
	require.NoError(t, err)
	require.Equal(t, int64(1), td.ID)
	require.Equal(t, "buy milk", td.Description)
	require.Equal(t, model.StateIncomplete, td.State)
	require.False(t, td.DateAdded.IsZero())

	_, err = r.Create(ctx, 1, "   ")
	require.ErrorIs(t, err, errs.ErrInvalidDescription)
}

func TestTodoRepo_CreateThenList(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	td, err := r.Create(ctx, 1, "x")
	require.NoError(t, err)

	out, err := r.List(ctx, 1, model.ListQuery{})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, td, out[0])
	require.Equal(t, model.StateIncomplete, out[0].State)
}

func TestTodoRepo_List_EmptyIsNonNil(t *testing.T) {
	r := newRepo(t)

	out, err := r.List(context.Background(), 7, model.ListQuery{})
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestTodoRepo_IDsAreGlobalAndNeverReused(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	a, _ := r.Create(ctx, 1, "a")
	b, _ := r.Create(ctx, 2, "b")
	require.NoError(t, r.Delete(ctx, 2, b.ID))
	c, _ := r.Create(ctx, 1, "c")

	require.Equal(t, []int64{1, 2, 3}, []int64{a.ID, b.ID, c.ID})
}

func TestTodoRepo_ConcurrentCreate_UniqueIncreasingIDs(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	const n = 200
	got := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			td, err := r.Create(ctx, user, "t")
			if err == nil {
				got <- td.ID
			}
		}(int64(i%3 + 1))
	}
	wg.Wait()
	close(got)

	seen := map[int64]bool{}
	for id := range got {
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
	for id := int64(1); id <= n; id++ {
		require.True(t, seen[id], "missing id %d", id)
	}

	total := 0
	for user := int64(1); user <= 3; user++ {
		out, err := r.List(ctx, user, model.ListQuery{})
		require.NoError(t, err)
		total += len(out)
	}
	require.Equal(t, n, total)
}

func TestTodoRepo_Filter(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	a, _ := r.Create(ctx, 1, "a")
	b, _ := r.Create(ctx, 1, "b")
	c, _ := r.Create(ctx, 1, "c")
	_, err := r.Update(ctx, 1, b.ID, model.TodoPatch{State: ptr(model.StateComplete)})
	require.NoError(t, err)

	done, err := r.List(ctx, 1, model.ListQuery{Filter: model.FilterComplete})
	require.NoError(t, err)
	require.Equal(t, []int64{b.ID}, ids(done))

	open, err := r.List(ctx, 1, model.ListQuery{Filter: model.FilterIncomplete})
	require.NoError(t, err)
	require.Equal(t, []int64{a.ID, c.ID}, ids(open))

	all, err := r.List(ctx, 1, model.ListQuery{Filter: model.FilterAll})
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestTodoRepo_Order(t *testing.T) {
	r := newRepo(t)
	tick(r)
	ctx := context.Background()

	c, _ := r.Create(ctx, 1, "cherry")
	a, _ := r.Create(ctx, 1, "apple")
	b1, _ := r.Create(ctx, 1, "banana")
	b2, _ := r.Create(ctx, 1, "banana")

	byDesc, err := r.List(ctx, 1, model.ListQuery{OrderBy: model.OrderByDescription})
	require.NoError(t, err)
	require.Equal(t, []int64{a.ID, b1.ID, b2.ID, c.ID}, ids(byDesc))

	byDate, err := r.List(ctx, 1, model.ListQuery{OrderBy: model.OrderByDateAdded})
	require.NoError(t, err)
	require.Equal(t, []int64{c.ID, a.ID, b1.ID, b2.ID}, ids(byDate))

	def, err := r.List(ctx, 1, model.ListQuery{})
	require.NoError(t, err)
	require.Equal(t, ids(byDate), ids(def))
}

func TestTodoRepo_Update(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	td, _ := r.Create(ctx, 1, "old")

	got, err := r.Update(ctx, 1, td.ID, model.TodoPatch{Description: ptr("  new  ")})
	require.NoError(t, err)
	require.Equal(t, "new", got.Description)
	require.Equal(t, model.StateIncomplete, got.State)
	require.Equal(t, td.DateAdded, got.DateAdded)
	require.Equal(t, td.ID, got.ID)

	// empty fields keep prior values
	got, err = r.Update(ctx, 1, td.ID, model.TodoPatch{Description: ptr(""), State: ptr(model.State(""))})
	require.NoError(t, err)
	require.Equal(t, "new", got.Description)
	require.Equal(t, model.StateIncomplete, got.State)

	got, err = r.Update(ctx, 1, td.ID, model.TodoPatch{State: ptr(model.StateComplete)})
	require.NoError(t, err)
	require.Equal(t, model.StateComplete, got.State)

	_, err = r.Update(ctx, 1, td.ID, model.TodoPatch{Description: ptr("x")})
	require.ErrorIs(t, err, errs.ErrAlreadyComplete)
	_, err = r.Update(ctx, 1, td.ID, model.TodoPatch{State: ptr(model.StateIncomplete)})
	require.ErrorIs(t, err, errs.ErrAlreadyComplete)
	_, err = r.Update(ctx, 1, td.ID, model.TodoPatch{})
	require.ErrorIs(t, err, errs.ErrAlreadyComplete)

	out, _ := r.List(ctx, 1, model.ListQuery{})
	require.Equal(t, "new", out[0].Description)

	_, err = r.Update(ctx, 1, 999, model.TodoPatch{State: ptr(model.StateComplete)})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTodoRepo_Delete(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	td, _ := r.Create(ctx, 1, "x")
	keep, _ := r.Create(ctx, 1, "y")

	require.NoError(t, r.Delete(ctx, 1, td.ID))
	out, err := r.List(ctx, 1, model.ListQuery{})
	require.NoError(t, err)
	require.Equal(t, []int64{keep.ID}, ids(out))

	require.ErrorIs(t, r.Delete(ctx, 1, td.ID), errs.ErrNotFound)
	_, err = r.Update(ctx, 1, td.ID, model.TodoPatch{State: ptr(model.StateComplete)})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestTodoRepo_CrossUserIsolation(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	theirs, _ := r.Create(ctx, 2, "b's todo")

	out, err := r.List(ctx, 1, model.ListQuery{})
	require.NoError(t, err)
	require.Empty(t, out)

	_, err = r.Update(ctx, 1, theirs.ID, model.TodoPatch{State: ptr(model.StateComplete)})
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.ErrorIs(t, r.Delete(ctx, 1, theirs.ID), errs.ErrNotFound)

	still, err := r.List(ctx, 2, model.ListQuery{})
	require.NoError(t, err)
	require.Equal(t, []int64{theirs.ID}, ids(still))
	require.Equal(t, model.StateIncomplete, still[0].State)
}

func TestTodoRepo_ExpiredEntriesAreSkipped(t *testing.T) {
	c := cache.New[TodoKey, model.Todo](cache.Config{})
	t.Cleanup(func() { _ = c.Close() })
	r := NewTodoRepo(c, 20*time.Millisecond)
	ctx := context.Background()

	td, err := r.Create(ctx, 1, "short-lived")
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)

	out, err := r.List(ctx, 1, model.ListQuery{})
	require.NoError(t, err)
	require.Empty(t, out)

	// index still holds the key, so delete succeeds
	require.NoError(t, r.Delete(ctx, 1, td.ID))
}

func TestTodoKey_String(t *testing.T) {
	require.Equal(t, "12_5", TodoKey{UserID: 12, TodoID: 5}.String())
}
