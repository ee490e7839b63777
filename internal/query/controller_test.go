package query

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/task"
	"taskdeck/internal/taskcache"
)

// stubRepository is a hand-written task.Repository; nil funcs succeed.
type stubRepository struct {
	mu         sync.Mutex
	FetchAllFn func(ctx context.Context, f task.Filters) ([]task.Task, error)
	CreateFn   func(ctx context.Context, in task.CreateInput) error
	UpdateFn   func(ctx context.Context, in task.UpdateInput) error
	DeleteFn   func(ctx context.Context, id int) error
	fetches    []task.Filters
}

func (s *stubRepository) FetchAll(ctx context.Context, f task.Filters) ([]task.Task, error) {
	s.mu.Lock()
	s.fetches = append(s.fetches, f)
	s.mu.Unlock()
	if s.FetchAllFn != nil {
		return s.FetchAllFn(ctx, f)
	}
	return nil, nil
}

func (s *stubRepository) Create(ctx context.Context, in task.CreateInput) error {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, in)
	}
	return nil
}

func (s *stubRepository) Update(ctx context.Context, in task.UpdateInput) error {
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, in)
	}
	return nil
}

func (s *stubRepository) Delete(ctx context.Context, id int) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, id)
	}
	return nil
}

// memoryRepository serves a fixed backing slice filtered like a real backend.
func memoryRepository(tasks *[]task.Task) *stubRepository {
	return &stubRepository{
		FetchAllFn: func(_ context.Context, f task.Filters) ([]task.Task, error) {
			var out []task.Task
			for _, t := range *tasks {
				if f.Matches(t) {
					out = append(out, t)
				}
			}
			return out, nil
		},
	}
}

func newController(t *testing.T, repo task.Repository, opts ...Option) (*Controller, *taskcache.Cache) {
	t.Helper()
	cache := taskcache.New()
	c := NewController(repo, cache, opts...)
	t.Cleanup(c.Close)
	return c, cache
}

func TestNewControllerStartsEmpty(t *testing.T) {
	c, _ := newController(t, &stubRepository{})

	assert.Equal(t, task.DefaultQuery(), c.Query())
	assert.False(t, c.Loading())
	assert.Equal(t, 0, c.Page().Total)
	assert.Equal(t, 1, c.TotalPages())
}

func TestLoadPublishesAndProjects(t *testing.T) {
	backing := alternating(12)
	c, cache := newController(t, memoryRepository(&backing), WithPageSize(5))

	cmd := c.Load()
	require.NotNil(t, cmd)
	assert.True(t, c.Loading())

	c.Handle(cmd())

	assert.False(t, c.Loading())
	assert.Len(t, cache.Read(), 12)
	assert.Equal(t, 12, c.Page().Total)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, taskIDs(c.Page().Items))
	assert.Equal(t, 3, c.TotalPages())

	start, end := c.Window()
	assert.Equal(t, 1, start)
	assert.Equal(t, 5, end)
}

func TestSetFiltersResetsPage(t *testing.T) {
	backing := alternating(30)
	c, _ := newController(t, memoryRepository(&backing), WithPageSize(5))
	c.Handle(c.Load()())

	c.Handle(c.SetPage(3)())
	require.Equal(t, 3, c.Query().Page)

	cmd := c.SetFilters(task.Filters{Status: task.StatusCompleted})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, c.Query().Page)
	assert.Equal(t, task.Filters{Status: task.StatusCompleted}, c.Query().Filters)
	assert.Equal(t, 5, c.Query().PageSize)
}

func TestSetPageSizeResetsPageAndKeepsFilters(t *testing.T) {
	backing := alternating(30)
	c, _ := newController(t, memoryRepository(&backing), WithPageSize(5))
	c.Handle(c.SetFilters(task.Filters{Priority: task.PriorityHigh})())
	c.Handle(c.SetPage(2)())
	require.Equal(t, 2, c.Query().Page)

	c.Handle(c.SetPageSize(10)())
	assert.Equal(t, task.Query{Filters: task.Filters{Priority: task.PriorityHigh}, Page: 1, PageSize: 10}, c.Query())
	assert.Equal(t, []int{2, 4, 6, 8, 10, 12, 14, 16, 18, 20}, taskIDs(c.Page().Items))

	assert.Nil(t, c.SetPageSize(0))
	assert.Equal(t, 10, c.Query().PageSize)
}

func TestSetPageDoesNotResetFilters(t *testing.T) {
	backing := alternating(30)
	c, _ := newController(t, memoryRepository(&backing), WithPageSize(5))
	c.Handle(c.SetFilters(task.Filters{Priority: task.PriorityLow})())

	c.Handle(c.SetPage(2)())
	assert.Equal(t, task.Filters{Priority: task.PriorityLow}, c.Query().Filters)
	assert.Equal(t, []int{11, 13, 15, 17, 19}, taskIDs(c.Page().Items))
}

func TestUnchangedQueryIsNotRefetched(t *testing.T) {
	repo := &stubRepository{}
	c, _ := newController(t, repo)

	assert.Nil(t, c.SetPage(1))
	assert.Nil(t, c.SetFilters(task.Filters{}))
	assert.Nil(t, c.SetPageSize(task.DefaultPageSize))
	assert.False(t, c.Loading())
}

func TestLastRequestWins(t *testing.T) {
	responses := map[task.Filters][]task.Task{
		{Status: task.StatusTodo}:      {{ID: 1, Title: "a", Priority: task.PriorityLow, Status: task.StatusTodo}},
		{Status: task.StatusCompleted}: {{ID: 2, Title: "b", Priority: task.PriorityLow, Status: task.StatusCompleted}},
	}
	repo := &stubRepository{
		FetchAllFn: func(_ context.Context, f task.Filters) ([]task.Task, error) {
			return responses[f], nil
		},
	}
	c, cache := newController(t, repo)

	cmdA := c.SetFilters(task.Filters{Status: task.StatusTodo})
	cmdB := c.SetFilters(task.Filters{Status: task.StatusCompleted})
	msgA := cmdA()
	msgB := cmdB()

	c.Handle(msgB)
	assert.False(t, c.Loading())
	c.Handle(msgA)

	assert.False(t, c.Loading(), "stale settlement must not flip loading")
	assert.Equal(t, []int{2}, taskIDs(cache.Read()))
	assert.Equal(t, []int{2}, taskIDs(c.Page().Items))
}

func TestStaleSettlementKeepsNewerQueryLoading(t *testing.T) {
	repo := &stubRepository{
		FetchAllFn: func(context.Context, task.Filters) ([]task.Task, error) {
			return alternating(3), nil
		},
	}
	c, cache := newController(t, repo)

	cmdA := c.SetFilters(task.Filters{Priority: task.PriorityHigh})
	_ = c.SetFilters(task.Filters{Priority: task.PriorityLow})

	c.Handle(cmdA())

	assert.True(t, c.Loading())
	assert.Empty(t, cache.Read())

	cmd := c.Handle(FetchedMsg{Seq: 1, Err: errors.New("late failure")})
	assert.Nil(t, cmd)
	assert.True(t, c.Loading())
}

func TestFetchFailurePublishesEmptyCollection(t *testing.T) {
	backing := alternating(4)
	fail := false
	repo := &stubRepository{
		FetchAllFn: func(context.Context, task.Filters) ([]task.Task, error) {
			if fail {
				return nil, errors.New("connection refused")
			}
			return backing, nil
		},
	}
	c, cache := newController(t, repo)
	c.Handle(c.Load()())
	require.Equal(t, 4, c.Page().Total)

	fail = true
	c.Handle(c.Refresh()())

	assert.False(t, c.Loading())
	assert.Empty(t, cache.Read())
	assert.Equal(t, task.Page{Items: []task.Task{}, Total: 0}, c.Page())
}

func TestPublishFromOtherConsumerReprojects(t *testing.T) {
	c, cache := newController(t, &stubRepository{}, WithPageSize(2))
	c.Handle(c.SetFilters(task.Filters{Priority: task.PriorityHigh})())

	cache.Publish(alternating(8))

	assert.Equal(t, 4, c.Page().Total)
	assert.Equal(t, []int{2, 4}, taskIDs(c.Page().Items))
	assert.False(t, c.Loading())
}

func TestShrinkingCollectionClampsStoredPage(t *testing.T) {
	backing := alternating(12)
	c, cache := newController(t, memoryRepository(&backing), WithPageSize(5))
	c.Handle(c.Load()())
	c.Handle(c.SetPage(3)())
	require.Equal(t, []int{11, 12}, taskIDs(c.Page().Items))

	cache.Publish(alternating(6))

	assert.Equal(t, 2, c.Query().Page)
	assert.Equal(t, []int{6}, taskIDs(c.Page().Items))

	cmd := c.SetPage(2)
	assert.Nil(t, cmd, "page already stored as 2")
}

func TestPageRequestedDuringLoadSurvivesSettlement(t *testing.T) {
	for _, tc := range []struct {
		name      string
		loadFirst bool
	}{
		{name: "load settles first", loadFirst: true},
		{name: "page fetch settles first", loadFirst: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			backing := alternating(30)
			c, _ := newController(t, memoryRepository(&backing), WithPageSize(5))

			load := c.Load()
			next := c.SetPage(3)
			require.NotNil(t, next)
			assert.Equal(t, 3, c.Query().Page, "requested page is kept while fetching")

			loadMsg, nextMsg := load(), next()
			if tc.loadFirst {
				c.Handle(loadMsg)
				assert.True(t, c.Loading())
				c.Handle(nextMsg)
			} else {
				c.Handle(nextMsg)
				c.Handle(loadMsg)
			}

			assert.False(t, c.Loading())
			assert.Equal(t, 3, c.Query().Page)
			assert.Equal(t, []int{11, 12, 13, 14, 15}, taskIDs(c.Page().Items))
			start, end := c.Window()
			assert.Equal(t, 11, start)
			assert.Equal(t, 15, end)
		})
	}
}

func TestOutOfRangePageClampsOnceFetchSettles(t *testing.T) {
	backing := alternating(30)
	c, _ := newController(t, memoryRepository(&backing), WithPageSize(5))

	cmd := c.SetPage(99)
	assert.Equal(t, 99, c.Query().Page)

	c.Handle(cmd())

	assert.Equal(t, 6, c.Query().Page)
	assert.Equal(t, []int{26, 27, 28, 29, 30}, taskIDs(c.Page().Items))
}

func TestSetQueryReplacesEverythingInOneFetch(t *testing.T) {
	backing := alternating(30)
	repo := memoryRepository(&backing)
	c, _ := newController(t, repo, WithPageSize(5))

	cmd := c.SetQuery(task.Query{Filters: task.Filters{Priority: task.PriorityHigh}, Page: 2, PageSize: 4})
	require.NotNil(t, cmd)
	c.Handle(cmd())

	assert.Equal(t, task.Query{Filters: task.Filters{Priority: task.PriorityHigh}, Page: 2, PageSize: 4}, c.Query())
	assert.Equal(t, []int{10, 12, 14, 16}, taskIDs(c.Page().Items))
	assert.Len(t, repo.fetches, 1)

	assert.Nil(t, c.SetQuery(task.Query{Filters: task.Filters{Priority: task.PriorityHigh}, Page: 2}),
		"zero page size keeps the current size")

	c.Handle(c.SetQuery(task.Query{Page: -4})())
	assert.Equal(t, 1, c.Query().Page)
	assert.Equal(t, 4, c.Query().PageSize)
}

func TestMutationRefreshesActiveQuery(t *testing.T) {
	backing := []task.Task{
		{ID: 1, Title: "one", Priority: task.PriorityLow, Status: task.StatusTodo},
		{ID: 2, Title: "two", Priority: task.PriorityHigh, Status: task.StatusCompleted},
	}
	repo := memoryRepository(&backing)
	repo.CreateFn = func(_ context.Context, in task.CreateInput) error {
		backing = append(backing, task.Task{ID: 3, Title: in.Title, Priority: in.Priority, Status: in.Status})
		return nil
	}
	c, _ := newController(t, repo)
	c.Handle(c.SetFilters(task.Filters{Status: task.StatusTodo})())
	require.Equal(t, 1, c.Page().Total)

	mutated := c.CreateTask(task.CreateInput{Title: "three", Priority: task.PriorityMedium, Status: task.StatusTodo})()
	require.Equal(t, MutatedMsg{Op: OpCreate}, mutated)

	refresh := c.Handle(mutated)
	require.NotNil(t, refresh)
	assert.True(t, c.Loading())
	c.Handle(refresh())

	assert.Equal(t, 2, c.Page().Total)
	assert.Equal(t, []int{1, 3}, taskIDs(c.Page().Items))
	assert.Equal(t, task.Filters{Status: task.StatusTodo}, repo.fetches[len(repo.fetches)-1])
}

func TestFailedMutationSkipsRefresh(t *testing.T) {
	repo := &stubRepository{
		DeleteFn: func(context.Context, int) error { return task.ErrNotFound },
	}
	c, _ := newController(t, repo)

	msg := c.DeleteTask(9)()
	require.Equal(t, MutatedMsg{Op: OpDelete, ID: 9, Err: task.ErrNotFound}, msg)
	assert.Nil(t, c.Handle(msg))
	assert.False(t, c.Loading())
}

func TestUpdateTaskPassesInput(t *testing.T) {
	var got task.UpdateInput
	repo := &stubRepository{
		UpdateFn: func(_ context.Context, in task.UpdateInput) error {
			got = in
			return nil
		},
	}
	c, _ := newController(t, repo)
	title := "renamed"

	msg := c.UpdateTask(task.UpdateInput{ID: 5, Title: &title})()
	assert.Equal(t, MutatedMsg{Op: OpUpdate, ID: 5}, msg)
	assert.Equal(t, 5, got.ID)
	assert.Equal(t, "renamed", *got.Title)
}

func TestUnrelatedMessagesAreIgnored(t *testing.T) {
	c, _ := newController(t, &stubRepository{})
	assert.Nil(t, c.Handle("tick"))
	assert.Nil(t, c.Handle(FetchedMsg{Seq: 0, Tasks: alternating(2)}))
	assert.Equal(t, 0, c.Page().Total)
}
