package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/task"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Add(context.Background(), task.CreateInput{Title: "persisted"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	tasks, err := s.FetchAll(context.Background(), task.Filters{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "persisted", tasks[0].Title)
}

func TestAddAndFetchAllWithFilters(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	inputs := []task.CreateInput{
		{Title: "alpha", Priority: task.PriorityHigh, Status: task.StatusTodo},
		{Title: "bravo", Priority: task.PriorityLow, Status: task.StatusCompleted},
		{Title: "charlie", Priority: task.PriorityHigh, Status: task.StatusInProgress},
		{Title: "delta"},
	}
	for _, in := range inputs {
		require.NoError(t, s.Create(ctx, in))
	}

	all, err := s.FetchAll(ctx, task.Filters{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta"}, titles(all))
	assert.Equal(t, task.PriorityMedium, all[3].Priority)
	assert.Equal(t, task.StatusTodo, all[3].Status)

	high, err := s.FetchAll(ctx, task.Filters{Priority: task.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "charlie"}, titles(high))

	highTodo, err := s.FetchAll(ctx, task.Filters{Priority: task.PriorityHigh, Status: task.StatusTodo})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, titles(highTodo))

	none, err := s.FetchAll(ctx, task.Filters{Status: task.StatusCompleted, Priority: task.PriorityHigh})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestAddValidates(t *testing.T) {
	s := openStore(t)
	_, err := s.Add(context.Background(), task.CreateInput{Title: "no"})
	assert.True(t, errors.Is(err, task.ErrInvalid))
}

func TestUpdateIsPartial(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	created, err := s.Add(ctx, task.CreateInput{Title: "draft", Description: "body", Priority: task.PriorityLow})
	require.NoError(t, err)

	status := task.StatusCompleted
	require.NoError(t, s.Update(ctx, task.UpdateInput{ID: created.ID, Status: &status}))

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Task{
		ID:          created.ID,
		Title:       "draft",
		Description: "body",
		Priority:    task.PriorityLow,
		Status:      task.StatusCompleted,
	}, got)
}

func TestUpdateAndDeleteUnknownID(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	title := "missing"
	err := s.Update(ctx, task.UpdateInput{ID: 42, Title: &title})
	assert.True(t, errors.Is(err, task.ErrNotFound))

	err = s.Delete(ctx, 42)
	assert.True(t, errors.Is(err, task.ErrNotFound))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	created, err := s.Add(ctx, task.CreateInput{Title: "remove me"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, task.ErrNotFound))
}

func titles(ts []task.Task) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Title)
	}
	return out
}
