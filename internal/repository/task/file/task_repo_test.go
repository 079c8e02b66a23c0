package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"dayplanner/internal/dates"
	"dayplanner/internal/logger"
	"dayplanner/internal/models/task"
	repo "dayplanner/internal/repository"
	"dayplanner/internal/repository/task/file"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init(true)
	defer logger.Sync()
	os.Exit(m.Run())
}

func newStore(t *testing.T) (*file.Storage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	s, err := file.New(path, false)
	require.NoError(t, err)
	return s, path
}

func mustDate(t *testing.T, s string) dates.Date {
	t.Helper()
	d, err := dates.Parse(s)
	require.NoError(t, err)
	return d
}

func TestInsertAssignsIDAndPersists(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t)
	owner := uuid.New()

	inserted, err := s.Insert(ctx, &task.Task{
		OwnerID:  owner,
		Text:     "water the plants",
		Date:     mustDate(t, "2026-02-05"),
		Priority: task.PriorityMedium,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, inserted.ID)
	assert.False(t, inserted.CreatedAt.IsZero())
	assert.False(t, inserted.Completed)

	// A fresh store over the same file sees the task.
	reloaded, err := file.New(path, false)
	require.NoError(t, err)

	tasks, err := reloaded.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, inserted.ID, tasks[0].ID)
	assert.Equal(t, "water the plants", tasks[0].Text)
}

func TestUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	owner := uuid.New()

	inserted, err := s.Insert(ctx, &task.Task{
		OwnerID:  owner,
		Text:     "call the dentist",
		Date:     mustDate(t, "2026-02-05"),
		Priority: task.PriorityLow,
	})
	require.NoError(t, err)

	patch := inserted.Clone()
	patch.Completed = true
	patch.Priority = task.PriorityHigh
	patch.Notes = "ask about friday"

	updated, err := s.Update(ctx, patch)
	require.NoError(t, err)
	assert.True(t, updated.Completed)
	assert.Equal(t, task.PriorityHigh, updated.Priority)
	assert.Equal(t, "ask about friday", updated.Notes)
	// created_at is immutable regardless of what the caller sends.
	assert.Equal(t, inserted.CreatedAt, updated.CreatedAt)
}

func TestUpdateWrongOwner(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	inserted, err := s.Insert(ctx, &task.Task{
		OwnerID:  uuid.New(),
		Text:     "private task",
		Date:     mustDate(t, "2026-02-05"),
		Priority: task.PriorityMedium,
	})
	require.NoError(t, err)

	stolen := inserted.Clone()
	stolen.OwnerID = uuid.New()
	_, err = s.Update(ctx, stolen)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestDeleteRemovesFromReload(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t)
	owner := uuid.New()

	inserted, err := s.Insert(ctx, &task.Task{
		OwnerID:  owner,
		Text:     "buy milk",
		Date:     mustDate(t, "2026-02-05"),
		Priority: task.PriorityMedium,
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, inserted.ID))
	assert.ErrorIs(t, s.Delete(ctx, inserted.ID), repo.ErrNotFound)

	reloaded, err := file.New(path, false)
	require.NoError(t, err)
	_, err = reloaded.GetByID(ctx, inserted.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestDeleteMany(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	owner := uuid.New()

	var ids []uuid.UUID
	for _, text := range []string{"one", "two", "three"} {
		ins, err := s.Insert(ctx, &task.Task{
			OwnerID:  owner,
			Text:     text,
			Date:     mustDate(t, "2026-02-05"),
			Priority: task.PriorityMedium,
		})
		require.NoError(t, err)
		ids = append(ids, ins.ID)
	}

	// Unknown ids in the set are ignored, not an error.
	require.NoError(t, s.DeleteMany(ctx, []uuid.UUID{ids[0], ids[2], uuid.New()}))

	tasks, err := s.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "two", tasks[0].Text)
}

func TestCorruptFileRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := file.New(path, false)
	assert.ErrorIs(t, err, repo.ErrCorrupt)
}

func TestCorruptFileDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s, err := file.New(path, true)
	require.NoError(t, err)

	tasks, err := s.ListByOwner(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestEmptyAndMissingFile(t *testing.T) {
	dir := t.TempDir()

	_, err := file.New(filepath.Join(dir, "missing.json"), false)
	assert.NoError(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte{}, 0644))
	_, err = file.New(empty, false)
	assert.NoError(t, err)
}

func TestListOrdering(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	owner := uuid.New()

	for _, spec := range []struct {
		text string
		date string
	}{
		{text: "older day", date: "2026-02-04"},
		{text: "newer day", date: "2026-02-06"},
		{text: "middle day", date: "2026-02-05"},
	} {
		_, err := s.Insert(ctx, &task.Task{
			OwnerID:  owner,
			Text:     spec.text,
			Date:     mustDate(t, spec.date),
			Priority: task.PriorityMedium,
		})
		require.NoError(t, err)
	}

	tasks, err := s.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, "newer day", tasks[0].Text)
	assert.Equal(t, "middle day", tasks[1].Text)
	assert.Equal(t, "older day", tasks[2].Text)
}
