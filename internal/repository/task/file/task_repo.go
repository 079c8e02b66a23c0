package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"dayplanner/internal/logger"
	"dayplanner/internal/models/task"
	repo "dayplanner/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage keeps the whole collection in one JSON file. The file is read once
// at construction and the full snapshot is rewritten synchronously after
// every successful mutation, so the file always matches memory.
type Storage struct {
	mtx      sync.RWMutex
	filename string
	tasks    map[uuid.UUID]*task.Task
}

// New loads the store. A file that fails to parse is refused with
// repo.ErrCorrupt; with discardCorrupt the store starts empty instead and
// the broken file is overwritten on the next write. The discard path loses
// data and is logged accordingly.
func New(filename string, discardCorrupt bool) (*Storage, error) {
	s := &Storage{
		filename: filename,
		tasks:    make(map[uuid.UUID]*task.Task),
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading task file: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var loaded []*task.Task
	if err := json.Unmarshal(data, &loaded); err != nil {
		if !discardCorrupt {
			logger.Error("Repository: task file is corrupt", err, zap.String("file", filename))
			return nil, fmt.Errorf("%w: %s: %v", repo.ErrCorrupt, filename, err)
		}
		logger.Warn("Repository: discarding corrupt task file, stored tasks are lost",
			zap.String("file", filename),
			zap.Error(err))
		return s, nil
	}

	for _, t := range loaded {
		s.tasks[t.ID] = t
	}
	logger.Info("Repository: loaded task file",
		zap.String("file", filename),
		zap.Int("tasks", len(loaded)))
	return s, nil
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	return nil
}

func (s *Storage) Insert(ctx context.Context, t *task.Task) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	stored := t.Clone()
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()

	s.tasks[stored.ID] = stored
	if err := s.flush(); err != nil {
		delete(s.tasks, stored.ID)
		return nil, err
	}
	return stored.Clone(), nil
}

func (s *Storage) Update(ctx context.Context, t *task.Task) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.tasks[t.ID]
	if !ok || existing.OwnerID != t.OwnerID {
		return nil, repo.ErrNotFound
	}

	stored := t.Clone()
	stored.CreatedAt = existing.CreatedAt
	s.tasks[stored.ID] = stored
	if err := s.flush(); err != nil {
		s.tasks[existing.ID] = existing
		return nil, err
	}
	return stored.Clone(), nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return t.Clone(), nil
}

func (s *Storage) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	tasks := []*task.Task{}
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			tasks = append(tasks, t.Clone())
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].Date.Equal(tasks[j].Date) {
			return tasks[j].Date.Before(tasks[i].Date)
		}
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.tasks[id]
	if !ok {
		return repo.ErrNotFound
	}

	delete(s.tasks, id)
	if err := s.flush(); err != nil {
		s.tasks[id] = existing
		return err
	}
	return nil
}

func (s *Storage) DeleteMany(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	removed := make(map[uuid.UUID]*task.Task, len(ids))
	for _, id := range ids {
		if t, ok := s.tasks[id]; ok {
			removed[id] = t
			delete(s.tasks, id)
		}
	}
	if err := s.flush(); err != nil {
		for id, t := range removed {
			s.tasks[id] = t
		}
		return err
	}
	return nil
}

// flush rewrites the whole file; callers hold the write lock.
func (s *Storage) flush() error {
	all := make([]*task.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding task file: %w", err)
	}
	if err := os.WriteFile(s.filename, data, 0644); err != nil {
		logger.Error("Repository: failed to write task file", err, zap.String("file", s.filename))
		return fmt.Errorf("writing task file: %w", err)
	}
	return nil
}
