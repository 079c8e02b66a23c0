package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"dayplanner/internal/dates"
	"dayplanner/internal/logger"
	"dayplanner/internal/models/task"
	repo "dayplanner/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backend is the persistence backend the planner reconciles against. Every
// mutating call returns the row as the backend confirmed it, so the in-memory
// collection always carries backend-assigned fields (id, created_at).
type Backend interface {
	Insert(ctx context.Context, t *task.Task) (*task.Task, error)
	Update(ctx context.Context, t *task.Task) (*task.Task, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*task.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) error
}

// Planner owns the task collection and view state for one owner. All
// mutations go through the backend; after any failure the collection is back
// in its pre-operation state.
type Planner struct {
	mtx     sync.Mutex
	ownerID uuid.UUID
	backend Backend
	tasks   []*task.Task
	view    ViewState
	pending map[uuid.UUID]struct{}
}

func New(ownerID uuid.UUID, backend Backend) *Planner {
	return &Planner{
		ownerID: ownerID,
		backend: backend,
		tasks:   []*task.Task{},
		view:    DefaultViewState(),
		pending: make(map[uuid.UUID]struct{}),
	}
}

// Load replaces the in-memory collection with the backend's current state.
func (p *Planner) Load(ctx context.Context) error {
	tasks, err := p.backend.ListByOwner(ctx, p.ownerID)
	if err != nil {
		return fmt.Errorf("%w: loading tasks: %v", ErrPersistence, err)
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.tasks = tasks
	return nil
}

func (p *Planner) OwnerID() uuid.UUID {
	return p.ownerID
}

// Add validates and normalizes the draft fields, asks the backend to insert,
// and prepends the confirmed record. Whitespace-only text is a silent no-op.
func (p *Planner) Add(ctx context.Context, text string, date dates.Date, priority task.Priority, notes string) (*task.Task, error) {
	if p.ownerID == uuid.Nil {
		return nil, ErrUnauthenticated
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if date.IsZero() {
		date = dates.Today(time.Local)
	}
	if priority == "" {
		priority = task.PriorityMedium
	}

	draft := &task.Task{
		OwnerID:  p.ownerID,
		Text:     text,
		Date:     date,
		Priority: priority,
		Notes:    strings.TrimSpace(notes),
	}

	confirmed, err := p.backend.Insert(ctx, draft)
	if err != nil {
		logger.Warn("Planner: insert rejected by backend",
			zap.String("owner_id", p.ownerID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: adding task: %v", ErrPersistence, err)
	}

	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.tasks = append([]*task.Task{confirmed}, p.tasks...)
	p.view.Draft = Draft{}
	return confirmed.Clone(), nil
}

// ToggleComplete flips the completed flag optimistically and writes it
// through. On backend failure the prior value is restored; memory and
// backend are never allowed to diverge silently.
func (p *Planner) ToggleComplete(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	prior, err := p.beginMutation(id, task.ToggleCompleted())
	if err != nil {
		return nil, err
	}

	patch := prior.Clone()
	patch.Apply(task.ToggleCompleted())

	return p.finishMutation(ctx, id, prior, patch, "toggling task")
}

// Move changes only the task's date, with the same reconciliation contract
// as ToggleComplete.
func (p *Planner) Move(ctx context.Context, id uuid.UUID, newDate dates.Date) (*task.Task, error) {
	if newDate.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrValidation)
	}

	prior, err := p.beginMutation(id, task.WithDate(newDate))
	if err != nil {
		return nil, err
	}

	patch := prior.Clone()
	patch.Apply(task.WithDate(newDate))

	return p.finishMutation(ctx, id, prior, patch, "moving task")
}

// Edit writes text, notes and priority in one backend update. Unlike toggle
// and move it is not optimistic: the record is replaced only by the
// backend-confirmed row.
func (p *Planner) Edit(ctx context.Context, id uuid.UUID, text, notes string, priority task.Priority) (*task.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text must not be empty", ErrValidation)
	}
	if priority == "" {
		priority = task.PriorityMedium
	}

	prior, err := p.beginMutation(id)
	if err != nil {
		return nil, err
	}

	patch := prior.Clone()
	patch.Apply(
		task.WithText(text),
		task.WithNotes(strings.TrimSpace(notes)),
		task.WithPriority(priority),
	)

	return p.finishMutation(ctx, id, prior, patch, "editing task")
}

// Remove deletes optimistically: the record leaves the collection at once
// and is reinstated if the backend refuses. The collection must never end up
// missing a record the backend still holds.
func (p *Planner) Remove(ctx context.Context, id uuid.UUID) error {
	p.mtx.Lock()
	idx := p.indexOf(id)
	if idx < 0 {
		p.mtx.Unlock()
		return ErrNotFound
	}
	if _, busy := p.pending[id]; busy {
		p.mtx.Unlock()
		return ErrBusy
	}
	p.pending[id] = struct{}{}
	removed := p.tasks[idx]
	p.tasks = append(p.tasks[:idx:idx], p.tasks[idx+1:]...)
	p.mtx.Unlock()

	err := p.backend.Delete(ctx, id)

	p.mtx.Lock()
	defer p.mtx.Unlock()
	delete(p.pending, id)

	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		// Reinstate at the original position.
		if idx > len(p.tasks) {
			idx = len(p.tasks)
		}
		p.tasks = append(p.tasks[:idx], append([]*task.Task{removed}, p.tasks[idx:]...)...)
		logger.Warn("Planner: delete rejected by backend, task reinstated",
			zap.String("task_id", id.String()),
			zap.Error(err))
		return fmt.Errorf("%w: removing task: %v", ErrPersistence, err)
	}
	return nil
}

// ClearCompleted removes every task completed at call time in one bulk
// backend delete. On failure the entire removed set is reinstated; there is
// no partial rollback.
func (p *Planner) ClearCompleted(ctx context.Context) ([]uuid.UUID, error) {
	p.mtx.Lock()
	var ids []uuid.UUID
	for _, t := range p.tasks {
		if !t.Completed {
			continue
		}
		if _, busy := p.pending[t.ID]; busy {
			p.mtx.Unlock()
			return nil, ErrBusy
		}
		ids = append(ids, t.ID)
	}
	if len(ids) == 0 {
		p.mtx.Unlock()
		return nil, nil
	}

	snapshot := p.tasks
	kept := make([]*task.Task, 0, len(p.tasks)-len(ids))
	for _, t := range p.tasks {
		if !t.Completed {
			kept = append(kept, t)
		}
	}
	p.tasks = kept
	for _, id := range ids {
		p.pending[id] = struct{}{}
	}
	p.mtx.Unlock()

	err := p.backend.DeleteMany(ctx, ids)

	p.mtx.Lock()
	defer p.mtx.Unlock()
	for _, id := range ids {
		delete(p.pending, id)
	}

	if err != nil {
		p.tasks = snapshot
		logger.Warn("Planner: bulk delete rejected by backend, tasks reinstated",
			zap.Int("count", len(ids)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: clearing completed tasks: %v", ErrPersistence, err)
	}
	return ids, nil
}

// beginMutation looks the record up, marks it pending and applies the
// optimistic options (if any) under the lock. It returns a snapshot of the
// record's prior state for rollback.
func (p *Planner) beginMutation(id uuid.UUID, opts ...task.TaskOption) (*task.Task, error) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	idx := p.indexOf(id)
	if idx < 0 {
		return nil, ErrNotFound
	}
	if _, busy := p.pending[id]; busy {
		return nil, ErrBusy
	}
	p.pending[id] = struct{}{}

	prior := p.tasks[idx].Clone()
	p.tasks[idx].Apply(opts...)
	return prior, nil
}

// finishMutation issues the backend update and reconciles: on success the
// in-memory record becomes the backend-confirmed row, on failure it reverts
// to the prior snapshot.
func (p *Planner) finishMutation(ctx context.Context, id uuid.UUID, prior, patch *task.Task, action string) (*task.Task, error) {
	confirmed, err := p.backend.Update(ctx, patch)

	p.mtx.Lock()
	defer p.mtx.Unlock()
	delete(p.pending, id)

	idx := p.indexOf(id)
	if err != nil {
		if idx >= 0 {
			p.tasks[idx] = prior
		}
		logger.Warn("Planner: update rejected by backend, task reverted",
			zap.String("task_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", ErrPersistence, action, err)
	}

	if idx >= 0 {
		p.tasks[idx] = confirmed
	}
	return confirmed.Clone(), nil
}

// indexOf is called with the lock held.
func (p *Planner) indexOf(id uuid.UUID) int {
	for i, t := range p.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
