package task

import (
	"fmt"
	"time"

	"dayplanner/internal/dates"

	"github.com/google/uuid"
)

type Task struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	OwnerID   uuid.UUID  `json:"owner_id" db:"owner_id"`
	Text      string     `json:"text" db:"text"`
	Completed bool       `json:"completed" db:"completed"`
	Date      dates.Date `json:"date" db:"date"`
	Priority  Priority   `json:"priority" db:"priority"`
	Notes     string     `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

type Priority string

const PriorityLow Priority = "low"
const PriorityMedium Priority = "medium"
const PriorityHigh Priority = "high"

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), nil
	case "":
		return PriorityMedium, nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// Clone returns an independent copy, used for rollback snapshots.
func (t *Task) Clone() *Task {
	c := *t
	return &c
}

// Apply runs the options over the task, skipping nil ones.
func (t *Task) Apply(opts ...TaskOption) {
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
}
