package handlers

import "context"
import "github.com/google/uuid"
import "dayplanner/internal/planner"

type Planners interface {
	Get(context.Context, uuid.UUID) (*planner.Planner, error)
	Drop(uuid.UUID)
}
