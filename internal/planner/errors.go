package planner

import "errors"

// Every failure of a planner operation is terminal for that operation: it is
// reported once, nothing retries automatically, and the collection is left in
// either its pre-operation state or the backend-confirmed state.
var ErrValidation = errors.New("validation failed")
var ErrUnauthenticated = errors.New("no authenticated owner")
var ErrPersistence = errors.New("persistence backend failed")
var ErrNotFound = errors.New("task not found")

// ErrBusy is returned when a second mutation of the same record is attempted
// while one is still outstanding. Mutations of different records may overlap.
var ErrBusy = errors.New("operation already in flight for this task")
