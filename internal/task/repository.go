package task

import "errors"

// ErrNotFound is returned when a task ID does not resolve to a stored task.
var ErrNotFound = errors.New("task not found")

// ListFilter narrows List results. The zero value matches everything.
type ListFilter struct {
	Status Status // empty matches all statuses
}

// Repository is the persistence contract the execution core depends on.
// Task creation and deletion belong to the surrounding tooling; the core
// only ever mutates status and plan.
type Repository interface {
	Get(id string) (*Task, error)
	Subtasks(id string) ([]*Task, error)
	SetStatus(id string, status Status) error
	SetPlan(id string, plan string) error
	Plan(id string) (string, error)
	List(filter ListFilter) ([]*Task, error)
}
