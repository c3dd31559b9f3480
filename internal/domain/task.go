package domain

import (
	"context"
	"time"
)

// Task is a persisted unit of work. ID is zero until the store assigns one.
type Task struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Completed   bool      `db:"completed"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// IsPersisted reports whether the store has assigned an id.
func (t Task) IsPersisted() bool {
	return t.ID > 0
}

// TaskRecord is the flat shape returned across the API boundary.
type TaskRecord struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t Task) Record() TaskRecord {
	return TaskRecord{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// TaskStore owns task persistence. Implementations wrap driver failures in
// *StorageError and never retry.
type TaskStore interface {
	// FetchRecentIncomplete returns at most limit incomplete tasks, newest
	// first, ties broken by id descending.
	FetchRecentIncomplete(ctx context.Context, limit int) ([]Task, error)
	// Insert assigns id and timestamps and returns the stored task.
	Insert(ctx context.Context, t Task) (Task, error)
	// MarkCompleted reports whether a task with id exists. Completing an
	// already completed task is a no-op that still returns true.
	MarkCompleted(ctx context.Context, id int64) (bool, error)
	// FindByID returns the task and true, or false when no such task exists.
	FindByID(ctx context.Context, id int64) (Task, bool, error)
}
