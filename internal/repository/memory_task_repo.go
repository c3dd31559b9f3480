package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"todo_app/internal/domain"
)

// MemoryTaskRepository keeps tasks in process memory. Ids start at 1.
type MemoryTaskRepository struct {
	mu     sync.RWMutex
	tasks  []domain.Task
	nextID int64
	now    func() time.Time
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{nextID: 1, now: time.Now}
}

// WithClock replaces the time source; used by tests that need equal timestamps.
func (r *MemoryTaskRepository) WithClock(now func() time.Time) *MemoryTaskRepository {
	r.now = now
	return r
}

func (r *MemoryTaskRepository) FetchRecentIncomplete(_ context.Context, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidLimit, limit)
	}

	r.mu.RLock()
	res := make([]domain.Task, 0, limit)
	for _, t := range r.tasks {
		if !t.Completed {
			res = append(res, t)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return res[i].ID > res[j].ID
	})
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (r *MemoryTaskRepository) Insert(_ context.Context, t domain.Task) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	t.ID = r.nextID
	t.CreatedAt = now
	t.UpdatedAt = now
	r.nextID++
	r.tasks = append(r.tasks, t)
	return t, nil
}

func (r *MemoryTaskRepository) MarkCompleted(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.tasks {
		if r.tasks[i].ID != id {
			continue
		}
		if !r.tasks[i].Completed {
			r.tasks[i].Completed = true
			r.tasks[i].UpdatedAt = r.now().UTC()
		}
		return true, nil
	}
	return false, nil
}

func (r *MemoryTaskRepository) FindByID(_ context.Context, id int64) (domain.Task, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tasks {
		if t.ID == id {
			return t, true, nil
		}
	}
	return domain.Task{}, false, nil
}

func (r *MemoryTaskRepository) Ping(context.Context) error {
	return nil
}
