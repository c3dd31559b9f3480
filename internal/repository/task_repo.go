package repository

import (
	"context"
	"errors"
	"fmt"

	"todo_app/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, title, description, completed, created_at, updated_at`

// TaskRepository is the Postgres TaskStore.
type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) FetchRecentIncomplete(ctx context.Context, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidLimit, limit)
	}

	rows, err := r.db.Query(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE completed = FALSE
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, domain.WrapStorage("fetch recent tasks", err)
	}
	defer rows.Close()

	res := make([]domain.Task, 0, limit)
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, domain.WrapStorage("scan task", err)
		}
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapStorage("fetch recent tasks", err)
	}
	return res, nil
}

func (r *TaskRepository) Insert(ctx context.Context, t domain.Task) (domain.Task, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO tasks (title, description, completed)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		t.Title, t.Description, t.Completed,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Task{}, domain.WrapStorage("insert task", err)
	}
	return t, nil
}

// MarkCompleted keeps updated_at at the first completion time, so repeated
// calls match the row without touching it.
func (r *TaskRepository) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE tasks
		SET completed = TRUE,
		    updated_at = CASE WHEN completed THEN updated_at ELSE now() END
		WHERE id = $1`, id)
	if err != nil {
		return false, domain.WrapStorage("complete task", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id int64) (domain.Task, bool, error) {
	var t domain.Task
	err := r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id).
		Scan(&t.ID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, false, nil
	}
	if err != nil {
		return domain.Task{}, false, domain.WrapStorage("find task", err)
	}
	return t, true, nil
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
