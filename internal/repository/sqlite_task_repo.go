package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"todo_app/internal/domain"

	"gorm.io/gorm"
)

// taskRow is the gorm model for the tasks table.
type taskRow struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Title       string    `gorm:"size:255;not null"`
	Description string    `gorm:"not null"`
	Completed   bool      `gorm:"not null;default:false;index:idx_tasks_recent,priority:1"`
	CreatedAt   time.Time `gorm:"not null;index:idx_tasks_recent,priority:2,sort:desc"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (taskRow) TableName() string {
	return "tasks"
}

func (row taskRow) toDomain() domain.Task {
	return domain.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Completed:   row.Completed,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// SQLiteTaskRepository is the TaskStore backed by SQLite through gorm.
type SQLiteTaskRepository struct {
	db *gorm.DB
}

func NewSQLiteTaskRepository(db *gorm.DB) *SQLiteTaskRepository {
	return &SQLiteTaskRepository{db: db}
}

// Migrate creates the tasks table and its listing index.
func (r *SQLiteTaskRepository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&taskRow{}); err != nil {
		return fmt.Errorf("failed to migrate tasks table: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepository) FetchRecentIncomplete(ctx context.Context, limit int) ([]domain.Task, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidLimit, limit)
	}

	var rows []taskRow
	err := r.db.WithContext(ctx).
		Where("completed = ?", false).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, domain.WrapStorage("fetch recent tasks", err)
	}

	res := make([]domain.Task, 0, len(rows))
	for _, row := range rows {
		res = append(res, row.toDomain())
	}
	return res, nil
}

func (r *SQLiteTaskRepository) Insert(ctx context.Context, t domain.Task) (domain.Task, error) {
	row := taskRow{
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Task{}, domain.WrapStorage("insert task", err)
	}
	return row.toDomain(), nil
}

func (r *SQLiteTaskRepository) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&taskRow{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"completed":  true,
			"updated_at": gorm.Expr("CASE WHEN completed THEN updated_at ELSE ? END", r.db.NowFunc()),
		})
	if res.Error != nil {
		return false, domain.WrapStorage("complete task", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *SQLiteTaskRepository) FindByID(ctx context.Context, id int64) (domain.Task, bool, error) {
	var row taskRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Task{}, false, nil
		}
		return domain.Task{}, false, domain.WrapStorage("find task", err)
	}
	return row.toDomain(), true, nil
}

func (r *SQLiteTaskRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
