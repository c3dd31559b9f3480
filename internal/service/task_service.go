package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"todo_app/internal/domain"
	"todo_app/internal/logger"
)

const (
	// RecentTasksLimit is the size of the recent incomplete window.
	RecentTasksLimit = 5
	// MaxTitleLength counts characters, not bytes.
	MaxTitleLength = 255
)

// Validation messages are returned to clients verbatim.
const (
	MsgTitleRequired      = "Title is required and must be a string"
	MsgTitleTooLong       = "Title must not exceed 255 characters"
	MsgDescriptionInvalid = "Description must be a string"
	MsgTitleNul           = "Title must not contain null characters"
	MsgDescriptionNul     = "Description must not contain null characters"
)

var (
	ErrTaskNotFound = errors.New("task not found")

	errNoID = errors.New("store returned a task without an id")
)

// ValidationError is a business-rule failure on client input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TaskService validates input and orchestrates TaskStore calls.
type TaskService struct {
	store domain.TaskStore
}

func NewTaskService(store domain.TaskStore) *TaskService {
	return &TaskService{store: store}
}

// ListRecentTasks returns up to RecentTasksLimit incomplete tasks, newest first.
func (s *TaskService) ListRecentTasks(ctx context.Context) ([]domain.TaskRecord, error) {
	tasks, err := s.store.FetchRecentIncomplete(ctx, RecentTasksLimit)
	if err != nil {
		return nil, err
	}

	res := make([]domain.TaskRecord, 0, len(tasks))
	for _, t := range tasks {
		res = append(res, t.Record())
	}
	return res, nil
}

// CreateTask validates untyped input (as decoded from JSON) and persists a
// new incomplete task.
func (s *TaskService) CreateTask(ctx context.Context, input map[string]any) (domain.TaskRecord, error) {
	title, description, err := validateTaskInput(input)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ValidationFailures.WithLabelValues(ve.Message).Inc()
			logger.WithContext(ctx).Debug("task rejected", "reason", ve.Message)
		}
		return domain.TaskRecord{}, err
	}

	created, err := s.store.Insert(ctx, domain.Task{
		Title:       title,
		Description: description,
		Completed:   false,
	})
	if err != nil {
		return domain.TaskRecord{}, err
	}
	if !created.IsPersisted() {
		return domain.TaskRecord{}, domain.WrapStorage("insert task", errNoID)
	}

	TasksCreated.Inc()
	logger.WithContext(ctx).Info("task created", "task_id", created.ID)
	return created.Record(), nil
}

// CompleteTask returns the store's answer unchanged: true when the task
// exists (completed now or earlier), false when it does not.
func (s *TaskService) CompleteTask(ctx context.Context, id int64) (bool, error) {
	ok, err := s.store.MarkCompleted(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		TasksCompleted.Inc()
		logger.WithContext(ctx).Info("task completed", "task_id", id)
	}
	return ok, nil
}

// GetTask returns a single task in any state.
func (s *TaskService) GetTask(ctx context.Context, id int64) (domain.TaskRecord, error) {
	t, found, err := s.store.FindByID(ctx, id)
	if err != nil {
		return domain.TaskRecord{}, err
	}
	if !found {
		return domain.TaskRecord{}, ErrTaskNotFound
	}
	return t.Record(), nil
}

// validateTaskInput stops at the first failing rule. A null description is
// treated as absent.
func validateTaskInput(input map[string]any) (string, string, error) {
	title, ok := input["title"].(string)
	if !ok || title == "" {
		return "", "", &ValidationError{Message: MsgTitleRequired}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", "", &ValidationError{Message: MsgTitleTooLong}
	}
	// Postgres text columns cannot store NUL.
	if strings.ContainsRune(title, 0) {
		return "", "", &ValidationError{Message: MsgTitleNul}
	}

	var description string
	if raw, present := input["description"]; present && raw != nil {
		d, ok := raw.(string)
		if !ok {
			return "", "", &ValidationError{Message: MsgDescriptionInvalid}
		}
		if strings.ContainsRune(d, 0) {
			return "", "", &ValidationError{Message: MsgDescriptionNul}
		}
		description = d
	}
	return title, description, nil
}
