package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"todo_app/internal/service"

	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	svc *service.TaskService
}

func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// ListTasks returns the recent incomplete tasks.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	ctx := c.Request.Context()
	tasks, err := h.svc.ListRecentTasks(ctx)
	if err != nil {
		respondInternal(c, MsgListFailed, err)
		return
	}
	respondData(c, http.StatusOK, tasks)
}

// CreateTask decodes an untyped JSON object and lets the service validate it.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var input map[string]any
	if err := c.ShouldBindJSON(&input); err != nil || input == nil {
		respondError(c, http.StatusBadRequest, MsgInvalidJSON)
		return
	}

	ctx := c.Request.Context()
	task, err := h.svc.CreateTask(ctx, input)
	if err != nil {
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			respondError(c, http.StatusBadRequest, ve.Message)
			return
		}
		respondInternal(c, MsgCreateFailed, err)
		return
	}
	respondData(c, http.StatusCreated, task)
}

// CompleteTask answers 404 whenever the store reports no matching task.
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		NotFound(c)
		return
	}

	ctx := c.Request.Context()
	completed, err := h.svc.CompleteTask(ctx, id)
	if err != nil {
		respondInternal(c, MsgCompleteFailed, err, "task_id", id)
		return
	}
	if !completed {
		respondError(c, http.StatusNotFound, MsgTaskNotFound)
		return
	}
	respondMessage(c, http.StatusOK, MsgTaskCompleted)
}

// GetTask returns one task in any state.
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		NotFound(c)
		return
	}

	ctx := c.Request.Context()
	task, err := h.svc.GetTask(ctx, id)
	if errors.Is(err, service.ErrTaskNotFound) {
		respondError(c, http.StatusNotFound, MsgTaskNotFound)
		return
	}
	if err != nil {
		respondInternal(c, MsgGetFailed, err, "task_id", id)
		return
	}
	respondData(c, http.StatusOK, task)
}

// taskID accepts only decimal digits, so "/tasks/abc/complete" is an unknown endpoint.
func taskID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
