package handlers

import (
	"context"
	"errors"
	"net/http"

	"todo_app/internal/domain"
	"todo_app/internal/logger"

	"github.com/gin-gonic/gin"
)

// Messages returned to clients. Internal error detail is logged, never sent.
const (
	MsgInvalidJSON      = "Invalid JSON data"
	MsgTaskNotFound     = "Task not found"
	MsgTaskCompleted    = "Task completed"
	MsgListFailed       = "Failed to retrieve tasks"
	MsgGetFailed        = "Failed to retrieve task"
	MsgCreateFailed     = "Failed to create task"
	MsgCompleteFailed   = "Failed to complete task"
	MsgEndpointNotFound = "Endpoint not found"
	MsgMethodNotAllowed = "Method not allowed"
)

func respondData(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": true, "message": message})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// respondInternal logs err and answers 500 with message. Storage failures
// are logged as errors; a request abandoned by its client only as a warning.
func respondInternal(c *gin.Context, message string, err error, args ...any) {
	ctx := c.Request.Context()
	log := logger.WithContext(ctx)
	args = append(args, "error", err)

	switch {
	case domain.IsStorage(err):
		log.Error(message, args...)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		log.Warn(message, args...)
	default:
		log.Error(message, append(args, "unexpected", true)...)
	}
	respondError(c, http.StatusInternalServerError, message)
}

// NotFound answers unmatched paths.
func NotFound(c *gin.Context) {
	respondError(c, http.StatusNotFound, MsgEndpointNotFound)
}

// MethodNotAllowed answers known paths requested with the wrong method.
func MethodNotAllowed(c *gin.Context) {
	respondError(c, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}
