package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"todo_app/internal/domain"
	"todo_app/internal/http/handlers"
	"todo_app/internal/http/middleware"
	"todo_app/internal/repository"
	"todo_app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// brokenStore fails every call like a lost database connection.
type brokenStore struct{}

var errLost = domain.WrapStorage("query", errors.New("dial tcp 10.1.2.3:5432: connection refused"))

func (brokenStore) FetchRecentIncomplete(context.Context, int) ([]domain.Task, error) {
	return nil, errLost
}
func (brokenStore) Insert(context.Context, domain.Task) (domain.Task, error) {
	return domain.Task{}, errLost
}
func (brokenStore) MarkCompleted(context.Context, int64) (bool, error) { return false, errLost }
func (brokenStore) FindByID(context.Context, int64) (domain.Task, bool, error) {
	return domain.Task{}, false, errLost
}
func (brokenStore) Ping(context.Context) error { return errLost }

func newTestRouter(store domain.TaskStore) *gin.Engine {
	return NewRouter(RouterConfig{
		Tasks:   service.NewTaskService(store),
		Version: "test",
		Checks:  map[string]handlers.Pinger{"database": store.(handlers.Pinger)},
	})
}

func do(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func TestTaskLifecycle(t *testing.T) {
	r := newTestRouter(repository.NewMemoryTaskRepository())

	w, env := do(t, r, http.MethodPost, "/tasks", `{"title":"Buy milk","description":"2%"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.True(t, env.Success)

	var created domain.TaskRecord
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, "2%", created.Description)
	assert.False(t, created.Completed)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &raw))
	for _, key := range []string{"id", "title", "description", "completed", "created_at", "updated_at"} {
		assert.Contains(t, raw, key)
	}
	_, err := time.Parse(time.RFC3339Nano, raw["created_at"].(string))
	assert.NoError(t, err)

	w, env = do(t, r, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []domain.TaskRecord
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)

	w, env = do(t, r, http.MethodPatch, "/tasks/1/complete", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "Task completed", env.Message)

	w, env = do(t, r, http.MethodGet, "/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	w, env = do(t, r, http.MethodGet, "/tasks/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var fetched domain.TaskRecord
	require.NoError(t, json.Unmarshal(env.Data, &fetched))
	assert.True(t, fetched.Completed)

	// re-completing is idempotent
	w, _ = do(t, r, http.MethodPut, "/tasks/1/complete", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListTasks_AtMostFiveNewestFirst(t *testing.T) {
	r := newTestRouter(repository.NewMemoryTaskRepository())
	for i := 0; i < 7; i++ {
		w, _ := do(t, r, http.MethodPost, "/tasks", `{"title":"task"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	_, env := do(t, r, http.MethodGet, "/tasks", "")
	var listed []domain.TaskRecord
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 5)
	assert.Equal(t, int64(7), listed[0].ID)
	assert.Equal(t, int64(3), listed[4].ID)
}

func TestCreateTask_BadRequests(t *testing.T) {
	cases := []struct {
		name string
		body string
		msg  string
	}{
		{"malformed json", `{"title":`, handlers.MsgInvalidJSON},
		{"empty body", ``, handlers.MsgInvalidJSON},
		{"json null", `null`, handlers.MsgInvalidJSON},
		{"json array", `["title"]`, handlers.MsgInvalidJSON},
		{"empty title", `{"title":""}`, service.MsgTitleRequired},
		{"missing title", `{"description":"x"}`, service.MsgTitleRequired},
		{"numeric title", `{"title":12}`, service.MsgTitleRequired},
		{"long title", `{"title":"` + strings.Repeat("x", 256) + `"}`, service.MsgTitleTooLong},
		{"numeric description", `{"title":"ok","description":5}`, service.MsgDescriptionInvalid},
		{"nul in title", `{"title":"Buy\u0000milk"}`, service.MsgTitleNul},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := repository.NewMemoryTaskRepository()
			r := newTestRouter(store)

			w, env := do(t, r, http.MethodPost, "/tasks", tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tc.msg, env.Message)

			tasks, err := store.FetchRecentIncomplete(context.Background(), 10)
			require.NoError(t, err)
			assert.Empty(t, tasks)
		})
	}
}

func TestCompleteTask_NotFound(t *testing.T) {
	r := newTestRouter(repository.NewMemoryTaskRepository())

	w, env := do(t, r, http.MethodPut, "/tasks/9999/complete", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, handlers.MsgTaskNotFound, env.Message)

	w, env = do(t, r, http.MethodGet, "/tasks/9999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, handlers.MsgTaskNotFound, env.Message)
}

func TestRouting_NotFoundAndMethodNotAllowed(t *testing.T) {
	r := newTestRouter(repository.NewMemoryTaskRepository())

	cases := []struct {
		method string
		path   string
		status int
		msg    string
	}{
		{http.MethodGet, "/nope", http.StatusNotFound, handlers.MsgEndpointNotFound},
		{http.MethodPut, "/tasks/abc/complete", http.StatusNotFound, handlers.MsgEndpointNotFound},
		{http.MethodPut, "/tasks/-1/complete", http.StatusNotFound, handlers.MsgEndpointNotFound},
		{http.MethodGet, "/tasks/abc", http.StatusNotFound, handlers.MsgEndpointNotFound},
		{http.MethodDelete, "/tasks", http.StatusMethodNotAllowed, handlers.MsgMethodNotAllowed},
		{http.MethodPut, "/tasks", http.StatusMethodNotAllowed, handlers.MsgMethodNotAllowed},
		{http.MethodGet, "/tasks/1/complete", http.StatusMethodNotAllowed, handlers.MsgMethodNotAllowed},
		{http.MethodPost, "/tasks/1/complete", http.StatusMethodNotAllowed, handlers.MsgMethodNotAllowed},
	}
	for _, tc := range cases {
		w, env := do(t, r, tc.method, tc.path, "")
		assert.Equal(t, tc.status, w.Code, "%s %s", tc.method, tc.path)
		assert.False(t, env.Success, "%s %s", tc.method, tc.path)
		assert.Equal(t, tc.msg, env.Message, "%s %s", tc.method, tc.path)
	}
}

func TestAPIPrefix(t *testing.T) {
	r := newTestRouter(repository.NewMemoryTaskRepository())

	w, _ := do(t, r, http.MethodPost, "/api/tasks", `{"title":"prefixed"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := do(t, r, http.MethodGet, "/api/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed []domain.TaskRecord
	require.NoError(t, json.Unmarshal(env.Data, &listed))
	require.Len(t, listed, 1)

	w, _ = do(t, r, http.MethodPatch, "/api/tasks/1/complete", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = do(t, r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "API is healthy", env.Message)
}

func TestStorageFailuresAreGeneric(t *testing.T) {
	r := newTestRouter(brokenStore{})

	cases := []struct {
		method, path, body, msg string
	}{
		{http.MethodGet, "/tasks", "", handlers.MsgListFailed},
		{http.MethodPost, "/tasks", `{"title":"x"}`, handlers.MsgCreateFailed},
		{http.MethodPut, "/tasks/1/complete", "", handlers.MsgCompleteFailed},
		{http.MethodGet, "/tasks/1", "", handlers.MsgGetFailed},
	}
	for _, tc := range cases {
		w, env := do(t, r, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusInternalServerError, w.Code, tc.path)
		assert.False(t, env.Success)
		assert.Equal(t, tc.msg, env.Message)
		assert.NotContains(t, w.Body.String(), "10.1.2.3")
	}
}

func TestHealth(t *testing.T) {
	w, env := do(t, newTestRouter(repository.NewMemoryTaskRepository()), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, env = do(t, newTestRouter(brokenStore{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "database unavailable", env.Message)
}

func TestReadiness(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(brokenStore{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "unhealthy", resp.Checks["database"])

	w = httptest.NewRecorder()
	newTestRouter(repository.NewMemoryTaskRepository()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(repository.NewMemoryTaskRepository())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/tasks/1/complete", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(repository.NewMemoryTaskRepository())
	do(t, r, http.MethodPost, "/tasks", `{"title":"counted"}`)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "todo_tasks_created_total")
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRateLimitedTaskRoutes(t *testing.T) {
	r := NewRouter(RouterConfig{
		Tasks:     service.NewTaskService(repository.NewMemoryTaskRepository()),
		Checks:    map[string]handlers.Pinger{},
		RateLimit: middleware.SimpleRateLimit(1, time.Minute),
	})

	w, _ := do(t, r, http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, r, http.MethodGet, "/tasks", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Rate limit exceeded", env.Message)

	// health is not limited
	w, _ = do(t, r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
