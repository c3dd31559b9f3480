package http

import (
	"todo_app/internal/http/handlers"
	"todo_app/internal/http/middleware"
	"todo_app/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries everything NewRouter wires into the engine.
type RouterConfig struct {
	Tasks      *service.TaskService
	Version    string
	Checks     map[string]handlers.Pinger
	CORSOrigin string
	// RateLimit guards the task routes; nil disables limiting.
	RateLimit gin.HandlerFunc
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.Metrics(),
		middleware.CORS(cfg.CORSOrigin),
	)
	r.NoRoute(handlers.NotFound)
	r.NoMethod(handlers.MethodNotAllowed)

	RegisterRoutes(r, cfg)
	return r
}

func RegisterRoutes(r *gin.Engine, cfg RouterConfig) {
	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.Checks)
	taskHandler := handlers.NewTaskHandler(cfg.Tasks)

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerTaskRoutes(&r.RouterGroup, taskHandler, cfg.RateLimit)

	// Clients that address the API under /api keep working
	api := r.Group("/api")
	api.GET("/health", healthHandler.Health)
	registerTaskRoutes(api, taskHandler, cfg.RateLimit)
}

func registerTaskRoutes(g *gin.RouterGroup, h *handlers.TaskHandler, limit gin.HandlerFunc) {
	tasks := g.Group("/tasks")
	if limit != nil {
		tasks.Use(limit)
	}

	tasks.GET("", h.ListTasks)
	tasks.POST("", h.CreateTask)
	tasks.GET("/:id", h.GetTask)
	tasks.PUT("/:id/complete", h.CompleteTask)
	tasks.PATCH("/:id/complete", h.CompleteTask)
}
