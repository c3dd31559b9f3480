package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"todo_app/internal/config"
	httpServer "todo_app/internal/http"
	"todo_app/internal/http/middleware"
	"todo_app/internal/logger"
	"todo_app/internal/service"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	Migrate bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Run the HTTP API",
		Long:         "Open the configured task store and serve the task API until SIGINT or SIGTERM.",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			code, err := runServe(cmd.Context(), cfg, opts)
			if err != nil {
				return err
			}
			os.Exit(code)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Migrate, "migrate", false, "apply migrations before serving (also AUTO_MIGRATE=true)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, opts *ServeOptions) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	gin.SetMode(gin.ReleaseMode)

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	st, err := openStorage(connectCtx, cfg, opts.Migrate || cfg.AutoMigrate)
	cancel()
	if err != nil {
		return 0, err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           httpServer.NewRouter(routerConfig(cfg, st)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "driver", cfg.StoreDriver, "version", cfg.AppVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			st.Close()
			logger.Fatal("listen failed", "error", err)
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				logger.Info("shutting down server")
				err := srv.Shutdown(ctx)
				if cerr := st.Close(); cerr != nil {
					logger.Error("failed to release storage", "error", cerr)
				}
				return err
			},
		},
	)

	code := <-wait
	logger.Info("server exited", "code", code)
	return code, nil
}

func routerConfig(cfg *config.Config, st *storage) httpServer.RouterConfig {
	limit := middleware.SimpleRateLimit(cfg.APIRateLimit, cfg.APIRateWindow)
	if st.Redis != nil {
		limit = middleware.RedisRateLimit(st.Redis, cfg.APIRateLimit, cfg.APIRateWindow)
	}

	return httpServer.RouterConfig{
		Tasks:      service.NewTaskService(st.Store),
		Version:    cfg.AppVersion,
		Checks:     st.Checks,
		CORSOrigin: cfg.CORSOrigin,
		RateLimit:  limit,
	}
}
