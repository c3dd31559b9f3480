package cli

import (
	"context"
	"errors"
	"fmt"

	"todo_app/internal/config"
	"todo_app/internal/db"
	"todo_app/internal/domain"
	"todo_app/internal/http/handlers"
	"todo_app/internal/logger"
	"todo_app/internal/repository"

	redis "github.com/redis/go-redis/v9"
)

type pingStore interface {
	domain.TaskStore
	handlers.Pinger
}

// storage is the task store selected by STORE_DRIVER plus the handles that
// must be released on shutdown.
type storage struct {
	Store  domain.TaskStore
	Checks map[string]handlers.Pinger
	Redis  *redis.Client

	closers []func() error
}

// openStorage opens the configured store, applying migrations when migrate
// is set, and puts the Redis cache in front of it when REDIS_ADDR is set.
func openStorage(ctx context.Context, cfg *config.Config, migrate bool) (*storage, error) {
	st := &storage{Checks: map[string]handlers.Pinger{}}

	var base pingStore
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() error { pool.Close(); return nil })
		if migrate {
			if err := db.Migrate(ctx, pool); err != nil {
				st.Close()
				return nil, err
			}
		}
		base = repository.NewTaskRepository(pool)
	case config.DriverSQLite:
		gdb, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() error { return db.CloseSQLite(gdb) })
		repo := repository.NewSQLiteTaskRepository(gdb)
		if migrate {
			if err := repo.Migrate(ctx); err != nil {
				st.Close()
				return nil, err
			}
		}
		base = repo
	case config.DriverMemory:
		logger.Warn("using in-memory task store, tasks are lost on restart")
		base = repository.NewMemoryTaskRepository()
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	st.Store = base
	st.Checks["database"] = base

	if cfg.RedisAddr != "" {
		client, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			st.Close()
			return nil, err
		}
		st.closers = append(st.closers, client.Close)
		st.Redis = client
		st.Store = repository.NewCachedTaskRepository(base, client, cfg.CacheTTL)
		st.Checks["cache"] = st.Store.(handlers.Pinger)
	}

	return st, nil
}

// Close releases handles in reverse order of opening.
func (s *storage) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
