package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"todo_app/internal/domain"
	"todo_app/internal/logger"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	recentKeyPrefix = "tasks:recent:"
	// recentGenKey is bumped by every successful write. Cached lists are
	// stored under the generation they were read in, so a list filled from
	// a read that raced a write is never served.
	recentGenKey = recentKeyPrefix + "gen"

	defaultLoadTimeout = 10 * time.Second
)

// CachedTaskRepository caches FetchRecentIncomplete results in Redis.
// Redis failures fall through to the wrapped store.
type CachedTaskRepository struct {
	next   domain.TaskStore
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group

	// loadTimeout bounds a shared load once it no longer follows any
	// caller's context.
	loadTimeout time.Duration
	// bypass is set when a generation bump failed; reads skip the cache
	// until a later bump succeeds.
	bypass atomic.Bool
}

func NewCachedTaskRepository(next domain.TaskStore, client *redis.Client, ttl time.Duration) *CachedTaskRepository {
	return &CachedTaskRepository{next: next, client: client, ttl: ttl, loadTimeout: defaultLoadTimeout}
}

func recentKey(gen int64, limit int) string {
	return recentKeyPrefix + strconv.FormatInt(gen, 10) + ":" + strconv.Itoa(limit)
}

func (r *CachedTaskRepository) generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, recentGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (r *CachedTaskRepository) FetchRecentIncomplete(ctx context.Context, limit int) ([]domain.Task, error) {
	if r.bypass.Load() {
		CacheLookups.WithLabelValues("bypass").Inc()
		return r.next.FetchRecentIncomplete(ctx, limit)
	}

	gen, err := r.generation(ctx)
	if err != nil {
		CacheLookups.WithLabelValues("error").Inc()
		logger.WithContext(ctx).Warn("cache generation lookup failed", "error", err)
		return r.next.FetchRecentIncomplete(ctx, limit)
	}
	key := recentKey(gen, limit)

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []domain.Task
		if uerr := json.Unmarshal(data, &cached); uerr == nil {
			CacheLookups.WithLabelValues("hit").Inc()
			return cached, nil
		}
		logger.WithContext(ctx).Warn("discarding unreadable cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		CacheLookups.WithLabelValues("error").Inc()
		logger.WithContext(ctx).Warn("cache get failed", "key", key, "error", err)
	}
	CacheLookups.WithLabelValues("miss").Inc()

	ch := r.group.DoChan(key, func() (any, error) {
		return r.load(context.WithoutCancel(ctx), key, limit)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Task), nil
	}
}

// load reads through to the wrapped store and fills key. It is shared by
// every caller waiting on key, so it runs detached from any one of them.
func (r *CachedTaskRepository) load(ctx context.Context, key string, limit int) ([]domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, r.loadTimeout)
	defer cancel()

	tasks, err := r.next.FetchRecentIncomplete(ctx, limit)
	if err != nil {
		return nil, err
	}
	if payload, merr := json.Marshal(tasks); merr == nil {
		if serr := r.client.Set(ctx, key, payload, r.ttl).Err(); serr != nil {
			logger.WithContext(ctx).Warn("cache set failed", "key", key, "error", serr)
		}
	}
	return tasks, nil
}

func (r *CachedTaskRepository) Insert(ctx context.Context, t domain.Task) (domain.Task, error) {
	created, err := r.next.Insert(ctx, t)
	if err != nil {
		return domain.Task{}, err
	}
	r.invalidate(ctx)
	return created, nil
}

func (r *CachedTaskRepository) MarkCompleted(ctx context.Context, id int64) (bool, error) {
	ok, err := r.next.MarkCompleted(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		r.invalidate(ctx)
	}
	return ok, nil
}

func (r *CachedTaskRepository) FindByID(ctx context.Context, id int64) (domain.Task, bool, error) {
	return r.next.FindByID(ctx, id)
}

func (r *CachedTaskRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// invalidate moves readers to a new generation. Lists cached under older
// generations are left to expire with their TTL.
func (r *CachedTaskRepository) invalidate(ctx context.Context) {
	if err := r.client.Incr(context.WithoutCancel(ctx), recentGenKey).Err(); err != nil {
		r.bypass.Store(true)
		logger.WithContext(ctx).Error("cache generation bump failed, bypassing cache", "error", err)
		return
	}
	r.bypass.Store(false)
}
