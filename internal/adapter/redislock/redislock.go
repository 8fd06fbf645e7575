package redislock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/homeward/homeward/internal/ports"
)

// Config configures the project locker.
type Config struct {
	Enabled    bool
	RedisURL   string
	TTL        time.Duration
	RetryDelay time.Duration
}

// NewProjectLocker returns a Redis-backed locker, or an in-process locker
// when Redis is disabled. Single-instance deployments do not need Redis for
// correctness; multi-instance ones do.
func NewProjectLocker(config Config, logger *logrus.Logger) (ports.ProjectLocker, error) {
	if !config.Enabled {
		logger.Info("Redis project locking disabled, using in-process locks")
		return NewLocalLocker(), nil
	}

	opt, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := config.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	retry := config.RetryDelay
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}

	logger.WithFields(logrus.Fields{
		"ttl":         ttl,
		"retry_delay": retry,
	}).Info("Redis project locker initialized")

	return &redisLocker{client: client, ttl: ttl, retry: retry, logger: logger}, nil
}

// redisLocker serializes per-project work across instances with SET NX PX.
// Release is token-checked so an expired holder cannot free a lock it no
// longer owns.
type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
	logger *logrus.Logger
}

const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

func (l *redisLocker) Acquire(ctx context.Context, projectID string) (func(), error) {
	key := "homeward:project-lock:" + projectID
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire project lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}

	release := func() {
		if err := l.client.Eval(context.Background(), releaseScript, []string{key}, token).Err(); err != nil {
			l.logger.WithError(err).WithField("project_id", projectID).Warn("failed to release project lock")
		}
	}
	return release, nil
}

// LocalLocker is a per-key mutex for single-process deployments and tests.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocalLocker creates an in-process project locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

// Acquire takes the mutex for a project key.
func (l *LocalLocker) Acquire(ctx context.Context, projectID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[projectID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[projectID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}
