package runstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/counciljobs/ingestion-service/common/redis"
	redisv9 "github.com/redis/go-redis/v9"
)

const (
	runStateKeyPrefix = "run:state:"
	runningState      = "running"
	// runTimeout sets how long a run is considered running before it goes
	// stale. This prevents runs that died without proper cleanup from being
	// stuck in 'running' state forever.
	runTimeout = 6 * time.Hour
)

// ErrAlreadyRunning is returned when a run lock is already held.
var ErrAlreadyRunning = errors.New("run is already in progress")

// Manager tracks which sources are currently being processed, in Redis, so
// overlapping triggers (cron plus a manual run) cannot double-ingest a source.
type Manager struct {
	redis *redis.RedisClient
}

// NewManager creates a run state manager.
func NewManager(redis *redis.RedisClient) *Manager {
	return &Manager{redis: redis}
}

func (m *Manager) key(scope string) string {
	return runStateKeyPrefix + scope
}

// Acquire marks a scope (a source name, or "all") as running. It fails with
// ErrAlreadyRunning when the scope is already held.
func (m *Manager) Acquire(ctx context.Context, scope string) error {
	ok, err := m.redis.SetNX(ctx, m.key(scope), runningState, runTimeout)
	if err != nil {
		return fmt.Errorf("failed to acquire run lock for %s: %w", scope, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, scope)
	}
	return nil
}

// IsRunning checks whether a scope is currently marked as running.
func (m *Manager) IsRunning(ctx context.Context, scope string) (bool, error) {
	state, err := m.redis.Get(ctx, m.key(scope))
	if err != nil {
		if errors.Is(err, redisv9.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get run state for %s: %w", scope, err)
	}
	return state == runningState, nil
}

// Release clears the running mark for a scope.
func (m *Manager) Release(ctx context.Context, scope string) error {
	if err := m.redis.Delete(ctx, m.key(scope)); err != nil {
		return fmt.Errorf("failed to release run lock for %s: %w", scope, err)
	}
	return nil
}
