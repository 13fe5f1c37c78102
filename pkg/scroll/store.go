package scroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrConflict is returned when a view kept changing underneath an update.
var ErrConflict = errors.New("scroll state update conflict")

// Store persists view state. Update applies fn atomically with respect to
// other updates of the same view.
type Store interface {
	Get(ctx context.Context, view string) (ViewState, error)
	Update(ctx context.Context, view string, fn func(*ViewState) error) error
	Delete(ctx context.Context, view string) error
}

// MemoryStore keeps view state in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	views map[string]ViewState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{views: make(map[string]ViewState)}
}

func (m *MemoryStore) Get(_ context.Context, view string) (ViewState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.views[view]; ok {
		return s, nil
	}
	return NewViewState(), nil
}

func (m *MemoryStore) Update(_ context.Context, view string, fn func(*ViewState) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.views[view]
	if !ok {
		s = NewViewState()
	}
	if err := fn(&s); err != nil {
		return err
	}
	s.UpdatedAt = time.Now()
	m.views[view] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, view string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.views, view)
	return nil
}

// RedisKeyPrefix prefixes every view state key.
const RedisKeyPrefix = "spacex:scroll:"

// DefaultStateTTL expires view state of abandoned sessions.
const DefaultStateTTL = 30 * time.Minute

const maxUpdateRetries = 10

// RedisStore keeps view state in Redis, shared by every server instance.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisStore creates a Redis-backed store. A ttl <= 0 uses DefaultStateTTL.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration, logger zerolog.Logger) *RedisStore {
	if redisClient == nil {
		panic("redis client is required")
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	return &RedisStore{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) key(view string) string {
	return RedisKeyPrefix + view
}

// Get retrieves the state of view. Returns a fresh Idle state if none is stored.
func (s *RedisStore) Get(ctx context.Context, view string) (ViewState, error) {
	return s.read(ctx, s.redis, s.key(view))
}

func (s *RedisStore) read(ctx context.Context, r redis.Cmdable, key string) (ViewState, error) {
	data, err := r.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewViewState(), nil
	}
	if err != nil {
		return ViewState{}, fmt.Errorf("get view state: %w", err)
	}

	var state ViewState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Discarding corrupt view state")
		return NewViewState(), nil
	}
	return state, nil
}

// Update runs fn inside a WATCH transaction and retries on concurrent writes.
func (s *RedisStore) Update(ctx context.Context, view string, fn func(*ViewState) error) error {
	key := s.key(view)

	txf := func(tx *redis.Tx) error {
		state, err := s.read(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := fn(&state); err != nil {
			return err
		}
		state.UpdatedAt = time.Now()

		data, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("marshal view state: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.redis.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug().Str("key", key).Int("attempt", i+1).Msg("View state changed during update, retrying")
			continue
		}
		if err != nil {
			return fmt.Errorf("update view state: %w", err)
		}
		return nil
	}
	return ErrConflict
}

// Delete removes the state of view.
func (s *RedisStore) Delete(ctx context.Context, view string) error {
	if err := s.redis.Del(ctx, s.key(view)).Err(); err != nil {
		return fmt.Errorf("delete view state: %w", err)
	}
	return nil
}
