package favorites

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/natefinch/atomic"
	"github.com/redis/go-redis/v9"
)

// MemoryPort keeps the serialized set in memory.
type MemoryPort struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryPort creates a port holding data.
func NewMemoryPort(data []byte) *MemoryPort {
	return &MemoryPort{data: bytes.Clone(data)}
}

func (p *MemoryPort) Load(context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.data), nil
}

func (p *MemoryPort) Save(_ context.Context, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = bytes.Clone(data)
	return nil
}

func (p *MemoryPort) Update(_ context.Context, fn func([]byte) ([]byte, error)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := fn(bytes.Clone(p.data))
	if err != nil || data == nil {
		return err
	}
	p.data = bytes.Clone(data)
	return nil
}

// Bytes returns the last saved value.
func (p *MemoryPort) Bytes() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.data)
}

const filePerms = 0o644

// FilePort keeps the serialized set in a file. Writes replace the file
// atomically, so a crash never leaves a partial set behind.
type FilePort struct {
	path string
}

// NewFilePort creates a port on path. The file need not exist.
func NewFilePort(path string) *FilePort {
	return &FilePort{path: path}
}

// Path returns the backing file.
func (p *FilePort) Path() string {
	return p.path
}

func (p *FilePort) Load(context.Context) ([]byte, error) {
	data, err := os.ReadFile(p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read favorites file: %w", err)
	}
	return data, nil
}

func (p *FilePort) Save(_ context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create favorites dir: %w", err)
	}

	if err := atomic.WriteFile(p.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write favorites file: %w", err)
	}

	// atomic.WriteFile doesn't set permissions for new files
	if err := os.Chmod(p.path, filePerms); err != nil {
		return fmt.Errorf("set favorites file permissions: %w", err)
	}
	return nil
}

// LockTimeout bounds the wait for the favorites file lock.
const LockTimeout = 5 * time.Second

// ErrLockTimeout is returned when the favorites file stays locked.
var ErrLockTimeout = errors.New("favorites file lock timeout")

// Update holds an exclusive lock on a separate .lock file while it reads,
// changes and writes the set, so concurrent writers in any process are
// serialized.
func (p *FilePort) Update(ctx context.Context, fn func([]byte) ([]byte, error)) error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("create favorites dir: %w", err)
	}

	unlock, err := lockFile(ctx, p.path+".lock")
	if err != nil {
		return err
	}
	defer unlock()

	current, err := p.Load(ctx)
	if err != nil {
		return err
	}
	data, err := fn(current)
	if err != nil || data == nil {
		return err
	}
	return p.Save(ctx, data)
}

func lockFile(ctx context.Context, path string) (func(), error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, filePerms)
	if err != nil {
		return nil, fmt.Errorf("open favorites lock: %w", err)
	}

	const retryInterval = 10 * time.Millisecond
	deadline := time.Now().Add(LockTimeout)

	for {
		if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err == nil {
			return func() {
				_ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
				_ = file.Close()
			}, nil
		}

		if time.Now().After(deadline) {
			_ = file.Close()
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, path)
		}

		select {
		case <-ctx.Done():
			_ = file.Close()
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

// RedisKeyPrefix prefixes the per-session favorites key.
const RedisKeyPrefix = "spacex-favorites:"

// RedisPort keeps one session's serialized set in Redis, without expiry.
type RedisPort struct {
	redis *redis.Client
	key   string
}

// NewRedisPort creates a port for session.
func NewRedisPort(redisClient *redis.Client, session string) *RedisPort {
	if redisClient == nil {
		panic("redis client is required")
	}
	return &RedisPort{redis: redisClient, key: RedisKeyPrefix + session}
}

// Key returns the Redis key of the session's set.
func (p *RedisPort) Key() string {
	return p.key
}

func (p *RedisPort) Load(ctx context.Context) ([]byte, error) {
	data, err := p.redis.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get favorites: %w", err)
	}
	return data, nil
}

func (p *RedisPort) Save(ctx context.Context, data []byte) error {
	if err := p.redis.Set(ctx, p.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set favorites: %w", err)
	}
	return nil
}

const maxUpdateRetries = 10

// ErrConflict is returned when the set kept changing during an update.
var ErrConflict = errors.New("favorites update conflict")

// Update runs fn inside a WATCH transaction and retries on concurrent writes.
func (p *RedisPort) Update(ctx context.Context, fn func([]byte) ([]byte, error)) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, p.key).Bytes()
		if errors.Is(err, redis.Nil) {
			current = nil
		} else if err != nil {
			return fmt.Errorf("get favorites: %w", err)
		}

		data, err := fn(current)
		if err != nil || data == nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, p.key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := p.redis.Watch(ctx, txf, p.key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update favorites: %w", err)
		}
		return nil
	}
	return ErrConflict
}
