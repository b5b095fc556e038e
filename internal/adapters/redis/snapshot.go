package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Snapshot is the durable persistence adapter. Each state slice is
// serialized under one namespaced key; only the caller's allow-listed
// fields ever reach Save. No TTL is applied: persisted data stays valid
// until a later successful fetch replaces the slice.
type Snapshot struct{ c *redis.Client }

func New(addr, pass string, db int) *Snapshot {
	return &Snapshot{c: redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})}
}

func key(slice string) string { return "persist:" + slice }

func (s *Snapshot) Save(ctx context.Context, slice string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", slice, err)
	}
	return s.c.Set(ctx, key(slice), b, 0).Err()
}

func (s *Snapshot) Load(ctx context.Context, slice string, dst any) (bool, error) {
	b, err := s.c.Get(ctx, key(slice)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

// MemorySnapshot is the session-scoped variant: snapshots live for the
// process lifetime only. Same contract, nothing survives a restart.
type MemorySnapshot struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemory() *MemorySnapshot {
	return &MemorySnapshot{data: map[string][]byte{}}
}

func (m *MemorySnapshot) Save(ctx context.Context, slice string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", slice, err)
	}
	m.mu.Lock()
	m.data[slice] = b
	m.mu.Unlock()
	return nil
}

func (m *MemorySnapshot) Load(ctx context.Context, slice string, dst any) (bool, error) {
	m.mu.Lock()
	b, ok := m.data[slice]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
